package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"gesture-quiz-service/internal/app"
	"gesture-quiz-service/internal/domain"
)

const (
	defaultLeaderboardLimit = 10
	defaultHistoryLimit     = 20
)

// APIHandler serves the read-only JSON endpoints.
type APIHandler struct {
	service *app.QuizService
	logger  *zap.Logger
}

func NewAPIHandler(service *app.QuizService, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{service: service, logger: logger}
}

// Register mounts the endpoints on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /leaderboard", h.Leaderboard)
	mux.HandleFunc("GET /attempts/{id}", h.Attempt)
	mux.HandleFunc("GET /participants/{id}/attempts", h.ParticipantAttempts)
	mux.HandleFunc("GET /quizzes/{id}/attempts", h.QuizAttempts)
}

func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, defaultLeaderboardLimit)
	if !ok {
		return
	}
	lb, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		h.logger.Error("leaderboard", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *APIHandler) Attempt(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.service.Attempt(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, domain.ErrAttemptNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		h.logger.Error("load attempt", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "attempt unavailable")
	default:
		writeJSON(w, http.StatusOK, attempt)
	}
}

// ParticipantAttempts serves a participant's attempt history.
func (h *APIHandler) ParticipantAttempts(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, defaultHistoryLimit)
	if !ok {
		return
	}
	attempts, err := h.service.ParticipantAttempts(r.Context(), r.PathValue("id"), limit)
	h.writeAttempts(w, attempts, err)
}

// QuizAttempts serves every saved attempt at a quiz, for analytics.
func (h *APIHandler) QuizAttempts(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, defaultHistoryLimit)
	if !ok {
		return
	}
	attempts, err := h.service.QuizAttempts(r.Context(), r.PathValue("id"), limit)
	h.writeAttempts(w, attempts, err)
}

func (h *APIHandler) writeAttempts(w http.ResponseWriter, attempts []domain.Attempt, err error) {
	if err != nil {
		h.logger.Error("list attempts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "attempts unavailable")
		return
	}
	writeJSON(w, http.StatusOK, attemptList{Attempts: attempts})
}

type attemptList struct {
	Attempts []domain.Attempt `json:"attempts"`
}

func limitParam(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}
