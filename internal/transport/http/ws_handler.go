package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gesture-quiz-service/internal/app"
	"gesture-quiz-service/internal/infra/camera"
)

// Heartbeat is notified on every inbound message so session registries can
// extend liveness markers.
type Heartbeat func(ctx context.Context, sessionID string) error

type WSHandler struct {
	service     *app.QuizService
	frameMaxAge time.Duration
	heartbeat   Heartbeat
	logger      *zap.Logger
	upgrader    websocket.Upgrader
}

type WSOption func(*WSHandler)

// WithHeartbeat registers a liveness callback.
func WithHeartbeat(fn Heartbeat) WSOption {
	return func(h *WSHandler) { h.heartbeat = fn }
}

func NewWSHandler(service *app.QuizService, frameMaxAge time.Duration, logger *zap.Logger, opts ...WSOption) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &WSHandler{
		service:     service,
		frameMaxAge: frameMaxAge,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// framePayload carries one camera snapshot, base64 or as a data URL.
type framePayload struct {
	Image string `json:"image"`
}

type startedPayload struct {
	SessionID string `json:"sessionId"`
	QuizID    string `json:"quizId"`
	Preview   bool   `json:"preview"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and runs one quiz attempt per connection.
//
// Inbound: frame, hold, release, scan, next. Outbound: started, state, error.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	preview, _ := strconv.ParseBool(r.URL.Query().Get("preview"))
	if quizID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing quizId, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancelConn := context.WithCancel(r.Context())
	defer cancelConn()

	frames := camera.NewBuffer(h.frameMaxAge)
	session, err := h.service.Start(ctx, app.StartRequest{
		QuizID:        quizID,
		ParticipantID: userID,
		DisplayName:   displayName,
		Preview:       preview,
		Frames:        frames,
	})
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := session.ID()
	defer h.service.Abandon(context.Background(), sessionID)

	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	log := h.logger.With(zap.String("session_id", sessionID), zap.String("user_id", userID))

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// A single writer goroutine owns the connection's write side.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}
	pushError := func(message string) {
		push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}})
	}

	push(outboundMessage[any]{Type: "started", Payload: startedPayload{SessionID: sessionID, QuizID: quizID, Preview: preview}})

	go func() {
		defer close(updatesDone)
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: view}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	var scans sync.WaitGroup
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if h.heartbeat != nil {
			if err := h.heartbeat(ctx, sessionID); err != nil {
				log.Debug("session heartbeat", zap.Error(err))
			}
		}
		switch inbound.Type {
		case "frame":
			var payload framePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				pushError("invalid frame payload")
				continue
			}
			if err := frames.PushEncoded(payload.Image); err != nil {
				pushError("invalid frame: " + err.Error())
			}
		case "hold":
			_ = h.service.HoldLock(sessionID)
		case "release":
			_ = h.service.ReleaseLock(sessionID)
		case "scan":
			// Scans capture a frame burst and wait on the classifier; keep reading meanwhile.
			scans.Add(1)
			go func() {
				defer scans.Done()
				_ = h.service.Scan(ctx, sessionID)
			}()
		case "next":
			if err := h.service.Next(ctx, sessionID); err != nil {
				pushError(err.Error())
			}
		default:
			pushError("unsupported message type")
		}
	}

	cancelConn()
	scans.Wait()
	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
