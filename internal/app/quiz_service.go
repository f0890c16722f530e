package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gesture-quiz-service/internal/domain"
	"gesture-quiz-service/internal/gesture"
	"gesture-quiz-service/internal/metrics"
)

// Dependencies wires the quiz service.
type Dependencies struct {
	Sessions    SessionRepository
	Quizzes     QuizRepository
	Attempts    AttemptStore
	Leaderboard Leaderboard
	Classifier  Classifier
	// Guard is shared by every session so one throttled call pauses analysis process-wide.
	Guard    *gesture.Guard
	Settings Settings
	Logger   *zap.Logger
	Now      func() time.Time
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions   SessionRepository
	quizzes    QuizRepository
	attempts   AttemptStore
	board      Leaderboard
	classifier Classifier
	guard      *gesture.Guard
	settings   Settings
	logger     *zap.Logger
	now        func() time.Time
}

func NewQuizService(deps Dependencies) *QuizService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Settings = deps.Settings.normalized()
	if deps.Guard == nil {
		deps.Guard = gesture.NewGuardWithClock(deps.Settings.Cooldown, deps.Now)
	}
	return &QuizService{
		sessions:   deps.Sessions,
		quizzes:    deps.Quizzes,
		attempts:   deps.Attempts,
		board:      deps.Leaderboard,
		classifier: deps.Classifier,
		guard:      deps.Guard,
		settings:   deps.Settings,
		logger:     deps.Logger,
		now:        deps.Now,
	}
}

// StartRequest describes a new attempt.
type StartRequest struct {
	QuizID        string
	ParticipantID string
	DisplayName   string
	Preview       bool
	Frames        FrameSource
}

// Start loads the quiz and registers a fresh session positioned on its first question.
func (s *QuizService) Start(ctx context.Context, req StartRequest) (*Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyQuiz, req.QuizID)
	}

	session := NewSession(SessionParams{
		ID:            uuid.NewString(),
		Quiz:          quiz,
		ParticipantID: req.ParticipantID,
		DisplayName:   req.DisplayName,
		Preview:       req.Preview,
		Settings:      s.settings,
		Frames:        req.Frames,
		Classifier:    s.classifier,
		Guard:         s.guard,
		Finalize: func(ctx context.Context, attempt domain.Attempt) error {
			return s.saveAttempt(ctx, req.DisplayName, attempt)
		},
		Logger: s.logger,
		Now:    s.now,
	})
	s.sessions.Put(session)
	metrics.ActiveSessions.Inc()
	s.logger.Info("session started",
		zap.String("session_id", session.ID()),
		zap.String("quiz_id", quiz.ID),
		zap.String("user_id", req.ParticipantID),
		zap.Bool("preview", req.Preview),
	)
	return session, nil
}

// Session looks up a registered session.
func (s *QuizService) Session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Subscribe returns a channel that receives session views.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan SessionView, func(), error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

func (s *QuizService) HoldLock(sessionID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	session.HoldLock()
	return nil
}

func (s *QuizService) ReleaseLock(sessionID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	session.ReleaseLock()
	return nil
}

func (s *QuizService) Scan(ctx context.Context, sessionID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	session.Scan(ctx)
	return nil
}

func (s *QuizService) Next(ctx context.Context, sessionID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	session.Next(ctx)
	return nil
}

// Abandon closes the session and drops it from the registry.
func (s *QuizService) Abandon(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
	metrics.ActiveSessions.Dec()
}

// Leaderboard returns the top participants by accumulated points.
func (s *QuizService) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	return s.board.Top(ctx, limit)
}

// Attempt loads a saved attempt.
func (s *QuizService) Attempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	return s.attempts.GetAttempt(ctx, attemptID)
}

// ParticipantAttempts lists a participant's saved attempts, newest first.
func (s *QuizService) ParticipantAttempts(ctx context.Context, participantID string, limit int) ([]domain.Attempt, error) {
	return s.attempts.ListAttempts(ctx, domain.AttemptFilter{ParticipantID: participantID, Limit: limit})
}

// QuizAttempts lists every saved attempt at one quiz, newest first.
func (s *QuizService) QuizAttempts(ctx context.Context, quizID string, limit int) ([]domain.Attempt, error) {
	return s.attempts.ListAttempts(ctx, domain.AttemptFilter{QuizID: quizID, Limit: limit})
}

// saveAttempt persists the attempt exactly as the session scored it and
// credits the score to the participant. A leaderboard failure does not undo
// the save.
func (s *QuizService) saveAttempt(ctx context.Context, displayName string, attempt domain.Attempt) error {
	if err := s.attempts.SaveAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	if s.board == nil || attempt.Score == 0 {
		return nil
	}
	if err := s.board.AddPoints(ctx, attempt.ParticipantID, displayName, attempt.Score); err != nil {
		s.logger.Error("credit leaderboard",
			zap.String("attempt_id", attempt.ID),
			zap.String("user_id", attempt.ParticipantID),
			zap.Int("points", attempt.Score),
			zap.Error(err),
		)
	}
	return nil
}
