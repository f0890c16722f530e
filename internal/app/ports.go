package app

import (
	"context"

	"gesture-quiz-service/internal/domain"
)

// FrameSource returns the most recent camera snapshot, or false while the
// camera is not ready. Capture must be cheap and free of side effects.
type FrameSource interface {
	Capture() (domain.Frame, bool)
}

// Classifier maps camera frames to gesture or pointing labels. Both calls may
// fail with an error wrapping domain.ErrQuotaExceeded when throttled.
type Classifier interface {
	ClassifyGesture(ctx context.Context, frame domain.Frame) (domain.Gesture, error)
	// ClassifyPointing returns one of candidates, or domain.PointNone.
	ClassifyPointing(ctx context.Context, frames []domain.Frame, candidates []string) (string, error)
}

// SessionRepository abstracts where live quiz sessions are registered (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptStore persists finalized attempts.
type AttemptStore interface {
	SaveAttempt(ctx context.Context, attempt domain.Attempt) error
	GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error)
	// ListAttempts returns matching attempts, newest first.
	ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error)
}

// Leaderboard accumulates participant points across saved attempts.
type Leaderboard interface {
	AddPoints(ctx context.Context, userID, displayName string, points int) error
	Top(ctx context.Context, limit int) (domain.Leaderboard, error)
}
