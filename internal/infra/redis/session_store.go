package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gesture-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions own timers and subscriber channels, so the live objects stay in a
// local map; Redis carries a liveness marker per session holding the quiz and
// participant, refreshed by Touch while the socket is active.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	view := session.View()
	ctx := context.Background()
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(session.ID()),
		"quizId", view.QuizID,
		"userId", session.ParticipantID(),
		"name", session.DisplayName(),
		"preview", view.Preview,
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, sessionKey(session.ID()), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// best-effort liveness marker
		s.logger.Warn("mark session live", zap.String("session_id", session.ID()), zap.Error(err))
	}
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if err := s.client.Del(context.Background(), sessionKey(sessionID)).Err(); err != nil {
		s.logger.Warn("clear session marker", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// Touch extends the liveness marker of an active session.
func (s *SessionStore) Touch(ctx context.Context, sessionID string) error {
	if s.ttl <= 0 {
		return nil
	}
	return s.client.Expire(ctx, sessionKey(sessionID), s.ttl).Err()
}

func sessionKey(sessionID string) string {
	return "gesture:session:" + sessionID
}
