package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"gesture-quiz-service/internal/domain"
)

// Leaderboard accumulates participant points in memory.
type Leaderboard struct {
	now func() time.Time

	mu           sync.RWMutex
	participants map[string]*domain.Participant
}

func NewLeaderboard() *Leaderboard {
	return NewLeaderboardWithClock(time.Now)
}

// NewLeaderboardWithClock allows deterministic tie-breaks in tests.
func NewLeaderboardWithClock(now func() time.Time) *Leaderboard {
	return &Leaderboard{now: now, participants: make(map[string]*domain.Participant)}
}

func (l *Leaderboard) AddPoints(_ context.Context, userID, displayName string, points int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	participant, ok := l.participants[userID]
	if !ok {
		participant = &domain.Participant{UserID: userID}
		l.participants[userID] = participant
	}
	if displayName != "" {
		participant.DisplayName = displayName
	}
	participant.Score += points
	participant.LastUpdated = l.now()
	return nil
}

func (l *Leaderboard) Top(_ context.Context, limit int) (domain.Leaderboard, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	participants := make([]*domain.Participant, 0, len(l.participants))
	for _, p := range l.participants {
		participants = append(participants, p)
	}
	// Score desc, then whoever reached the score first, then name.
	sort.Slice(participants, func(i, j int) bool {
		pi, pj := participants[i], participants[j]
		if pi.Score != pj.Score {
			return pi.Score > pj.Score
		}
		if !pi.LastUpdated.Equal(pj.LastUpdated) {
			return pi.LastUpdated.Before(pj.LastUpdated)
		}
		return pi.DisplayName < pj.DisplayName
	})
	if limit > 0 && len(participants) > limit {
		participants = participants[:limit]
	}

	entries := make([]domain.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, domain.LeaderboardEntry{UserID: p.UserID, DisplayName: p.DisplayName, Score: p.Score})
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: l.now()}, nil
}
