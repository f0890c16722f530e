package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"gesture-quiz-service/internal/domain"
)

func TestLeaderboardAccumulatesAndOrders(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 18, 9, 0, 0, 0, time.UTC)
	board := NewLeaderboardWithClock(func() time.Time { return now })

	_ = board.AddPoints(ctx, "u1", "Alice", 2)
	now = now.Add(time.Second)
	_ = board.AddPoints(ctx, "u2", "Bob", 3)
	now = now.Add(time.Second)
	_ = board.AddPoints(ctx, "u1", "Alice", 1)
	now = now.Add(time.Second)
	_ = board.AddPoints(ctx, "u3", "Cara", 1)

	lb, err := board.Top(ctx, 0)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(lb.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(lb.Entries))
	}
	// Bob reached 3 before Alice did.
	if lb.Entries[0].UserID != "u2" || lb.Entries[1].UserID != "u1" || lb.Entries[1].Score != 3 {
		t.Fatalf("unexpected order %+v", lb.Entries)
	}

	top, _ := board.Top(ctx, 1)
	if len(top.Entries) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(top.Entries))
	}
}

func TestAttemptStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()

	if _, err := store.GetAttempt(ctx, "missing"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	attempt := domain.Attempt{ID: "a1", QuizID: "quiz-1", ParticipantID: "u1", Score: 1, MaxScore: 3}
	if err := store.SaveAttempt(ctx, attempt); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.GetAttempt(ctx, "a1")
	if err != nil || got.Score != 1 || got.MaxScore != 3 {
		t.Fatalf("unexpected attempt %+v (%v)", got, err)
	}
}

func TestAttemptStoreListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	base := time.Date(2025, 10, 18, 9, 0, 0, 0, time.UTC)
	for i, a := range []domain.Attempt{
		{ID: "a1", QuizID: "quiz-1", ParticipantID: "u1", CompletedAt: base},
		{ID: "a2", QuizID: "quiz-2", ParticipantID: "u1", CompletedAt: base.Add(time.Minute)},
		{ID: "a3", QuizID: "quiz-1", ParticipantID: "u2", CompletedAt: base.Add(2 * time.Minute)},
	} {
		if err := store.SaveAttempt(ctx, a); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	got, _ := store.ListAttempts(ctx, domain.AttemptFilter{ParticipantID: "u1"})
	if len(got) != 2 || got[0].ID != "a2" || got[1].ID != "a1" {
		t.Fatalf("unexpected participant history %+v", got)
	}
	got, _ = store.ListAttempts(ctx, domain.AttemptFilter{QuizID: "quiz-1", Limit: 1})
	if len(got) != 1 || got[0].ID != "a3" {
		t.Fatalf("unexpected quiz history %+v", got)
	}
	got, _ = store.ListAttempts(ctx, domain.AttemptFilter{ParticipantID: "u2", QuizID: "quiz-2"})
	if len(got) != 0 {
		t.Fatalf("expected no match, got %+v", got)
	}
}
