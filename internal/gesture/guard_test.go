package gesture

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gesture-quiz-service/internal/domain"
)

func TestGuardPausesOnQuotaErrorAndRecovers(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	guard := NewGuardWithClock(30*time.Second, func() time.Time { return now })
	calls := 0
	quota := func(context.Context) error {
		calls++
		return fmt.Errorf("generate: %w", domain.ErrQuotaExceeded)
	}
	ok := func(context.Context) error {
		calls++
		return nil
	}

	err := guard.Call(context.Background(), quota)
	if !errors.Is(err, domain.ErrAnalysisPaused) || !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected paused+quota error, got %v", err)
	}
	if !guard.Paused() {
		t.Fatalf("expected guard paused")
	}

	now = now.Add(29 * time.Second)
	if err := guard.Call(context.Background(), ok); !errors.Is(err, domain.ErrAnalysisPaused) {
		t.Fatalf("expected paused error during cooldown, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no calls during cooldown, got %d", calls)
	}

	now = now.Add(time.Second)
	if err := guard.Call(context.Background(), ok); err != nil {
		t.Fatalf("expected call after cooldown, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly one call after cooldown, got %d", calls)
	}
}

func TestGuardPassesTransientErrors(t *testing.T) {
	guard := NewGuard(time.Minute)
	boom := errors.New("boom")
	err := guard.Call(context.Background(), func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if guard.Paused() {
		t.Fatalf("transient errors must not pause analysis")
	}
}

func TestIsQuotaErrorMatchesProviderMarkers(t *testing.T) {
	if !IsQuotaError(errors.New(`Error 429, Message: quota, Status: RESOURCE_EXHAUSTED`)) {
		t.Fatalf("expected provider 429 to be detected")
	}
	if !IsQuotaError(errors.New("RESOURCE_EXHAUSTED")) {
		t.Fatalf("expected status marker to be detected")
	}
	if IsQuotaError(errors.New("deadline exceeded")) {
		t.Fatalf("unexpected quota match")
	}
	if IsQuotaError(nil) {
		t.Fatalf("nil is not a quota error")
	}
}
