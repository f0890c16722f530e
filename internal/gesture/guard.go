package gesture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gesture-quiz-service/internal/domain"
)

// Guard wraps classifier calls and suspends them for a cooldown window after
// the upstream API reports quota exhaustion. It clears itself once the window
// elapses; there is no manual reset.
type Guard struct {
	cooldown time.Duration
	now      func() time.Time

	mu          sync.Mutex
	pausedUntil time.Time
}

// NewGuard returns a Guard using the wall clock.
func NewGuard(cooldown time.Duration) *Guard {
	return NewGuardWithClock(cooldown, time.Now)
}

// NewGuardWithClock allows deterministic cooldowns in tests.
func NewGuardWithClock(cooldown time.Duration, now func() time.Time) *Guard {
	return &Guard{cooldown: cooldown, now: now}
}

// PausedUntil returns the end of the current cooldown, if one is active.
func (g *Guard) PausedUntil() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pausedUntil.IsZero() || !g.now().Before(g.pausedUntil) {
		return time.Time{}, false
	}
	return g.pausedUntil, true
}

// Paused reports whether classifier calls are currently suspended.
func (g *Guard) Paused() bool {
	_, paused := g.PausedUntil()
	return paused
}

// Call runs fn unless the guard is paused. A quota error from fn trips the
// guard and is returned wrapped in domain.ErrAnalysisPaused.
func (g *Guard) Call(ctx context.Context, fn func(context.Context) error) error {
	if g.Paused() {
		return domain.ErrAnalysisPaused
	}
	err := fn(ctx)
	if err == nil {
		return nil
	}
	if IsQuotaError(err) {
		g.trip()
		return fmt.Errorf("%w: %w", domain.ErrAnalysisPaused, err)
	}
	return err
}

func (g *Guard) trip() {
	g.mu.Lock()
	defer g.mu.Unlock()
	until := g.now().Add(g.cooldown)
	if until.After(g.pausedUntil) {
		g.pausedUntil = until
	}
}

// IsQuotaError reports whether err signals rate or quota exhaustion upstream.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrQuotaExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
