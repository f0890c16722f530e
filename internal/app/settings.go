package app

import "time"

// Settings tunes the gesture engine.
type Settings struct {
	// PollInterval is the gap between gesture classifications while the lock
	// control is held. Zero disables the background poller; callers then
	// drive Session.PollTick themselves.
	PollInterval time.Duration
	// StabilityThreshold is the number of consecutive identical gestures
	// required to confirm an answer.
	StabilityThreshold int
	// BurstSize and BurstDelay shape the frame burst captured per scan.
	BurstSize  int
	BurstDelay time.Duration
	// ClassifierTimeout bounds a single classifier call; zero means no bound.
	ClassifierTimeout time.Duration
	// Cooldown is how long analysis stays paused after a quota error. Zero
	// falls back to the default.
	Cooldown time.Duration
}

// DefaultSettings mirrors the timings tuned for the hosted classifier:
// a two-vote lock at 1.5s per poll settles in about three seconds.
func DefaultSettings() Settings {
	return Settings{
		PollInterval:       1500 * time.Millisecond,
		StabilityThreshold: 2,
		BurstSize:          3,
		BurstDelay:         150 * time.Millisecond,
		ClassifierTimeout:  10 * time.Second,
		Cooldown:           30 * time.Second,
	}
}

func (s Settings) normalized() Settings {
	if s.StabilityThreshold < 1 {
		s.StabilityThreshold = 1
	}
	if s.BurstSize < 1 {
		s.BurstSize = 1
	}
	if s.Cooldown <= 0 {
		s.Cooldown = DefaultSettings().Cooldown
	}
	return s
}
