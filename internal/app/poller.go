package app

import (
	"context"
	"time"
)

// pollTask runs fn once immediately and then on every interval until stopped
// or until the parent context ends.
type pollTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startPollTask(parent context.Context, interval time.Duration, fn func(context.Context)) *pollTask {
	ctx, cancel := context.WithCancel(parent)
	t := &pollTask{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fn(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			}
		}
	}()
	return t
}

// stop cancels the task without waiting, so it is safe to call from inside fn.
func (t *pollTask) stop() {
	if t == nil {
		return
	}
	t.cancel()
}
