package simulation

import (
	"context"
	"sync"
	"time"
)

// TaskHandle owns one running periodic task. Stop releases it and is safe to call
// more than once and from any goroutine.
type TaskHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// StartPeriodic runs task every interval until the handle is stopped or ctx ends.
// A firing is only handled after the previous one returned, so runs never overlap.
func StartPeriodic(ctx context.Context, interval time.Duration, task func()) *TaskHandle {
	ctx, cancel := context.WithCancel(ctx)
	h := &TaskHandle{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				task()
			}
		}
	}()

	return h
}

// Stop cancels the task and waits for an in-progress run to finish
func (h *TaskHandle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
	<-h.done
}
