package worker

import (
	"context"
	"time"
)

// Worker worker interface
type Worker interface {
	Run(ctx context.Context) error
}

// TickWorker base worker running a tick function in a loop
type TickWorker struct {
	Delay    time.Duration
	ErrDelay time.Duration
}

// StartTick run tick until the context is cancelled; a tick error backs off
// with ErrDelay instead of aborting the loop
func (w *TickWorker) StartTick(ctx context.Context, onTick func(ctx context.Context) error) error {
	delay := w.Delay
	if delay <= 0 {
		delay = 10 * time.Second
	}
	errDelay := w.ErrDelay
	if errDelay <= 0 {
		errDelay = delay
	}

	dur := time.Millisecond
	timer := time.NewTimer(dur)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if err := onTick(ctx); err != nil {
				dur = errDelay
			} else {
				dur = delay
			}
			timer.Reset(dur)
		}
	}
}
