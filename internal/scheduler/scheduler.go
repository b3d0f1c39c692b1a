// Package scheduler runs the recurring batch loops. Each loop is
// run-to-completion: a tick that arrives while a run is still in flight is
// simply the next tick, never a concurrent run.
package scheduler

import (
	"context"
	"log"
	"time"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on every interval tick until the
// context is cancelled. Task errors are logged, not fatal: the next tick
// retries.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	run := func() {
		start := time.Now()
		if err := task(ctx); err != nil {
			log.Printf("[%s] error: %v", name, err)
			return
		}
		log.Printf("[%s] ok (%s)", name, time.Since(start).Round(time.Millisecond))
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
