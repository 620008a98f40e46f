package orchestrator

import (
	"context"
	"sync"
	"time"
)

// Dispatcher runs N indexed tasks in fixed-size groups. All tasks of a group
// run concurrently and the next group starts only after every task of the
// current one has returned, so at most GroupSize tasks are in flight at once.
type Dispatcher struct {
	// GroupSize is the number of tasks per group. Values below 1 are
	// treated as 1.
	GroupSize int
	// Pause is the delay between consecutive groups. There is no pause
	// after the final group.
	Pause time.Duration
}

// Run executes task(ctx, i) for every i in [0, n). Cancelling the context
// stops the scheduling of further groups; tasks already started still run
// to completion.
func (d *Dispatcher) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) {
	size := d.GroupSize
	if size < 1 {
		size = 1
	}

	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				task(ctx, i)
			}(i)
		}
		wg.Wait()

		if end < n && d.Pause > 0 {
			select {
			case <-time.After(d.Pause):
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}
