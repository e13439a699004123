package workload

import (
	"context"
	"time"
)

// noopSlice is the longest single wait between cancellation checks
const noopSlice = time.Second

// Noop does no io. It waits PerThreadFileSize microseconds so a round of
// it measures the harness itself.
type Noop struct{}

func (Noop) Run(ctx context.Context, w *WorkerContext) {
	start := time.Now()
	defer w.finish(start)

	remaining := time.Duration(w.Config.PerThreadFileSize) * time.Microsecond
	for remaining > 0 {
		if ctx.Err() != nil {
			return
		}

		wait := min(remaining, noopSlice)
		remaining -= wait

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
