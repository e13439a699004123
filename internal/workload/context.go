package workload

import (
	"errors"
	"fmt"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"golang.org/x/sys/unix"

	"github.com/jessegalley/fsbench/internal/config"
	"github.com/jessegalley/fsbench/internal/logging"
)

// latency histogram bounds in microseconds, one minute with three
// significant figures
const (
	latencyMin     = 1
	latencyMax     = 60_000_000
	latencySigFigs = 3
)

// NewLatencyHistogram returns an empty histogram with the bounds used for
// per operation latencies
func NewLatencyHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(latencyMin, latencyMax, latencySigFigs)
}

// WorkerContext is the per worker configuration and result record. It is
// written only by the goroutine running the worker until that goroutine has
// been joined; afterwards only the orchestrator reads it.
type WorkerContext struct {
	Config   config.RunConfig // private copy of the run configuration
	Instance uint32           // worker index, selects the byte range

	Ops      uint64  // completed operations
	Bytes    uint64  // bytes moved
	Duration float64 // seconds spent in the timed loop

	Rate           float64 // bytes per second
	OpRate         float64 // operations per second
	ResponseTimeMs float64 // mean milliseconds per operation

	Ret int   // 0 or a negative errno
	Err error // the failure behind Ret

	Latency *hdrhistogram.Histogram // per operation latency in microseconds
}

// NewWorkerContext returns the context for worker instance
func NewWorkerContext(cfg config.RunConfig, instance uint32) *WorkerContext {
	return &WorkerContext{
		Config:   cfg,
		Instance: instance,
		Latency:  NewLatencyHistogram(),
	}
}

// Failed reports whether the worker stopped on an error
func (w *WorkerContext) Failed() bool {
	return w.Err != nil
}

// record counts one completed operation of n bytes that started at begin
func (w *WorkerContext) record(begin time.Time, n int) {
	w.Ops++
	w.Bytes += uint64(n)

	us := time.Since(begin).Microseconds()
	if us < latencyMin {
		us = latencyMin
	}
	if us > latencyMax {
		us = latencyMax
	}
	// values are clamped into range so this cannot fail
	_ = w.Latency.RecordValue(us)
}

// finish stores the timed loop duration and the per worker rates derived
// from it
func (w *WorkerContext) finish(start time.Time) {
	w.Duration = time.Since(start).Seconds()
	if w.Duration <= 0 {
		return
	}

	w.Rate = float64(w.Bytes) / w.Duration
	w.OpRate = float64(w.Ops) / w.Duration
	if w.Ops > 0 {
		w.ResponseTimeMs = 1000 * w.Duration / float64(w.Ops)
	}
}

// fail logs err and records it as the worker's result
func (w *WorkerContext) fail(op string, err error) {
	logging.Errorf("worker %d: %s failed: %v", w.Instance, op, err)
	w.Err = fmt.Errorf("%s: %w", op, err)
	w.Ret = Errno(err)
}

// Errno maps err to a negative errno, EIO when err carries no errno
func Errno(err error) int {
	if err == nil {
		return 0
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return -int(errno)
	}
	return -int(unix.EIO)
}
