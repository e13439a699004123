// Package runners drives the rounds of a benchmark run: it prepares the
// test file, samples the kernel counters around a round, runs one worker
// per thread and turns the results into a metrics vector per round
package runners

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/jessegalley/fsbench/internal/config"
	"github.com/jessegalley/fsbench/internal/logging"
	"github.com/jessegalley/fsbench/internal/metrics"
	"github.com/jessegalley/fsbench/internal/workload"
)

var (
	// ErrSetup wraps a failed workload setup hook, the run stops
	ErrSetup = errors.New("setup failed")

	// ErrTeardown wraps a failed workload teardown hook, the run stops
	ErrTeardown = errors.New("teardown failed")
)

// Snapshotter samples the counters attributed to a round
type Snapshotter interface {
	// Snapshot reads all counters, path selects the block device
	Snapshot(path string) metrics.Vector

	// DropCaches empties the page cache before a round
	DropCaches() error
}

// RoundResult contains the metrics from a single round
type RoundResult struct {
	// zero based round number
	Index int

	// counter deltas plus the derived throughput metrics
	Metrics metrics.Vector

	// per worker results, in instance order
	Workers []*workload.WorkerContext

	// per operation latency of all workers together
	Latency *hdrhistogram.Histogram

	// false when the round was cut short by cancellation
	Completed bool
}

// Ops returns the total operations of all workers in the round
func (r RoundResult) Ops() uint64 {
	var ops uint64
	for _, w := range r.Workers {
		ops += w.Ops
	}
	return ops
}

// Failed returns the workers that stopped on an error
func (r RoundResult) Failed() []*workload.WorkerContext {
	var failed []*workload.WorkerContext
	for _, w := range r.Workers {
		if w.Failed() {
			failed = append(failed, w)
		}
	}
	return failed
}

// Report is the outcome of a run
type Report struct {
	// completed rounds, in order
	Rounds []RoundResult

	// the run was cancelled before all rounds completed
	Aborted bool
}

// Vectors returns the metrics vector of every completed round
func (r Report) Vectors() []metrics.Vector {
	out := make([]metrics.Vector, 0, len(r.Rounds))
	for _, round := range r.Rounds {
		out = append(out, round.Metrics)
	}
	return out
}

// Runner runs Config.Repeats rounds of one workload
type Runner struct {
	Config      config.RunConfig
	Spec        workload.Spec
	Snapshotter Snapshotter

	// OnRound, if set, is called after every completed round
	OnRound func(RoundResult)

	dropWarned bool
}

// New returns a runner for an already derived configuration
func New(cfg config.RunConfig, spec workload.Spec, snap Snapshotter) *Runner {
	return &Runner{
		Config:      cfg,
		Spec:        spec,
		Snapshotter: snap,
	}
}

// Run executes rounds until Repeats rounds have completed or ctx is done.
// A cancelled run returns the rounds completed so far with Aborted set.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	var report Report

	for i := 0; i < r.Config.Repeats; i++ {
		if ctx.Err() != nil {
			break
		}

		round, err := r.RunRound(ctx, i)
		if err != nil {
			return report, err
		}
		if !round.Completed {
			break
		}

		report.Rounds = append(report.Rounds, round)
		if r.OnRound != nil {
			r.OnRound(round)
		}
	}

	report.Aborted = ctx.Err() != nil

	return report, nil
}

// RunRound runs round number index. A round cut short by ctx is returned
// with Completed false and no error.
func (r *Runner) RunRound(ctx context.Context, index int) (RoundResult, error) {
	// each round works on its own copy of the configuration
	cfg := r.Config
	result := RoundResult{Index: index}

	logging.Debugf("round %d: setup %s", index, r.Spec.Tag)
	if err := r.Spec.Setup(ctx, &cfg); err != nil {
		r.teardown(ctx, &cfg)
		if ctx.Err() != nil {
			return result, nil
		}
		return result, fmt.Errorf("%w: %s: %v", ErrSetup, r.Spec.Tag, err)
	}

	// flush what setup wrote before the first counter sample
	if err := r.Snapshotter.DropCaches(); err != nil {
		if !r.dropWarned {
			logging.Warn(err)
			r.dropWarned = true
		} else {
			logging.Debug(err)
		}
	}

	before := r.Snapshotter.Snapshot(cfg.Path)

	workers := make([]*workload.WorkerContext, cfg.Threads)
	for i := range workers {
		workers[i] = workload.NewWorkerContext(cfg, uint32(i))
	}
	result.Workers = workers

	// create wait group for synchronization
	var wg sync.WaitGroup

	start := time.Now()

	// launch worker goroutines
	for _, w := range workers {
		wg.Add(1)
		go func(w *workload.WorkerContext) {
			// ensure wait group is decremented when worker completes
			defer wg.Done()

			// each worker gets a thread of its own, dropped when it exits
			runtime.LockOSThread()

			r.Spec.Workload.Run(ctx, w)
		}(w)
	}

	// wait for all workers to complete
	wg.Wait()

	duration := time.Since(start).Seconds()

	after := r.Snapshotter.Snapshot(cfg.Path)
	v := metrics.Delta(before, after)
	metrics.NormalizeCPU(&v, duration)

	logging.Debugf("round %d: teardown %s", index, r.Spec.Tag)
	if err := r.Spec.Teardown(ctx, &cfg); err != nil {
		return result, fmt.Errorf("%w: %s: %v", ErrTeardown, r.Spec.Tag, err)
	}

	if ctx.Err() != nil {
		return result, nil
	}

	for _, w := range result.Failed() {
		logging.Warnf("round %d: worker %d failed (%d): %v", index, w.Instance, w.Ret, w.Err)
	}

	result.Latency = mergeLatency(workers)
	result.Metrics = throughput(v, result.Ops(), cfg.BlockSize, duration, result.Latency)
	result.Completed = true

	return result, nil
}

// teardown runs the teardown hook after a failed setup, its own failure is
// only logged
func (r *Runner) teardown(ctx context.Context, cfg *config.RunConfig) {
	if err := r.Spec.Teardown(ctx, cfg); err != nil {
		logging.Warnf("teardown after failed setup: %v", err)
	}
}

// mergeLatency combines the per worker latency histograms
func mergeLatency(workers []*workload.WorkerContext) *hdrhistogram.Histogram {
	merged := workload.NewLatencyHistogram()
	for _, w := range workers {
		if dropped := merged.Merge(w.Latency); dropped > 0 {
			logging.Debugf("worker %d: %d latency samples out of range", w.Instance, dropped)
		}
	}
	return merged
}

// throughput fills the wall clock derived metrics of a round vector
func throughput(v metrics.Vector, ops, blockSize uint64, duration float64, latency *hdrhistogram.Histogram) metrics.Vector {
	v[metrics.Duration] = duration
	if duration > 0 {
		v[metrics.Rate] = float64(ops*blockSize) / duration
		v[metrics.OpRate] = float64(ops) / duration
	}
	if ops > 0 {
		v[metrics.ResponseTime] = 1000 * duration / float64(ops)
	}
	if latency != nil && latency.TotalCount() > 0 {
		v[metrics.ResponseTimeP50] = float64(latency.ValueAtQuantile(50))
		v[metrics.ResponseTimeP99] = float64(latency.ValueAtQuantile(99))
	}
	return v
}
