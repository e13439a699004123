// Package stats summarizes the per round metric vectors of a run
package stats

import (
	"errors"
	"fmt"

	math "github.com/aclements/go-moremath/stats"
	stats "github.com/montanaflynn/stats"

	"github.com/jessegalley/fsbench/internal/metrics"
)

// ErrNoRounds is returned when there is nothing to summarize
var ErrNoRounds = errors.New("no completed rounds")

// Result holds the summary of every metric across the rounds of a run,
// in reporting units
type Result struct {
	Min     metrics.Vector
	Max     metrics.Vector
	Average metrics.Vector
	StdDev  metrics.Vector // population standard deviation
	Rounds  int
}

// Aggregate scales every round value by its metric's Scale and computes
// min, max, mean and population standard deviation per metric. rounds is
// not modified.
func Aggregate(rounds []metrics.Vector) (Result, error) {
	if len(rounds) == 0 {
		return Result{}, ErrNoRounds
	}

	res := Result{Rounds: len(rounds)}
	samples := make([]float64, len(rounds))

	for _, d := range metrics.Table {
		if d.IsSeparator() {
			continue
		}
		m := d.Metric
		scaled(samples, rounds, d)

		var err error
		if res.Min[m], err = stats.Min(samples); err != nil {
			return Result{}, fmt.Errorf("%s: %w", d.Label, err)
		}
		if res.Max[m], err = stats.Max(samples); err != nil {
			return Result{}, fmt.Errorf("%s: %w", d.Label, err)
		}
		if res.Average[m], err = stats.Mean(samples); err != nil {
			return Result{}, fmt.Errorf("%s: %w", d.Label, err)
		}
		if res.StdDev[m], err = stats.StandardDeviationPopulation(samples); err != nil {
			return Result{}, fmt.Errorf("%s: %w", d.Label, err)
		}
	}

	return res, nil
}

// scaled fills dst with metric d of every round in reporting units
func scaled(dst []float64, rounds []metrics.Vector, d metrics.Descriptor) {
	for i := range rounds {
		dst[i] = rounds[i][d.Metric] / d.Scale
	}
}

// ConfidenceInterval accepts the round vectors and returns the mean of
// metric m with the bounds of its confidence interval, in reporting units
func ConfidenceInterval(rounds []metrics.Vector, m metrics.Metric, confidence float64) (float64, float64, float64, error) {
	if len(rounds) < 2 {
		return 0, 0, 0, fmt.Errorf("confidence interval needs at least 2 rounds, have %d", len(rounds))
	}

	samples := make([]float64, len(rounds))
	scaled(samples, rounds, metrics.Describe(m))

	mean, lo, hi := math.MeanCI(samples, confidence)
	return mean, lo, hi, nil
}
