package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jessegalley/fsbench/internal/metrics"
)

func vectorsOf(m metrics.Metric, vals ...float64) []metrics.Vector {
	out := make([]metrics.Vector, len(vals))
	for i, v := range vals {
		out[i][m] = v
	}
	return out
}

func TestAggregatePopulationStdDev(t *testing.T) {
	rounds := vectorsOf(metrics.OpRate, 2, 4, 4, 4, 5, 5, 7, 9)

	res, err := Aggregate(rounds)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Rounds)
	assert.Equal(t, 2.0, res.Min[metrics.OpRate])
	assert.Equal(t, 9.0, res.Max[metrics.OpRate])
	assert.InDelta(t, 5.0, res.Average[metrics.OpRate], 1e-12)
	// denominator is the round count, not count-1
	assert.InDelta(t, 2.0, res.StdDev[metrics.OpRate], 1e-12)
}

func TestAggregateScales(t *testing.T) {
	// 2 MiB/s reported as 2 MB/sec
	rounds := vectorsOf(metrics.Rate, 2097152)

	res, err := Aggregate(rounds)
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.Average[metrics.Rate])
	assert.Equal(t, 2.0, res.Min[metrics.Rate])
	assert.Equal(t, 2.0, res.Max[metrics.Rate])
	assert.Zero(t, res.StdDev[metrics.Rate])

	// response time is stored in ms and reported in us
	res, err = Aggregate(vectorsOf(metrics.ResponseTime, 0.25))
	require.NoError(t, err)
	assert.InDelta(t, 250.0, res.Average[metrics.ResponseTime], 1e-9)
}

func TestAggregateOrdering(t *testing.T) {
	rounds := []metrics.Vector{}
	for _, v := range []float64{3, 1, 4, 1, 5, 9, 2, 6} {
		var vec metrics.Vector
		for m := metrics.Metric(0); m < metrics.NumMetrics; m++ {
			vec[m] = v * float64(m+1)
		}
		rounds = append(rounds, vec)
	}

	res, err := Aggregate(rounds)
	require.NoError(t, err)
	for m := metrics.Metric(0); m < metrics.NumMetrics; m++ {
		assert.LessOrEqual(t, res.Min[m], res.Average[m], m.String())
		assert.LessOrEqual(t, res.Average[m], res.Max[m], m.String())
		assert.GreaterOrEqual(t, res.StdDev[m], 0.0, m.String())
	}
}

func TestAggregateDoesNotModifyInput(t *testing.T) {
	rounds := vectorsOf(metrics.Rate, 1048576, 3145728)
	before := append([]metrics.Vector{}, rounds...)

	_, err := Aggregate(rounds)
	require.NoError(t, err)
	assert.Equal(t, before, rounds)

	// a second pass gives the same answer
	a, err := Aggregate(rounds)
	require.NoError(t, err)
	b, err := Aggregate(rounds)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAggregateNoRounds(t *testing.T) {
	_, err := Aggregate(nil)
	assert.ErrorIs(t, err, ErrNoRounds)
}

func TestConfidenceInterval(t *testing.T) {
	rounds := vectorsOf(metrics.OpRate, 10, 12, 11, 13, 9)

	mean, lo, hi, err := ConfidenceInterval(rounds, metrics.OpRate, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 11.0, mean, 1e-9)
	assert.Less(t, lo, mean)
	assert.Greater(t, hi, mean)
	assert.InDelta(t, mean-lo, hi-mean, 1e-9)

	_, _, _, err = ConfidenceInterval(rounds[:1], metrics.OpRate, 0.95)
	assert.Error(t, err)
}
