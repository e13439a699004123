package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/jessegalley/fsbench/internal/config"
	"github.com/jessegalley/fsbench/internal/metrics"
	"github.com/jessegalley/fsbench/internal/runners"
	"github.com/jessegalley/fsbench/internal/stats"
	"github.com/jessegalley/fsbench/internal/workload"
)

// confidence level of the interval shown under the summary
const confidence = 0.95

// Console writes the report meant for a terminal
type Console struct {
	w           io.Writer
	human       bool
	threadStats bool
}

// NewConsole returns a console report writing to w. human selects B/KB/MB/GB
// rates in round lines, threadStats adds a line per worker per round.
func NewConsole(w io.Writer, human, threadStats bool) *Console {
	return &Console{w: w, human: human, threadStats: threadStats}
}

// Header describes the run and prints the round column headings
func (c *Console) Header(spec workload.Spec, cfg *config.RunConfig) {
	fmt.Fprintf(c.w, "Running test %s (%s)\n", spec.Tag, caser.String(strings.ToLower(spec.Name)))
	fmt.Fprintf(c.w, "%s bytes: %d threads x %d byte sized blocks x %.1f blocks\n",
		HumanSize(float64(cfg.FileSize), "%.2f"),
		cfg.Threads, cfg.BlockSize, cfg.PerThreadBlocksExact())

	op := spec.Category
	fmt.Fprintf(c.w, "          Duration   %8.8s Rate %11.11ss  %s Resp.\n", op, op, op)
	fmt.Fprintf(c.w, "           (secs)        (per sec)    (per sec)  Time (ms)\n")
}

// Round prints the line of a completed round, preceded by the per worker
// lines when enabled
func (c *Console) Round(r runners.RoundResult) {
	if c.threadStats {
		for _, w := range r.Workers {
			fmt.Fprintf(c.w, "Thread %-2d %8.3f %s %12.3f %12.7f\n",
				w.Instance, w.Duration, c.size(w.Rate), w.OpRate, w.ResponseTimeMs)
		}
	}

	v := r.Metrics
	fmt.Fprintf(c.w, "Round %-2d  %8.3f %12s %12.3f %12.7f\n",
		r.Index, v[metrics.Duration], c.size(v[metrics.Rate]), v[metrics.OpRate], v[metrics.ResponseTime])
}

func (c *Console) size(val float64) string {
	if c.human {
		return HumanSize(val, "%12.3f")
	}
	return fmt.Sprintf("%12.3f", val)
}

// Summary renders the min/max/average/stddev table
func (c *Console) Summary(res stats.Result) {
	fmt.Fprintln(c.w)

	table := tablewriter.NewWriter(c.w)
	table.SetHeader([]string{"", "Minimum", "Maximum", "Average", "Std.Dev."})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})

	for _, r := range Rows(res) {
		if r.Separator {
			table.Append([]string{"", "", "", "", ""})
			continue
		}
		row := []string{r.Label}
		for _, v := range r.Values() {
			row = append(row, fmt.Sprintf("%.3f", v))
		}
		table.Append(row)
	}

	table.Render()
}

// Confidence renders the mean and confidence interval of the throughput
// metrics, runs of a single round have no interval and print nothing
func (c *Console) Confidence(rounds []metrics.Vector) {
	if len(rounds) < 2 {
		return
	}

	table := tablewriter.NewWriter(c.w)
	table.SetHeader([]string{"", "Average", fmt.Sprintf("%.0f%% Confidence Interval", confidence*100)})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)

	for _, m := range []metrics.Metric{metrics.Rate, metrics.OpRate} {
		mean, lo, hi, err := stats.ConfidenceInterval(rounds, m, confidence)
		if err != nil {
			continue
		}
		table.Append([]string{
			Label(metrics.Describe(m)),
			fmt.Sprintf("%.3f", mean),
			fmt.Sprintf("%.3f - %.3f", lo, hi),
		})
	}

	table.Render()
}

// HumanSize renders a byte count or byte rate with a B, KB, MB or GB unit,
// switching unit at nine of the next one up
func HumanSize(val float64, format string) string {
	const k = 1024.0

	var units string
	switch {
	case val < 9*k:
		units = "B"
	case val < 9*k*k:
		val /= k
		units = "KB"
	case val < 9*k*k*k:
		val /= k * k
		units = "MB"
	default:
		val /= k * k * k
		units = "GB"
	}
	return fmt.Sprintf(format, val) + " " + units
}
