// Package output renders benchmark results: the console report and the
// result files written with -o
package output

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jessegalley/fsbench/internal/metrics"
	"github.com/jessegalley/fsbench/internal/stats"
)

// Specify Language specific case wrapper as global variable
var caser = cases.Title(language.English)

// statNames are the four summary columns, in output order
var statNames = []string{"Minimum", "Maximum", "Average", "StdDev"}

// Row is one line of the summary report
type Row struct {
	// Separator rows only mark a group break, every other field is empty
	Separator bool

	Metric metrics.Metric
	Label  string // label with units, e.g. "Rate (MB/sec)"
	Key    string // Label as an identifier, e.g. "Rate_MB_per_sec"

	Min     float64
	Max     float64
	Average float64
	StdDev  float64
}

// Values returns the four summary values in statNames order
func (r Row) Values() []float64 {
	return []float64{r.Min, r.Max, r.Average, r.StdDev}
}

// Rows lists the report rows in table order. Ignored metrics are left out,
// separators are kept for the console renderer.
func Rows(res stats.Result) []Row {
	rows := make([]Row, 0, len(metrics.Table))
	for _, d := range metrics.Table {
		if d.IsSeparator() {
			rows = append(rows, Row{Separator: true})
			continue
		}
		if d.Ignore {
			continue
		}

		label := Label(d)
		m := d.Metric
		rows = append(rows, Row{
			Metric:  m,
			Label:   label,
			Key:     Key(label),
			Min:     res.Min[m],
			Max:     res.Max[m],
			Average: res.Average[m],
			StdDev:  res.StdDev[m],
		})
	}
	return rows
}

// metricRows is Rows without the separators
func metricRows(res stats.Result) []Row {
	var out []Row
	for _, r := range Rows(res) {
		if !r.Separator {
			out = append(out, r)
		}
	}
	return out
}

// Label returns the label of d with its units appended, if it has any
func Label(d metrics.Descriptor) string {
	if d.Units == "" {
		return d.Label
	}
	return fmt.Sprintf("%s (%s)", d.Label, d.Units)
}

// Key turns a label into an identifier: letters and digits are kept,
// blanks become '_', '%' becomes "percent", '/' becomes "_per_" and any
// other character is dropped
func Key(label string) string {
	var sb strings.Builder
	for _, c := range label {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			sb.WriteRune(c)
		case c == ' ' || c == '\t':
			sb.WriteByte('_')
		case c == '%':
			sb.WriteString("percent")
		case c == '/':
			sb.WriteString("_per_")
		}
	}
	return sb.String()
}
