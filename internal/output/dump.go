package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/jessegalley/fsbench/internal/stats"
)

// Format represents the supported result file formats
type Format string

// supported format constants
const (
	CSVFormat  Format = "csv"
	YAMLFormat Format = "yaml"
	JSONFormat Format = "json"
	PromFormat Format = "prom"
)

// FormatFor picks the format from the file extension, csv unless the
// extension names another format
func FormatFor(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return YAMLFormat
	case ".json":
		return JSONFormat
	case ".prom":
		return PromFormat
	default:
		return CSVFormat
	}
}

// Meta identifies the run a result file belongs to
type Meta struct {
	RunID  string `yaml:"run-id" json:"run-id"`
	Test   string `yaml:"test" json:"test"`
	Rounds int    `yaml:"rounds" json:"rounds"`
}

// NewMeta returns the metadata for a run of test with a fresh run id
func NewMeta(test string, rounds int) Meta {
	return Meta{
		RunID:  uuid.New().String(),
		Test:   test,
		Rounds: rounds,
	}
}

// entry is one metric of the yaml and json documents
type entry struct {
	Metric  string  `yaml:"metric" json:"metric"`
	Minimum float64 `yaml:"Minimum" json:"Minimum"`
	Maximum float64 `yaml:"Maximum" json:"Maximum"`
	Average float64 `yaml:"Average" json:"Average"`
	StdDev  float64 `yaml:"StdDev" json:"StdDev"`
}

// document is the top level of the yaml and json documents
type document struct {
	Meta    `yaml:",inline"`
	Results []entry `yaml:"fs-test-results" json:"fs-test-results"`
}

func newDocument(res stats.Result, meta Meta) document {
	doc := document{Meta: meta}
	for _, r := range metricRows(res) {
		doc.Results = append(doc.Results, entry{
			Metric:  r.Key,
			Minimum: round3(r.Min),
			Maximum: round3(r.Max),
			Average: round3(r.Average),
			StdDev:  round3(r.StdDev),
		})
	}
	return doc
}

// round3 keeps three decimals, the precision of every other report
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Dump writes res to filename in the format picked by FormatFor
func Dump(filename string, res stats.Result, meta Meta) error {
	format := FormatFor(filename)

	// the prometheus writer does its own atomic file handling
	if format == PromFormat {
		return WriteProm(filename, res, meta)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot write output to %s: %w", filename, err)
	}

	if err := Write(f, format, res, meta); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write renders res to w in the given format
func Write(w io.Writer, format Format, res stats.Result, meta Meta) error {
	switch format {
	case CSVFormat:
		return WriteCSV(w, res)
	case YAMLFormat:
		return WriteYAML(w, res, meta)
	case JSONFormat:
		return WriteJSON(w, res, meta)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteCSV writes a heading row of metric labels followed by one row per
// summary statistic
func WriteCSV(w io.Writer, res stats.Result) error {
	rows := metricRows(res)
	cw := csv.NewWriter(w)

	// headings first
	heading := []string{""}
	for _, r := range rows {
		heading = append(heading, r.Label)
	}
	if err := cw.Write(heading); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}

	// now the data
	for i, name := range statNames {
		record := []string{name}
		for _, r := range rows {
			record = append(record, strconv.FormatFloat(r.Values()[i], 'f', 3, 64))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteYAML writes the results as a yaml document
func WriteYAML(w io.Writer, res stats.Result, meta Meta) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(res, meta)); err != nil {
		return fmt.Errorf("failed to marshal yaml: %w", err)
	}
	return enc.Close()
}

// WriteJSON writes the results as a json object
func WriteJSON(w io.Writer, res stats.Result, meta Meta) error {
	jsonBytes, err := json.MarshalIndent(newDocument(res, meta), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal json: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", jsonBytes)
	return err
}

// WriteProm writes the results in the prometheus text format, for the node
// exporter textfile collector
func WriteProm(filename string, res stats.Result, meta Meta) error {
	reg := prometheus.NewRegistry()

	result := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "fsbench_result",
		Help:        "Summary statistic of a benchmark metric across all rounds",
		ConstLabels: prometheus.Labels{"run_id": meta.RunID, "test": meta.Test},
	}, []string{"metric", "stat"})
	rounds := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "fsbench_rounds",
		Help:        "Number of completed rounds",
		ConstLabels: prometheus.Labels{"run_id": meta.RunID, "test": meta.Test},
	})
	reg.MustRegister(result, rounds)

	rounds.Set(float64(res.Rounds))
	for _, r := range metricRows(res) {
		for i, name := range statNames {
			result.WithLabelValues(r.Key, strings.ToLower(name)).Set(r.Values()[i])
		}
	}

	if err := prometheus.WriteToTextfile(filename, reg); err != nil {
		return fmt.Errorf("cannot write output to %s: %w", filename, err)
	}
	return nil
}
