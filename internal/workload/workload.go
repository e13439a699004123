// Package workload contains the file access patterns a benchmark round can
// drive. Every workload runs once per worker per round against the byte
// range [Instance*PerThreadFileSize, (Instance+1)*PerThreadFileSize) of the
// shared test file, except write-many and noop which manage their own files.
package workload

import (
	"context"
	"fmt"
	"strings"

	"github.com/jessegalley/fsbench/internal/config"
)

// Workload is the per worker body of a test. Run must poll ctx at the top
// of every per block iteration and record all results in w.
type Workload interface {
	Run(ctx context.Context, w *WorkerContext)
}

// Setupper is implemented by workloads that prepare shared state once per
// round, before any worker starts
type Setupper interface {
	Setup(ctx context.Context, cfg *config.RunConfig) error
}

// Teardowner is implemented by workloads that clean up shared state once
// per round, after every worker has finished
type Teardowner interface {
	Teardown(ctx context.Context, cfg *config.RunConfig) error
}

// Spec describes one entry of the workload registry
type Spec struct {
	Category string // short column heading, e.g. "Write"
	Tag      string // selection tag, e.g. "wr_seq"
	Name     string // human readable name
	Workload Workload
}

// registry is closed, ordered and never modified after init
var registry = []Spec{
	{"Write", "wr_seq", "Write Sequential", SeqWrite{}},
	{"Write", "wr_rnd", "Write Random", RandWrite{}},
	{"Read", "rd_seq", "Read Sequential", SeqRead{}},
	{"Read", "rd_rnd", "Read Random", RandRead{}},
	{"Rd+Wr", "rdwr_rnd", "Read+Write Random", RandReadWrite{}},
	{"Rewrite", "rewr_seq", "Rewrite Sequential", Rewrite{}},
	{"WrMany", "wr_many", "Write Many", WriteMany{}},
	{"Noop", "noop", "No-op", Noop{}},
}

// All returns a copy of the registry in its fixed order
func All() []Spec {
	out := make([]Spec, len(registry))
	copy(out, registry)
	return out
}

// Tags returns the registered tags in registry order
func Tags() []string {
	tags := make([]string, 0, len(registry))
	for _, s := range registry {
		tags = append(tags, s.Tag)
	}
	return tags
}

// Lookup returns the spec registered under tag
func Lookup(tag string) (Spec, error) {
	for _, s := range registry {
		if s.Tag == tag {
			return s, nil
		}
	}
	return Spec{}, fmt.Errorf("%w: unknown test %q, must be one of %s", config.ErrConfig, tag, strings.Join(Tags(), ", "))
}

// Setup runs the workload's setup hook if it has one
func (s Spec) Setup(ctx context.Context, cfg *config.RunConfig) error {
	if h, ok := s.Workload.(Setupper); ok {
		return h.Setup(ctx, cfg)
	}
	return nil
}

// Teardown runs the workload's teardown hook if it has one
func (s Spec) Teardown(ctx context.Context, cfg *config.RunConfig) error {
	if h, ok := s.Workload.(Teardowner); ok {
		return h.Teardown(ctx, cfg)
	}
	return nil
}
