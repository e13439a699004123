/*
Copyright © 2025 jesse galley <jesse@jessegalley.net>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jessegalley/fsbench/internal/config"
	"github.com/jessegalley/fsbench/internal/logging"
	"github.com/jessegalley/fsbench/internal/metrics"
	"github.com/jessegalley/fsbench/internal/output"
	"github.com/jessegalley/fsbench/internal/runners"
	"github.com/jessegalley/fsbench/internal/stats"
	"github.com/jessegalley/fsbench/internal/workload"
)

// run flags
var (
	testTag     string
	testPath    string
	repeats     int
	threads     int
	threadStats bool
	blockSize   sizeValue
	fileLength  sizeValue
	blocks      uint64
	noAtime     bool
	directIO    bool
	oSync       bool
	human       bool
	outFile     string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [test_path]",
	Short: "Run a workload for a number of rounds",
	Long: `Runs the workload selected with -x against a test file in test_path (or -p)
and prints one line per round followed by a summary of every metric.

Exactly two of -b, -l and -n must be given, the third is derived from them.
Sizes take a b, k, m or g suffix.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd.Flags(), args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runTest(ctx, cfg, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd.Flags())
}

// addRunFlags defines the run flags on fs, resetting their variables to
// the defaults
func addRunFlags(fs *pflag.FlagSet) {
	blockSize, fileLength = 0, 0

	fs.StringVarP(&testTag, "test", "x", "", "name of test to execute: "+strings.Join(workload.Tags(), ", "))
	fs.StringVarP(&testPath, "path", "p", "", "directory to write the test file in")
	fs.IntVarP(&repeats, "repeats", "r", 1, "number of test repeats")
	fs.IntVarP(&threads, "threads", "t", 1, fmt.Sprintf("number of threaded workers, at most %d", config.MaxThreads))
	fs.BoolVarP(&threadStats, "thread-stats", "T", false, "show per thread stats")
	fs.VarP(&blockSize, "block", "b", "block size of each io operation")
	fs.VarP(&fileLength, "length", "l", "total length of the test file")
	fs.Uint64VarP(&blocks, "blocks", "n", 0, "length of the test file in blocks")
	fs.BoolVarP(&noAtime, "noatime", "a", false, "use O_NOATIME")
	fs.BoolVarP(&directIO, "direct", "d", false, "use O_DIRECT")
	fs.BoolVarP(&oSync, "sync", "s", false, "use O_SYNC")
	fs.BoolVarP(&human, "human", "H", false, "human readable sizes")
	fs.StringVarP(&outFile, "output", "o", "", "write the summary to this file (.csv, .yaml, .json or .prom)")
}

// buildConfig layers defaults, the optional config file and the flags that
// were given on the command line, then derives the sizing
func buildConfig(flags *pflag.FlagSet, args []string) (*config.RunConfig, error) {
	cfg := config.NewConfig()

	if configFile != "" {
		f, err := config.LoadFile(configFile)
		if err != nil {
			return nil, err
		}
		if err := f.Apply(cfg, flags.Changed); err != nil {
			return nil, err
		}
	}

	set := flags.Changed
	if set("test") {
		cfg.Test = testTag
	}
	if set("path") {
		cfg.Path = testPath
	}
	if len(args) == 1 {
		cfg.Path = args[0]
	}
	if set("repeats") {
		cfg.Repeats = repeats
	}
	if set("threads") {
		cfg.Threads = threads
	}
	if set("block") {
		cfg.BlockSize = uint64(blockSize)
	}
	if set("length") {
		cfg.FileSize = uint64(fileLength)
	}
	if set("blocks") {
		cfg.Blocks = blocks
	}
	if set("noatime") {
		cfg.NoAtime = noAtime
	}
	if set("direct") {
		cfg.Direct = directIO
	}
	if set("sync") {
		cfg.Sync = oSync
	}
	if set("human") {
		cfg.Human = human
	}
	if set("thread-stats") {
		cfg.ThreadStats = threadStats
	}
	if set("output") {
		cfg.Output = outFile
	}

	if cfg.Test == "" {
		return nil, fmt.Errorf("%w: must specify test to run, one of %s", config.ErrConfig, strings.Join(workload.Tags(), ", "))
	}
	if err := cfg.Derive(); err != nil {
		return nil, err
	}
	if err := cfg.CheckPath(); err != nil {
		return nil, err
	}
	cfg.SetFilename(os.Getpid())

	return cfg, nil
}

// runTest runs every round of the configured test and reports to w
func runTest(ctx context.Context, cfg *config.RunConfig, w io.Writer) error {
	spec, err := workload.Lookup(cfg.Test)
	if err != nil {
		return err
	}

	if logging.IsDebug() {
		logging.Debugf("run configuration:\n%s", spew.Sdump(cfg))
	}

	collector, err := metrics.NewSelfCollector()
	if err != nil {
		return fmt.Errorf("cannot read process metrics: %w", err)
	}
	if memTotal, err := collector.MemTotal(); err != nil {
		logging.Warnf("cannot read total memory: %v", err)
	} else if cfg.FileSize < 2*memTotal {
		logging.Warnf("recommend file size to be at least %s to defeat the page cache",
			output.HumanSize(float64(2*memTotal), "%.3f"))
	}

	console := output.NewConsole(w, cfg.Human, cfg.ThreadStats)
	runner := runners.New(*cfg, spec, collector)
	runner.OnRound = console.Round

	console.Header(spec, cfg)
	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if report.Aborted {
		fmt.Fprintln(os.Stderr, "Aborted!")
		return nil
	}

	rounds := report.Vectors()
	res, err := stats.Aggregate(rounds)
	if err != nil {
		return err
	}
	console.Summary(res)
	console.Confidence(rounds)

	if cfg.Output != "" {
		if err := output.Dump(cfg.Output, res, output.NewMeta(spec.Tag, res.Rounds)); err != nil {
			return err
		}
		logging.Infof("results written to %s", cfg.Output)
	}

	return nil
}
