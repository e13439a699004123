package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jessegalley/fsbench/internal/config"
)

func parseRunFlags(t *testing.T, args ...string) (*pflag.FlagSet, []string) {
	t.Helper()
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	addRunFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs, fs.Args()
}

func TestSizeValue(t *testing.T) {
	var s sizeValue
	require.NoError(t, s.Set("64k"))
	assert.Equal(t, sizeValue(65536), s)
	assert.Equal(t, "64k", s.String())
	assert.Equal(t, "size", s.Type())

	require.NoError(t, s.Set("1G"))
	assert.Equal(t, sizeValue(1<<30), s)

	err := s.Set("12q")
	assert.ErrorIs(t, err, config.ErrConfig)
	assert.Equal(t, sizeValue(1<<30), s, "failed Set leaves the value alone")
}

func TestBuildConfigFromFlags(t *testing.T) {
	dir := t.TempDir()
	fs, args := parseRunFlags(t, "-x", "rd_rnd", "-b", "4k", "-l", "1m", "-t", "4", "-r", "3", "-a", "-H", dir)

	cfg, err := buildConfig(fs, args)
	require.NoError(t, err)
	assert.Equal(t, "rd_rnd", cfg.Test)
	assert.Equal(t, dir, cfg.Path)
	assert.Equal(t, uint64(4096), cfg.BlockSize)
	assert.Equal(t, uint64(1<<20), cfg.FileSize)
	assert.Equal(t, uint64(256), cfg.Blocks)
	assert.Equal(t, uint64(64), cfg.PerThreadBlocks)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 3, cfg.Repeats)
	assert.True(t, cfg.NoAtime)
	assert.True(t, cfg.Human)
	assert.False(t, cfg.Direct)
	assert.Equal(t, filepath.Join(dir, "temp-"+strconv.Itoa(os.Getpid())), cfg.Filename)
}

func TestBuildConfigErrors(t *testing.T) {
	dir := t.TempDir()

	tests := map[string][]string{
		"no test":       {"-b", "4k", "-l", "1m", dir},
		"one size":      {"-x", "wr_seq", "-b", "4k", dir},
		"three sizes":   {"-x", "wr_seq", "-b", "4k", "-l", "1m", "-n", "256", dir},
		"missing path":  {"-x", "wr_seq", "-b", "4k", "-l", "1m"},
		"bad path":      {"-x", "wr_seq", "-b", "4k", "-l", "1m", filepath.Join(dir, "nope")},
		"too many thds": {"-x", "wr_seq", "-b", "4k", "-l", "1m", "-t", "2000", dir},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			fs, rest := parseRunFlags(t, args...)
			_, err := buildConfig(fs, rest)
			assert.ErrorIs(t, err, config.ErrConfig)
		})
	}
}

func TestBuildConfigFileOverride(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
test: wr_seq
path: `+dir+`
block: 8k
length: 2m
threads: 2
repeats: 5
human: true
`), 0644))

	configFile = fn
	t.Cleanup(func() { configFile = "" })

	fs, args := parseRunFlags(t, "-r", "2", "-x", "rewr_seq")
	cfg, err := buildConfig(fs, args)
	require.NoError(t, err)
	assert.Equal(t, "rewr_seq", cfg.Test)
	assert.Equal(t, 2, cfg.Repeats)
	assert.Equal(t, 2, cfg.Threads)
	assert.Equal(t, uint64(8192), cfg.BlockSize)
	assert.Equal(t, uint64(256), cfg.Blocks)
	assert.True(t, cfg.Human)
}

func TestRunTest(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "results.yaml")
	fs, args := parseRunFlags(t, "-x", "wr_seq", "-b", "4k", "-n", "16", "-t", "2", "-r", "2", "-T", "-o", out, dir)
	cfg, err := buildConfig(fs, args)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runTest(context.Background(), cfg, &buf))

	report := buf.String()
	assert.Contains(t, report, "Running test wr_seq")
	assert.Contains(t, report, "Round 0 ")
	assert.Contains(t, report, "Round 1 ")
	assert.Contains(t, report, "Thread 1 ")
	assert.Contains(t, report, "Std.Dev.")
	assert.FileExists(t, out)

	// the test file is gone after the last round
	assert.NoFileExists(t, cfg.Filename)
}

func TestRunTestAborted(t *testing.T) {
	dir := t.TempDir()
	fs, args := parseRunFlags(t, "-x", "noop", "-b", "1", "-n", "1000", "-r", "3", dir)
	cfg, err := buildConfig(fs, args)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	require.NoError(t, runTest(ctx, cfg, &buf))
	assert.NotContains(t, buf.String(), "Std.Dev.")
}

func TestListTests(t *testing.T) {
	var buf bytes.Buffer
	listTests(&buf)
	for _, tag := range []string{"wr_seq", "wr_rnd", "rd_seq", "rd_rnd", "rdwr_rnd", "rewr_seq", "wr_many", "noop"} {
		assert.Contains(t, buf.String(), tag)
	}
	assert.Contains(t, buf.String(), "Read+Write Random")
}
