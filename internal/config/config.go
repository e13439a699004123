/*
 *
 * jesse galley <jesse@jessegalley.net>
 */

// Package config holds the run configuration shared by every worker of a
// benchmark run, and the rules that derive the sizing of a run from the
// two values the user supplied.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrConfig is wrapped by every configuration error. Configuration errors
// are fatal before any round starts.
var ErrConfig = errors.New("invalid configuration")

const (
	// MaxThreads bounds the number of workers a run may start
	MaxThreads = 1024

	// DirectIOAlignment is the buffer and block alignment needed by O_DIRECT
	DirectIOAlignment = 4096
)

// RunConfig holds all configuration parameters for a benchmark run. The
// orchestrator owns it; workers receive a copy.
type RunConfig struct {
	Test string // workload tag
	Path string // directory the test files are created in

	BlockSize         uint64 // size of each io operation in bytes
	FileSize          uint64 // total bytes covered by all workers
	Blocks            uint64 // FileSize / BlockSize
	PerThreadFileSize uint64 // FileSize / Threads
	PerThreadBlocks   uint64 // PerThreadFileSize / BlockSize

	Threads int // number of workers per round
	Repeats int // number of rounds

	NoAtime bool // open with O_NOATIME
	Direct  bool // open with O_DIRECT
	Sync    bool // open with O_SYNC

	Filename string // single shared test file, <path>/temp-<pid>

	Human       bool   // human readable sizes in round lines
	ThreadStats bool   // print per thread lines
	Output      string // optional results file, format picked by extension
}

// NewConfig creates a RunConfig with default values. None of the sizing
// triple is set; the caller supplies two of them.
func NewConfig() *RunConfig {
	return &RunConfig{
		Threads: 1, // single worker by default
		Repeats: 1, // single round by default
	}
}

// Supplied returns how many of block size, file size and block count are set
func (c *RunConfig) Supplied() int {
	n := 0
	for _, v := range []uint64{c.BlockSize, c.FileSize, c.Blocks} {
		if v != 0 {
			n++
		}
	}
	return n
}

// Derive validates the thread and round counts and computes the missing
// member of the sizing triple plus the per thread sizes. It must be called
// exactly once, with exactly two of BlockSize, FileSize and Blocks set.
func (c *RunConfig) Derive() error {
	if c.Threads < 1 || c.Threads > MaxThreads {
		return fmt.Errorf("%w: thread count must be between 1 and %d, got %d", ErrConfig, MaxThreads, c.Threads)
	}
	if c.Repeats < 1 {
		return fmt.Errorf("%w: repeats must be at least 1, got %d", ErrConfig, c.Repeats)
	}

	if n := c.Supplied(); n != 2 {
		return fmt.Errorf("%w: must specify exactly two of block size, file size and blocks, got %d", ErrConfig, n)
	}

	switch {
	case c.BlockSize == 0:
		if c.FileSize%c.Blocks != 0 {
			return fmt.Errorf("%w: file size %d is not a multiple of %d blocks", ErrConfig, c.FileSize, c.Blocks)
		}
		c.BlockSize = c.FileSize / c.Blocks
	case c.FileSize == 0:
		c.FileSize = c.BlockSize * c.Blocks
		if c.FileSize/c.Blocks != c.BlockSize {
			return fmt.Errorf("%w: %d blocks of %d bytes overflows", ErrConfig, c.Blocks, c.BlockSize)
		}
	case c.Blocks == 0:
		if c.FileSize%c.BlockSize != 0 {
			return fmt.Errorf("%w: file size %d is not a multiple of block size %d", ErrConfig, c.FileSize, c.BlockSize)
		}
		c.Blocks = c.FileSize / c.BlockSize
	}

	// split the file evenly, every thread gets the same share
	threads := uint64(c.Threads)
	if c.FileSize%threads != 0 {
		return fmt.Errorf("%w: file size %d cannot be split evenly across %d threads", ErrConfig, c.FileSize, c.Threads)
	}
	c.PerThreadFileSize = c.FileSize / threads
	c.PerThreadBlocks = c.PerThreadFileSize / c.BlockSize
	if c.PerThreadBlocks == 0 {
		return fmt.Errorf("%w: per thread size %d is smaller than block size %d", ErrConfig, c.PerThreadFileSize, c.BlockSize)
	}

	// validate block size for direct io
	if c.Direct && c.BlockSize%DirectIOAlignment != 0 {
		return fmt.Errorf("%w: block size must be a multiple of %d bytes for direct io", ErrConfig, DirectIOAlignment)
	}

	return nil
}

// PerThreadBlocksExact is the unrounded number of blocks per thread
func (c *RunConfig) PerThreadBlocksExact() float64 {
	return float64(c.PerThreadFileSize) / float64(c.BlockSize)
}

// SetFilename names the shared test file after the given process id
func (c *RunConfig) SetFilename(pid int) {
	c.Filename = filepath.Join(c.Path, fmt.Sprintf("temp-%d", pid))
}

// OpenFlags returns the extra open(2) flags selected by the configuration
func (c *RunConfig) OpenFlags() int {
	flags := 0
	if c.NoAtime {
		flags |= unix.O_NOATIME
	}
	if c.Direct {
		flags |= unix.O_DIRECT
	}
	if c.Sync {
		flags |= unix.O_SYNC
	}
	return flags
}

// Range returns the byte range [start, end) owned by worker instance
func (c *RunConfig) Range(instance uint32) (uint64, uint64) {
	start := uint64(instance) * c.PerThreadFileSize
	return start, start + c.PerThreadFileSize
}

// CheckPath verifies the target path is an existing, writable directory
func (c *RunConfig) CheckPath() error {
	if c.Path == "" {
		return fmt.Errorf("%w: must specify a test path", ErrConfig)
	}

	info, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s exists but is not a directory", ErrConfig, c.Path)
	}

	// access(2) with W_OK also accounts for read only mounts
	if err := unix.Access(c.Path, unix.W_OK); err != nil {
		return fmt.Errorf("%w: directory %s is not writable: %v", ErrConfig, c.Path, err)
	}

	return nil
}
