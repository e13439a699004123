package workload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jessegalley/fsbench/internal/layout"
	"github.com/jessegalley/fsbench/internal/logging"
	"github.com/jessegalley/fsbench/internal/prng"
)

// manyFilename draws the name of the count'th file written by worker
// instance. Names live in the worker's own namespace
// <path>/temp-<pid>-<instance>-<letters>, the letter tail grows with count.
func manyFilename(path string, pid int, instance uint32, rng *prng.MWC, count int) string {
	letters := rng.Letters(15 + (count & 63))
	return filepath.Join(path, fmt.Sprintf("temp-%d-%d-%s", pid, instance, letters))
}

// manySize is the size of the count'th file, a whole number of blocks
func manySize(blockSize uint64, count int) uint64 {
	return blockSize * uint64(1+count%32)
}

// WriteMany writes its quota as a series of small files, each fsynced and
// closed before the next is created. Every file created is removed again
// before Run returns, whatever way the loop ended.
type WriteMany struct{}

func (WriteMany) Run(ctx context.Context, w *WorkerContext) {
	cfg := &w.Config
	pid := os.Getpid()

	buf := newBuffer(cfg, writeFill(w.Instance))
	rng := prng.ForWorker(w.Instance)

	// files are counted as soon as they exist so cleanup sees them all
	count := 0
	defer func() {
		removeMany(cfg.Path, pid, w.Instance, count)
	}()

	start := time.Now()
	defer w.finish(start)

	remaining := cfg.PerThreadFileSize
	for remaining > 0 {
		if ctx.Err() != nil {
			return
		}

		size := manySize(cfg.BlockSize, count)
		if size > remaining {
			size = remaining
		}
		remaining -= size

		name := manyFilename(cfg.Path, pid, w.Instance, rng, count)
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|cfg.OpenFlags(), 0600)
		if err != nil {
			w.fail("open", err)
			return
		}
		count++

		if !writeSmallFile(ctx, w, f, buf, size) {
			f.Close()
			return
		}

		if err := f.Sync(); err != nil {
			f.Close()
			w.fail("fsync", err)
			return
		}
		if err := f.Close(); err != nil {
			w.fail("close", err)
			return
		}
	}
}

// writeSmallFile writes size bytes to f in block sized pieces, it reports
// false when the worker should stop
func writeSmallFile(ctx context.Context, w *WorkerContext, f *os.File, buf []byte, size uint64) bool {
	blockSize := uint64(len(buf))
	for size > 0 {
		if ctx.Err() != nil {
			return false
		}

		sz := chunk(blockSize, size)
		begin := time.Now()
		n, err := f.Write(buf[:sz])
		if err != nil {
			w.fail("write", err)
			return false
		}
		w.record(begin, n)
		size -= uint64(n)
	}
	return true
}

// removeMany regenerates the first count names from a fresh generator and
// unlinks them
func removeMany(path string, pid int, instance uint32, count int) {
	rng := prng.ForWorker(instance)
	for i := 0; i < count; i++ {
		name := manyFilename(path, pid, instance, rng, i)
		if err := layout.Remove(name); err != nil {
			logging.Warnf("worker %d: %v", instance, err)
		}
	}
}
