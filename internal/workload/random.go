package workload

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/jessegalley/fsbench/internal/prng"
)

// randomOffset picks a block aligned offset inside the range starting at base
func randomOffset(rng *prng.MWC, base, perThreadBlocks, blockSize uint64) uint64 {
	return base + (uint64(rng.Next())%perThreadBlocks)*blockSize
}

// RandWrite writes blocks at random offsets inside the worker's range
// until the worker's quota of bytes has been written
type RandWrite struct{ writeHooks }

func (RandWrite) Run(ctx context.Context, w *WorkerContext) {
	cfg := &w.Config

	f, err := open(w, os.O_WRONLY)
	if err != nil {
		return
	}
	defer f.Close()

	buf := newBuffer(cfg, writeFill(w.Instance))
	rng := prng.ForWorker(w.Instance)
	base, _ := cfg.Range(w.Instance)

	start := time.Now()
	defer w.finish(start)

	remaining := cfg.PerThreadFileSize
	for remaining > 0 {
		if ctx.Err() != nil {
			return
		}

		if seek(w, f, randomOffset(rng, base, cfg.PerThreadBlocks, cfg.BlockSize)) != nil {
			return
		}

		sz := chunk(cfg.BlockSize, remaining)
		begin := time.Now()
		n, err := f.Write(buf[:sz])
		if err != nil {
			w.fail("write", err)
			return
		}
		w.record(begin, n)
		remaining -= uint64(n)
	}
}

// RandRead reads blocks at random offsets inside the worker's range until
// the worker's quota of bytes has been read
type RandRead struct{ readHooks }

func (RandRead) Run(ctx context.Context, w *WorkerContext) {
	cfg := &w.Config

	f, err := open(w, os.O_RDONLY)
	if err != nil {
		return
	}
	defer f.Close()

	buf := newBuffer(cfg, 0)
	rng := prng.ForWorker(w.Instance)
	base, _ := cfg.Range(w.Instance)

	start := time.Now()
	defer w.finish(start)

	remaining := cfg.PerThreadFileSize
	for remaining > 0 {
		if ctx.Err() != nil {
			return
		}

		if seek(w, f, randomOffset(rng, base, cfg.PerThreadBlocks, cfg.BlockSize)) != nil {
			return
		}

		sz := chunk(cfg.BlockSize, remaining)
		begin := time.Now()
		n, err := f.Read(buf[:sz])
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			w.fail("read", err)
			return
		}
		w.record(begin, n)
		remaining -= uint64(n)
	}
}

// RandReadWrite mixes reads and writes at random offsets inside the
// worker's range. Each iteration draws an offset and then a coin; the
// quota shrinks by the nominal transfer size whether or not a read came
// back short.
type RandReadWrite struct{ readHooks }

func (RandReadWrite) Run(ctx context.Context, w *WorkerContext) {
	cfg := &w.Config

	f, err := open(w, os.O_RDWR)
	if err != nil {
		return
	}
	defer f.Close()

	// create buffers for io operations
	readBuf := newBuffer(cfg, 0)
	writeBuf := newBuffer(cfg, writeFill(w.Instance))

	rng := prng.ForWorker(w.Instance)
	base, _ := cfg.Range(w.Instance)

	start := time.Now()
	defer w.finish(start)

	remaining := cfg.PerThreadFileSize
	for remaining > 0 {
		if ctx.Err() != nil {
			return
		}

		if seek(w, f, randomOffset(rng, base, cfg.PerThreadBlocks, cfg.BlockSize)) != nil {
			return
		}

		sz := chunk(cfg.BlockSize, remaining)
		begin := time.Now()

		var n int
		if rng.Next()&255 > 127 {
			n, err = f.Write(writeBuf[:sz])
			if err != nil {
				w.fail("write", err)
				return
			}
		} else {
			n, err = f.Read(readBuf[:sz])
			if err != nil && !errors.Is(err, io.EOF) {
				w.fail("read", err)
				return
			}
		}
		w.record(begin, n)
		remaining -= sz
	}
}
