package workload

import (
	"context"
	"errors"
	"io"
	"os"
	"time"
)

// SeqWrite writes the worker's range block by block from its start
type SeqWrite struct{ writeHooks }

func (SeqWrite) Run(ctx context.Context, w *WorkerContext) {
	cfg := &w.Config

	f, err := open(w, os.O_WRONLY)
	if err != nil {
		return
	}
	defer f.Close()

	base, _ := cfg.Range(w.Instance)
	if seek(w, f, base) != nil {
		return
	}

	buf := newBuffer(cfg, writeFill(w.Instance))

	start := time.Now()
	defer w.finish(start)

	remaining := cfg.PerThreadFileSize
	for remaining > 0 {
		if ctx.Err() != nil {
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

// SeqRead reads the worker's range block by block from its start
type SeqRead struct{ readHooks }

func (SeqRead) Run(ctx context.Context, w *WorkerContext) {
	cfg := &w.Config

	f, err := open(w, os.O_RDONLY)
	if err != nil {
		return
	}
	defer f.Close()

	base, _ := cfg.Range(w.Instance)
	if seek(w, f, base) != nil {
		return
	}

	buf := newBuffer(cfg, 0)

	start := time.Now()
	defer w.finish(start)

	remaining := cfg.PerThreadFileSize
	for remaining > 0 {
		if ctx.Err() != nil {
			return
		}

		sz := chunk(cfg.BlockSize, remaining)
		begin := time.Now()
		n, err := f.Read(buf[:sz])
		if errors.Is(err, io.EOF) {
			// file shorter than expected, nothing left to read
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
