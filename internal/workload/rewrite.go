package workload

import (
	"context"
	"os"
	"time"
)

// rewritePasses is the number of times the worker's range is written
const rewritePasses = 2

// Rewrite writes the worker's range sequentially twice. Writes are
// positional so the second pass lands on the same bytes as the first.
type Rewrite struct{ writeHooks }

func (Rewrite) Run(ctx context.Context, w *WorkerContext) {
	cfg := &w.Config

	f, err := open(w, os.O_WRONLY)
	if err != nil {
		return
	}
	defer f.Close()

	buf := newBuffer(cfg, writeFill(w.Instance))
	base, end := cfg.Range(w.Instance)

	start := time.Now()
	defer w.finish(start)

	for pass := 0; pass < rewritePasses; pass++ {
		for off := base; off < end; {
			if ctx.Err() != nil {
				return
			}

			sz := chunk(cfg.BlockSize, end-off)
			begin := time.Now()
			n, err := f.WriteAt(buf[:sz], int64(off))
			if err != nil {
				w.fail("write", err)
				return
			}
			w.record(begin, n)
			off += uint64(n)
		}
	}
}
