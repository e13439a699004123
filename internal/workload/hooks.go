package workload

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jessegalley/fsbench/internal/config"
	"github.com/jessegalley/fsbench/internal/layout"
)

// writeHooks starts every round of a write workload from an empty file
type writeHooks struct{}

func (writeHooks) Setup(_ context.Context, cfg *config.RunConfig) error {
	return layout.CreateEmpty(cfg.Filename)
}

func (writeHooks) Teardown(_ context.Context, cfg *config.RunConfig) error {
	return layout.Remove(cfg.Filename)
}

// readHooks starts every round of a read workload from a fully populated
// file
type readHooks struct{}

func (readHooks) Setup(ctx context.Context, cfg *config.RunConfig) error {
	if err := layout.Fill(ctx, cfg.Filename, cfg.FileSize); err != nil {
		return err
	}
	if !layout.CheckExistingFile(cfg.Filename, cfg.FileSize) {
		return fmt.Errorf("test file %s is not %d bytes after layout", cfg.Filename, cfg.FileSize)
	}
	return nil
}

func (readHooks) Teardown(_ context.Context, cfg *config.RunConfig) error {
	return layout.Remove(cfg.Filename)
}

// open opens the shared test file with the configured extra flags
func open(w *WorkerContext, flag int) (*os.File, error) {
	f, err := os.OpenFile(w.Config.Filename, flag|w.Config.OpenFlags(), 0600)
	if err != nil {
		w.fail("open", err)
		return nil, err
	}
	return f, nil
}

// seek positions f at offset, recording a failure in w
func seek(w *WorkerContext, f *os.File, offset uint64) error {
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		w.fail(fmt.Sprintf("seek to %d", offset), err)
		return err
	}
	return nil
}
