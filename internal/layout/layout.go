package layout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// FillChunkSize is the size of each write used to pre-populate a test file
const FillChunkSize = 128 * 1024

// FillByte is the value every byte of a pre-populated test file holds
const FillByte = 0xff

// CreateEmpty prepares the shared test file for the write workloads.
// any stale file from an earlier run is removed first so every round starts
// from an empty, freshly allocated file, and the filesystem is synced so the
// create does not show up as dirty data in the round that follows.
func CreateEmpty(file string) error {
	// start off with a clean file
	if err := Remove(file); err != nil {
		return err
	}

	// create the file owner read/write only
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", file, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", file, err)
	}

	// flush the metadata change so it is not charged to the round
	unix.Sync()

	return nil
}

// Fill prepares the shared test file for the read workloads.
// the file is recreated and filled with size bytes of FillByte, written in
// FillChunkSize pieces. cancellation is checked before every chunk; a
// cancelled fill returns the context error and leaves a short file behind
// for the teardown hook to remove.
func Fill(ctx context.Context, file string, size uint64) error {
	// start off with a clean file
	if err := Remove(file); err != nil {
		return err
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", file, err)
	}

	// ensure file is closed when function returns
	defer f.Close()

	// one chunk of fill data reused for every write
	chunk := bytes.Repeat([]byte{FillByte}, FillChunkSize)

	remaining := size
	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		// the final chunk may be short
		n := uint64(len(chunk))
		if remaining < n {
			n = remaining
		}

		written, err := f.Write(chunk[:n])
		if err != nil {
			return fmt.Errorf("failed to fill file %s: %w", file, err)
		}
		remaining -= uint64(written)
	}

	// sync file to ensure data is written to disk before the round starts
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync file %s: %w", file, err)
	}

	return nil
}

// Remove unlinks file, a file that does not exist is not an error
func Remove(file string) error {
	err := os.Remove(file)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove file %s: %w", file, err)
	}
	return nil
}

// CheckExistingFile verifies if a file exists with the given size
// returns true if file exists with correct size and is a regular file
func CheckExistingFile(file string, size uint64) bool {
	// get file information
	fileInfo, err := os.Stat(file)

	// if there's an error (including file not existing), return false
	if err != nil {
		return false
	}

	if !fileInfo.Mode().IsRegular() {
		return false
	}

	// check if the size matches what we expect
	return uint64(fileInfo.Size()) == size
}
