package workload

import (
	"bytes"
	"unsafe"

	"github.com/jessegalley/fsbench/internal/config"
)

// alignBuffer ensures a byte slice is aligned to the given boundary
func alignBuffer(buf []byte, alignment int) []byte {
	// calculate offset needed for alignment
	addr := uintptr(unsafe.Pointer(&buf[0]))
	alignmentUptr := uintptr(alignment)
	offset := int(alignmentUptr - (addr & (alignmentUptr - 1)))

	// return aligned slice
	if offset == alignment {
		return buf
	}
	return buf[offset:]
}

// newBuffer returns a block sized buffer filled with fill. direct io
// buffers are aligned to config.DirectIOAlignment.
func newBuffer(cfg *config.RunConfig, fill byte) []byte {
	size := int(cfg.BlockSize)

	var buf []byte
	if cfg.Direct {
		// create oversized buffer to allow for alignment
		raw := make([]byte, size+config.DirectIOAlignment)
		buf = alignBuffer(raw, config.DirectIOAlignment)[:size]
	} else {
		buf = make([]byte, size)
	}

	if fill != 0 {
		copy(buf, bytes.Repeat([]byte{fill}, size))
	}
	return buf
}

// writeFill is the byte pattern written by worker instance
func writeFill(instance uint32) byte {
	return byte(instance & 0xff)
}

// chunk returns the size of the next transfer, a full block unless less
// than a block of quota remains
func chunk(blockSize, remaining uint64) uint64 {
	if remaining < blockSize {
		return remaining
	}
	return blockSize
}
