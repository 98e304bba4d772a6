// ring.go: memory-mapped single-producer/single-consumer byte ring
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package spillway

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
)

// ring is a fixed-capacity circular byte buffer physically stored in one
// file and shared between exactly one writer and one reader through a
// memory-mapped region plus two monotonic counters. It is the Byte Ring
// Store (BRS) of the design: capacity never changes after open, cursors
// only advance, and the physical offset is always position mod capacity.
//
// Safety: ring is safe for exactly one writer calling tryWrite and one
// reader calling tryRead concurrently. It is not safe for multiple
// writers or multiple readers.
type ring struct {
	path string
	file *os.File
	m    mmap.MMap

	capacity uint64

	// writePos and readPos are monotonically increasing (never wrapped);
	// the physical offset into m is position % capacity. The writer
	// stores writePos with release semantics only after the payload
	// bytes it describes have been written; the reader loads writePos
	// with acquire semantics before reading those bytes. Go's memory
	// model guarantees the plain byte writes that precede an atomic
	// Store are visible to a goroutine that later Loads the same atomic,
	// which is the happens-before edge this type depends on.
	writePos atomic.Uint64
	readPos  atomic.Uint64

	closed atomic.Bool
}

// openRing creates (if necessary) and memory-maps a fixed-size backing
// file at path, truncating/extending it to exactly capacity bytes.
func openRing(path string, capacity int64) (*ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("spillway: ring capacity must be positive, got %d", capacity)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, GetDefaultFileMode()) // #nosec G304 -- path comes from the caller's FileFactory
	if err != nil {
		return nil, newQueueError(CodeIO, "ring_open", err)
	}

	if err := f.Truncate(capacity); err != nil {
		_ = f.Close()
		return nil, newQueueError(CodeIO, "ring_truncate", err)
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		_ = f.Close()
		return nil, newQueueError(CodeIO, "ring_map", err)
	}

	return &ring{
		path:     path,
		file:     f,
		m:        m,
		capacity: uint64(capacity),
	}, nil
}

// free returns the number of bytes currently available for writing.
func (r *ring) free() uint64 {
	return r.capacity - (r.writePos.Load() - r.readPos.Load())
}

// used returns the number of bytes currently available for reading.
func (r *ring) used() uint64 {
	return r.writePos.Load() - r.readPos.Load()
}

// tryWrite writes data into the ring if there is enough free space,
// publishing the new write position with release semantics. It returns
// false (without writing anything) if data does not fit.
func (r *ring) tryWrite(data []byte) bool {
	n := uint64(len(data))
	if n > r.free() {
		return false
	}

	pos := r.writePos.Load()
	off := pos % r.capacity

	first := r.capacity - off
	if first >= n {
		copy(r.m[off:off+n], data)
	} else {
		copy(r.m[off:r.capacity], data[:first])
		copy(r.m[0:n-first], data[first:])
	}

	r.writePos.Store(pos + n)
	return true
}

// tryRead reads exactly n bytes starting at the current read position
// into dst (which must have length n), without advancing the read
// position. The caller advances via advanceRead once the frame has been
// fully consumed. It returns false if fewer than n bytes are currently
// available.
func (r *ring) tryRead(dst []byte) bool {
	n := uint64(len(dst))
	if n > r.used() {
		return false
	}

	pos := r.readPos.Load()
	off := pos % r.capacity

	first := r.capacity - off
	if first >= n {
		copy(dst, r.m[off:off+n])
	} else {
		copy(dst[:first], r.m[off:r.capacity])
		copy(dst[first:], r.m[0:n-first])
	}
	return true
}

// advanceRead publishes the read position forward by n bytes, with
// acquire/release semantics matching tryWrite's publication: this store
// is what makes the freed space visible to the writer's next free()
// check.
func (r *ring) advanceRead(n uint64) {
	r.readPos.Store(r.readPos.Load() + n)
}

// isEmpty reports whether the ring currently holds no bytes.
func (r *ring) isEmpty() bool {
	return r.writePos.Load() == r.readPos.Load()
}

// close unmaps the region and closes the backing file. Idempotent.
func (r *ring) close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	var firstErr error
	if err := r.m.Unmap(); err != nil {
		firstErr = newQueueError(CodeIO, "ring_unmap", err)
	}
	if err := r.file.Close(); err != nil && firstErr == nil {
		firstErr = newQueueError(CodeIO, "ring_close", err)
	}
	return firstErr
}

// unlink closes the ring and removes its backing file. Used by the
// Rolling SPSC Queue to retire drained segments.
func (r *ring) unlink() error {
	err := r.close()
	if rmErr := os.Remove(r.path); rmErr != nil && !os.IsNotExist(rmErr) {
		if err == nil {
			err = newQueueError(CodeIO, "ring_unlink", rmErr)
		}
	}
	return err
}
