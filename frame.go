// frame.go: length-prefixed framing over a ring (Framed SPSC Queue)
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package spillway

import (
	"encoding/binary"
	"math"
)

// sealSentinel is the reserved 4-byte length-prefix value that marks a
// segment as sealed (no more items will ever be offered to it). Per
// spec.md's own guidance, the maximum value of the prefix type is the
// simplest correct choice: a real payload of this size could never fit
// in any reasonably sized segment, so there is no ambiguity with a
// genuine frame length.
const sealSentinel uint32 = math.MaxUint32

// frameHeaderSize is the length of the length-prefix in bytes.
const frameHeaderSize = 4

// pollResult distinguishes the three outcomes of Poll: an item was
// available, the segment is empty (try again later), or the segment has
// been sealed (the Rolling SPSC Queue should advance to the next one).
type pollResult int

const (
	pollEmpty pollResult = iota
	pollItem
	pollSealed
)

// Serializer pairs a writer and reader function for a single item type T.
// Both must be total over the item domain; item sizes may vary.
type Serializer[T any] struct {
	Write func(item T) ([]byte, error)
	Read  func(data []byte) (T, error)
}

// segment wraps a ring with length-prefixed framing and a user-supplied
// Serializer. It is the Framed SPSC Queue (FSQ): offer/poll typed items
// in the exact order they were offered.
type segment[T any] struct {
	r       *ring
	ser     Serializer[T]
	sealed  bool // observed a sealSentinel on read; terminal for this segment
	ordinal uint64

	// running counters used by the Rolling SPSC Queue's rollover policy.
	bytesWritten uint64
	itemsWritten uint64
}

func newSegment[T any](r *ring, ser Serializer[T], ordinal uint64) *segment[T] {
	return &segment[T]{r: r, ser: ser, ordinal: ordinal}
}

// offer serializes item and writes a length-prefixed frame. It returns
// false iff the payload plus prefix exceeds the segment's remaining free
// space; the caller (rolling.go or the Drain Coordinator) decides whether
// that means "roll over" or "catastrophic full."
func (s *segment[T]) offer(item T) (bool, error) {
	payload, err := s.ser.Write(item)
	if err != nil {
		return false, newQueueError(CodeSerialization, "offer", err)
	}
	return s.offerBytes(payload)
}

// offerBytes writes an already-serialized payload as a framed record,
// without going through the Serializer again. Used by rolling.go when it
// needs to inspect a payload's size before committing to a segment.
func (s *segment[T]) offerBytes(payload []byte) (bool, error) {
	frame := make([]byte, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(frame, uint32(len(payload))) // #nosec G115 -- callers cap payload sizes well under 2^32
	copy(frame[frameHeaderSize:], payload)

	if !s.r.tryWrite(frame) {
		return false, nil
	}

	s.bytesWritten += uint64(len(frame))
	s.itemsWritten++
	return true, nil
}

// offerSeal writes the sealed-sentinel frame, marking this segment as
// done for writing. Only the Rolling SPSC Queue should call this, right
// before creating and switching to the next segment.
func (s *segment[T]) offerSeal() bool {
	var hdr [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[:], sealSentinel)
	return s.r.tryWrite(hdr[:])
}

// fits reports whether a payload of size payloadLen, once framed, can
// ever be written into an empty segment of this capacity. Used to detect
// "item too large" independent of current fill level.
func (s *segment[T]) fits(payloadLen int) bool {
	return uint64(frameHeaderSize+payloadLen) <= s.r.capacity
}

// poll reads and deserializes the next frame. Distinguishes empty (writer
// hasn't published the rest of a frame yet, or genuinely nothing
// written), sealed (end of this segment), and item (a value was read).
func (s *segment[T]) poll() (T, pollResult, error) {
	var zero T

	if s.sealed {
		return zero, pollSealed, nil
	}

	if s.r.used() < frameHeaderSize {
		return zero, pollEmpty, nil
	}

	var hdr [frameHeaderSize]byte
	if !s.r.tryRead(hdr[:]) {
		return zero, pollEmpty, nil
	}
	length := binary.LittleEndian.Uint32(hdr[:])

	if length == sealSentinel {
		s.r.advanceRead(frameHeaderSize)
		s.sealed = true
		return zero, pollSealed, nil
	}

	if s.r.used() < uint64(frameHeaderSize)+uint64(length) {
		// Writer has published the prefix but not yet the full payload;
		// treat as empty and retry later (see spec.md 4.2).
		return zero, pollEmpty, nil
	}

	payload := make([]byte, length)
	full := make([]byte, frameHeaderSize+length)
	if !s.r.tryRead(full) {
		return zero, pollEmpty, nil
	}
	copy(payload, full[frameHeaderSize:])
	s.r.advanceRead(uint64(len(full)))

	item, err := s.ser.Read(payload)
	if err != nil {
		return zero, pollEmpty, newQueueError(CodeSerialization, "poll", err)
	}
	return item, pollItem, nil
}

// isEmpty reports whether the underlying ring holds no bytes. A sealed,
// drained segment is also empty.
func (s *segment[T]) isEmpty() bool {
	return s.r.isEmpty()
}

// close releases the underlying ring without deleting its file.
func (s *segment[T]) close() error {
	return s.r.close()
}

// unlink closes and deletes the underlying ring's backing file.
func (s *segment[T]) unlink() error {
	return s.r.unlink()
}
