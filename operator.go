// operator.go: the Operator Facade wiring Options into a running queue
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package spillway

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/agilira/go-timecache"
)

// FileFactory returns the backing file path for a segment, given the
// order in which it was created (0, 1, 2, ...). Implementations should
// return distinct paths across ordinals for the life of an Operator.
type FileFactory func(segmentOrdinal uint64) (string, error)

// Options configures an Operator. BufferSizeBytes is the raw capacity of
// each segment's backing ring; RolloverSizeBytes and RolloverEvery cap
// how much a single segment may hold before it is sealed and a new one
// started (Unlimited disables the corresponding cap). When both are
// Unlimited, the Operator runs a single non-rolling segment (spec.md
// 4.5).
type Options[T any] struct {
	BufferSizeBytes   int64
	RolloverSizeBytes int64
	RolloverEvery     int64
	DelayError        bool
	FileFactory       FileFactory
	Scheduler         Scheduler
	Serializer        Serializer[T]
	ErrorCallback     func(operation string, err error)
}

// Stats is a point-in-time snapshot of an Operator's internal state, for
// telemetry and tests. Grounded on lethe.go's own Stats type, narrowed to
// the fields this queue can report.
type Stats struct {
	Requested     int64
	Emitted       uint64
	ItemsOffered  uint64
	LastDrainAt   time.Time
	Rolling       bool
	SegmentsLive  int
	SegmentsMade  uint64
	SegmentsGone  uint64
	ResidentBytes int64
}

// Operator is the Operator Facade (OF): it constructs the queue
// configuration Options describes, binds a Drain Coordinator to it and
// to downstream, and exposes the Subscriber/Producer surface that
// upstream and downstream respectively use to drive it.
type Operator[T any] struct {
	opts      Options[T]
	q         queue[T]
	dc        *drainCoordinator[T]
	worker    Worker
	rolling   *rolling[T] // nil for the single-segment (no rollover) configuration
	timeCache *timecache.TimeCache
}

// NewOperator validates opts, creates the first backing segment(s), and
// binds a Drain Coordinator between the resulting queue and downstream.
// downstream starts with zero requested demand; call Request (or
// Operator.Request) to pull items.
func NewOperator[T any](opts Options[T], downstream Subscriber[T]) (*Operator[T], error) {
	if opts.BufferSizeBytes <= 0 {
		return nil, fmt.Errorf("spillway: BufferSizeBytes must be positive")
	}
	if opts.RolloverSizeBytes < 0 || opts.RolloverEvery < 0 {
		return nil, fmt.Errorf("spillway: RolloverSizeBytes and RolloverEvery must be >= 0 (0 means Unlimited)")
	}
	if opts.FileFactory == nil {
		return nil, fmt.Errorf("spillway: FileFactory is required")
	}
	if opts.Serializer.Write == nil || opts.Serializer.Read == nil {
		return nil, fmt.Errorf("spillway: Serializer.Write and Serializer.Read are required")
	}
	if downstream == nil {
		return nil, fmt.Errorf("spillway: downstream Subscriber is required")
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewScheduler(4)
	}

	tc := timecache.NewWithResolution(time.Millisecond)

	factory := func(ordinal uint64) (*segment[T], error) {
		path, err := opts.FileFactory(ordinal)
		if err != nil {
			return nil, newQueueError(CodeIO, "segment_create", err)
		}
		path = SanitizeFilename(filepath.Clean(path))
		if err := ValidatePathLength(path); err != nil {
			return nil, newQueueError(CodeIO, "segment_create", err)
		}

		var r *ring
		openErr := RetryFileOperation(func() error {
			opened, openErr := openRing(path, opts.BufferSizeBytes)
			if openErr != nil {
				return openErr
			}
			r = opened
			return nil
		}, 3, 10*time.Millisecond)
		if openErr != nil {
			return nil, newQueueError(CodeIO, "segment_create", openErr)
		}

		return newSegment(r, opts.Serializer, ordinal), nil
	}

	var q queue[T]
	var roll *rolling[T]
	if opts.RolloverSizeBytes == Unlimited && opts.RolloverEvery == Unlimited {
		seg, err := factory(0)
		if err != nil {
			tc.Stop()
			return nil, err
		}
		q = &singleQueue[T]{seg: seg}
	} else {
		r, err := newRolling(factory, opts.RolloverSizeBytes, opts.RolloverEvery)
		if err != nil {
			tc.Stop()
			return nil, err
		}
		q, roll = r, r
	}

	worker := opts.Scheduler.CreateWorker()
	dc := newDrainCoordinator[T](q, downstream, worker, opts.DelayError, opts.ErrorCallback)
	dc.now = func() int64 { return tc.CachedTime().UnixNano() }

	return &Operator[T]{
		opts:      opts,
		q:         q,
		dc:        dc,
		worker:    worker,
		rolling:   roll,
		timeCache: tc,
	}, nil
}

// OnNext offers item to the queue; implements Subscriber so an Operator
// can sit directly between an upstream producer and its own downstream.
func (op *Operator[T]) OnNext(item T) { op.dc.OnNext(item) }

// OnError forwards a fatal upstream error, subject to Options.DelayError.
func (op *Operator[T]) OnError(err error) { op.dc.OnError(err) }

// OnCompleted signals that no more items will ever be offered.
func (op *Operator[T]) OnCompleted() { op.dc.OnCompleted() }

// Request implements Producer for the downstream side of the Operator.
func (op *Operator[T]) Request(n int64) { op.dc.Request(n) }

// Close unsubscribes the downstream side without delivering a terminal
// event, closing and unlinking every live segment and stopping the
// worker and the internal time cache. Idempotent.
func (op *Operator[T]) Close() error {
	op.dc.unsubscribe()
	op.timeCache.Stop()
	return nil
}

// Stats returns a point-in-time snapshot of the Operator's internal
// state.
func (op *Operator[T]) Stats() Stats {
	s := Stats{
		Requested:    op.dc.requested.Load(),
		Emitted:      op.dc.emitted.Load(),
		ItemsOffered: op.dc.offered.Load(),
		Rolling:      op.rolling != nil,
	}
	if ns := op.dc.lastDrainAt.Load(); ns != 0 {
		s.LastDrainAt = time.Unix(0, ns)
	}
	if op.rolling != nil {
		s.SegmentsLive = op.rolling.liveSegments()
		s.SegmentsMade = op.rolling.segmentsMade.Load()
		s.SegmentsGone = op.rolling.segmentsGone.Load()
	} else {
		s.SegmentsLive = 1
		s.SegmentsMade = 1
	}
	s.ResidentBytes = int64(s.SegmentsLive) * op.opts.BufferSizeBytes
	return s
}

// WaitForDrainIdle blocks until no drain is scheduled or running, or ctx
// is done. Grounded on lethe.go's WaitForBackgroundTasks, adapted from a
// WaitGroup (the teacher's background tasks run to natural completion on
// their own) to polling (the drain loop here is a steady-state consumer
// that only goes idle once demand or queue contents run out).
func (op *Operator[T]) WaitForDrainIdle(ctx context.Context) error {
	if op.dc.drainRequested.Load() == 0 {
		return nil
	}
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if op.dc.drainRequested.Load() == 0 {
				return nil
			}
		}
	}
}

// NewTimestampedFileFactory returns a FileFactory that names each
// segment's backing file by creation order and a cached timestamp,
// grounded on lethe.go's own timeCache.CachedTime() pattern for
// low-overhead timestamping on the segment-creation path.
func NewTimestampedFileFactory(dir string) FileFactory {
	tc := timecache.NewWithResolution(time.Millisecond)
	return func(ordinal uint64) (string, error) {
		name := fmt.Sprintf("segment-%020d-%d.spill", ordinal, tc.CachedTime().UnixNano())
		return filepath.Join(dir, name), nil
	}
}
