// scheduler.go: default single-threaded worker scheduler
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package spillway

import (
	"context"
	"sync"
)

// Worker runs scheduled tasks one at a time, in the order they were
// scheduled. The Drain Coordinator relies on exactly this: it never
// schedules a second drain while one is outstanding, but it does rely on
// Schedule/Close being safe to call from any goroutine.
type Worker interface {
	// Schedule enqueues task to run on the worker's own goroutine.
	// Non-blocking: returns immediately regardless of queue depth.
	Schedule(task func())
	// Close stops accepting new tasks and waits for the current task (if
	// any) to finish. Idempotent.
	Close()
}

// Scheduler creates Workers. The Operator Facade creates exactly one
// Worker per subscription and releases it on unsubscription.
type Scheduler interface {
	CreateWorker() Worker
}

// goroutineScheduler is the default Scheduler: each Worker is backed by
// its own goroutine draining a buffered task channel. Grounded on
// rotation.go's BackgroundWorkers (context-cancelled, sync.Once-guarded
// stop, buffered channel, wg.Wait on shutdown), narrowed from an N-worker
// pool sharing one queue to a single dedicated goroutine per Worker,
// since the Drain Coordinator needs a single-threaded FIFO executor, not
// a pool.
type goroutineScheduler struct {
	queueDepth int
}

// NewScheduler returns the default goroutine-backed Scheduler. queueDepth
// bounds how many pending Schedule calls a single Worker will buffer;
// once that many are pending, Schedule drops the newly scheduled task and
// keeps the ones already queued (the drain loop only ever needs "at least
// one more drain is pending," not an unbounded backlog, so this never
// needs to be large).
func NewScheduler(queueDepth int) Scheduler {
	if queueDepth <= 0 {
		queueDepth = 1
	}
	return &goroutineScheduler{queueDepth: queueDepth}
}

func (s *goroutineScheduler) CreateWorker() Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(chan func(), s.queueDepth),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

type worker struct {
	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan func()
	wg     sync.WaitGroup

	closeOnce sync.Once
}

func (w *worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.tasks:
			task()
		}
	}
}

func (w *worker) Schedule(task func()) {
	select {
	case w.tasks <- task:
	case <-w.ctx.Done():
	default:
		// Queue full: the drain loop only needs to know "run again," so
		// a pending task already guarantees that; dropping this one is
		// safe (spec.md's drainRequested counter, not this channel, is
		// the authority on how many more iterations are owed).
	}
}

func (w *worker) Close() {
	w.closeOnce.Do(func() {
		w.cancel()
		w.wg.Wait()
	})
}
