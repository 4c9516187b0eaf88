// Package sched provides cooperative scheduling primitives: a size/time
// debounced batcher, which the SQL fact relation uses for its flush
// policy, and a periodic checkpoint counter for long-running producers,
// which no other package in this module currently uses.
//
// This is a trimmed, single-purpose descendant of the teacher's
// internal/parallel.WorkerPool: the engine here is single-threaded
// cooperative (spec §5), so the scaling, work-stealing, and deadlock
// detection machinery that pool carried has no job to do. What survives is
// the shape of a bounded task queue draining on its own goroutine with a
// clean shutdown handshake.
package sched

import (
	"context"
	"sync"
	"time"
)

// Yielder tells its caller, every n calls to Tick, that it is time to check
// ctx.Done() or yield, so a producer goroutine performing many emissions in
// a row can observe cancellation promptly. It does not yield by itself.
type Yielder struct {
	every int
	count int
}

// NewYielder returns a Yielder that yields every n ticks. n <= 0 disables
// yielding (every tick is a no-op).
func NewYielder(n int) *Yielder {
	return &Yielder{every: n}
}

// Tick advances the internal counter and returns true if the caller should
// check ctx.Done() / call runtime.Gosched this time.
func (y *Yielder) Tick() bool {
	if y.every <= 0 {
		return false
	}
	y.count++
	if y.count >= y.every {
		y.count = 0
		return true
	}
	return false
}

// Debouncer collects items into a batch and signals a flush either when the
// batch reaches size or when quiet elapses since the last item, whichever
// comes first. It backs the SQL fact relation's per-goal batching policy
// (spec §4.D.1: "size threshold ... or the debounce timer fires").
type Debouncer[T any] struct {
	mu      sync.Mutex
	items   []T
	size    int
	quiet   time.Duration
	timer   *time.Timer
	flushCh chan []T
	closed  bool
}

// NewDebouncer creates a debouncer that flushes at size items or after quiet
// has elapsed without a new item, whichever happens first.
func NewDebouncer[T any](size int, quiet time.Duration) *Debouncer[T] {
	if size <= 0 {
		size = 1
	}
	return &Debouncer[T]{
		size:    size,
		quiet:   quiet,
		flushCh: make(chan []T, 1),
	}
}

// Add appends an item to the pending batch, flushing immediately if the
// batch is now full.
func (d *Debouncer[T]) Add(item T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.items = append(d.items, item)

	if len(d.items) >= d.size {
		d.flushLocked()
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if !d.closed && len(d.items) > 0 {
			d.flushLocked()
		}
	})
}

// flushLocked must be called with mu held; it drains the pending batch onto
// the flush channel.
func (d *Debouncer[T]) flushLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	batch := d.items
	d.items = nil
	select {
	case d.flushCh <- batch:
	default:
		// A flush is already pending consumption; merge into it so no item
		// is lost (the consumer hasn't drained yet, which only happens
		// under a burst faster than the consumer can keep up with).
		pending := <-d.flushCh
		d.flushCh <- append(pending, batch...)
	}
}

// Flushes returns the channel of flushed batches. Each receive yields one
// batch; the channel is closed after Close drains any remaining items.
func (d *Debouncer[T]) Flushes() <-chan []T {
	return d.flushCh
}

// Close forces any pending partial batch to flush and stops accepting new
// items, matching spec §4.D.1's "upstream completes" flush trigger.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if len(d.items) > 0 {
		d.flushLocked()
	}
	d.mu.Unlock()
	close(d.flushCh)
}

// WaitOrDone blocks until either ctx is done or done is closed, useful in
// tests and simple synchronous consumers.
func WaitOrDone(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
