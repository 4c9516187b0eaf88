package kanren

import (
	"context"
	"sync"
)

// Stream is a cold, cancellable, single-producer sequence of substitutions
// — spec §4.G's stream type. "Cold" means nothing runs until a consumer
// starts draining Chan(); each Goal invocation creates its own Stream with
// its own producer goroutine, mirroring the teacher's Stream but keyed to
// *Subst instead of a bare Term/Substitution pair.
//
// err carries an optional terminal error: Fail stops the stream the same
// way Close does, but records an infrastructure error the consumer can
// retrieve afterward — spec §7's "DB error propagates via the stream's
// error channel", realized as a field rather than a second channel so
// Take and ForEach drain a failed stream like any closed one; flatMap
// and interleave (combinators.go) forward an inner stream's error to
// their own output via Fail, and callers that care about DB errors
// (chiefly pkg/sqlfacts users) check Err() after the drain.
type Stream struct {
	ch   chan *Subst
	done chan struct{}

	closeOnce sync.Once
	stopOnce  sync.Once

	mu  sync.Mutex
	err error
}

// NewStream allocates an unstarted stream. The caller is expected to spawn
// exactly one producer goroutine that calls Emit until it chooses to stop,
// then Close.
func NewStream() *Stream {
	return &Stream{
		ch:   make(chan *Subst),
		done: make(chan struct{}),
	}
}

// Emit offers val to the consumer, blocking until it is received or the
// stream is stopped. It returns false once the stream has been stopped,
// which the producer should treat as "give up, no one is listening".
func (st *Stream) Emit(val *Subst) bool {
	select {
	case st.ch <- val:
		return true
	case <-st.done:
		return false
	}
}

// Close signals that the producer has no more values. Safe to call once;
// later calls are no-ops. Must only be called by the producer.
func (st *Stream) Close() {
	st.closeOnce.Do(func() {
		close(st.ch)
	})
}

// Fail records err as the stream's terminal error and closes it, same as
// Close but remembering why the producer gave up early instead of
// finishing normally.
func (st *Stream) Fail(err error) {
	st.mu.Lock()
	if st.err == nil {
		st.err = err
	}
	st.mu.Unlock()
	st.Close()
}

// Err returns the error passed to Fail, or nil if the stream closed
// normally (or has not closed yet).
func (st *Stream) Err() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

// Stop signals the producer to give up early — spec §4.G's "the consumer
// may stop a stream before exhaustion, e.g. after the Nth result, and the
// producer must react promptly rather than run to completion". Safe to
// call from the consumer at any time, including concurrently with Close.
func (st *Stream) Stop() {
	st.stopOnce.Do(func() {
		close(st.done)
	})
}

// Chan exposes the underlying receive channel for a consumer to range
// over directly.
func (st *Stream) Chan() <-chan *Subst {
	return st.ch
}

// Done returns the channel closed by Stop, so a producer's select loop can
// notice cancellation without calling Emit.
func (st *Stream) Done() <-chan struct{} {
	return st.done
}

// Single returns a stream that emits exactly one substitution then
// closes, spec §4.G's unit stream (the "success" case).
func Single(s *Subst) *Stream {
	out := NewStream()
	go func() {
		defer out.Close()
		out.Emit(s)
	}()
	return out
}

// EmptyStream returns a stream that closes immediately without emitting,
// spec §4.G's zero stream (the "failure" case). Named EmptyStream to
// avoid colliding with Subst's Empty constructor.
func EmptyStream() *Stream {
	out := NewStream()
	out.Close()
	return out
}

// Take drains up to n substitutions from st, then Stops it, respecting
// ctx cancellation. It is the synchronous building block Run and the
// query layer use to pull a bounded number of results out of a goal.
func Take(ctx context.Context, st *Stream, n int) []*Subst {
	var out []*Subst
	defer st.Stop()

	if n == 0 {
		return out
	}

	for {
		select {
		case <-ctx.Done():
			return out
		case s, ok := <-st.Chan():
			if !ok {
				return out
			}
			out = append(out, s)
			if n > 0 && len(out) >= n {
				return out
			}
		}
	}
}

// ForEach drains st to completion (or until ctx is cancelled, or fn
// returns false to stop early), calling fn with each substitution in
// order of arrival.
func ForEach(ctx context.Context, st *Stream, fn func(*Subst) bool) {
	defer st.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-st.Chan():
			if !ok {
				return
			}
			if !fn(s) {
				return
			}
		}
	}
}
