package registry

import (
	"github.com/hostref/gcbridge"
)

// Finalizer pairs a native callback with the opaque data and hint it was
// registered with. It lives attached to its owning reference and, once the
// reference is doomed, parked in the finalizer queue until a safe point.
type Finalizer struct {
	cb     gcbridge.FinalizeFunc
	data   any
	hint   any
	owner  Reference
	next   *Finalizer
	queued bool
}

// invoke runs the callback at most once. The stored function is cleared
// before the call so a re-entrant deletion cannot fire it again.
func (f *Finalizer) invoke() error {
	cb := f.cb
	if cb == nil {
		return nil
	}
	f.cb = nil
	return cb(f.data, f.hint)
}

// done reports whether the callback has already run (or was never set).
func (f *Finalizer) done() bool {
	return f.cb == nil
}

// finalizerQueue is the FIFO run queue of the finalization pipeline.
// Entries are drained at safe points, never during root enumeration.
type finalizerQueue struct {
	head, tail *Finalizer
	count      int
	running    bool
}

func (q *finalizerQueue) enqueue(f *Finalizer) {
	if f.queued || f.done() {
		return
	}
	f.queued = true
	f.next = nil
	if q.tail == nil {
		q.head = f
		q.tail = f
	} else {
		q.tail.next = f
		q.tail = f
	}
	q.count++
}

func (q *finalizerQueue) pop() *Finalizer {
	f := q.head
	if f == nil {
		return nil
	}
	q.head = f.next
	if q.head == nil {
		q.tail = nil
	}
	f.next = nil
	f.queued = false
	q.count--
	return f
}

func (q *finalizerQueue) len() int {
	return q.count
}
