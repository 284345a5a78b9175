package pool

import (
	"sync/atomic"

	"github.com/hostref/gcbridge"
)

// maxRefCount leaves headroom below the int32 ceiling so an overflowing
// increment is caught before the counter wraps.
const maxRefCount = 1<<31 - 2

// Slot holds one heap value plus an atomic reference count. A slot is
// either free (refcount 0, chained on the pool's free or pending list) or
// occupied (refcount >= 1, holding a live value). The zero slot is free.
type Slot struct {
	value    gcbridge.Value
	next     *Slot // free-list / pending-list link, meaningful only while free
	refs     atomic.Int32
	occupied bool
}

// Value returns the stored heap value. Reading a free slot indicates a
// use-after-release in the host and panics.
func (s *Slot) Value() gcbridge.Value {
	if s.refs.Load() <= 0 {
		panic("pool: read of a released slot")
	}
	return s.value
}

// RefCount returns the current reference count. Zero means the slot is
// free or pending reuse.
func (s *Slot) RefCount() int32 {
	return s.refs.Load()
}

// retain increments the refcount. Incrementing from zero would resurrect a
// freed slot, which indicates a double release in the host; both that and
// counter overflow are fatal.
func (s *Slot) retain() {
	n := s.refs.Add(1)
	if n <= 1 {
		panic("pool: clone of a released slot")
	}
	if n > maxRefCount {
		panic("pool: refcount overflow")
	}
}
