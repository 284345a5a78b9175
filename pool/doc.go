// Package pool implements the chunked, reference-counted handle pool that
// backs opaque handles crossing the native/GC boundary.
//
// A Pool owns an unbounded sequence of fixed-size chunks of slots. Chunks
// are never relocated or shrunk, so a *Slot handed to host code stays valid
// for exactly as long as its refcount is above zero. Free slots are chained
// on a free list and reused by later Add calls; the pool grows a chunk
// whenever the free list runs dry or occupancy crosses the configured
// target ratio.
//
// # Lifecycle
//
//	s := p.Add(v)    // refcount 1
//	p.Clone(s)       // refcount 2, same slot
//	p.Release(s)     // refcount 1
//	p.Release(s)     // refcount 0: slot parked for reuse
//
// # Thread Safety
//
// Add, Clone, and ForEach belong to the single mutator thread that owns the
// pool. Release alone may be called from any thread: the refcount is an
// atomic counter, and a slot reaching zero off-thread is parked on a
// lock-free pending list that the mutator drains before its next Add or
// ForEach. The free list itself is single-writer.
//
// Releasing a slot past zero or cloning a slot whose count already reached
// zero is a fatal host bug and panics.
package pool
