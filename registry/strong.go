package registry

import (
	"sync/atomic"

	"github.com/hostref/gcbridge"
	"github.com/hostref/gcbridge/errors"
)

// StrongReference keeps its value alive while the count is above zero.
// Once the count reaches zero the reference is dead; it is unlinked and
// destroyed by the next root pass.
type StrongReference struct {
	refbase
	value gcbridge.Value
	count atomic.Uint32
}

func (r *StrongReference) Kind() string { return "strong" }

// Value returns the referenced value. The value is only guaranteed live
// while the count is above zero.
func (r *StrongReference) Value() (gcbridge.Value, error) {
	return r.value, nil
}

// Ref increments the count. Overflow is a fatal host bug.
func (r *StrongReference) Ref() (uint32, error) {
	n := r.count.Add(1)
	if n > maxRefCount {
		panic("registry: reference count overflow")
	}
	return n, nil
}

// Unref decrements the count. Unref may be called from any thread.
func (r *StrongReference) Unref() (uint32, error) {
	for {
		cur := r.count.Load()
		if cur == 0 {
			return 0, errors.InvalidState(r.Kind(), "Unref on a zero count")
		}
		if r.count.CompareAndSwap(cur, cur-1) {
			return cur - 1, nil
		}
	}
}

func (r *StrongReference) RefCount() uint32 {
	return r.count.Load()
}

func (r *StrongReference) scanStrong(visit gcbridge.RootVisitor) {
	if r.count.Load() > 0 {
		visit(&r.value)
	}
}

func (r *StrongReference) scanWeak(*Registry, gcbridge.WeakVisitor) {}

func (r *StrongReference) reapable() bool {
	return r.count.Load() == 0
}
