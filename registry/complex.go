package registry

import (
	"sync/atomic"

	"github.com/hostref/gcbridge"
	"github.com/hostref/gcbridge/errors"
)

// ComplexReference oscillates between a strong binding (count > 0) and a
// weak binding (count == 0) without losing the value's identity. It backs
// the "optional strength" reference contract of the embedding surface.
// Unlike the refcounted variants it never self-deletes at zero - zero just
// means weak - so the host must Delete it explicitly.
//
// The count itself is atomic, but the strong/weak transition moves the
// value between cells, so Ref and Unref belong to the mutator thread.
type ComplexReference struct {
	refbase
	strongValue gcbridge.Value // valid while count > 0
	weakValue   gcbridge.Value // valid while count == 0; collector may clear
	count       atomic.Uint32
}

func (r *ComplexReference) Kind() string { return "complex" }

// Value returns the strong binding while strong, otherwise resolves the
// weak cell. A nil result means the collector already reclaimed the value.
func (r *ComplexReference) Value() (gcbridge.Value, error) {
	if r.count.Load() > 0 {
		return r.strongValue, nil
	}
	return r.weakValue, nil
}

// Ref increments the count. On the 0 -> 1 transition the strong binding is
// re-materialized from the weak cell; if the collector already cleared it,
// the reference holds nil from then on.
func (r *ComplexReference) Ref() (uint32, error) {
	n := r.count.Add(1)
	if n > maxRefCount {
		panic("registry: reference count overflow")
	}
	if n == 1 {
		r.strongValue = r.weakValue
		r.weakValue = nil
	}
	return n, nil
}

// Unref decrements the count. On the 1 -> 0 transition the current value
// is re-registered as a weak cell.
func (r *ComplexReference) Unref() (uint32, error) {
	for {
		cur := r.count.Load()
		if cur == 0 {
			return 0, errors.InvalidState(r.Kind(), "Unref on a zero count")
		}
		if r.count.CompareAndSwap(cur, cur-1) {
			if cur == 1 {
				r.weakValue = r.strongValue
				r.strongValue = nil
			}
			return cur - 1, nil
		}
	}
}

func (r *ComplexReference) RefCount() uint32 {
	return r.count.Load()
}

// Root reporting: strong iff count > 0, weak iff count == 0, never both.

func (r *ComplexReference) scanStrong(visit gcbridge.RootVisitor) {
	if r.count.Load() > 0 {
		visit(&r.strongValue)
	}
}

func (r *ComplexReference) scanWeak(reg *Registry, visit gcbridge.WeakVisitor) {
	if r.count.Load() > 0 {
		return
	}
	visit(&r.weakValue)
	reg.afterWeakVisit(r, &r.weakValue, false)
}

func (r *ComplexReference) reapable() bool { return false }
