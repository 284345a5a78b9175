package registry

import (
	"sync/atomic"

	"github.com/hostref/gcbridge"
	"github.com/hostref/gcbridge/errors"
)

// WeakReference reports its value only as a weak root: the collector may
// clear it at any collection once no strong path remains. The count governs
// the lifetime of the reference object itself, not of the value.
type WeakReference struct {
	refbase
	cell  gcbridge.Value
	count atomic.Uint32
}

func (r *WeakReference) Kind() string { return "weak" }

// Value resolves the weak cell. A nil result means the collector already
// reclaimed the value.
func (r *WeakReference) Value() (gcbridge.Value, error) {
	return r.cell, nil
}

func (r *WeakReference) Ref() (uint32, error) {
	n := r.count.Add(1)
	if n > maxRefCount {
		panic("registry: reference count overflow")
	}
	return n, nil
}

func (r *WeakReference) Unref() (uint32, error) {
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

func (r *WeakReference) RefCount() uint32 {
	return r.count.Load()
}

func (r *WeakReference) scanStrong(gcbridge.RootVisitor) {}

func (r *WeakReference) scanWeak(reg *Registry, visit gcbridge.WeakVisitor) {
	if r.count.Load() == 0 {
		return
	}
	visit(&r.cell)
	reg.afterWeakVisit(r, &r.cell, false)
}

func (r *WeakReference) reapable() bool {
	return r.count.Load() == 0
}
