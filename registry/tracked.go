package registry

import (
	"github.com/hostref/gcbridge"
	"github.com/hostref/gcbridge/errors"
)

// FinalizerReference attaches a cleanup callback directly to a heap value.
// It holds the value weakly, carries no reference count, and once the
// collector clears the cell its finalizer is queued and the reference
// deletes itself after the callback runs.
type FinalizerReference struct {
	refbase
	cell gcbridge.Value
}

func (r *FinalizerReference) Kind() string { return "finalizer" }

// Value resolves the tracked value; nil once the collector reclaimed it.
func (r *FinalizerReference) Value() (gcbridge.Value, error) {
	return r.cell, nil
}

func (r *FinalizerReference) Ref() (uint32, error) {
	return 0, errors.Capability(r.Kind(), "Ref")
}

func (r *FinalizerReference) Unref() (uint32, error) {
	return 0, errors.Capability(r.Kind(), "Unref")
}

func (r *FinalizerReference) RefCount() uint32 { return 0 }

func (r *FinalizerReference) scanStrong(gcbridge.RootVisitor) {}

func (r *FinalizerReference) scanWeak(reg *Registry, visit gcbridge.WeakVisitor) {
	visit(&r.cell)
	reg.afterWeakVisit(r, &r.cell, true)
}

func (r *FinalizerReference) reapable() bool { return false }
