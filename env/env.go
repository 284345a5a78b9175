package env

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hostref/gcbridge"
	"github.com/hostref/gcbridge/errors"
	"github.com/hostref/gcbridge/pool"
	"github.com/hostref/gcbridge/registry"
	"github.com/hostref/gcbridge/stack"
)

// Environment binds the handle pools, the local stack and the reference
// registry to a collector. One Environment per mutator thread.
type Environment struct {
	strong *pool.Pool
	weak   *pool.Pool
	locals *stack.Stack
	refs   *registry.Registry

	closed bool
}

type Option func(*options)

type options struct {
	poolOpts []pool.Option
}

// WithPoolOptions forwards options to both handle pools.
func WithPoolOptions(opts ...pool.Option) Option {
	return func(o *options) {
		o.poolOpts = append(o.poolOpts, opts...)
	}
}

// New creates an Environment and registers its root scanners with the
// collector. The collector calls the scanners during pauses; everything
// reachable from a live handle, a local or a positive-count reference is
// reported as a strong root, weak handles and weak references as weak
// roots.
func New(c gcbridge.Collector, opts ...Option) *Environment {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := &Environment{
		strong: pool.New(o.poolOpts...),
		weak:   pool.New(o.poolOpts...),
		locals: stack.New(),
		refs:   registry.New(),
	}

	c.RegisterRootScanner(func(visit gcbridge.RootVisitor) {
		e.strong.ForEach(visit)
		e.locals.ForEach(visit)
		e.refs.ScanStrong(visit)
	})
	c.RegisterWeakScanner(func(visit gcbridge.WeakVisitor) {
		e.weak.ForEach(visit)
		e.refs.ScanWeak(visit)
	})

	Logger().Debug("environment created")
	return e
}

// Handle is an opaque, refcounted grip on a value. Handles from the same
// Add/Clone family share one pool slot; the value stays a root until the
// whole family is released.
type Handle struct {
	slot *pool.Slot
	pool *pool.Pool
}

// Value returns the held value. For weak handles a nil result means the
// collector reclaimed the value.
func (h Handle) Value() gcbridge.Value {
	return h.slot.Value()
}

// RefCount reports how many grips share the slot.
func (h Handle) RefCount() int32 {
	return h.slot.RefCount()
}

// CreateValue pins v as a strong root and returns a handle at count 1.
func (e *Environment) CreateValue(v gcbridge.Value) (Handle, error) {
	if e.closed {
		return Handle{}, errors.Closed(errors.PhasePool, "environment")
	}
	return Handle{slot: e.strong.Add(v), pool: e.strong}, nil
}

// CreateWeakValue tracks v without keeping it alive. The collector may
// clear the handle's cell at any pause.
func (e *Environment) CreateWeakValue(v gcbridge.Value) (Handle, error) {
	if e.closed {
		return Handle{}, errors.Closed(errors.PhasePool, "environment")
	}
	return Handle{slot: e.weak.Add(v), pool: e.weak}, nil
}

// CloneValue adds another grip on h's slot.
func (e *Environment) CloneValue(h Handle) (Handle, error) {
	if h.slot == nil || h.pool == nil {
		return Handle{}, errors.InvalidHandle(errors.PhasePool, "zero handle")
	}
	return Handle{slot: h.pool.Clone(h.slot), pool: h.pool}, nil
}

// ReleaseValue drops one grip. Safe to call from any thread; the slot is
// recycled on the mutator thread once the last grip is gone.
func (e *Environment) ReleaseValue(h Handle) error {
	if h.slot == nil || h.pool == nil {
		return errors.InvalidHandle(errors.PhasePool, "zero handle")
	}
	h.pool.Release(h.slot)
	return nil
}

// Scope marks a position on the local stack. Scopes close in LIFO order.
type Scope struct {
	marker stack.Marker
}

// OpenScope starts a new scope for locals.
func (e *Environment) OpenScope() (Scope, error) {
	if e.closed {
		return Scope{}, errors.Closed(errors.PhaseScope, "environment")
	}
	return Scope{marker: e.locals.CreateMarker()}, nil
}

// Local pushes v into the current scope and returns its cell. The cell
// stays a strong root, and stays at a stable address, until the scope
// closes.
func (e *Environment) Local(v gcbridge.Value) (*gcbridge.Value, error) {
	if e.closed {
		return nil, errors.Closed(errors.PhaseScope, "environment")
	}
	return e.locals.Push(v), nil
}

// CloseScope releases every local pushed since the scope opened. Closing
// out of order fails without touching the stack.
func (e *Environment) CloseScope(s Scope) error {
	if e.closed {
		return errors.Closed(errors.PhaseScope, "environment")
	}
	if !e.locals.Truncate(s.marker) {
		return errors.InvalidMarker(errors.PhaseScope, s.marker.Chunk, s.marker.Item)
	}
	return nil
}

// EscapeScope closes s but first re-homes v into the parent scope, so one
// result can outlive the scope that produced it.
func (e *Environment) EscapeScope(s Scope, v gcbridge.Value) (*gcbridge.Value, error) {
	if err := e.CloseScope(s); err != nil {
		return nil, err
	}
	return e.locals.Push(v), nil
}

// CreateStrongReference registers v as a durable root at count 1.
func (e *Environment) CreateStrongReference(v gcbridge.Value, opts ...registry.Option) (*registry.StrongReference, error) {
	if e.closed {
		return nil, errors.Closed(errors.PhaseRef, "environment")
	}
	return e.refs.NewStrong(v, opts...)
}

// CreateWeakReference tracks v without rooting it. The reference object
// itself lives until its count drops to zero.
func (e *Environment) CreateWeakReference(v gcbridge.Value, opts ...registry.Option) (*registry.WeakReference, error) {
	if e.closed {
		return nil, errors.Closed(errors.PhaseRef, "environment")
	}
	return e.refs.NewWeak(v, opts...)
}

// CreateReference registers v with optional strength: strong while the
// count is positive, weak at zero. The host must Delete it explicitly.
func (e *Environment) CreateReference(v gcbridge.Value, initialCount uint32, opts ...registry.Option) (*registry.ComplexReference, error) {
	if e.closed {
		return nil, errors.Closed(errors.PhaseRef, "environment")
	}
	return e.refs.NewComplex(v, initialCount, opts...)
}

// AddFinalizer attaches cb to v without keeping v alive. cb runs once, at
// the first safe point after the collector reclaims v.
func (e *Environment) AddFinalizer(v gcbridge.Value, cb gcbridge.FinalizeFunc, data, hint any) (*registry.FinalizerReference, error) {
	if e.closed {
		return nil, errors.Closed(errors.PhaseRef, "environment")
	}
	return e.refs.AddFinalizer(v, cb, data, hint)
}

// RunFinalizers drains the finalizer queue. Call it from a safe point on
// the mutator thread; a call from inside a finalizer is a no-op.
func (e *Environment) RunFinalizers() error {
	if e.closed {
		return errors.Closed(errors.PhaseFinalize, "environment")
	}
	return e.refs.RunFinalizers()
}

// Shutdown tears the environment down: pending and registered finalizers
// run first, then every reference is discarded. Finalizer errors are
// aggregated, and do not stop the teardown. Idempotent.
func (e *Environment) Shutdown() error {
	if e.closed {
		return nil
	}
	e.closed = true

	Logger().Debug("environment shutting down",
		zap.Int("locals", e.locals.Size()),
		zap.Int("strong_handles", e.strong.Occupied()),
		zap.Int("weak_handles", e.weak.Occupied()))

	var errs error
	errs = multierr.Append(errs, e.refs.Shutdown())

	// Locals unwind wholesale; handles stay valid until their owners
	// release them, the pools just stop being scanned.
	for e.locals.Pop() {
	}
	return errs
}

// Registry exposes the reference registry for observers and stats.
func (e *Environment) Registry() *registry.Registry {
	return e.refs
}

// Stats is a point-in-time snapshot across all owned structures.
type Stats struct {
	StrongHandles pool.Stats
	WeakHandles   pool.Stats
	Locals        stack.Stats
	References    registry.Stats
}

func (e *Environment) Stats() Stats {
	return Stats{
		StrongHandles: e.strong.Stats(),
		WeakHandles:   e.weak.Stats(),
		Locals:        e.locals.Stats(),
		References:    e.refs.Stats(),
	}
}
