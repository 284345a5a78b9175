package registry

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hostref/gcbridge"
	"github.com/hostref/gcbridge/errors"
)

// EventType identifies a reference lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDeleted
	EventQueued
	EventFinalized
)

// Event describes a reference lifecycle change.
type Event struct {
	Ref  Reference
	Kind string
	Type EventType
}

// Observer receives notifications about reference lifecycle events.
type Observer interface {
	OnReferenceEvent(Event)
}

// Registry owns every durable reference plus the finalization pipeline.
// All list mutation happens on the mutator thread; only the per-reference
// atomic counters may be touched from elsewhere.
type Registry struct {
	plain      refList // references without finalizers
	finalizing refList // references with finalizers; torn down first
	dangling   refList // host-deleted references awaiting a queued finalizer
	queue      finalizerQueue
	observers  []Observer
	closed     bool
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	r.plain.init()
	r.finalizing.init()
	r.dangling.init()
	return r
}

// NewStrong creates a strong reference to v with an initial count of 1.
func (r *Registry) NewStrong(v gcbridge.Value, opts ...Option) (*StrongReference, error) {
	if r.closed {
		return nil, errors.Closed(errors.PhaseRef, "registry")
	}
	o := buildOptions(opts)
	ref := &StrongReference{value: v}
	ref.count.Store(1)
	ref.attach(r, ref, o.fin)
	r.created(ref)
	return ref, nil
}

// NewWeak creates a weak reference to v with an initial count of 1. The
// count governs the reference object's lifetime; the value is always
// reported weakly.
func (r *Registry) NewWeak(v gcbridge.Value, opts ...Option) (*WeakReference, error) {
	if r.closed {
		return nil, errors.Closed(errors.PhaseRef, "registry")
	}
	o := buildOptions(opts)
	ref := &WeakReference{cell: v}
	ref.count.Store(1)
	ref.attach(r, ref, o.fin)
	r.created(ref)
	return ref, nil
}

// NewComplex creates a complex reference to v. With initialCount zero the
// binding starts weak, otherwise strong.
func (r *Registry) NewComplex(v gcbridge.Value, initialCount uint32, opts ...Option) (*ComplexReference, error) {
	if r.closed {
		return nil, errors.Closed(errors.PhaseRef, "registry")
	}
	o := buildOptions(opts)
	ref := &ComplexReference{}
	if initialCount > 0 {
		ref.strongValue = v
		ref.count.Store(initialCount)
	} else {
		ref.weakValue = v
	}
	ref.attach(r, ref, o.fin)
	r.created(ref)
	return ref, nil
}

// AddFinalizer attaches cb directly to v. The callback fires at the safe
// point after the collector reclaims v, or at shutdown, whichever comes
// first.
func (r *Registry) AddFinalizer(v gcbridge.Value, cb gcbridge.FinalizeFunc, data, hint any) (*FinalizerReference, error) {
	if r.closed {
		return nil, errors.Closed(errors.PhaseRef, "registry")
	}
	if cb == nil {
		return nil, errors.New(errors.PhaseFinalize, errors.KindInvalidState).
			Detail("nil finalize callback").
			Build()
	}
	ref := &FinalizerReference{cell: v}
	ref.attach(r, ref, &Finalizer{cb: cb, data: data, hint: hint})
	r.created(ref)
	return ref, nil
}

// ScanStrong enumerates every strong root cell. It also reaps refcounted
// references whose count reached zero since the last pass: a dead
// reference self-deletes when the collector next asks for roots.
func (r *Registry) ScanStrong(visit gcbridge.RootVisitor) {
	for _, l := range [...]*refList{&r.plain, &r.finalizing} {
		for n := l.head.next; n != &l.head; {
			next := n.next // reaping unlinks n
			ref := n.ref
			if ref.reapable() {
				r.startDeleting(ref, ReasonZeroRefCount)
			} else {
				ref.scanStrong(visit)
			}
			n = next
		}
	}
}

// ScanWeak enumerates every weak root cell. References whose cell the
// collector clears during this pass and that carry a pending finalizer are
// moved onto the finalizer queue for the next safe point.
func (r *Registry) ScanWeak(visit gcbridge.WeakVisitor) {
	for _, l := range [...]*refList{&r.plain, &r.finalizing} {
		for n := l.head.next; n != &l.head; {
			next := n.next
			n.ref.scanWeak(r, visit)
			n = next
		}
	}
}

// RunFinalizers drains the queue FIFO at a safe point. A re-entrant call
// (from inside a finalizer) is a no-op; finalizers enqueued mid-drain run
// in the same pass. Callback errors are aggregated, never swallowed.
func (r *Registry) RunFinalizers() error {
	if r.queue.running {
		return nil
	}
	r.queue.running = true
	defer func() { r.queue.running = false }()

	var errs error
	for f := r.queue.pop(); f != nil; f = r.queue.pop() {
		ref := f.owner
		if err := f.invoke(); err != nil {
			errs = multierr.Append(errs, err)
		}
		r.notify(Event{Type: EventFinalized, Ref: ref, Kind: ref.Kind()})
		b := ref.base()
		if b.deleteSelf && !b.deleted {
			r.startDeleting(ref, ReasonFinalizerCall)
		}
	}
	return errs
}

// Shutdown tears the registry down in two phases: finalizing references
// (queued callbacks first, then the rest of the finalizing and dangling
// lists) run their finalizers and are destroyed; plain references are then
// discarded without a finalizer call. Further creation fails with a closed
// error. Shutdown is idempotent.
func (r *Registry) Shutdown() error {
	if r.closed {
		return nil
	}
	r.closed = true
	Logger().Debug("registry shutdown",
		zap.Int("plain", r.plain.len()),
		zap.Int("finalizing", r.finalizing.len()),
		zap.Int("dangling", r.dangling.len()),
		zap.Int("queued", r.queue.len()))

	var errs error

	// Phase 1a: callbacks already queued keep their FIFO order.
	errs = multierr.Append(errs, r.RunFinalizers())

	// Phase 1b: surviving finalizing and dangling references. First() is
	// re-read each iteration because a callback may delete other
	// references.
	for _, l := range [...]*refList{&r.finalizing, &r.dangling} {
		for ref := l.first(); ref != nil; ref = l.first() {
			b := ref.base()
			if b.fin != nil && !b.fin.done() {
				if err := b.fin.invoke(); err != nil {
					errs = multierr.Append(errs, err)
				}
				r.notify(Event{Type: EventFinalized, Ref: ref, Kind: ref.Kind()})
			}
			r.startDeleting(ref, ReasonShutdown)
		}
	}

	// Phase 2: plain references go without a finalizer call.
	for ref := r.plain.first(); ref != nil; ref = r.plain.first() {
		r.startDeleting(ref, ReasonShutdown)
	}

	// Callbacks fired in phase 1b may have been queued; their entries are
	// spent (invoke cleared them) and are discarded here.
	for f := r.queue.pop(); f != nil; f = r.queue.pop() {
	}

	return errs
}

// Stats reports registry sizing for instrumentation.
type Stats struct {
	Plain      int
	Finalizing int
	Dangling   int
	Queued     int
}

// Stats returns a snapshot of list and queue lengths.
func (r *Registry) Stats() Stats {
	return Stats{
		Plain:      r.plain.len(),
		Finalizing: r.finalizing.len(),
		Dangling:   r.dangling.len(),
		Queued:     r.queue.len(),
	}
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Registry) Unsubscribe(o Observer) {
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// startDeleting runs the deletion protocol. It returns true when the
// reference was destroyed now, false when destruction was deferred behind
// a pending finalizer.
func (r *Registry) startDeleting(ref Reference, reason ReasonToDelete) bool {
	b := ref.base()
	if b.deleted {
		return true
	}

	// No finalizer left to run: destruction is immediate. This is also the
	// path taken after the finalizer has fired (ReasonFinalizerCall, or a
	// later external delete finding the callback already spent).
	if b.fin == nil || b.fin.done() {
		r.destroy(ref)
		return true
	}

	// A finalizer is still pending; record the intent to delete and defer.
	b.deleteSelf = true
	switch reason {
	case ReasonExternalCall:
		if b.fin.queued {
			// The queue still needs the reference alive; park it on the
			// dangling list until the callback runs.
			r.dangling.pushFront(&b.n)
			return false
		}
		r.enqueue(b.fin)
		return false
	case ReasonZeroRefCount:
		r.enqueue(b.fin)
		return false
	default:
		// ReasonFinalizerCall and ReasonShutdown arrive with the callback
		// already spent and take the fast path above; reaching here means
		// the callers' ordering broke.
		panic("registry: deletion with a pending finalizer")
	}
}

// destroy unlinks the reference from whichever list holds it and marks it
// dead.
func (r *Registry) destroy(ref Reference) {
	b := ref.base()
	if b.deleted {
		return
	}
	if b.n.owner != nil {
		b.n.owner.remove(&b.n)
	}
	b.deleted = true
	r.notify(Event{Type: EventDeleted, Ref: ref, Kind: ref.Kind()})
}

// afterWeakVisit is the weak-clear hook shared by the weakly-scanning
// variants: once the collector clears the cell, a pending finalizer is
// queued for the next safe point. selfDelete marks variants that dispose
// of themselves after the callback runs.
func (r *Registry) afterWeakVisit(ref Reference, cell *gcbridge.Value, selfDelete bool) {
	b := ref.base()
	if *cell != nil || b.fin == nil || b.fin.done() || b.fin.queued {
		return
	}
	if selfDelete {
		b.deleteSelf = true
	}
	r.enqueue(b.fin)
}

func (r *Registry) enqueue(f *Finalizer) {
	r.queue.enqueue(f)
	if f.queued {
		r.notify(Event{Type: EventQueued, Ref: f.owner, Kind: f.owner.Kind()})
	}
}

func (r *Registry) created(ref Reference) {
	Logger().Debug("reference created", zap.String("kind", ref.Kind()))
	r.notify(Event{Type: EventCreated, Ref: ref, Kind: ref.Kind()})
}

func (r *Registry) notify(e Event) {
	for _, o := range r.observers {
		o.OnReferenceEvent(e)
	}
}
