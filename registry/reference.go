package registry

import (
	"github.com/hostref/gcbridge"
	"github.com/hostref/gcbridge/errors"
)

// maxRefCount leaves headroom below the uint32 ceiling so an overflowing
// increment is caught before the counter wraps.
const maxRefCount = 1<<32 - 2

// ReasonToDelete says why a reference is being asked to delete itself. The
// deletion protocol decides per reason whether destruction happens now or
// is deferred behind a pending finalizer.
type ReasonToDelete uint8

const (
	// ReasonZeroRefCount: the count reached zero and the next root pass
	// found the reference dead.
	ReasonZeroRefCount ReasonToDelete = iota

	// ReasonFinalizerCall: the finalizer just ran and the reference had
	// recorded the intent to delete itself afterwards.
	ReasonFinalizerCall

	// ReasonExternalCall: the host explicitly deleted the reference.
	ReasonExternalCall

	// ReasonShutdown: the environment is tearing down.
	ReasonShutdown
)

// Reference is a durable binding from native code to a heap value,
// reachable from exactly one registry list until it is destroyed.
//
// Ref, Unref, and RefCount return a capability error on variants without a
// count. Value returns nil (without error) when a weakly-held value has
// been reclaimed by the collector.
type Reference interface {
	// Value returns the referenced heap value, or nil if it was weakly
	// held and the collector reclaimed it.
	Value() (gcbridge.Value, error)

	// Ref increments the reference count and returns the new count.
	Ref() (uint32, error)

	// Unref decrements the reference count and returns the new count.
	Unref() (uint32, error)

	// RefCount returns the current count.
	RefCount() uint32

	// Delete releases the reference from the host side. If a finalizer is
	// still pending, destruction is deferred until it has run.
	Delete() error

	// Kind names the variant: "strong", "weak", "complex", "finalizer".
	Kind() string

	base() *refbase
	scanStrong(visit gcbridge.RootVisitor)
	scanWeak(r *Registry, visit gcbridge.WeakVisitor)
	reapable() bool
}

// refbase carries the pieces shared by every variant: the list hook, the
// owning registry, the optional finalizer, and the deletion-protocol flags.
type refbase struct {
	n          node
	reg        *Registry
	self       Reference
	fin        *Finalizer
	deleteSelf bool
	deleted    bool
}

// attach wires the base into its registry and list. Called once from the
// variant constructors.
func (b *refbase) attach(reg *Registry, self Reference, fin *Finalizer) {
	b.reg = reg
	b.self = self
	b.n.ref = self
	if fin != nil {
		fin.owner = self
		b.fin = fin
		reg.finalizing.pushFront(&b.n)
	} else {
		reg.plain.pushFront(&b.n)
	}
}

func (b *refbase) base() *refbase { return b }

// Delete implements the host-facing deletion entry point shared by all
// variants.
func (b *refbase) Delete() error {
	if b.deleted {
		return errors.InvalidHandle(errors.PhaseRef, "reference already deleted")
	}
	b.reg.startDeleting(b.self, ReasonExternalCall)
	return nil
}

// Option configures a reference at creation.
type Option func(*refOptions)

type refOptions struct {
	fin *Finalizer
}

// WithFinalizer attaches a cleanup callback invoked at most once when the
// reference is destroyed or its weakly-held value is reclaimed. References
// created with a finalizer live on the finalizing registry list.
func WithFinalizer(cb gcbridge.FinalizeFunc, data, hint any) Option {
	return func(o *refOptions) {
		if cb != nil {
			o.fin = &Finalizer{cb: cb, data: data, hint: hint}
		}
	}
}

func buildOptions(opts []Option) refOptions {
	var o refOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
