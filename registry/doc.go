// Package registry implements durable (non-scoped) bindings from native
// code to heap values: the reference lists the collector scans as roots,
// the finalizer queue, and the two-phase shutdown protocol.
//
// # Reference Variants
//
// Three variants cover the embedding surface:
//
//	strong   - refcounted; the value is a strong root while the count > 0
//	weak     - refcounted; the value is only ever a weak root
//	complex  - the count oscillates the binding between strong (count > 0)
//	           and weak (count == 0) without losing the value's identity
//
// A fourth, refcount-less variant backs "attach a cleanup callback directly
// to a value" semantics: it tracks the value weakly and fires its finalizer
// once the collector clears it.
//
// # Registry Lists
//
// Every live reference sits on exactly one of two intrusive lists, chosen
// at creation and never changed: plain (no finalizer) or finalizing. The
// split exists for shutdown ordering - finalizing references must run
// their callbacks while plain references are still intact, so finalizers
// can safely touch other registered references. A third list holds
// dangling references: finalizing references the host already deleted
// while their finalizer was queued, kept alive until the callback runs.
//
// # Finalization
//
// Finalizers never run inline with the operation that doomed them. They
// are queued and drained FIFO at a safe point by RunFinalizers, which is
// re-entrancy guarded: a finalizer triggering another drain is a no-op,
// and callbacks enqueued mid-drain run in the same pass. A callback is
// invoked at most once; the stored function is cleared before the call so
// re-entrant deletion cannot fire it again.
package registry
