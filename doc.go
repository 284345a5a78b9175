// Package gcbridge implements the boundary layer between native host code and
// a garbage-collected script-engine heap.
//
// The library lets host code hold, share, and release references into a
// tracing-collected heap without the collector ever losing track of a value
// the host still needs, and without the host leaking or dangling when the
// engine tears down. Raw collector pointers are never exposed; every value
// crossing the boundary is indirected through a refcounted slot or a
// registered reference that the collector scans as a root.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	gcbridge/            Root package with the Value cell and Collector contract
//	├── pool/            Chunked, reference-counted handle pool (strong/weak roots)
//	├── stack/           Non-relocating value stack with marker checkpoints (handle scopes)
//	├── registry/        Durable references, finalizer queue, two-phase shutdown
//	├── env/             The embedding surface tying the pieces together
//	├── heap/            Minimal tracing collector used by tests and the stress tool
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Wire an Environment to a collector and hand out references:
//
//	h := heap.New()
//	e := env.New(h)
//	defer e.Shutdown()
//
//	obj := h.Alloc("payload")
//	ref, err := e.CreateReference(obj, 1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	h.Collect()              // obj survives: ref is a strong root
//	v, _ := ref.Value()      // still reachable
//	ref.Unref()              // drops to weak; the collector may now reclaim it
//
// # Root Scanning
//
// The collector calls two registered scanners once per collection pause:
// one enumerating strong roots (values kept alive) and one enumerating weak
// roots (cells the collector may clear). Both run synchronously on the
// mutator thread; scanners complete in time proportional to the live
// handle/reference count and do not allocate.
//
// # Thread Safety
//
// A single logical mutator thread owns handle creation, scope push/pop, and
// reference lifecycle transitions. The only cross-thread operations are
// releasing a pool handle and decrementing a strong reference, both backed
// by atomic counters. Everything else must stay on the mutator thread.
//
// # Failure Model
//
// Invariant violations that indicate host bugs - double release, reviving a
// dead slot, refcount overflow - panic immediately; continuing past them
// risks heap corruption. Recoverable conditions (calling a refcount
// operation on a reference variant that lacks one, truncating to an invalid
// marker) return structured errors from the errors package.
package gcbridge
