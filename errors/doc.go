// Package errors provides structured error types for the gcbridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind
// (error category). Only recoverable conditions are modeled here; invariant
// violations that indicate host bugs panic at the point of detection.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRef, errors.KindCapability).
//		Ref("weak").
//		Detail("cannot re-materialize a collected value").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Capability("finalizer", "Ref")
//	err := errors.InvalidMarker(errors.PhaseScope, 3, 17)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
