package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which part of the boundary layer the error occurred in
type Phase string

const (
	PhasePool     Phase = "pool"      // handle pool operations
	PhaseStack    Phase = "stack"     // value stack and markers
	PhaseScope    Phase = "scope"     // handle scope open/close
	PhaseRef      Phase = "reference" // reference lifecycle
	PhaseFinalize Phase = "finalize"  // finalizer queue
	PhaseShutdown Phase = "shutdown"  // environment teardown
)

// Kind categorizes the error
type Kind string

const (
	KindCapability    Kind = "capability"     // operation unsupported by this reference variant
	KindAllocation    Kind = "allocation"     // chunk or slot allocation failure
	KindInvalidMarker Kind = "invalid_marker" // marker structurally out of range
	KindInvalidHandle Kind = "invalid_handle" // handle does not refer to a live slot
	KindClosed        Kind = "closed"         // environment or registry already shut down
	KindQueueBusy     Kind = "queue_busy"     // finalizer queue already draining
	KindInvalidState  Kind = "invalid_state"  // operation legal for the variant but not in its current state
)

// Error is the structured error type used throughout the library.
//
// Only recoverable conditions are reported this way. Fatal invariant
// violations (double free, refcount resurrection, overflow) panic instead;
// they indicate host-code bugs that cannot be safely continued past.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Ref    string // reference variant name, when relevant
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Ref != "" {
		b.WriteString(" on ")
		b.WriteString(e.Ref)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Ref sets the reference variant name
func (b *Builder) Ref(name string) *Builder {
	b.err.Ref = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Capability reports a refcount or value operation invoked on a reference
// variant that does not support it.
func Capability(refName, op string) *Error {
	return &Error{
		Phase:  PhaseRef,
		Kind:   KindCapability,
		Ref:    refName,
		Detail: fmt.Sprintf("%s not supported", op),
	}
}

// InvalidState reports an operation that the variant supports but that is
// illegal in its current state, such as Unref on a zero count.
func InvalidState(refName, detail string) *Error {
	return &Error{
		Phase:  PhaseRef,
		Kind:   KindInvalidState,
		Ref:    refName,
		Detail: detail,
	}
}

// AllocationFailed reports a chunk allocation failure
func AllocationFailed(phase Phase, slots int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate chunk of %d slots", slots),
	}
}

// InvalidMarker reports a structurally invalid stack marker
func InvalidMarker(phase Phase, chunk, item int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidMarker,
		Detail: fmt.Sprintf("marker {chunk %d, item %d} out of range", chunk, item),
	}
}

// InvalidHandle reports a handle that does not refer to a live slot
func InvalidHandle(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Detail: detail,
	}
}

// Closed reports an operation attempted after shutdown
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
