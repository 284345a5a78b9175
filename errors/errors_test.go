package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseRef,
				Kind:   KindCapability,
				Ref:    "finalizer",
				Detail: "Ref not supported",
			},
			contains: []string{"[reference]", "capability", "finalizer", "Ref not supported"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseStack,
				Kind:  KindInvalidMarker,
			},
			contains: []string{"[stack]", "invalid_marker"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseShutdown,
				Kind:   KindClosed,
				Detail: "registry is closed",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[shutdown]", "closed", "registry is closed", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseFinalize, KindQueueBusy, cause, "drain in progress")

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find the cause")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap did not return the cause")
	}
}

func TestError_Is(t *testing.T) {
	a := Capability("weak", "Ref")
	b := &Error{Phase: PhaseRef, Kind: KindCapability}
	c := &Error{Phase: PhasePool, Kind: KindCapability}

	if !errors.Is(a, b) {
		t.Error("errors with same phase and kind should match")
	}
	if errors.Is(a, c) {
		t.Error("errors with different phase should not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("boom")
	err := New(PhasePool, KindAllocation).
		Ref("strong").
		Detail("chunk %d", 4).
		Cause(cause).
		Build()

	if err.Phase != PhasePool || err.Kind != KindAllocation {
		t.Fatalf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Ref != "strong" {
		t.Fatalf("unexpected ref: %s", err.Ref)
	}
	if err.Detail != "chunk 4" {
		t.Fatalf("unexpected detail: %s", err.Detail)
	}
	if err.Cause != cause {
		t.Fatal("cause not set")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	if got := InvalidMarker(PhaseScope, 2, 9).Error(); !strings.Contains(got, "chunk 2") {
		t.Errorf("InvalidMarker: %q", got)
	}
	if got := AllocationFailed(PhasePool, 64).Error(); !strings.Contains(got, "64 slots") {
		t.Errorf("AllocationFailed: %q", got)
	}
	if got := Closed(PhaseShutdown, "environment").Error(); !strings.Contains(got, "environment is closed") {
		t.Errorf("Closed: %q", got)
	}
}
