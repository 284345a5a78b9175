package registry

import "testing"

func TestComplexReference_StartsWeakAtZero(t *testing.T) {
	r := New()
	ref, err := r.NewComplex("V", 0)
	if err != nil {
		t.Fatal(err)
	}

	if len(strongRoots(r)) != 0 {
		t.Fatal("zero-count complex reference must not be a strong root")
	}
	if got := weakRoots(r); len(got) != 1 || got[0] != "V" {
		t.Fatalf("expected weak root V, got %v", got)
	}
	if v, _ := ref.Value(); v != "V" {
		t.Fatalf("value lost while weak: %v", v)
	}
}

func TestComplexReference_Oscillation(t *testing.T) {
	// Ref promotes weak to strong, Unref demotes strong back to weak, and
	// the value survives each transition.
	r := New()
	ref, _ := r.NewComplex("V", 0)

	if n, err := ref.Ref(); err != nil || n != 1 {
		t.Fatalf("Ref = %d, %v", n, err)
	}
	if got := strongRoots(r); len(got) != 1 || got[0] != "V" {
		t.Fatalf("expected strong root V after promotion, got %v", got)
	}
	if len(weakRoots(r)) != 0 {
		t.Fatal("strong complex reference must not report a weak root")
	}

	if n, err := ref.Unref(); err != nil || n != 0 {
		t.Fatalf("Unref = %d, %v", n, err)
	}
	if len(strongRoots(r)) != 0 {
		t.Fatal("demoted complex reference must not report a strong root")
	}
	if v, _ := ref.Value(); v != "V" {
		t.Fatalf("value lost on demotion: %v", v)
	}

	// A second round works the same way.
	if n, _ := ref.Ref(); n != 1 {
		t.Fatal("re-promotion failed")
	}
	if v, _ := ref.Value(); v != "V" {
		t.Fatalf("value lost on re-promotion: %v", v)
	}
}

func TestComplexReference_NotReapedAtZero(t *testing.T) {
	// Zero count means weak, not dead. Only Delete disposes it.
	r := New()
	ref, _ := r.NewComplex("V", 1)
	ref.Unref()

	strongRoots(r)
	if r.Stats().Plain != 1 {
		t.Fatal("complex reference reaped at zero count")
	}

	if err := ref.Delete(); err != nil {
		t.Fatal(err)
	}
	if r.Stats().Plain != 0 {
		t.Fatal("deleted complex reference still listed")
	}
}

func TestComplexReference_ClearedWhileWeak(t *testing.T) {
	// Once the collector clears the weak cell, promotion yields nil.
	r := New()
	ref, _ := r.NewComplex("V", 0)

	clearWeak(r, "V")
	if v, _ := ref.Value(); v != nil {
		t.Fatalf("expected cleared value, got %v", v)
	}

	ref.Ref()
	if v, _ := ref.Value(); v != nil {
		t.Fatalf("promotion resurrected a reclaimed value: %v", v)
	}
}

func TestComplexReference_InitialCountStrong(t *testing.T) {
	r := New()
	ref, _ := r.NewComplex("V", 2)

	if got := strongRoots(r); len(got) != 1 || got[0] != "V" {
		t.Fatalf("expected strong root V, got %v", got)
	}
	if n := ref.RefCount(); n != 2 {
		t.Fatalf("RefCount = %d", n)
	}
}

func TestComplexReference_FinalizerOnWeakClear(t *testing.T) {
	r := New()
	calls := 0
	ref, _ := r.NewComplex("V", 0, WithFinalizer(func(data, hint any) error {
		calls++
		return nil
	}, nil, nil))

	clearWeak(r, "V")
	if err := r.RunFinalizers(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("finalizer ran %d times", calls)
	}
	// The callback fired but the reference is still owned by the host.
	if r.Stats().Finalizing != 1 {
		t.Fatal("host-owned complex reference disposed by its finalizer")
	}
	if err := ref.Delete(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatal("finalizer ran again on Delete")
	}
}
