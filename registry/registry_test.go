package registry

import (
	"errors"
	"testing"

	"github.com/hostref/gcbridge"
	gcerrors "github.com/hostref/gcbridge/errors"
)

func strongRoots(r *Registry) []gcbridge.Value {
	var got []gcbridge.Value
	r.ScanStrong(func(cell *gcbridge.Value) {
		got = append(got, *cell)
	})
	return got
}

func weakRoots(r *Registry) []gcbridge.Value {
	var got []gcbridge.Value
	r.ScanWeak(func(cell *gcbridge.Value) {
		got = append(got, *cell)
	})
	return got
}

// clearWeak simulates a collection that reclaims target: every weak cell
// holding it is cleared.
func clearWeak(r *Registry, target gcbridge.Value) {
	r.ScanWeak(func(cell *gcbridge.Value) {
		if *cell == target {
			*cell = nil
		}
	})
}

type eventLog struct {
	events []Event
}

func (l *eventLog) OnReferenceEvent(e Event) {
	l.events = append(l.events, e)
}

func (l *eventLog) ofType(t EventType) int {
	n := 0
	for _, e := range l.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func TestStrongReference_Lifecycle(t *testing.T) {
	// Create at count 1, clone to 2, release to 1 (still a root), release
	// to 0 (gone from the next root pass, reference reaped).
	r := New()

	ref, err := r.NewStrong("V")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := ref.Ref(); n != 2 {
		t.Fatalf("expected count 2, got %d", n)
	}

	if n, _ := ref.Unref(); n != 1 {
		t.Fatalf("expected count 1, got %d", n)
	}
	if got := strongRoots(r); len(got) != 1 || got[0] != "V" {
		t.Fatalf("V should still be a strong root, got %v", got)
	}

	if n, _ := ref.Unref(); n != 0 {
		t.Fatalf("expected count 0, got %d", n)
	}
	if got := strongRoots(r); len(got) != 0 {
		t.Fatalf("V should no longer be a root, got %v", got)
	}
	if r.Stats().Plain != 0 {
		t.Fatal("dead reference not reaped by root pass")
	}
}

func TestStrongReference_UnrefBelowZero(t *testing.T) {
	r := New()
	ref, _ := r.NewStrong("V")
	ref.Unref()

	if _, err := ref.Unref(); err == nil {
		t.Fatal("Unref on zero count should fail")
	} else if !errors.Is(err, &gcerrors.Error{Phase: gcerrors.PhaseRef, Kind: gcerrors.KindInvalidState}) {
		t.Fatalf("expected invalid_state error, got %v", err)
	}
}

func TestWeakReference_ClearedByCollector(t *testing.T) {
	r := New()
	ref, _ := r.NewWeak("V")

	if got := strongRoots(r); len(got) != 0 {
		t.Fatalf("weak reference must not report strong roots, got %v", got)
	}
	if got := weakRoots(r); len(got) != 1 || got[0] != "V" {
		t.Fatalf("expected weak root V, got %v", got)
	}

	clearWeak(r, "V")
	v, err := ref.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("expected cleared value, got %v", v)
	}
}

func TestWeakReference_ReapedAtZero(t *testing.T) {
	r := New()
	ref, _ := r.NewWeak("V")
	ref.Unref()

	strongRoots(r) // root pass reaps
	if r.Stats().Plain != 0 {
		t.Fatal("weak reference at zero count not reaped")
	}
}

func TestDelete_WithoutFinalizer(t *testing.T) {
	r := New()
	ref, _ := r.NewStrong("V")

	if err := ref.Delete(); err != nil {
		t.Fatal(err)
	}
	if r.Stats().Plain != 0 {
		t.Fatal("deleted reference still listed")
	}
	if err := ref.Delete(); err == nil {
		t.Fatal("second Delete should fail")
	}
}

func TestDelete_DefersBehindPendingFinalizer(t *testing.T) {
	r := New()

	calls := 0
	ref, _ := r.NewStrong("V", WithFinalizer(func(data, hint any) error {
		calls++
		return nil
	}, nil, nil))

	if err := ref.Delete(); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatal("finalizer must not run inline with Delete")
	}
	if r.Stats().Queued != 1 {
		t.Fatalf("expected queued finalizer, got %d", r.Stats().Queued)
	}

	if err := r.RunFinalizers(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("finalizer ran %d times", calls)
	}
	if st := r.Stats(); st.Finalizing != 0 || st.Queued != 0 {
		t.Fatalf("reference not destroyed after finalizer: %+v", st)
	}
}

func TestDelete_WhileQueuedMovesToDangling(t *testing.T) {
	// The host deletes a reference whose finalizer is already queued: the
	// reference parks on the dangling list so the callback can still run
	// safely, then both are disposed.
	r := New()

	calls := 0
	ref, _ := r.AddFinalizer("V", func(data, hint any) error {
		calls++
		return nil
	}, nil, nil)

	clearWeak(r, "V")
	if r.Stats().Queued != 1 {
		t.Fatal("expected finalizer queued after weak clear")
	}

	if err := ref.Delete(); err != nil {
		t.Fatal(err)
	}
	if st := r.Stats(); st.Dangling != 1 || st.Finalizing != 0 {
		t.Fatalf("expected dangling reference, got %+v", st)
	}
	if calls != 0 {
		t.Fatal("finalizer ran before the safe point")
	}

	if err := r.RunFinalizers(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("finalizer ran %d times", calls)
	}
	if st := r.Stats(); st.Dangling != 0 || st.Queued != 0 {
		t.Fatalf("dangling reference not disposed: %+v", st)
	}
}

func TestFinalizerReference_SelfDeletesAfterCallback(t *testing.T) {
	r := New()

	calls := 0
	_, err := r.AddFinalizer("V", func(data, hint any) error {
		calls++
		return nil
	}, "data", "hint")
	if err != nil {
		t.Fatal(err)
	}
	if r.Stats().Finalizing != 1 {
		t.Fatal("finalizer reference not on finalizing list")
	}

	clearWeak(r, "V")
	if err := r.RunFinalizers(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("finalizer ran %d times", calls)
	}
	if st := r.Stats(); st.Finalizing != 0 {
		t.Fatalf("finalizer reference survived its callback: %+v", st)
	}
}

func TestFinalizerReference_NoRefcount(t *testing.T) {
	r := New()
	ref, _ := r.AddFinalizer("V", func(data, hint any) error { return nil }, nil, nil)

	if _, err := ref.Ref(); err == nil {
		t.Fatal("Ref on a finalizer reference should fail")
	} else if !errors.Is(err, &gcerrors.Error{Phase: gcerrors.PhaseRef, Kind: gcerrors.KindCapability}) {
		t.Fatalf("expected capability error, got %v", err)
	}
	if _, err := ref.Unref(); err == nil {
		t.Fatal("Unref on a finalizer reference should fail")
	}
}

func TestShutdown_TwoPhaseOrder(t *testing.T) {
	// Finalizing references run their callbacks while plain references are
	// still registered, so callbacks can safely read through them.
	r := New()

	plain, _ := r.NewStrong("plain")
	var sawPlain bool
	_, err := r.NewStrong("fin", WithFinalizer(func(data, hint any) error {
		v, _ := plain.Value()
		sawPlain = v == "plain"
		return nil
	}, nil, nil))
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if !sawPlain {
		t.Fatal("finalizer ran after plain references were discarded")
	}
	if st := r.Stats(); st.Plain != 0 || st.Finalizing != 0 || st.Dangling != 0 || st.Queued != 0 {
		t.Fatalf("registry not empty after shutdown: %+v", st)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	r := New()
	calls := 0
	r.NewStrong("V", WithFinalizer(func(data, hint any) error {
		calls++
		return nil
	}, nil, nil))

	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("finalizer ran %d times across repeated shutdowns", calls)
	}
}

func TestShutdown_BlocksCreation(t *testing.T) {
	r := New()
	r.Shutdown()

	if _, err := r.NewStrong("V"); err == nil {
		t.Fatal("creation after shutdown should fail")
	} else if !errors.Is(err, &gcerrors.Error{Phase: gcerrors.PhaseRef, Kind: gcerrors.KindClosed}) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestShutdown_AggregatesFinalizerErrors(t *testing.T) {
	r := New()
	boom := errors.New("boom")
	r.NewStrong("a", WithFinalizer(func(data, hint any) error { return boom }, nil, nil))
	r.NewStrong("b", WithFinalizer(func(data, hint any) error { return nil }, nil, nil))

	err := r.Shutdown()
	if !errors.Is(err, boom) {
		t.Fatalf("expected aggregated finalizer error, got %v", err)
	}
}

func TestObserver_Events(t *testing.T) {
	r := New()
	log := &eventLog{}
	r.Subscribe(log)

	ref, _ := r.NewStrong("V", WithFinalizer(func(data, hint any) error { return nil }, nil, nil))
	ref.Delete()
	r.RunFinalizers()

	if log.ofType(EventCreated) != 1 {
		t.Fatalf("expected 1 created event, got %d", log.ofType(EventCreated))
	}
	if log.ofType(EventQueued) != 1 {
		t.Fatalf("expected 1 queued event, got %d", log.ofType(EventQueued))
	}
	if log.ofType(EventFinalized) != 1 {
		t.Fatalf("expected 1 finalized event, got %d", log.ofType(EventFinalized))
	}
	if log.ofType(EventDeleted) != 1 {
		t.Fatalf("expected 1 deleted event, got %d", log.ofType(EventDeleted))
	}

	r.Unsubscribe(log)
	r.NewStrong("W")
	if log.ofType(EventCreated) != 1 {
		t.Fatal("observer received events after unsubscribe")
	}
}
