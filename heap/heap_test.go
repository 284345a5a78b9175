package heap

import (
	"testing"

	"github.com/hostref/gcbridge"
)

func TestHeap_SweepsUnreachable(t *testing.T) {
	h := New()
	o := h.Alloc("garbage")

	if swept := h.Collect(); swept != 1 {
		t.Fatalf("swept %d objects, want 1", swept)
	}
	if h.Alive(o) {
		t.Fatal("unreachable object survived")
	}
}

func TestHeap_RootsSurvive(t *testing.T) {
	h := New()
	o := h.Alloc("rooted")

	var root gcbridge.Value = o
	h.RegisterRootScanner(func(visit gcbridge.RootVisitor) {
		visit(&root)
	})

	h.Collect()
	if !h.Alive(o) {
		t.Fatal("rooted object swept")
	}

	root = nil
	h.Collect()
	if h.Alive(o) {
		t.Fatal("unrooted object survived")
	}
}

func TestHeap_EdgesKeepChildrenAlive(t *testing.T) {
	h := New()
	parent := h.Alloc("parent")
	child := h.Alloc("child")
	parent.Link(child)

	var root gcbridge.Value = parent
	h.RegisterRootScanner(func(visit gcbridge.RootVisitor) {
		visit(&root)
	})

	h.Collect()
	if !h.Alive(child) {
		t.Fatal("child reachable through an edge was swept")
	}
}

func TestHeap_ClearsDeadWeakCells(t *testing.T) {
	h := New()
	o := h.Alloc("weakly held")

	var weak gcbridge.Value = o
	h.RegisterWeakScanner(func(visit gcbridge.WeakVisitor) {
		visit(&weak)
	})

	h.Collect()
	if weak != nil {
		t.Fatal("weak cell not cleared for a dead object")
	}
	if h.Alive(o) {
		t.Fatal("weakly held object survived")
	}
}

func TestHeap_WeakCellKeptForLiveObject(t *testing.T) {
	h := New()
	o := h.Alloc("shared")

	var root gcbridge.Value = o
	var weak gcbridge.Value = o
	h.RegisterRootScanner(func(visit gcbridge.RootVisitor) {
		visit(&root)
	})
	h.RegisterWeakScanner(func(visit gcbridge.WeakVisitor) {
		visit(&weak)
	})

	h.Collect()
	if weak != o {
		t.Fatal("weak cell cleared for a live object")
	}
}

func TestHeap_Counters(t *testing.T) {
	h := New()
	h.Alloc(1)
	h.Alloc(2)
	if h.Live() != 2 {
		t.Fatalf("Live = %d", h.Live())
	}
	h.Collect()
	h.Collect()
	if h.Collections() != 2 {
		t.Fatalf("Collections = %d", h.Collections())
	}
	if h.Live() != 0 {
		t.Fatalf("Live = %d after sweep", h.Live())
	}
}
