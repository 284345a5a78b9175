package heap

import (
	"go.uber.org/zap"

	"github.com/hostref/gcbridge"
)

// Object is a collector-managed box. It stays alive while some registered
// strong root reaches it, directly or through edges.
type Object struct {
	payload any
	edges   []*Object
	marked  bool
}

// Payload returns the host value boxed in o.
func (o *Object) Payload() any {
	return o.payload
}

// Link adds an edge from o to child, keeping child alive while o is.
func (o *Object) Link(child *Object) {
	o.edges = append(o.edges, child)
}

// Heap implements the collector side of the scanner contract.
type Heap struct {
	roots   []gcbridge.RootScanner
	weaks   []gcbridge.WeakScanner
	objects map[*Object]struct{}
	cycles  int
}

func New() *Heap {
	return &Heap{objects: make(map[*Object]struct{})}
}

func (h *Heap) RegisterRootScanner(s gcbridge.RootScanner) {
	h.roots = append(h.roots, s)
}

func (h *Heap) RegisterWeakScanner(s gcbridge.WeakScanner) {
	h.weaks = append(h.weaks, s)
}

// Alloc boxes payload as a new object. The object is garbage until some
// root reaches it; callers normally hand it straight to a handle or a
// reference.
func (h *Heap) Alloc(payload any) *Object {
	o := &Object{payload: payload}
	h.objects[o] = struct{}{}
	return o
}

// Collect runs one stop-the-world cycle: mark from every strong root,
// clear weak cells holding unmarked objects, sweep the rest. Returns the
// number of objects reclaimed.
func (h *Heap) Collect() int {
	h.cycles++
	for o := range h.objects {
		o.marked = false
	}

	for _, scan := range h.roots {
		scan(func(cell *gcbridge.Value) {
			if o, ok := (*cell).(*Object); ok && o != nil {
				h.mark(o)
			}
		})
	}

	for _, scan := range h.weaks {
		scan(func(cell *gcbridge.Value) {
			if o, ok := (*cell).(*Object); ok && o != nil && !o.marked {
				*cell = nil
			}
		})
	}

	swept := 0
	for o := range h.objects {
		if !o.marked {
			delete(h.objects, o)
			swept++
		}
	}
	if swept > 0 {
		Logger().Debug("collection finished",
			zap.Int("swept", swept),
			zap.Int("live", len(h.objects)))
	}
	return swept
}

func (h *Heap) mark(o *Object) {
	if o.marked {
		return
	}
	if _, tracked := h.objects[o]; !tracked {
		return
	}
	o.marked = true
	for _, e := range o.edges {
		h.mark(e)
	}
}

// Alive reports whether o survived the last collection.
func (h *Heap) Alive(o *Object) bool {
	_, ok := h.objects[o]
	return ok
}

// Live returns the number of tracked objects.
func (h *Heap) Live() int {
	return len(h.objects)
}

// Collections returns how many cycles have run.
func (h *Heap) Collections() int {
	return h.cycles
}
