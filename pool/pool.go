package pool

import (
	"sync/atomic"

	"github.com/hostref/gcbridge"
)

const (
	// DefaultChunkSize is the number of slots allocated per chunk.
	DefaultChunkSize = 64

	// DefaultOccupancyRatio is the occupied/capacity ratio above which the
	// pool grows a chunk ahead of demand.
	DefaultOccupancyRatio = 0.75
)

// chunk is a fixed block of slots. The backing array is allocated once and
// never moved, so outstanding *Slot handles stay valid across pool growth.
type chunk struct {
	slots []Slot
}

// Pool is a chunked, reference-counted pool of heap values. The zero value
// is not usable; construct with New.
type Pool struct {
	chunks    []*chunk
	freeHead  *Slot
	pending   atomic.Pointer[Slot]
	occupied  int
	chunkSize int
	ratio     float64
}

// Option configures a Pool.
type Option func(*Pool)

// WithChunkSize overrides the slots-per-chunk count.
func WithChunkSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// WithOccupancyRatio overrides the growth threshold. Values outside (0, 1]
// are ignored.
func WithOccupancyRatio(r float64) Option {
	return func(p *Pool) {
		if r > 0 && r <= 1 {
			p.ratio = r
		}
	}
}

// New creates an empty pool. The first chunk is allocated lazily on the
// first Add.
func New(opts ...Option) *Pool {
	p := &Pool{
		chunkSize: DefaultChunkSize,
		ratio:     DefaultOccupancyRatio,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Add stores a value in a free slot, sets its refcount to 1, and returns
// the slot. Amortized O(1); a new chunk is allocated only when the free
// list is empty or occupancy crosses the target ratio.
func (p *Pool) Add(v gcbridge.Value) *Slot {
	p.drainPending()
	if p.freeHead == nil {
		p.grow()
	}

	s := p.freeHead
	p.freeHead = s.next
	s.next = nil
	s.value = v
	s.occupied = true
	s.refs.Store(1)
	p.occupied++

	if float64(p.occupied) > p.ratio*float64(p.Capacity()) {
		p.grow()
	}
	return s
}

// Clone increments the slot's refcount and returns the same slot. Cloning
// a slot whose count already reached zero panics.
func (p *Pool) Clone(s *Slot) *Slot {
	s.retain()
	return s
}

// Release decrements the slot's refcount. At zero the slot becomes free
// and is reclaimed for a future Add. Release is the one operation callable
// from any thread; a slot freed off-thread is parked on the pending list
// until the mutator thread drains it.
func (p *Pool) Release(s *Slot) {
	n := s.refs.Add(-1)
	if n < 0 {
		panic("pool: release of a free slot")
	}
	if n == 0 {
		p.park(s)
	}
}

// ForEach visits the cell of every occupied slot exactly once. It is called
// by the root-enumeration callback during a collection pause and must run
// on the mutator thread. Slots whose count raced to zero since the last
// drain are reclaimed here instead of visited.
func (p *Pool) ForEach(visit func(cell *gcbridge.Value)) {
	p.drainPending()
	for _, c := range p.chunks {
		for i := range c.slots {
			s := &c.slots[i]
			if s.occupied && s.refs.Load() > 0 {
				visit(&s.value)
			}
		}
	}
}

// Capacity returns the total slot count across all chunks.
func (p *Pool) Capacity() int {
	return len(p.chunks) * p.chunkSize
}

// Occupied returns the number of live slots as of the last mutator-thread
// operation.
func (p *Pool) Occupied() int {
	return p.occupied
}

// Stats reports pool sizing for instrumentation.
type Stats struct {
	Chunks   int
	Capacity int
	Occupied int
}

// Stats returns a snapshot of pool sizing.
func (p *Pool) Stats() Stats {
	return Stats{
		Chunks:   len(p.chunks),
		Capacity: p.Capacity(),
		Occupied: p.occupied,
	}
}

// grow appends one chunk and threads its slots onto the free list. Slots
// are pushed in reverse so Add hands them out in address order.
func (p *Pool) grow() {
	c := &chunk{slots: make([]Slot, p.chunkSize)}
	p.chunks = append(p.chunks, c)
	for i := len(c.slots) - 1; i >= 0; i-- {
		s := &c.slots[i]
		s.next = p.freeHead
		p.freeHead = s
	}
}

// park pushes a zero-count slot onto the lock-free pending list. Only the
// releasing thread touches the slot at this point, so writing s.next before
// the CAS is safe.
func (p *Pool) park(s *Slot) {
	for {
		head := p.pending.Load()
		s.next = head
		if p.pending.CompareAndSwap(head, s) {
			return
		}
	}
}

// drainPending moves parked slots onto the free list. Mutator thread only.
func (p *Pool) drainPending() {
	s := p.pending.Swap(nil)
	for s != nil {
		next := s.next
		s.value = nil
		s.occupied = false
		s.next = p.freeHead
		p.freeHead = s
		p.occupied--
		s = next
	}
}
