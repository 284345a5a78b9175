package stack

import (
	"github.com/hostref/gcbridge"
)

const (
	// InitialChunkCapacity is the capacity of the first chunk.
	InitialChunkCapacity = 16

	// MaxChunkCapacity caps the doubling of new chunk capacities.
	MaxChunkCapacity = 1024
)

// Marker is a checkpoint into the stack: the index of a chunk plus an item
// index pointing just past the element on top when the marker was taken.
type Marker struct {
	Chunk int
	Item  int
}

// chunk is a fixed-capacity run of values. The backing array is allocated
// once; append stays within capacity, so cell addresses never move.
type chunk struct {
	items []gcbridge.Value
}

// Stack is an append-only sequence of chunks with marker-based truncation.
// The stack exclusively owns every value it stores. Not safe for concurrent
// use; it belongs to the mutator thread.
type Stack struct {
	chunks []*chunk
	size   int
}

// New creates an empty stack with one initial chunk.
func New() *Stack {
	return &Stack{
		chunks: []*chunk{{items: make([]gcbridge.Value, 0, InitialChunkCapacity)}},
	}
}

// Push appends a value and returns a pointer to its cell. The pointer stays
// valid until the value is popped or a marker at or below it is truncated.
func (s *Stack) Push(v gcbridge.Value) *gcbridge.Value {
	c := s.chunks[len(s.chunks)-1]
	if len(c.items) == cap(c.items) {
		c = s.addChunk()
	}
	c.items = append(c.items, v)
	s.size++
	return &c.items[len(c.items)-1]
}

// Pop removes the top value. Returns false if the stack is empty.
func (s *Stack) Pop() bool {
	c := s.chunks[len(s.chunks)-1]
	if len(c.items) == 0 {
		return false
	}
	c.items[len(c.items)-1] = nil
	c.items = c.items[:len(c.items)-1]
	s.size--
	if len(c.items) == 0 && len(s.chunks) > 1 {
		s.chunks[len(s.chunks)-1] = nil
		s.chunks = s.chunks[:len(s.chunks)-1]
	}
	return true
}

// Size returns the number of stored values.
func (s *Stack) Size() int {
	return s.size
}

// CreateMarker returns a marker pointing just past the current top.
func (s *Stack) CreateMarker() Marker {
	last := len(s.chunks) - 1
	return Marker{Chunk: last, Item: len(s.chunks[last].items)}
}

// PreviousMarker returns a marker one element below m, or false if m is at
// the bottom of the stack or structurally out of range.
func (s *Stack) PreviousMarker(m Marker) (Marker, bool) {
	if m.Chunk < 0 || m.Chunk >= len(s.chunks) {
		return Marker{}, false
	}
	if m.Item > 0 {
		return Marker{Chunk: m.Chunk, Item: m.Item - 1}, true
	}
	if m.Chunk == 0 {
		return Marker{}, false
	}
	prev := s.chunks[m.Chunk-1]
	if len(prev.items) == 0 {
		return Marker{}, false
	}
	return Marker{Chunk: m.Chunk - 1, Item: len(prev.items) - 1}, true
}

// Truncate removes every value pushed after m was taken, LIFO, deleting
// now-empty trailing chunks. Returns false if m is structurally invalid:
// chunk index out of range, or item index past the chunk's current length
// (the marker was already popped or truncated below).
func (s *Stack) Truncate(m Marker) bool {
	if m.Chunk < 0 || m.Chunk >= len(s.chunks) {
		return false
	}
	c := s.chunks[m.Chunk]
	if m.Item < 0 || m.Item > len(c.items) {
		return false
	}

	for i := m.Chunk + 1; i < len(s.chunks); i++ {
		s.size -= len(s.chunks[i].items)
		s.chunks[i] = nil
	}
	s.chunks = s.chunks[:m.Chunk+1]

	for i := m.Item; i < len(c.items); i++ {
		c.items[i] = nil
	}
	s.size -= len(c.items) - m.Item
	c.items = c.items[:m.Item]

	if m.Item == 0 && m.Chunk > 0 {
		s.chunks[m.Chunk] = nil
		s.chunks = s.chunks[:m.Chunk]
	}
	return true
}

// At returns the cell at m, or nil if m points past the current top (as
// every marker does right after a truncate to it).
func (s *Stack) At(m Marker) *gcbridge.Value {
	if m.Chunk < 0 || m.Chunk >= len(s.chunks) {
		return nil
	}
	c := s.chunks[m.Chunk]
	if m.Item < 0 || m.Item >= len(c.items) {
		return nil
	}
	return &c.items[m.Item]
}

// ForEach visits every stored cell, bottom to top. Called by the
// root-enumeration callback during a collection pause.
func (s *Stack) ForEach(visit func(cell *gcbridge.Value)) {
	for _, c := range s.chunks {
		for i := range c.items {
			visit(&c.items[i])
		}
	}
}

// Stats reports stack sizing for instrumentation.
type Stats struct {
	Chunks int
	Size   int
}

// Stats returns a snapshot of stack sizing.
func (s *Stack) Stats() Stats {
	return Stats{Chunks: len(s.chunks), Size: s.size}
}

// addChunk appends a chunk with doubled capacity, capped at
// MaxChunkCapacity.
func (s *Stack) addChunk() *chunk {
	prev := s.chunks[len(s.chunks)-1]
	capacity := cap(prev.items) * 2
	if capacity > MaxChunkCapacity {
		capacity = MaxChunkCapacity
	}
	c := &chunk{items: make([]gcbridge.Value, 0, capacity)}
	s.chunks = append(s.chunks, c)
	return c
}
