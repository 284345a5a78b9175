package gcbridge

// Value is one cell holding a reference into the collected heap. The cell's
// address is what root scanning traffics in: the collector reads values
// through *Value and, for a moving collector, may rewrite the cell in place.
// A nil Value means "empty" (for weak cells, cleared by the collector).
type Value = any

// RootVisitor is called once per strong root cell during a collection pause.
// The pointee must be treated as reachable; a moving collector may update
// the cell through the pointer.
type RootVisitor func(cell *Value)

// WeakVisitor is called once per weak root cell during a collection pause.
// The collector may clear the cell (set it to nil) when no strong path to
// the value remains.
type WeakVisitor func(cell *Value)

// RootScanner enumerates every strong root cell exactly once. Scanners run
// on the mutator thread during a collection pause and must not allocate.
type RootScanner func(visit RootVisitor)

// WeakScanner enumerates every weak root cell exactly once, under the same
// constraints as RootScanner.
type WeakScanner func(visit WeakVisitor)

// Collector is the registration surface the core consumes from the tracing
// collector. The collector calls every registered scanner once per
// collection. Implementations are engine-instance scoped; the core never
// relies on a process-wide singleton.
type Collector interface {
	// RegisterRootScanner adds a strong-root enumeration callback.
	RegisterRootScanner(RootScanner)

	// RegisterWeakScanner adds a weak-root enumeration callback.
	RegisterWeakScanner(WeakScanner)
}

// FinalizeFunc is a native cleanup callback paired with the opaque data and
// hint it was registered with. It is invoked at most once, at a safe point,
// never during root enumeration.
type FinalizeFunc func(data, hint any) error
