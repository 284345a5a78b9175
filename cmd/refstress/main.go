package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/hostref/gcbridge/env"
	gcerrors "github.com/hostref/gcbridge/errors"
	"github.com/hostref/gcbridge/heap"
	"github.com/hostref/gcbridge/pool"
	"github.com/hostref/gcbridge/registry"
)

func main() {
	var (
		iters       = flag.Int("iters", 10000, "Workload steps to run")
		collectEach = flag.Int("collect", 64, "Run a collection every N steps")
		chunkSize   = flag.Int("chunk", pool.DefaultChunkSize, "Handle pool chunk size")
		seed        = flag.Int64("seed", 1, "Workload RNG seed")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		env.SetLogger(l)
		heap.SetLogger(l)
		registry.SetLogger(l)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*chunkSize, *seed); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*iters, *collectEach, *chunkSize, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// workload drives one Environment through a randomized mix of the whole
// embedding surface and tracks what it handed out so every step stays
// balanced: handles get released, scopes get closed, references get
// deleted or unrefed to zero.
type workload struct {
	heap *heap.Heap
	env  *env.Environment
	rng  *rand.Rand

	handles []env.Handle
	scopes  []env.Scope
	refs    []registry.Reference

	steps       int
	finalized   int
	collected   int
	peakLive    int
	handleOps   int
	scopeOps    int
	refOps      int
	collectEach int
}

func newWorkload(chunkSize int, seed int64, collectEach int) *workload {
	h := heap.New()
	e := env.New(h, env.WithPoolOptions(pool.WithChunkSize(chunkSize)))
	return &workload{
		heap:        h,
		env:         e,
		rng:         rand.New(rand.NewSource(seed)),
		collectEach: collectEach,
	}
}

func (w *workload) step() error {
	w.steps++
	var err error
	switch w.rng.Intn(10) {
	case 0, 1, 2: // handle churn
		w.handleOps++
		if len(w.handles) > 0 && w.rng.Intn(2) == 0 {
			i := w.rng.Intn(len(w.handles))
			h := w.handles[i]
			w.handles[i] = w.handles[len(w.handles)-1]
			w.handles = w.handles[:len(w.handles)-1]
			err = w.env.ReleaseValue(h)
			break
		}
		var h env.Handle
		if h, err = w.env.CreateValue(w.heap.Alloc(w.steps)); err == nil {
			w.handles = append(w.handles, h)
		}

	case 3: // clone an existing handle
		w.handleOps++
		if len(w.handles) == 0 {
			break
		}
		var h env.Handle
		if h, err = w.env.CloneValue(w.handles[w.rng.Intn(len(w.handles))]); err == nil {
			w.handles = append(w.handles, h)
		}

	case 4, 5: // scope churn, LIFO only
		w.scopeOps++
		if len(w.scopes) > 0 && w.rng.Intn(3) == 0 {
			s := w.scopes[len(w.scopes)-1]
			w.scopes = w.scopes[:len(w.scopes)-1]
			err = w.env.CloseScope(s)
			break
		}
		var s env.Scope
		if s, err = w.env.OpenScope(); err != nil {
			break
		}
		w.scopes = append(w.scopes, s)
		for i := 0; i < w.rng.Intn(4) && err == nil; i++ {
			_, err = w.env.Local(w.heap.Alloc(w.steps))
		}

	case 6, 7: // reference churn across all variants
		w.refOps++
		if len(w.refs) > 0 && w.rng.Intn(2) == 0 {
			i := w.rng.Intn(len(w.refs))
			r := w.refs[i]
			w.refs[i] = w.refs[len(w.refs)-1]
			w.refs = w.refs[:len(w.refs)-1]
			// zero-count strong and weak references reap themselves at
			// collection time, so a late Delete may find nothing
			if derr := r.Delete(); derr != nil && !isInvalidHandle(derr) {
				err = derr
			}
			break
		}
		var r registry.Reference
		switch w.rng.Intn(3) {
		case 0:
			r, err = w.env.CreateStrongReference(w.heap.Alloc(w.steps))
		case 1:
			r, err = w.env.CreateWeakReference(w.heap.Alloc(w.steps))
		default:
			r, err = w.env.CreateReference(w.heap.Alloc(w.steps), uint32(w.rng.Intn(2)))
		}
		if err == nil {
			w.refs = append(w.refs, r)
		}

	case 8: // refcount churn, capability and state errors are expected
		w.refOps++
		if len(w.refs) == 0 {
			break
		}
		r := w.refs[w.rng.Intn(len(w.refs))]
		if w.rng.Intn(2) == 0 {
			r.Ref()
		} else {
			r.Unref()
		}

	case 9: // finalizer on a value nothing else roots
		w.refOps++
		_, err = w.env.AddFinalizer(w.heap.Alloc(w.steps), func(data, hint any) error {
			w.finalized++
			return nil
		}, nil, nil)
	}
	if err != nil {
		return err
	}

	if w.heap.Live() > w.peakLive {
		w.peakLive = w.heap.Live()
	}
	if w.collectEach > 0 && w.steps%w.collectEach == 0 {
		w.collect()
	}
	return nil
}

func isInvalidHandle(err error) bool {
	var e *gcerrors.Error
	return stderrors.As(err, &e) && e.Kind == gcerrors.KindInvalidHandle
}

func (w *workload) collect() {
	w.collected += w.heap.Collect()
	if err := w.env.RunFinalizers(); err != nil {
		fmt.Fprintf(os.Stderr, "finalizer error: %v\n", err)
	}
}

// close tears everything down and verifies nothing leaked: once every
// handle, scope and reference is gone, a final collection must empty the
// heap.
func (w *workload) close() error {
	for _, h := range w.handles {
		if err := w.env.ReleaseValue(h); err != nil {
			return err
		}
	}
	for i := len(w.scopes) - 1; i >= 0; i-- {
		if err := w.env.CloseScope(w.scopes[i]); err != nil {
			return err
		}
	}
	for _, r := range w.refs {
		if err := r.Delete(); err != nil && !isInvalidHandle(err) {
			return err
		}
	}
	w.collect()
	if err := w.env.Shutdown(); err != nil {
		return err
	}
	w.collected += w.heap.Collect()
	if live := w.heap.Live(); live != 0 {
		return fmt.Errorf("leak check failed: %d objects still live after teardown", live)
	}
	return nil
}

func run(iters, collectEach, chunkSize int, seed int64) error {
	w := newWorkload(chunkSize, seed, collectEach)

	for i := 0; i < iters; i++ {
		if err := w.step(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}

	st := w.env.Stats()
	fmt.Printf("Workload: %d steps (seed %d)\n", w.steps, seed)
	fmt.Printf("  handle ops: %d  scope ops: %d  reference ops: %d\n",
		w.handleOps, w.scopeOps, w.refOps)
	fmt.Printf("  live objects: %d (peak %d)  collections: %d  reclaimed: %d\n",
		w.heap.Live(), w.peakLive, w.heap.Collections(), w.collected)
	fmt.Printf("  finalizers run: %d\n", w.finalized)
	fmt.Printf("Pools: strong %d/%d in %d chunks, weak %d/%d in %d chunks\n",
		st.StrongHandles.Occupied, st.StrongHandles.Capacity, st.StrongHandles.Chunks,
		st.WeakHandles.Occupied, st.WeakHandles.Capacity, st.WeakHandles.Chunks)
	fmt.Printf("Locals: %d across %d chunks\n", st.Locals.Size, st.Locals.Chunks)
	fmt.Printf("References: %d plain, %d finalizing, %d dangling, %d queued\n",
		st.References.Plain, st.References.Finalizing, st.References.Dangling,
		st.References.Queued)

	if err := w.close(); err != nil {
		return err
	}
	fmt.Println("Teardown: clean, no leaked objects")
	return nil
}
