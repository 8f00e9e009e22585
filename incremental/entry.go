package incremental

import (
	"reflect"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// entry is the engine's bookkeeping for a single memoized query result.
//
// An entry is created the first time its URL is requested and lives for
// the lifetime of the Executor (or until cleared by reuse of the URL after
// a full cache reset); it is never deleted by [Executor.Invalidate], only
// marked changed.
type entry struct {
	url string

	mu sync.Mutex

	// computeMu serializes actual (re)computation of this entry, so that
	// concurrent requesters of the same URL don't run the query body twice.
	// It is held for the duration of a single compute() call, separately
	// from mu, which only ever guards brief field reads/writes.
	computeMu sync.Mutex

	// started is false until this entry has been computed at least once.
	started bool

	value  any
	errors []error
	failed bool

	// deps are the entries this one depended on the last time it was
	// computed, in the textual order they were first requested.
	deps []*entry

	// downstream is the reverse index of deps: entries that depend on this
	// one. Resolve records it but nothing reads it: invalidation is driven
	// by changedAt/verifiedAt comparisons, and Executor.Deps (behind exc
	// graph) reports deps.
	downstream sync.Map // map[*entry]struct{}

	// changedAt is the revision at which this entry's value last actually
	// changed (as opposed to having merely been reverified).
	changedAt uint64
	// verifiedAt is the revision at which this entry was last confirmed
	// either unchanged or freshly recomputed.
	verifiedAt uint64

	// recompute re-executes the query that produced this entry. It is set
	// once, by whichever call to resolveOne first creates the entry; every
	// subsequent recomputation (for verification/early-cutoff) reuses it.
	//
	// This assumes, as the caching contract requires, that every caller
	// requesting a given URL provides an equivalent Query value.
	recompute func(*Task) (value any, errs []error, failed bool, deps []*entry)
}

// equalOpts configures how early-cutoff compares successive query outputs.
// Unexported fields are compared too (the Exporter admits every type), so
// cmp.Equal does not panic on values that carry unexported state.
var equalOpts = cmp.Options{
	cmpopts.EquateEmpty(),
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

func valuesEqual(a, b any) (equal bool) {
	defer func() {
		// Some values (e.g. containing funcs or channels) cannot be
		// compared structurally; treat them as always-changed so the engine
		// stays correct (just loses the early-cutoff optimization) rather
		// than panicking.
		if recover() != nil {
			equal = false
		}
	}()
	return cmp.Equal(a, b, equalOpts)
}
