package incremental

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Task represents a query that is currently executing (or the synthetic
// root task that [Run] uses to kick off a batch of queries).
//
// A Task is passed to [Query.Execute], and its main use is being passed to
// [Resolve]/[ResolveOne] to request dependencies.
type Task struct {
	ctx   context.Context //nolint:containedctx // see Run: one context per batch.
	exec  *Executor
	entry *entry // nil for the synthetic root task.
	depth int

	mu     sync.Mutex
	errors []error
	failed bool

	// stack is the chain of entries currently being computed on this
	// logical call path, used to detect query cycles. It is never mutated
	// in place; each recursive call extends a fresh slice.
	stack []*entry
}

// Error adds errors to the current query. These are propagated to every
// query that (transitively) depends on this one, but do not by themselves
// fail the query; see [Task.Fail] for that.
func (t *Task) Error(errs ...error) {
	t.mu.Lock()
	t.errors = append(t.errors, errs...)
	t.mu.Unlock()
}

// Fail marks the current query as failed: the query that requested it
// receives a [Result] with Failed set and decides for itself whether to
// fail in turn. The entry is left unstarted, so its next request
// re-executes it.
//
// Fail does not return: it unwinds the calling goroutine with
// runtime.Goexit. This is safe because every query body runs on a
// dedicated goroutine (see [Resolve]) whose return value is simply
// discarded when this happens.
func (t *Task) Fail(errs ...error) {
	t.Error(errs...)
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
	runtime.Goexit()
}

func (t *Task) abort(err error) { t.Fail(err) } // test/debug hook

// Result is the outcome of resolving a single query.
type Result[T any] struct {
	Value  T
	Errors []error
	Failed bool
}

// ResolveOne is a convenience wrapper around [Resolve] for a single query.
func ResolveOne[T any](caller *Task, q Query[T]) Result[T] {
	return Resolve(caller, q)[0]
}

// Resolve executes a set of queries, in parallel, as dependencies of
// caller. Each query runs on its own goroutine, gated by the Executor's
// worker semaphore.
//
// The Errors field of each [Result] contains only errors recorded directly
// against that query (via [Task.Error]/[Task.Fail]), not its transitive
// dependencies' errors; use [Run] at the top level to collect those.
func Resolve[T any](caller *Task, queries ...Query[T]) []Result[T] {
	results := make([]Result[T], len(queries))
	deps := make([]*entry, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		i, q := i, q
		url := q.URL()

		// Cycle check: is this query already being computed somewhere on
		// this call path?
		if ent := caller.exec.peekEntry(url); ent != nil && caller.onStack(ent) {
			results[i] = Result[T]{Failed: true, Errors: []error{&ErrCycle{URL: url}}}
			continue
		}

		ent := getOrCreateEntry(caller.exec, q)
		deps[i] = ent

		wg.Add(1)
		go func() {
			defer wg.Done()
			if caller.exec.sema.Acquire(caller.ctx, 1) != nil {
				return
			}
			defer caller.exec.sema.Release(1)

			// A query body that calls Task.Fail unwinds this goroutine
			// before the assignments below; report that as a failed Result.
			finished := false
			defer func() {
				if !finished {
					results[i].Failed = true
				}
			}()

			value, errs, failed := ensureFresh(caller, ent)
			if v, ok := value.(T); ok {
				results[i].Value = v
			}
			results[i].Errors = errs
			results[i].Failed = failed
			finished = true
		}()
	}

	// A caller that is itself a query holds a worker slot; give it up while
	// waiting so that nested queries cannot exhaust the semaphore.
	if caller.entry != nil {
		caller.exec.sema.Release(1)
	}
	wg.Wait()
	if caller.entry != nil {
		_ = caller.exec.sema.Acquire(context.Background(), 1)
	}

	// Record dependency edges in textual (first-touch) order, skipping the
	// nil slots of queries rejected above as cycles.
	if caller.entry != nil {
		caller.entry.mu.Lock()
		for _, dep := range deps {
			if dep == nil {
				continue
			}
			caller.entry.deps = append(caller.entry.deps, dep)
			dep.downstream.Store(caller.entry, struct{}{})
		}
		caller.entry.mu.Unlock()
	}

	return results
}

func (t *Task) onStack(e *entry) bool {
	for _, s := range t.stack {
		if s == e {
			return true
		}
	}
	return false
}

// newSemaphore constructs the worker-limiting semaphore used by an
// Executor; split out only so tests can construct small ones easily.
func newSemaphore(n int) *semaphore.Weighted {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return semaphore.NewWeighted(int64(n))
}
