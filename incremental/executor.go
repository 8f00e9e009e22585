package incremental

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tidwall/btree"
	"golang.org/x/sync/semaphore"
)

// Executor is a caching, parallel executor for incremental queries.
//
// The zero value is not usable; construct one with [New].
type Executor struct {
	entriesMu sync.RWMutex
	entries   btree.Map[string, *entry]

	revision uint64 // atomic

	sema *semaphore.Weighted

	// Trace, if non-nil, is called once for every query that is computed
	// ("compute") or verified and reused ("reuse"); see [NewTracer] for the
	// "ThreadId(NN): <indent>- <url>" line format.
	Trace func(depth int, url string, verb string)
}

// New constructs an Executor with the given maximum parallelism. A
// non-positive value defaults to GOMAXPROCS.
func New(parallelism int) *Executor {
	return &Executor{sema: newSemaphore(parallelism)}
}

// Queries returns a sorted snapshot of the URLs of every query currently
// memoized (started at least once) by this Executor.
func (e *Executor) Queries() []string {
	e.entriesMu.RLock()
	defer e.entriesMu.RUnlock()

	urls := make([]string, 0, e.entries.Len())
	e.entries.Scan(func(url string, ent *entry) bool {
		ent.mu.Lock()
		started := ent.started
		ent.mu.Unlock()
		if started {
			urls = append(urls, url)
		}
		return true
	})
	return urls
}

// Deps returns the direct dependency URLs recorded for the query at url
// the last time it ran, or nil if url has never been computed. Used by
// developer tooling (e.g. a dependency-graph dump) rather than by the
// engine itself.
func (e *Executor) Deps(url string) []string {
	ent := e.peekEntry(url)
	if ent == nil {
		return nil
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	deps := make([]string, len(ent.deps))
	for i, d := range ent.deps {
		deps[i] = d.url
	}
	return deps
}

// Run executes a batch of root queries in parallel and returns their
// results, including their *transitive* errors (unlike [Resolve], whose
// Result.Errors contains only errors recorded directly against that
// query).
//
// Run only returns a non-nil error itself if ctx is cancelled before the
// batch finishes.
func Run[T any](ctx context.Context, e *Executor, queries ...Query[T]) ([]Result[T], error) {
	root := &Task{ctx: ctx, exec: e}

	done := make(chan []Result[T], 1)
	go func() { done <- Resolve(root, queries...) }()

	select {
	case results := <-done:
		for i, q := range queries {
			ent := e.peekEntry(q.URL())
			if ent == nil {
				continue
			}
			results[i].Errors = append(results[i].Errors, collectTransitive(ent)...)
		}
		return results, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// collectTransitive gathers the errors recorded against every (transitive)
// dependency of ent, for [Run]'s full-report behavior.
func collectTransitive(ent *entry) []error {
	seen := map[*entry]bool{ent: true}
	var out []error

	var walk func(*entry)
	walk = func(e *entry) {
		e.mu.Lock()
		deps := append([]*entry(nil), e.deps...)
		e.mu.Unlock()
		for _, dep := range deps {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			dep.mu.Lock()
			out = append(out, dep.errors...)
			dep.mu.Unlock()
			walk(dep)
		}
	}
	walk(ent)
	return out
}

// Invalidate marks the named query URLs as changed as of a new revision,
// requiring them to re-execute, and everything that transitively depends
// on them to be reverified, the next time they are requested. URLs that have never been
// computed are created so that a later [Invalidate] of a not-yet-read
// source file still has an effect once that file is eventually read.
//
// This is the only mutation path in the engine: everything else is
// computed lazily from the current revision and the dependency graph.
func (e *Executor) Invalidate(urls ...string) {
	if len(urls) == 0 {
		return
	}
	rev := atomic.AddUint64(&e.revision, 1)
	for _, url := range urls {
		ent := e.getEntryByURL(url)
		ent.mu.Lock()
		ent.changedAt = rev
		ent.mu.Unlock()
	}
}

// Reset discards the entire cache, as if the Executor were newly
// constructed. ([Load] does not call it: on a bad cache it returns a
// fresh Executor from [New].)
func (e *Executor) Reset() {
	e.entriesMu.Lock()
	defer e.entriesMu.Unlock()
	e.entries = btree.Map[string, *entry]{}
	atomic.StoreUint64(&e.revision, 0)
}

func (e *Executor) peekEntry(url string) *entry {
	e.entriesMu.RLock()
	defer e.entriesMu.RUnlock()
	ent, _ := e.entries.Get(url)
	return ent
}

func (e *Executor) getEntryByURL(url string) *entry {
	if ent := e.peekEntry(url); ent != nil {
		return ent
	}
	e.entriesMu.Lock()
	defer e.entriesMu.Unlock()
	if ent, ok := e.entries.Get(url); ok {
		return ent
	}
	ent := &entry{url: url}
	e.entries.Set(url, ent)
	return ent
}

// getOrCreateEntry returns the entry for q's URL, installing q's Execute
// method as its recompute function if this is the first time this URL has
// been seen.
func getOrCreateEntry[T any](e *Executor, q Query[T]) *entry {
	ent := e.getEntryByURL(q.URL())

	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.recompute == nil {
		ent.recompute = func(t *Task) (any, []error, bool, []*entry) {
			v := q.Execute(t)
			return v, t.errors, t.failed, t.entry.deps
		}
	}
	return ent
}

// ensureFresh brings ent up to date with the current revision and returns
// its (possibly just-recomputed) value, errors, and failed flag.
func ensureFresh(caller *Task, ent *entry) (any, []error, bool) {
	rev := atomic.LoadUint64(&caller.exec.revision)

	ent.mu.Lock()
	if ent.started && ent.verifiedAt == rev {
		v, errs, failed := ent.value, ent.errors, ent.failed
		ent.mu.Unlock()
		return v, errs, failed
	}
	started := ent.started
	deps := append([]*entry(nil), ent.deps...)
	prevVerified := ent.verifiedAt
	// changedAt only runs ahead of verifiedAt when Invalidate named this
	// entry; it then re-executes instead of being reused.
	invalidated := ent.changedAt > prevVerified
	ent.mu.Unlock()

	if !started || invalidated {
		return compute(caller, ent, rev)
	}

	stale := false
	for _, dep := range deps {
		dep.mu.Lock()
		orphan := dep.recompute == nil
		dep.mu.Unlock()
		// An entry restored by Load has no recompute function until some
		// query requests it again, which only re-executing ent can do.
		if orphan || caller.onStack(dep) {
			stale = true
			continue
		}
		ensureFresh(caller, dep)
		dep.mu.Lock()
		changedAt := dep.changedAt
		dep.mu.Unlock()
		if changedAt > prevVerified {
			stale = true
		}
	}

	if !stale {
		ent.mu.Lock()
		ent.verifiedAt = rev
		v, errs, failed := ent.value, ent.errors, ent.failed
		ent.mu.Unlock()
		caller.exec.trace(caller.depth, ent.url, "reuse")
		return v, errs, failed
	}

	return compute(caller, ent, rev)
}

// compute (re)executes ent's query body, recording a new dependency set
// and applying the early-cutoff comparison against its previous value.
func compute(caller *Task, ent *entry, rev uint64) (any, []error, bool) {
	ent.computeMu.Lock()
	defer ent.computeMu.Unlock()

	ent.mu.Lock()
	if ent.started && ent.verifiedAt == rev {
		// Someone else brought this up to date while we were deciding to
		// recompute; reuse their result.
		v, errs, failed := ent.value, ent.errors, ent.failed
		ent.mu.Unlock()
		return v, errs, failed
	}
	oldValue, hadOld := ent.value, ent.started
	ent.deps = nil
	ent.mu.Unlock()

	caller.exec.trace(caller.depth, ent.url, "compute")

	child := &Task{
		ctx:   caller.ctx,
		exec:  caller.exec,
		entry: ent,
		depth: caller.depth + 1,
		stack: append(append([]*entry{}, caller.stack...), ent),
	}

	completed := false
	defer func() {
		if completed {
			return
		}
		// The query body called Task.Fail, which unwinds via
		// runtime.Goexit; leave the entry as if it had never been started
		// so the next request retries from scratch, mirroring how the
		// teacher's executor abandons a partial result on abnormal exit.
		ent.mu.Lock()
		ent.started = false
		ent.value = oldValue
		ent.deps = nil
		ent.mu.Unlock()
	}()

	value, errs, failed, _ := ent.recompute(child)

	changed := !hadOld || !valuesEqual(oldValue, value)

	ent.mu.Lock()
	ent.value = value
	ent.errors = errs
	ent.failed = failed
	ent.started = true
	if changed {
		ent.changedAt = rev
	}
	ent.verifiedAt = rev
	v, errsOut, failedOut := ent.value, ent.errors, ent.failed
	ent.mu.Unlock()

	completed = true
	return v, errsOut, failedOut
}

func (e *Executor) trace(depth int, url, verb string) {
	if e.Trace != nil {
		e.Trace(depth, url, verb)
	}
}
