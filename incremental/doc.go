/*
Package incremental implements the compiler's demand-driven, memoizing
query engine.

The primary type is [Executor], which runs [Query] values and caches their
results keyed by [Query.URL]. Queries may themselves request other queries
via [Resolve] or [ResolveOne]; those calls execute in parallel (bounded by
the Executor's worker semaphore) and are recorded as dependency edges of
the calling query.

# Change-version invalidation

Each cached entry carries two generation counters: changedAt and
verifiedAt (see §4.1 of the design). [Executor.Invalidate] bumps the
executor's global revision and sets the changedAt of the named query's
entry to it; that entry re-executes on its next request. When anything
depending on it (transitively) is next requested, the engine walks its
recorded dependencies depth-first; if every dependency verifies as
unchanged since this entry was last verified, the entry is reused. Otherwise the query body
re-executes, and if its new output is equal to the previous one (compared
structurally, not by identity), verifiedAt advances but changedAt does
not: this is the early-cutoff optimization that keeps an edit to one
function from re-triggering type checking of every other function in a
program.

# Partial failure

Queries do not return (T, error). Instead, a query that encounters a
recoverable problem calls [Task.Error] to record a diagnostic and
continues, returning the best value it can (usually one containing an
absorbing Error sentinel). A query that cannot produce any value at all
calls [Task.Fail], which unwinds the calling goroutine via
runtime.Goexit, leaves the entry unstarted so that its next request
re-executes it, and hands the requesting query a [Result] with Failed set.

# Cycles

If a query, while executing, asks (directly or transitively) for its own
result, [Resolve] detects this and returns a failed [Result] carrying an
[ErrCycle] rather than deadlocking or recursing forever. It is up to the
calling query to decide what that means — the type-of query turns it into
a diagnostic about a recursive definition without a type annotation
(import cycles never reach the engine: the import-closure query finds them
with its own walk and reports CyclicImport); other queries may choose to
propagate it as a hard failure via [Task.Fail].
*/
package incremental
