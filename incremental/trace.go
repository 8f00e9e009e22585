package incremental

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/petermattis/goid"
)

// NewTracer builds an [Executor.Trace] callback that writes one line per
// query execution to w, in the format described by the design:
//
//	ThreadId(NN): <indent>- <query>
//
// NN is the id of the goroutine performing the computation, obtained via
// goid.Get(); indentation increases with the query's nesting depth. Lines
// for "reuse" (an entry verified as still fresh, not recomputed) and
// "compute" (a query body actually ran) are both emitted, since both are
// informative when explaining why a rebuild did or didn't happen.
func NewTracer(w io.Writer) func(depth int, url, verb string) {
	var mu sync.Mutex
	return func(depth int, url, verb string) {
		mu.Lock()
		defer mu.Unlock()
		_ = verb // retained for callers that want a richer tracer; the
		// wire format below matches the design's trace line exactly.
		fmt.Fprintf(w, "ThreadId(%d): %s- %s\n",
			goid.Get(), strings.Repeat("  ", depth), url)
	}
}
