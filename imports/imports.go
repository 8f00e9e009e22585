// Package imports resolves `import name` declarations into file sets:
// the direct imports of one file, and the transitive closure reachable
// from a root file, with cycle detection.
package imports

import (
	"path/filepath"

	"github.com/exc-lang/exc/ast"
	"github.com/exc-lang/exc/internal/intern"
	"github.com/exc-lang/exc/internal/source"
	"github.com/exc-lang/exc/report"
)

// Store is the subset of *source.Store that import resolution needs. It is
// an interface purely so tests can fake file existence without touching
// disk.
type Store interface {
	FileID(path string) source.FileID
	Path(id source.FileID) string
	Read(id source.FileID) (source.Contents, error)
}

// Direct resolves the `import name` items of mod (parsed from the file
// named file) into the FileIDs they name, alongside diagnostics for
// imports of nonexistent files and repeated imports of the same name.
// Resolution is purely textual: `import name` always means "name.ex in
// file's directory" (§4.4 invariant).
func Direct(store Store, file source.FileID, mod *ast.Module, symbols *intern.Table) ([]source.FileID, *report.Report) {
	rep := &report.Report{}
	dir := filepath.Dir(store.Path(file))
	filePath := store.Path(file)

	var deps []source.FileID
	seen := map[ast.SymbolID]bool{}

	for _, item := range mod.Items {
		imp, ok := item.(*ast.Import)
		if !ok {
			continue
		}
		name := symbols.Value(imp.Name)
		span := report.Span{File: filePath, Start: imp.Pos.Start, End: imp.Pos.End, Line: imp.Pos.Line}

		if seen[imp.Name] {
			rep.Add(report.Newf(span, report.KindDuplicateImport, "duplicate import of %q", name))
			continue
		}
		seen[imp.Name] = true

		candidate := filepath.Join(dir, name+".ex")
		id := store.FileID(candidate)
		if _, err := store.Read(id); err != nil {
			rep.Add(report.Newf(span, report.KindUnknownImport, "unknown import %q (no such file %s)", name, candidate))
			continue
		}
		deps = append(deps, id)
	}
	return deps, rep
}

// color marks a file's DFS state while computing Transitive, to detect
// import cycles without revisiting an already-finished file's subtree.
type color int

const (
	white color = iota // unvisited
	gray               // on the current DFS stack
	black              // fully explored
)

// DirectFunc resolves one file's direct imports. Transitive calls it once
// per file it discovers, so callers can plug in a memoized (incremental
// query-backed) implementation.
type DirectFunc func(file source.FileID) ([]source.FileID, *report.Report)

// Transitive computes the set of files reachable from root by following
// imports, stopping and diagnosing (rather than recursing forever) on any
// import cycle. A cyclic edge is dropped from the walk but every other
// edge in the cycle is still explored, so one cycle never hides unrelated
// files (§4.4).
func Transitive(root source.FileID, direct DirectFunc, pathOf func(source.FileID) string) ([]source.FileID, *report.Report) {
	rep := &report.Report{}
	colors := map[source.FileID]color{}
	var order []source.FileID

	var stack []source.FileID
	var visit func(file source.FileID)
	visit = func(file source.FileID) {
		switch colors[file] {
		case black:
			return
		case gray:
			return // caller already reported the cycle through stack inspection
		}

		colors[file] = gray
		stack = append(stack, file)
		order = append(order, file)

		deps, directErrs := direct(file)
		rep.Add(directErrs.Diagnostics...)

		for _, dep := range deps {
			if colors[dep] == gray {
				rep.Add(report.Newf(report.Span{File: pathOf(file)}, report.KindCyclicImport, "cyclic import: %s", cyclePath(stack, dep, pathOf)))
				continue
			}
			visit(dep)
		}

		stack = stack[:len(stack)-1]
		colors[file] = black
	}

	visit(root)
	return order, rep
}

func cyclePath(stack []source.FileID, closingDep source.FileID, pathOf func(source.FileID) string) string {
	start := 0
	for i, f := range stack {
		if f == closingDep {
			start = i
			break
		}
	}
	s := ""
	for _, f := range stack[start:] {
		s += pathOf(f) + " -> "
	}
	s += pathOf(closingDep)
	return s
}
