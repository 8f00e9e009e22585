// Package compiler wires the parsing, import-resolution, name-resolution,
// and type-inference passes into [incremental.Query] types, and drives a
// single top-level Compile operation over them.
package compiler

import (
	"fmt"

	"github.com/exc-lang/exc/ast"
	"github.com/exc-lang/exc/imports"
	"github.com/exc-lang/exc/incremental"
	"github.com/exc-lang/exc/internal/intern"
	"github.com/exc-lang/exc/internal/source"
	"github.com/exc-lang/exc/parser"
	"github.com/exc-lang/exc/report"
	"github.com/exc-lang/exc/resolve"
	"github.com/exc-lang/exc/types"
)

// Env bundles the state shared by every query in a compilation: the
// Source Store that owns file contents and the symbol table that owns
// identifier interning. A single Env must be reused across every query
// driven from the same Executor so that file and symbol ids line up.
type Env struct {
	Store   *source.Store
	Symbols *intern.Table
}

// fileQuery reads one file's contents. It is the only query whose result
// can change for a reason other than "one of its dependencies changed":
// its URL is exactly the one Invalidate is called with when a file on
// disk changes.
type fileQuery struct {
	env  *Env
	path string
}

func (q fileQuery) URL() string { return source.URL(q.path) }

func (q fileQuery) Execute(t *incremental.Task) source.Contents {
	id := q.env.Store.FileID(q.path)
	contents, err := q.env.Store.Read(id)
	if err != nil {
		t.Error(report.Newf(report.Span{File: q.path}, report.KindIOError, "%v", err))
		return source.Contents{}
	}
	return contents
}

// parseQuery parses one file, depending on fileQuery for its bytes.
type parseQuery struct {
	env  *Env
	file source.FileID
}

func (q parseQuery) URL() string { return "parse:///" + q.env.Store.Path(q.file) }

func (q parseQuery) Execute(t *incremental.Task) *ast.Module {
	path := q.env.Store.Path(q.file)
	res := incremental.ResolveOne(t, fileQuery{q.env, path})
	mod, rep := parser.Parse(q.file, path, res.Value.Bytes, q.env.Symbols)
	t.Error(toErrors(rep)...)
	return mod
}

// directImportsQuery resolves one file's `import name` items into FileIDs.
type directImportsQuery struct {
	env  *Env
	file source.FileID
}

func (q directImportsQuery) URL() string { return "imports:///" + q.env.Store.Path(q.file) }

func (q directImportsQuery) Execute(t *incremental.Task) []source.FileID {
	mod := incremental.ResolveOne(t, parseQuery{q.env, q.file}).Value
	deps, rep := imports.Direct(q.env.Store, q.file, mod, q.env.Symbols)
	t.Error(toErrors(rep)...)
	return deps
}

// transitiveFilesQuery computes every file reachable from root by
// following imports, diagnosing cycles rather than looping forever.
type transitiveFilesQuery struct {
	env  *Env
	root source.FileID
}

func (q transitiveFilesQuery) URL() string { return "transitive-files:///" + q.env.Store.Path(q.root) }

func (q transitiveFilesQuery) Execute(t *incremental.Task) []source.FileID {
	direct := func(file source.FileID) ([]source.FileID, *report.Report) {
		res := incremental.ResolveOne(t, directImportsQuery{q.env, file})
		rep := &report.Report{}
		for _, e := range res.Errors {
			if d, ok := e.(*report.Diagnostic); ok {
				rep.Add(d)
			}
		}
		return res.Value, rep
	}
	files, rep := imports.Transitive(q.root, direct, q.env.Store.Path)
	t.Error(toErrors(rep)...)
	return files
}

// exportedDefsQuery computes the defs one file binds.
type exportedDefsQuery struct {
	env  *Env
	file source.FileID
}

func (q exportedDefsQuery) URL() string { return "exported-defs:///" + q.env.Store.Path(q.file) }

func (q exportedDefsQuery) Execute(t *incremental.Task) map[ast.SymbolID]ast.DefID {
	mod := incremental.ResolveOne(t, parseQuery{q.env, q.file}).Value
	defs, rep := resolve.Exported(q.file, mod, q.env.Store.Path(q.file))
	t.Error(toErrors(rep)...)
	return defs
}

// visibleDefsQuery computes the names visible inside one file: its own
// defs plus its direct imports' exports.
type visibleDefsQuery struct {
	env  *Env
	file source.FileID
}

func (q visibleDefsQuery) URL() string { return "visible-defs:///" + q.env.Store.Path(q.file) }

func (q visibleDefsQuery) Execute(t *incremental.Task) map[ast.SymbolID]resolve.Binding {
	directs := incremental.ResolveOne(t, directImportsQuery{q.env, q.file}).Value

	exported := func(file source.FileID) (map[ast.SymbolID]ast.DefID, *report.Report) {
		res := incremental.ResolveOne(t, exportedDefsQuery{q.env, file})
		rep := &report.Report{}
		for _, e := range res.Errors {
			if d, ok := e.(*report.Diagnostic); ok {
				rep.Add(d)
			}
		}
		return res.Value, rep
	}

	visible, rep := resolve.Visible(q.file, directs, exported, q.env.Store.Path(q.file))
	t.Error(toErrors(rep)...)
	return visible
}

// resolveBodyQuery resolves one def's body against its file's visible
// names, diagnosing UnresolvedName/AmbiguousName references. Its only
// useful output is the diagnostics it records; type_of relies on the same
// visible-defs data but doesn't itself walk the body looking for names, so
// this query must be forced independently for those diagnostics to appear.
type resolveBodyQuery struct {
	env *Env
	def ast.DefID
}

func (q resolveBodyQuery) URL() string {
	return fmt.Sprintf("resolve-body:///%s#%s", q.env.Store.Path(q.def.File), q.env.Symbols.Value(q.def.Name))
}

func (q resolveBodyQuery) Execute(t *incremental.Task) struct{} {
	mod := incremental.ResolveOne(t, parseQuery{q.env, q.def.File}).Value
	def := findDef(mod, q.def.Name)
	if def == nil {
		return struct{}{}
	}

	visible := incremental.ResolveOne(t, visibleDefsQuery{q.env, q.def.File}).Value
	rep := resolve.Def(def, visible, q.env.Store.Path(q.def.File))
	t.Error(toErrors(rep)...)
	return struct{}{}
}

// typeOfQuery infers one def's type scheme.
type typeOfQuery struct {
	env *Env
	def ast.DefID
}

func (q typeOfQuery) URL() string {
	return fmt.Sprintf("type-of:///%s#%s", q.env.Store.Path(q.def.File), q.env.Symbols.Value(q.def.Name))
}

func (q typeOfQuery) Execute(t *incremental.Task) types.Scheme {
	mod := incremental.ResolveOne(t, parseQuery{q.env, q.def.File}).Value
	def := findDef(mod, q.def.Name)
	if def == nil {
		t.Error(report.Newf(report.Span{File: q.env.Store.Path(q.def.File)}, report.KindTypeMismatch, "definition disappeared"))
		return types.Scheme{Type: &types.Error{}}
	}

	visible := incremental.ResolveOne(t, visibleDefsQuery{q.env, q.def.File}).Value

	lookup := func(dep ast.DefID) types.LookupResult {
		res := incremental.ResolveOne(t, typeOfQuery{q.env, dep})
		if res.Failed {
			return types.LookupResult{OK: false}
		}
		return types.LookupResult{Scheme: res.Value, OK: true}
	}

	scheme, rep := types.Infer(def, visible, lookup, q.env.Store.Path(q.def.File))
	t.Error(toErrors(rep)...)
	return scheme
}

func findDef(mod *ast.Module, name ast.SymbolID) *ast.Def {
	for _, item := range mod.Items {
		if d, ok := item.(*ast.Def); ok && d.Name == name {
			return d
		}
	}
	return nil
}

func toErrors(rep *report.Report) []error {
	errs := make([]error, len(rep.Diagnostics))
	for i, d := range rep.Diagnostics {
		errs[i] = d
	}
	return errs
}
