package compiler

import (
	"context"

	"github.com/exc-lang/exc/ast"
	"github.com/exc-lang/exc/incremental"
	"github.com/exc-lang/exc/internal/intern"
	"github.com/exc-lang/exc/internal/source"
	"github.com/exc-lang/exc/report"
	"github.com/exc-lang/exc/resolve"
	"github.com/exc-lang/exc/types"
)

// NewEnv constructs an Env with its own path and symbol interning tables.
// Every query driven against the same Executor should share one Env.
func NewEnv() *Env {
	return &Env{Store: source.New(&intern.Table{}), Symbols: &intern.Table{}}
}

// rootCompileQuery is the single entry point Compile drives: given a root
// file, it forces every pass needed to fully check it and its transitive
// imports. Its own return value carries nothing useful; every diagnostic
// it and its dependencies produced is collected by [incremental.Run].
type rootCompileQuery struct {
	env  *Env
	root source.FileID
}

func (q rootCompileQuery) URL() string { return "compile:///" + q.env.Store.Path(q.root) }

func (q rootCompileQuery) Execute(t *incremental.Task) struct{} {
	files := incremental.ResolveOne(t, transitiveFilesQuery{q.env, q.root}).Value

	// Force name resolution for every file in the closure, in parallel, so
	// that diagnostics like an ambiguous name surface even if nothing in
	// the file happens to reference it.
	visQueries := make([]incremental.Query[map[ast.SymbolID]resolve.Binding], len(files))
	for i, f := range files {
		visQueries[i] = visibleDefsQuery{q.env, f}
	}
	incremental.Resolve(t, visQueries...)

	// Every def is type-checked exactly once, from the file that declares
	// it (not from every file that can see it via an import).
	defQueries := make([]incremental.Query[map[ast.SymbolID]ast.DefID], len(files))
	for i, f := range files {
		defQueries[i] = exportedDefsQuery{q.env, f}
	}
	defResults := incremental.Resolve(t, defQueries...)

	var defIDs []ast.DefID
	for _, r := range defResults {
		for _, def := range r.Value {
			defIDs = append(defIDs, def)
		}
	}

	// Each def's body is resolved against its file's visible names (the
	// source of UnresolvedName/AmbiguousName diagnostics for references,
	// as opposed to Visible's own duplicate/ambiguous-export diagnostics)
	// independently of type inference, since type_of never itself walks
	// the body looking for names.
	resolveQueries := make([]incremental.Query[struct{}], len(defIDs))
	for i, d := range defIDs {
		resolveQueries[i] = resolveBodyQuery{q.env, d}
	}
	incremental.Resolve(t, resolveQueries...)

	typeQueries := make([]incremental.Query[types.Scheme], len(defIDs))
	for i, d := range defIDs {
		typeQueries[i] = typeOfQuery{q.env, d}
	}
	incremental.Resolve(t, typeQueries...)

	return struct{}{}
}

// Compile fully checks the program rooted at rootPath: discovering its
// transitive imports, resolving names, and inferring types, returning
// every diagnostic produced along the way in deterministic order (§8).
func Compile(ctx context.Context, env *Env, exec *incremental.Executor, rootPath string) (*report.Report, error) {
	root := env.Store.FileID(rootPath)
	results, err := incremental.Run(ctx, exec, rootCompileQuery{env, root})
	if err != nil {
		return nil, err
	}

	rep := &report.Report{}
	for _, e := range results[0].Errors {
		if d, ok := e.(*report.Diagnostic); ok {
			rep.Add(d)
			continue
		}
		rep.Add(report.Newf(report.Span{}, report.KindIOError, "%v", e))
	}
	rep.Sort()
	return rep, nil
}
