// Package resolve computes which names are visible in which files, and
// resolves each def's body against that visibility.
package resolve

import (
	"github.com/exc-lang/exc/ast"
	"github.com/exc-lang/exc/internal/source"
	"github.com/exc-lang/exc/report"
)

// Exported computes the names a file's own `def`s bind (§4.5): first
// definition of a name wins and is used everywhere else resolution needs
// it, but every later repeat is diagnosed as a DuplicateDef-shaped
// ambiguity at its own site so the error survives even if later passes
// only look at the winning DefID.
func Exported(file source.FileID, mod *ast.Module, filePath string) (map[ast.SymbolID]ast.DefID, *report.Report) {
	rep := &report.Report{}
	out := map[ast.SymbolID]ast.DefID{}

	for _, item := range mod.Items {
		def, ok := item.(*ast.Def)
		if !ok {
			continue
		}
		if _, exists := out[def.Name]; exists {
			rep.Add(report.Newf(spanOf(filePath, def.Pos), report.KindAmbiguousName, "duplicate definition in this file"))
			continue
		}
		out[def.Name] = ast.DefID{File: file, Name: def.Name}
	}
	return out, rep
}

// ExportedFunc resolves one file's exported defs, letting Visible plug in
// a memoized implementation.
type ExportedFunc func(file source.FileID) (map[ast.SymbolID]ast.DefID, *report.Report)

// Binding is what a name resolves to from a given file's perspective: its
// own def, a single import's def, or an ambiguity between two or more
// imports that export the same name without a local def shadowing it.
type Binding struct {
	Def      ast.DefID
	Ambiguous bool
	From     []source.FileID // the imports that disagree, when Ambiguous
}

// Visible computes the names visible inside file: its own exported defs,
// plus the union of its direct imports' exported defs (§4.5). Visibility
// is not transitive: a name exported two imports deep is not visible
// unless also re-exported (there is no re-export mechanism, so it simply
// isn't visible). A local def always wins over an imported name of the
// same name, with no diagnostic, since there is no way to ask for the
// shadowed import binding instead.
func Visible(file source.FileID, directImports []source.FileID, exported ExportedFunc, filePath string) (map[ast.SymbolID]Binding, *report.Report) {
	rep := &report.Report{}
	own, ownErrs := exported(file)
	rep.Add(ownErrs.Diagnostics...)

	out := map[ast.SymbolID]Binding{}
	for name, def := range own {
		out[name] = Binding{Def: def}
	}

	imported := map[ast.SymbolID][]source.FileID{}
	for _, imp := range directImports {
		defs, impErrs := exported(imp)
		rep.Add(impErrs.Diagnostics...)
		for name := range defs {
			imported[name] = append(imported[name], imp)
		}
	}

	for name, froms := range imported {
		if _, shadowed := own[name]; shadowed {
			continue
		}
		if len(froms) == 1 {
			defs, _ := exported(froms[0])
			out[name] = Binding{Def: defs[name]}
			continue
		}

		rep.Add(report.Newf(report.Span{File: filePath}, report.KindAmbiguousName, "name is defined in multiple imports: %v", froms))
		out[name] = Binding{Ambiguous: true, From: froms}
	}

	return out, rep
}

// Resolved is a def's body after every Var node in it has been tied to a
// concrete meaning.
type Resolved struct {
	Body ast.Expr
}

// Def checks one def's body against the names visible in its file: a Var
// that is neither a lambda parameter in scope nor a visible name is
// reported as UnresolvedName, and one that names an ambiguous import as
// AmbiguousName. Lambda parameters shadow module-level names (including
// the def's own name) within their own body only. The AST is not
// rewritten and no [Resolved] value is built; the type checker looks each
// name up in Visible's result itself.
func Def(def *ast.Def, visible map[ast.SymbolID]Binding, filePath string) *report.Report {
	rep := &report.Report{}
	var walk func(expr ast.Expr, locals map[ast.SymbolID]bool)
	walk = func(expr ast.Expr, locals map[ast.SymbolID]bool) {
		switch e := expr.(type) {
		case *ast.Var:
			if locals[e.Name] {
				return
			}
			b, ok := visible[e.Name]
			if !ok {
				rep.Add(report.Newf(spanOf(filePath, e.Pos), report.KindUnresolvedName, "unresolved name"))
				return
			}
			if b.Ambiguous {
				rep.Add(report.Newf(spanOf(filePath, e.Pos), report.KindAmbiguousName, "ambiguous name: defined in multiple imports"))
			}
		case *ast.Lambda:
			inner := cloneLocals(locals)
			inner[e.Param] = true
			walk(e.Body, inner)
		case *ast.App:
			walk(e.Fun, locals)
			walk(e.Arg, locals)
		case *ast.BinOp:
			walk(e.LHS, locals)
			walk(e.RHS, locals)
		case *ast.IntLit, *ast.ErrorExpr:
			// no names to resolve
		}
	}
	walk(def.Body, map[ast.SymbolID]bool{})
	return rep
}

func cloneLocals(m map[ast.SymbolID]bool) map[ast.SymbolID]bool {
	out := make(map[ast.SymbolID]bool, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func spanOf(file string, s ast.Span) report.Span {
	return report.Span{File: file, Start: s.Start, End: s.End, Line: s.Line}
}
