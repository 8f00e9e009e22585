package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exc-lang/exc/ast"
	"github.com/exc-lang/exc/internal/intern"
	"github.com/exc-lang/exc/internal/source"
	"github.com/exc-lang/exc/report"
	"github.com/exc-lang/exc/resolve"
)

func TestExportedFirstWinsOnDuplicate(t *testing.T) {
	symbols := &intern.Table{}
	name := symbols.Intern("x")
	mod := &ast.Module{Items: []ast.Item{
		&ast.Def{Name: name, Body: &ast.IntLit{Value: 1}},
		&ast.Def{Name: name, Body: &ast.IntLit{Value: 2}},
	}}

	defs, rep := resolve.Exported(1, mod, "a.ex")
	require.Len(t, rep.Diagnostics, 1)
	lit := defs[name]
	require.Equal(t, source.FileID(1), lit.File)
}

func TestVisibleLocalShadowsImport(t *testing.T) {
	symbols := &intern.Table{}
	x := symbols.Intern("x")

	ownMod := &ast.Module{Items: []ast.Item{&ast.Def{Name: x, Body: &ast.IntLit{Value: 1}}}}
	impMod := &ast.Module{Items: []ast.Item{&ast.Def{Name: x, Body: &ast.IntLit{Value: 2}}}}

	exported := func(f source.FileID) (map[ast.SymbolID]ast.DefID, *report.Report) {
		if f == 1 {
			return resolve.Exported(1, ownMod, "a.ex")
		}
		return resolve.Exported(2, impMod, "b.ex")
	}

	visible, rep := resolve.Visible(1, []source.FileID{2}, exported, "a.ex")
	require.Empty(t, rep.Diagnostics)
	assert.Equal(t, source.FileID(1), visible[x].Def.File)
}

func TestVisibleAmbiguousAcrossTwoImports(t *testing.T) {
	symbols := &intern.Table{}
	x := symbols.Intern("x")

	impA := &ast.Module{Items: []ast.Item{&ast.Def{Name: x, Body: &ast.IntLit{Value: 1}}}}
	impB := &ast.Module{Items: []ast.Item{&ast.Def{Name: x, Body: &ast.IntLit{Value: 2}}}}
	own := &ast.Module{}

	exported := func(f source.FileID) (map[ast.SymbolID]ast.DefID, *report.Report) {
		switch f {
		case 1:
			return resolve.Exported(1, own, "main.ex")
		case 2:
			return resolve.Exported(2, impA, "a.ex")
		default:
			return resolve.Exported(3, impB, "b.ex")
		}
	}

	visible, rep := resolve.Visible(1, []source.FileID{2, 3}, exported, "main.ex")
	require.Len(t, rep.Diagnostics, 1)
	assert.True(t, visible[x].Ambiguous)
}

func TestDefResolvesSelfRecursionWithoutDiagnostic(t *testing.T) {
	symbols := &intern.Table{}
	f := symbols.Intern("f")
	param := symbols.Intern("x")

	body := &ast.Lambda{Param: param, Body: &ast.App{
		Fun: &ast.Var{Name: f},
		Arg: &ast.Var{Name: param},
	}}
	def := &ast.Def{Name: f, Body: body}

	visible := map[ast.SymbolID]resolve.Binding{f: {Def: ast.DefID{File: 1, Name: f}}}
	rep := resolve.Def(def, visible, "a.ex")
	assert.Empty(t, rep.Diagnostics)
}

func TestDefUnresolvedNameDiagnoses(t *testing.T) {
	symbols := &intern.Table{}
	unknown := symbols.Intern("nope")
	def := &ast.Def{Name: symbols.Intern("f"), Body: &ast.Var{Name: unknown}}

	rep := resolve.Def(def, map[ast.SymbolID]resolve.Binding{}, "a.ex")
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, "UnresolvedName", string(rep.Diagnostics[0].Kind))
}
