package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exc-lang/exc/ast"
	"github.com/exc-lang/exc/internal/intern"
	"github.com/exc-lang/exc/resolve"
	"github.com/exc-lang/exc/types"
)

func noLookup(ast.DefID) types.LookupResult { return types.LookupResult{} }

func TestInferIntLiteral(t *testing.T) {
	def := &ast.Def{Body: &ast.IntLit{Value: 1}}
	scheme, rep := types.Infer(def, nil, noLookup, "a.ex")
	require.Empty(t, rep.Diagnostics)
	assert.Equal(t, "Int", scheme.Type.String())
}

func TestInferIdentityLambdaIsPolymorphic(t *testing.T) {
	symbols := &intern.Table{}
	x := symbols.Intern("x")
	def := &ast.Def{Body: &ast.Lambda{Param: x, Body: &ast.Var{Name: x}}}

	scheme, rep := types.Infer(def, map[ast.SymbolID]resolve.Binding{}, noLookup, "a.ex")
	require.Empty(t, rep.Diagnostics)
	require.Len(t, scheme.Vars, 1)
	arrow, ok := scheme.Type.(*types.Arrow)
	require.True(t, ok)
	assert.Equal(t, arrow.From.String(), arrow.To.String())
}

func TestInferBinOpRequiresInt(t *testing.T) {
	symbols := &intern.Table{}
	x := symbols.Intern("x")
	def := &ast.Def{Body: &ast.Lambda{
		Param: x,
		Body:  &ast.BinOp{Op: ast.Add, LHS: &ast.Var{Name: x}, RHS: &ast.IntLit{Value: 1}},
	}}

	scheme, rep := types.Infer(def, map[ast.SymbolID]resolve.Binding{}, noLookup, "a.ex")
	require.Empty(t, rep.Diagnostics)
	arrow := scheme.Type.(*types.Arrow)
	assert.Equal(t, "Int", arrow.From.String())
	assert.Equal(t, "Int", arrow.To.String())
}

func TestInferAnnotationMismatchDiagnoses(t *testing.T) {
	def := &ast.Def{
		Annotation: &ast.ArrowType{From: &ast.IntType{}, To: &ast.IntType{}},
		Body:       &ast.IntLit{Value: 1},
	}
	_, rep := types.Infer(def, map[ast.SymbolID]resolve.Binding{}, noLookup, "a.ex")
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, "TypeMismatch", string(rep.Diagnostics[0].Kind))
}

func TestInferCrossDefReferenceInstantiatesFresh(t *testing.T) {
	symbols := &intern.Table{}
	idName := symbols.Intern("id")
	idScheme := types.Scheme{Vars: []int{1}, Type: &types.Arrow{From: &types.Var{ID: 1}, To: &types.Var{ID: 1}}}

	lookup := func(d ast.DefID) types.LookupResult {
		return types.LookupResult{Scheme: idScheme, OK: true}
	}

	visible := map[ast.SymbolID]resolve.Binding{idName: {Def: ast.DefID{Name: idName}}}
	def := &ast.Def{Body: &ast.App{Fun: &ast.Var{Name: idName}, Arg: &ast.IntLit{Value: 1}}}

	scheme, rep := types.Infer(def, visible, lookup, "a.ex")
	require.Empty(t, rep.Diagnostics)
	assert.Equal(t, "Int", scheme.Type.String())
}

func TestInferUnresolvableRecursionDiagnoses(t *testing.T) {
	symbols := &intern.Table{}
	f := symbols.Intern("f")
	visible := map[ast.SymbolID]resolve.Binding{f: {Def: ast.DefID{Name: f}}}
	def := &ast.Def{Body: &ast.Var{Name: f}}

	cycling := func(ast.DefID) types.LookupResult { return types.LookupResult{OK: false} }
	scheme, rep := types.Infer(def, visible, cycling, "a.ex")
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, "<error>", scheme.Type.String())
}
