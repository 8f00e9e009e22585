// Package types implements Hindley-Milner type inference for Ex def
// bodies: Int, function arrows, unification with an occurs check, and
// generalization into schemes that are instantiated fresh at every use
// site.
package types

import (
	"fmt"
	"sort"

	"github.com/exc-lang/exc/ast"
	"github.com/exc-lang/exc/report"
	"github.com/exc-lang/exc/resolve"
)

// Type is a (possibly still-unsolved) type. Concrete values are *Int,
// *Arrow, *Var, and *Error.
type Type interface {
	fmt.Stringer
	typeNode()
}

// Int is the type of integer literals and the BinOp operators.
type Int struct{}

func (*Int) typeNode()     {}
func (*Int) String() string { return "Int" }

// Arrow is a function type From -> To.
type Arrow struct {
	From, To Type
}

func (*Arrow) typeNode() {}
func (a *Arrow) String() string {
	return fmt.Sprintf("(%s -> %s)", a.From, a.To)
}

// Var is an unsolved type variable, identified within one inference run.
type Var struct {
	ID int
}

func (*Var) typeNode() {}
func (v *Var) String() string { return fmt.Sprintf("t%d", v.ID) }

// Error is the absorbing type assigned wherever inference could not
// produce a real answer (a prior diagnostic already explains why); it
// unifies successfully with anything so one mistake does not cascade
// into a wall of unrelated TypeMismatch diagnostics (§4.6 invariant).
type Error struct{}

func (*Error) typeNode()     {}
func (*Error) String() string { return "<error>" }

// Scheme is a type with a set of variables that are instantiated fresh at
// every use.
type Scheme struct {
	Vars []int
	Type Type
}

// Instantiate replaces every quantified variable in s with a fresh one,
// using next to allocate new variable ids.
func Instantiate(s Scheme, next *int) Type {
	mapping := map[int]int{}
	for _, v := range s.Vars {
		*next++
		mapping[v] = *next
	}
	var replace func(t Type) Type
	replace = func(t Type) Type {
		switch tt := t.(type) {
		case *Var:
			if nv, ok := mapping[tt.ID]; ok {
				return &Var{ID: nv}
			}
			return tt
		case *Arrow:
			return &Arrow{From: replace(tt.From), To: replace(tt.To)}
		default:
			return t
		}
	}
	return replace(s.Type)
}

// generalize quantifies every free variable remaining in t into a scheme.
// Each def is inferred in isolation (no shared let-binding context), so
// every variable left after substitution is free to generalize.
func generalize(t Type) Scheme {
	seen := map[int]bool{}
	var order []int
	var walk func(Type)
	walk = func(t Type) {
		switch tt := t.(type) {
		case *Var:
			if !seen[tt.ID] {
				seen[tt.ID] = true
				order = append(order, tt.ID)
			}
		case *Arrow:
			walk(tt.From)
			walk(tt.To)
		}
	}
	walk(t)
	sort.Ints(order)
	return Scheme{Vars: order, Type: t}
}

// subst is a mutable union-find-like binding table from variable id to
// type, built up during unification.
type subst map[int]Type

func (s subst) apply(t Type) Type {
	for {
		v, ok := t.(*Var)
		if !ok {
			break
		}
		bound, ok := s[v.ID]
		if !ok {
			break
		}
		t = bound
	}
	switch tt := t.(type) {
	case *Arrow:
		return &Arrow{From: s.apply(tt.From), To: s.apply(tt.To)}
	default:
		return t
	}
}

func occurs(id int, t Type, s subst) bool {
	t = s.apply(t)
	switch tt := t.(type) {
	case *Var:
		return tt.ID == id
	case *Arrow:
		return occurs(id, tt.From, s) || occurs(id, tt.To, s)
	default:
		return false
	}
}

// LookupResult is what resolving a reference to another def's type
// produces. OK is false when the reference could not be answered — most
// notably a self- or mutually-recursive def with no type annotation,
// which the incremental engine reports as a query cycle; Infer turns that
// into a single diagnostic rather than letting the caller deadlock or
// panic.
type LookupResult struct {
	Scheme Scheme
	OK     bool
}

// Lookup resolves a def's published type. The compiler driver backs this
// with a memoized, cycle-detecting incremental query; tests can supply a
// plain function.
type Lookup func(def ast.DefID) LookupResult

// Infer computes def's type scheme against the names visible in its file.
// Annotated defs are checked against their annotation; unannotated defs
// are inferred and generalized. Every problem found (type mismatches,
// occurs-check failures, unresolvable recursive references) is recorded
// as a diagnostic in the returned Report rather than aborting — the
// result always has a usable (possibly Error-containing) Scheme.
func Infer(def *ast.Def, visible map[ast.SymbolID]resolve.Binding, lookup Lookup, filePath string) (Scheme, *report.Report) {
	c := &inferCtx{subst: subst{}, visible: visible, lookup: lookup, rep: &report.Report{}, filePath: filePath}

	bodyType := c.infer(def.Body, map[ast.SymbolID]Type{})

	if def.Annotation != nil {
		annotType := annotationToType(def.Annotation)
		c.unify(def.Body.Span(), annotType, bodyType)
		final := c.subst.apply(annotType)
		return Scheme{Type: final}, c.rep
	}

	final := c.subst.apply(bodyType)
	return generalize(final), c.rep
}

type inferCtx struct {
	subst   subst
	fresh   int
	visible map[ast.SymbolID]resolve.Binding
	lookup  Lookup
	rep     *report.Report
	filePath string
}

func (c *inferCtx) newVar() Type {
	c.fresh++
	return &Var{ID: c.fresh}
}

func (c *inferCtx) infer(expr ast.Expr, env map[ast.SymbolID]Type) Type {
	switch e := expr.(type) {
	case *ast.IntLit:
		return &Int{}

	case *ast.Var:
		if t, ok := env[e.Name]; ok {
			return t
		}
		b, ok := c.visible[e.Name]
		if !ok || b.Ambiguous {
			// Already diagnosed by name resolution; don't pile on.
			return &Error{}
		}
		res := c.lookup(b.Def)
		if !res.OK {
			c.rep.Add(report.Newf(spanOf(c.filePath, e.Pos), report.KindTypeMismatch,
				"cannot infer the type of a recursive definition without a type annotation"))
			return &Error{}
		}
		return Instantiate(res.Scheme, &c.fresh)

	case *ast.Lambda:
		paramType := c.newVar()
		inner := make(map[ast.SymbolID]Type, len(env)+1)
		for k, v := range env {
			inner[k] = v
		}
		inner[e.Param] = paramType
		bodyType := c.infer(e.Body, inner)
		return &Arrow{From: paramType, To: bodyType}

	case *ast.App:
		funType := c.infer(e.Fun, env)
		argType := c.infer(e.Arg, env)
		resultType := c.newVar()
		c.unify(e.Pos, funType, &Arrow{From: argType, To: resultType})
		return resultType

	case *ast.BinOp:
		lt := c.infer(e.LHS, env)
		c.unify(e.LHS.Span(), lt, &Int{})
		rt := c.infer(e.RHS, env)
		c.unify(e.RHS.Span(), rt, &Int{})
		return &Int{}

	case *ast.ErrorExpr:
		return &Error{}

	default:
		return &Error{}
	}
}

func (c *inferCtx) unify(span ast.Span, a, b Type) {
	a = c.subst.apply(a)
	b = c.subst.apply(b)

	switch {
	case isError(a) || isError(b):
		return

	case isType[*Int](a) && isType[*Int](b):
		return

	case isType[*Var](a):
		va := a.(*Var)
		if vb, ok := b.(*Var); ok && vb.ID == va.ID {
			return
		}
		if occurs(va.ID, b, c.subst) {
			c.rep.Add(report.Newf(spanOf(c.filePath, span), report.KindOccursCheck, "infinite type: %s occurs in %s", a, b))
			c.subst[va.ID] = &Error{}
			return
		}
		c.subst[va.ID] = b

	case isType[*Var](b):
		c.unify(span, b, a)

	case isType[*Arrow](a) && isType[*Arrow](b):
		aa, bb := a.(*Arrow), b.(*Arrow)
		c.unify(span, aa.From, bb.From)
		c.unify(span, c.subst.apply(aa.To), c.subst.apply(bb.To))

	default:
		c.rep.Add(report.Newf(spanOf(c.filePath, span), report.KindTypeMismatch, "type mismatch: expected %s, found %s", a, b))
	}
}

func isError(t Type) bool { _, ok := t.(*Error); return ok }

func isType[T Type](t Type) bool { _, ok := t.(T); return ok }

func annotationToType(te ast.TypeExpr) Type {
	switch t := te.(type) {
	case *ast.IntType:
		return &Int{}
	case *ast.ArrowType:
		return &Arrow{From: annotationToType(t.From), To: annotationToType(t.To)}
	default:
		return &Error{}
	}
}

func spanOf(file string, s ast.Span) report.Span {
	return report.Span{File: file, Start: s.Start, End: s.End, Line: s.Line}
}
