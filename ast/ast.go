// Package ast defines the abstract syntax tree produced by the parser, and
// the identifiers (SymbolID, DefID) used to name things within it.
package ast

import (
	"fmt"

	"github.com/exc-lang/exc/internal/intern"
	"github.com/exc-lang/exc/internal/source"
)

// SymbolID is an interned identifier (a variable, parameter, or top-level
// def name).
type SymbolID = intern.ID

// DefID names a top-level def or import binding: the file it is declared
// in, plus its name within that file. Every DefID has exactly one defining
// site (duplicates are diagnosed but one definition is still chosen as
// canonical, per §3).
type DefID struct {
	File source.FileID
	Name SymbolID
}

func (d DefID) String() string {
	return fmt.Sprintf("DefID{file:%v, name:%v}", d.File, d.Name)
}

// Span is a half-open byte range within a single file, plus the 1-based
// line it starts on (diagnostics only ever need the start line, per the
// CLI's "<file>:<line>: <message>" format).
type Span struct {
	Start, End int
	Line       int
}

// Module is the parsed form of one source file: a flat list of top-level
// items. It does not hold the parse diagnostics; parser.Parse returns
// those in a separate report. Parsing a given file's
// bytes always yields a Module whose shape depends only on those bytes
// (§3 invariant).
type Module struct {
	File  source.FileID
	Items []Item
}

// Item is a top-level declaration: an import, a def, a print statement, or
// a parser-recovery placeholder.
type Item interface {
	itemNode()
	Span() Span
}

// Import is `import name`.
type Import struct {
	Name SymbolID
	Pos  Span
}

func (*Import) itemNode()     {}
func (i *Import) Span() Span { return i.Pos }

// Def is `def name (: typeexpr)? = expr`.
type Def struct {
	Name       SymbolID
	Annotation TypeExpr // nil if unannotated
	Body       Expr
	Pos        Span
}

func (*Def) itemNode()     {}
func (d *Def) Span() Span { return d.Pos }

// Print is `print expr`. Print items do not bind names and cannot be
// referenced (§3 invariant).
type Print struct {
	Expr Expr
	Pos  Span
}

func (*Print) itemNode()     {}
func (p *Print) Span() Span { return p.Pos }

// ErrorItem is a parser-recovery placeholder standing in for a top-level
// item the parser could not make sense of.
type ErrorItem struct {
	Pos Span
}

func (*ErrorItem) itemNode()     {}
func (e *ErrorItem) Span() Span { return e.Pos }

// Expr is an expression node.
type Expr interface {
	exprNode()
	Span() Span
}

// IntLit is an integer literal.
type IntLit struct {
	Value int64
	Pos   Span
}

func (*IntLit) exprNode()     {}
func (i *IntLit) Span() Span { return i.Pos }

// Var is a reference to an identifier. The name resolver (resolve.Def)
// checks it against the lambda parameters in scope and the file's visible
// names; it does not rewrite the node into a DefID or parameter index.
type Var struct {
	Name SymbolID
	Pos  Span
}

func (*Var) exprNode()     {}
func (v *Var) Span() Span { return v.Pos }

// Lambda is `fn params... -> body`, already desugared from multiple
// parameters into nested single-parameter lambdas by the parser, per
// §4.3.
type Lambda struct {
	Param SymbolID
	Body  Expr
	Pos   Span
}

func (*Lambda) exprNode()     {}
func (l *Lambda) Span() Span { return l.Pos }

// App is function application `fun arg`, already left-associated by the
// parser for multi-argument application, per §4.3.
type App struct {
	Fun, Arg Expr
	Pos      Span
}

func (*App) exprNode()     {}
func (a *App) Span() Span { return a.Pos }

// BinOpKind distinguishes `+` from `-`; both have equal, left-associative
// precedence (§4.3).
type BinOpKind int

const (
	Add BinOpKind = iota
	Sub
)

func (k BinOpKind) String() string {
	if k == Sub {
		return "-"
	}
	return "+"
}

// BinOp is `lhs (+|-) rhs`.
type BinOp struct {
	Op       BinOpKind
	LHS, RHS Expr
	Pos      Span
}

func (*BinOp) exprNode()     {}
func (b *BinOp) Span() Span { return b.Pos }

// ErrorExpr is a parser-recovery placeholder standing in for an expression
// the parser could not make sense of.
type ErrorExpr struct {
	Pos Span
}

func (*ErrorExpr) exprNode()     {}
func (e *ErrorExpr) Span() Span { return e.Pos }

// TypeExpr is a type annotation as written in source.
type TypeExpr interface {
	typeExprNode()
	Span() Span
}

// IntType is the `Int` type annotation.
type IntType struct {
	Pos Span
}

func (*IntType) typeExprNode() {}
func (t *IntType) Span() Span { return t.Pos }

// ArrowType is `from -> to`, right-associative (§4.3).
type ArrowType struct {
	From, To TypeExpr
	Pos      Span
}

func (*ArrowType) typeExprNode() {}
func (t *ArrowType) Span() Span { return t.Pos }

// ErrorTypeExpr is a parser-recovery placeholder for a type annotation the
// parser could not make sense of.
type ErrorTypeExpr struct {
	Pos Span
}

func (*ErrorTypeExpr) typeExprNode() {}
func (t *ErrorTypeExpr) Span() Span { return t.Pos }
