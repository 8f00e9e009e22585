// Package parser implements Ex's fault-tolerant recursive-descent parser.
//
// Grammar:
//
//	module   := item*
//	item     := 'import' ident
//	          | 'def' ident (':' typeexpr)? '=' expr
//	          | 'print' expr
//	expr     := app
//	app      := atom atom*
//	atom     := INT | ident | '(' expr ')' | 'fn' ident+ '->' expr
//	          | atom ('+' | '-') atom
//	typeexpr := 'Int' | typeexpr '->' typeexpr
//
// A single malformed item never aborts parsing of the rest of the file
// (§4.3): on error the parser emits one ParseError diagnostic and skips
// forward to the next token that can start an item (import/def/print) at
// the start of a line, or to EOF.
package parser

import (
	"github.com/exc-lang/exc/ast"
	"github.com/exc-lang/exc/internal/intern"
	"github.com/exc-lang/exc/internal/source"
	"github.com/exc-lang/exc/lexer"
	"github.com/exc-lang/exc/report"
	"github.com/exc-lang/exc/token"
)

type parser struct {
	toks     []token.Token
	pos      int
	symbols  *intern.Table
	filePath string
	rep      *report.Report
}

// Parse tokenizes and parses one file's contents into a Module. Symbols is
// the interner used to turn identifier text into [ast.SymbolID]s; the same
// table must be shared across every file in a compilation so that two
// files' uses of the same name intern to the same id.
func Parse(file source.FileID, filePath string, src []byte, symbols *intern.Table) (*ast.Module, *report.Report) {
	l := lexer.New(src)
	var toks []token.Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Kind == token.EOF {
			break
		}
	}

	p := &parser{toks: toks, symbols: symbols, filePath: filePath, rep: &report.Report{}}
	mod := &ast.Module{File: file}
	for !p.at(token.EOF) {
		mod.Items = append(mod.Items, p.parseItem())
	}
	return mod, p.rep
}

func (p *parser) cur() token.Token  { return p.toks[p.pos] }
func (p *parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *parser) advance() token.Token {
	t := p.toks[p.pos]
	if t.Kind != token.EOF {
		p.pos++
	}
	return t
}

func (p *parser) span(t token.Token) ast.Span {
	return ast.Span{Start: t.Start, End: t.End, Line: t.Line}
}

func (p *parser) errorf(t token.Token, format string, args ...any) {
	p.rep.Add(report.Newf(report.Span{File: p.filePath, Start: t.Start, End: t.End, Line: t.Line}, report.KindParseError, format, args...))
}

// itemStart reports whether k can begin a new top-level item, the set the
// recovery scanner resynchronizes on.
func itemStart(k token.Kind) bool {
	return k == token.KwImport || k == token.KwDef || k == token.KwPrint || k == token.EOF
}

// recover skips to the next item-starting token that is the first token on
// its line, or to EOF. The caller has already reported the error.
func (p *parser) recover(at token.Token) *ast.ErrorItem {
	for !p.at(token.EOF) && !(itemStart(p.cur().Kind) && (p.pos == 0 || p.toks[p.pos-1].Line < p.cur().Line)) {
		p.advance()
	}
	return &ast.ErrorItem{Pos: p.span(at)}
}

func (p *parser) parseItem() ast.Item {
	switch p.cur().Kind {
	case token.KwImport:
		kw := p.advance()
		name, ok := p.expectIdent()
		if !ok {
			return p.recover(kw)
		}
		return &ast.Import{Name: name, Pos: p.span(kw)}

	case token.KwDef:
		kw := p.advance()
		name, ok := p.expectIdent()
		if !ok {
			return p.recover(kw)
		}
		var annot ast.TypeExpr
		if p.at(token.Colon) {
			p.advance()
			annot = p.parseTypeExpr()
		}
		if !p.expect(token.Equals) {
			return p.recover(kw)
		}
		body := p.parseExpr()
		return &ast.Def{Name: name, Annotation: annot, Body: body, Pos: p.span(kw)}

	case token.KwPrint:
		kw := p.advance()
		expr := p.parseExpr()
		return &ast.Print{Expr: expr, Pos: p.span(kw)}

	default:
		at := p.cur()
		p.errorf(at, "unexpected %s, expected 'import', 'def', or 'print'", describeKind(at))
		return p.recover(at)
	}
}

func (p *parser) expect(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	p.errorf(p.cur(), "expected %s, found %s", k, describeKind(p.cur()))
	return false
}

func (p *parser) expectIdent() (ast.SymbolID, bool) {
	if !p.at(token.Ident) {
		p.errorf(p.cur(), "expected identifier, found %s", describeKind(p.cur()))
		return 0, false
	}
	t := p.advance()
	return p.symbols.Intern(t.Text), true
}

// parseExpr parses an application chain; Ex has no other expression-level
// operator (binary + and - bind at atom level, per the grammar above).
func (p *parser) parseExpr() ast.Expr {
	return p.parseApp()
}

func (p *parser) parseApp() ast.Expr {
	first := p.parseAtom()
	for startsAtom(p.cur().Kind) {
		arg := p.parseAtom()
		first = &ast.App{Fun: first, Arg: arg, Pos: first.Span()}
	}
	return first
}

func startsAtom(k token.Kind) bool {
	switch k {
	case token.Int, token.Ident, token.LParen, token.KwFn:
		return true
	default:
		return false
	}
}

func (p *parser) parseAtom() ast.Expr {
	base := p.parsePrimary()
	for p.at(token.Plus) || p.at(token.Minus) {
		opTok := p.advance()
		op := ast.Add
		if opTok.Kind == token.Minus {
			op = ast.Sub
		}
		rhs := p.parsePrimary()
		base = &ast.BinOp{Op: op, LHS: base, RHS: rhs, Pos: base.Span()}
	}
	return base
}

func (p *parser) parsePrimary() ast.Expr {
	t := p.cur()
	switch t.Kind {
	case token.Int:
		p.advance()
		return &ast.IntLit{Value: t.IntValue, Pos: p.span(t)}

	case token.Ident:
		p.advance()
		return &ast.Var{Name: p.symbols.Intern(t.Text), Pos: p.span(t)}

	case token.LParen:
		p.advance()
		inner := p.parseExpr()
		p.expect(token.RParen)
		return inner

	case token.KwFn:
		kw := p.advance()
		var params []ast.SymbolID
		for p.at(token.Ident) {
			name, _ := p.expectIdent()
			params = append(params, name)
		}
		if len(params) == 0 {
			p.errorf(p.cur(), "expected at least one parameter after 'fn'")
		}
		if !p.expect(token.Arrow) {
			return &ast.ErrorExpr{Pos: p.span(kw)}
		}
		body := p.parseExpr()
		// Desugar `fn a b c -> body` into nested single-parameter lambdas,
		// right to left, per §4.3.
		result := body
		for i := len(params) - 1; i >= 0; i-- {
			result = &ast.Lambda{Param: params[i], Body: result, Pos: p.span(kw)}
		}
		return result

	default:
		p.errorf(t, "expected expression, found %s", describeKind(t))
		if !itemStart(t.Kind) {
			p.advance()
		}
		return &ast.ErrorExpr{Pos: p.span(t)}
	}
}

func (p *parser) parseTypeExpr() ast.TypeExpr {
	left := p.parseTypeAtom()
	if p.at(token.Arrow) {
		arrow := p.advance()
		right := p.parseTypeExpr()
		return &ast.ArrowType{From: left, To: right, Pos: p.span(arrow)}
	}
	return left
}

func (p *parser) parseTypeAtom() ast.TypeExpr {
	t := p.cur()
	switch t.Kind {
	case token.KwIntType:
		p.advance()
		return &ast.IntType{Pos: p.span(t)}
	case token.LParen:
		p.advance()
		inner := p.parseTypeExpr()
		p.expect(token.RParen)
		return inner
	default:
		p.errorf(t, "expected type, found %s", describeKind(t))
		if !itemStart(t.Kind) {
			p.advance()
		}
		return &ast.ErrorTypeExpr{Pos: p.span(t)}
	}
}

func describeKind(t token.Token) string {
	if t.Kind == token.EOF {
		return "end of file"
	}
	return t.Kind.String()
}
