// Package lexer tokenizes Ex source files.
package lexer

import (
	"fmt"
	"unicode/utf8"

	"github.com/exc-lang/exc/token"
)

// runeReader is a cursor over a byte slice that decodes one rune at a
// time, tracking enough state to re-slice out the text of whatever was
// last scanned. Modeled on the reader the reference parser uses to feed
// its hand-rolled lexer.
type runeReader struct {
	data []byte
	pos  int
	mark int
}

func (rr *runeReader) readRune() (r rune, size int, ok bool) {
	if rr.pos >= len(rr.data) {
		return 0, 0, false
	}
	r, sz := utf8.DecodeRune(rr.data[rr.pos:])
	if r == utf8.RuneError && sz <= 1 {
		rr.pos++
		return utf8.RuneError, 1, true
	}
	rr.pos += sz
	return r, sz, true
}

func (rr *runeReader) unreadRune(sz int) {
	rr.pos -= sz
}

func (rr *runeReader) peekRune() rune {
	r, sz, ok := rr.readRune()
	if !ok {
		return 0
	}
	rr.unreadRune(sz)
	return r
}

func (rr *runeReader) setMark() {
	rr.mark = rr.pos
}

func (rr *runeReader) marked() string {
	return string(rr.data[rr.mark:rr.pos])
}

// Lexer scans one file's bytes into a stream of [token.Token]s. It never
// fails outright: invalid bytes or unrecognized characters become
// token.Invalid tokens, leaving recovery to the parser (§4.3).
type Lexer struct {
	in   *runeReader
	line int
}

// New constructs a Lexer over src.
func New(src []byte) *Lexer {
	return &Lexer{in: &runeReader{data: src}, line: 1}
}

// Next scans and returns the next token, or a token.EOF token once the
// input is exhausted. Calling Next again after EOF keeps returning EOF.
func (l *Lexer) Next() token.Token {
	l.skipSpaceAndComments()

	l.in.setMark()
	startLine := l.line
	startOff := l.in.pos

	r, sz, ok := l.in.readRune()
	if !ok {
		return token.Token{Kind: token.EOF, Start: startOff, End: startOff, Line: startLine}
	}

	switch {
	case r == '(':
		return l.simple(token.LParen, startOff, startLine)
	case r == ')':
		return l.simple(token.RParen, startOff, startLine)
	case r == ':':
		return l.simple(token.Colon, startOff, startLine)
	case r == '+':
		return l.simple(token.Plus, startOff, startLine)
	case r == '-':
		if l.in.peekRune() == '>' {
			l.in.readRune()
			return token.Token{Kind: token.Arrow, Text: "->", Start: startOff, End: l.in.pos, Line: startLine}
		}
		return l.simple(token.Minus, startOff, startLine)
	case r == '=':
		return l.simple(token.Equals, startOff, startLine)
	case isDigit(r):
		return l.scanInt(startOff, startLine)
	case isIdentStart(r):
		return l.scanIdent(startOff, startLine)
	default:
		l.in.unreadRune(sz)
		l.in.readRune()
		return token.Token{Kind: token.Invalid, Text: l.in.marked(), Start: startOff, End: l.in.pos, Line: startLine}
	}
}

func (l *Lexer) simple(k token.Kind, startOff, startLine int) token.Token {
	return token.Token{Kind: k, Text: l.in.marked(), Start: startOff, End: l.in.pos, Line: startLine}
}

func (l *Lexer) scanInt(startOff, startLine int) token.Token {
	for {
		r, sz, ok := l.in.readRune()
		if !ok {
			break
		}
		if !isDigit(r) {
			l.in.unreadRune(sz)
			break
		}
	}
	text := l.in.marked()
	var value int64
	for _, c := range text {
		value = value*10 + int64(c-'0')
	}
	return token.Token{Kind: token.Int, Text: text, IntValue: value, Start: startOff, End: l.in.pos, Line: startLine}
}

func (l *Lexer) scanIdent(startOff, startLine int) token.Token {
	for {
		r, sz, ok := l.in.readRune()
		if !ok {
			break
		}
		if !isIdentCont(r) {
			l.in.unreadRune(sz)
			break
		}
	}
	text := l.in.marked()
	kind := token.Ident
	if kw, isKw := token.Lookup(text); isKw {
		kind = kw
	}
	return token.Token{Kind: kind, Text: text, Start: startOff, End: l.in.pos, Line: startLine}
}

func (l *Lexer) skipSpaceAndComments() {
	for {
		r, sz, ok := l.in.readRune()
		if !ok {
			return
		}
		switch {
		case r == '\n':
			l.line++
		case r == ' ', r == '\t', r == '\r':
		case r == '#':
			for {
				r2, _, ok2 := l.in.readRune()
				if !ok2 || r2 == '\n' {
					if ok2 {
						l.line++
					}
					break
				}
			}
		default:
			l.in.unreadRune(sz)
			return
		}
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}

// DescribeInvalid formats an error message for a token.Invalid token, used
// by the parser when it turns a lex failure into a ParseError diagnostic.
func DescribeInvalid(t token.Token) string {
	return fmt.Sprintf("unexpected character %q", t.Text)
}
