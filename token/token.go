// Package token defines the lexical tokens of Ex source files.
package token

import "fmt"

// Kind classifies a Token.
type Kind int

const (
	EOF Kind = iota
	Invalid

	Int
	Ident

	KwImport
	KwDef
	KwPrint
	KwFn
	KwIntType

	LParen
	RParen
	Colon
	Equals
	Arrow
	Plus
	Minus
)

var names = map[Kind]string{
	EOF:       "EOF",
	Invalid:   "invalid",
	Int:       "int literal",
	Ident:     "identifier",
	KwImport:  "'import'",
	KwDef:     "'def'",
	KwPrint:   "'print'",
	KwFn:      "'fn'",
	KwIntType: "'Int'",
	LParen:    "'('",
	RParen:    "')'",
	Colon:     "':'",
	Equals:    "'='",
	Arrow:     "'->'",
	Plus:      "'+'",
	Minus:     "'-'",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// keywords maps reserved identifiers to their keyword Kind. "Int" is
// reserved only in type position grammatically, but lexically it is just
// another reserved word: the parser disambiguates by context.
var keywords = map[string]Kind{
	"import": KwImport,
	"def":    KwDef,
	"print":  KwPrint,
	"fn":     KwFn,
	"Int":    KwIntType,
}

// Lookup returns the keyword Kind for ident, or (Ident, false) if ident is
// not reserved.
func Lookup(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	if !ok {
		return Ident, false
	}
	return k, true
}

// Token is one lexeme: its kind, source text, and byte span.
type Token struct {
	Kind  Kind
	Text  string
	Start int
	End   int
	Line  int

	// IntValue is populated only for Kind == Int.
	IntValue int64
}
