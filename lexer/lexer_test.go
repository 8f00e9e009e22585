package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/exc-lang/exc/lexer"
	"github.com/exc-lang/exc/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	l := lexer.New([]byte(src))
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestLexKeywordsAndIdents(t *testing.T) {
	toks := scanAll(t, "import def print fn Int foo")
	kinds := make([]token.Kind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []token.Kind{
		token.KwImport, token.KwDef, token.KwPrint, token.KwFn, token.KwIntType, token.Ident, token.EOF,
	}, kinds)
}

func TestLexIntLiteral(t *testing.T) {
	toks := scanAll(t, "42")
	assert.Equal(t, token.Int, toks[0].Kind)
	assert.Equal(t, int64(42), toks[0].IntValue)
}

func TestLexArrowVsMinus(t *testing.T) {
	toks := scanAll(t, "-> -")
	assert.Equal(t, token.Arrow, toks[0].Kind)
	assert.Equal(t, token.Minus, toks[1].Kind)
}

func TestLexSkipsCommentsAndTracksLines(t *testing.T) {
	toks := scanAll(t, "# a comment\ndef")
	assert.Equal(t, token.KwDef, toks[0].Kind)
	assert.Equal(t, 2, toks[0].Line)
}

func TestLexInvalidCharacter(t *testing.T) {
	toks := scanAll(t, "@")
	assert.Equal(t, token.Invalid, toks[0].Kind)
}

func TestLexEOFIsStable(t *testing.T) {
	l := lexer.New([]byte(""))
	assert.Equal(t, token.EOF, l.Next().Kind)
	assert.Equal(t, token.EOF, l.Next().Kind)
}
