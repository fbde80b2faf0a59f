package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daios-rlm/pyrepl/internal/token"
)

func tokenTypes(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestTokenize_SimpleAssignment(t *testing.T) {
	toks, err := New("x = 1 + 2\n").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []token.Type{token.NAME, token.ASSIGN, token.NUMBER, token.PLUS, token.NUMBER, token.NEWLINE, token.EOF}, tokenTypes(toks))
}

func TestTokenize_IndentAndDedent(t *testing.T) {
	toks, err := New("if x:\n    y = 1\nz = 2\n").Tokenize()
	require.NoError(t, err)
	types := tokenTypes(toks)
	require.Contains(t, types, token.INDENT)
	require.Contains(t, types, token.DEDENT)
}

func TestTokenize_MismatchedDedentIsSyntaxError(t *testing.T) {
	_, err := New("if x:\n    y = 1\n  z = 2\n").Tokenize()
	require.Error(t, err)
	_, ok := err.(*SyntaxError)
	assert.True(t, ok, "expected *SyntaxError, got %T", err)
}

func TestTokenize_UnterminatedStringIsSyntaxError(t *testing.T) {
	_, err := New(`s = "unterminated` + "\n").Tokenize()
	require.Error(t, err)
	_, ok := err.(*SyntaxError)
	assert.True(t, ok, "expected *SyntaxError, got %T", err)
}

func TestTokenize_StringAndBytesPrefixes(t *testing.T) {
	toks, err := New(`a = r"raw\n"
b = b"bytes"
c = f"fstr {x}"
`).Tokenize()
	require.NoError(t, err)
	var sawString, sawBytes, sawFString bool
	for _, tk := range toks {
		switch tk.Type {
		case token.STRING:
			sawString = true
		case token.BYTES:
			sawBytes = true
		case token.FSTRING:
			sawFString = true
		}
	}
	assert.True(t, sawString)
	assert.True(t, sawBytes)
	assert.True(t, sawFString)
}

func TestTokenize_NumberUnderscoresStripped(t *testing.T) {
	toks, err := New("x = 1_000_000\n").Tokenize()
	require.NoError(t, err)
	var lit string
	for _, tk := range toks {
		if tk.Type == token.NUMBER {
			lit = tk.Literal
		}
	}
	assert.Equal(t, "1000000", lit)
}

func TestTokenize_TwoCharOperators(t *testing.T) {
	toks, err := New("a += 1\nb -= 2\nc == d\ne != f\ng <= h\ni >= j\n").Tokenize()
	require.NoError(t, err)
	types := tokenTypes(toks)
	for _, want := range []token.Type{token.PLUS_EQ, token.MINUS_EQ, token.EQ, token.NOT_EQ, token.LT_EQ, token.GT_EQ} {
		assert.Contains(t, types, want)
	}
}

func TestTokenize_ParenDepthSuppressesNewline(t *testing.T) {
	toks, err := New("f(1,\n2)\n").Tokenize()
	require.NoError(t, err)
	newlines := 0
	for _, tk := range toks {
		if tk.Type == token.NEWLINE {
			newlines++
		}
	}
	assert.Equal(t, 1, newlines)
}

func TestTokenize_KeywordsClassifiedCorrectly(t *testing.T) {
	toks, err := New("while True:\n    pass\n").Tokenize()
	require.NoError(t, err)
	require.True(t, len(toks) > 0)
	assert.Equal(t, token.WHILE, toks[0].Type)
	assert.True(t, token.IsForbiddenKeyword(toks[0].Type))
}
