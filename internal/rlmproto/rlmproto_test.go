package rlmproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanFinal_DoubleQuotedLiteral(t *testing.T) {
	got := ScanFinal(`thinking... FINAL("the answer is 42") done`)
	if assert.NotNil(t, got) {
		assert.Equal(t, "the answer is 42", got.Literal)
	}
}

func TestScanFinal_SingleQuotedLiteral(t *testing.T) {
	got := ScanFinal(`FINAL('yes')`)
	if assert.NotNil(t, got) {
		assert.Equal(t, "yes", got.Literal)
	}
}

func TestScanFinal_TripleQuotedLiteralWithEmbeddedQuotes(t *testing.T) {
	got := ScanFinal(`FINAL("""she said "hi" to me""")`)
	if assert.NotNil(t, got) {
		assert.Equal(t, `she said "hi" to me`, got.Literal)
	}
}

func TestScanFinal_BareNameArgumentIsNotRecognized(t *testing.T) {
	got := ScanFinal(`FINAL(answer)`)
	assert.Nil(t, got)
}

func TestScanFinal_NoMatchReturnsNil(t *testing.T) {
	assert.Nil(t, ScanFinal("no terminator here"))
}

func TestScanFinalVar_RecognizesVariableReference(t *testing.T) {
	got := ScanFinalVar(`FINAL_VAR(result)`)
	if assert.NotNil(t, got) {
		assert.Equal(t, "result", got.Name)
	}
}

func TestScanFinalVar_NoMatchReturnsNil(t *testing.T) {
	assert.Nil(t, ScanFinalVar("nothing to see"))
}
