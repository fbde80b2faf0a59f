package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daios-rlm/pyrepl/internal/ast"
)

func TestParseProgram_EmptyInputYieldsEmptyProgram(t *testing.T) {
	prog, err := ParseProgram("   \n\t  ")
	require.NoError(t, err)
	assert.True(t, prog.Empty)
}

func TestParseProgram_SyntaxErrorReportsPosition(t *testing.T) {
	_, err := ParseProgram("def f(:\n    pass\n")
	require.Error(t, err)
	se, ok := err.(*SyntaxError)
	require.True(t, ok, "expected *SyntaxError, got %T", err)
	assert.Equal(t, 1, se.Line)
}

func TestParseProgram_CallWithKeywordArgument(t *testing.T) {
	prog, err := ParseProgram("re.search(pat, s, flags=1)\n")
	require.NoError(t, err)
	require.Len(t, prog.Statements, 1)
	es := prog.Statements[0].(*ast.ExpressionStatement)
	call := es.Expression.(*ast.CallExpression)
	require.Len(t, call.Args, 2)
	require.Len(t, call.Keywords, 1)
	assert.Equal(t, "flags", call.Keywords[0].Name)
}

func TestParseProgram_ComparisonIsNotMistakenForKeywordArgument(t *testing.T) {
	prog, err := ParseProgram("f(x == 1)\n")
	require.NoError(t, err)
	es := prog.Statements[0].(*ast.ExpressionStatement)
	call := es.Expression.(*ast.CallExpression)
	assert.Len(t, call.Args, 1)
	assert.Empty(t, call.Keywords)
}

func TestParseProgram_FStringInterpolation(t *testing.T) {
	prog, err := ParseProgram(`s = f"hello {name}!"` + "\n")
	require.NoError(t, err)
	require.Len(t, prog.Statements, 1)
	assign := prog.Statements[0].(*ast.AssignStatement)
	fstr, ok := assign.Value.(*ast.FString)
	require.True(t, ok)
	require.Len(t, fstr.Parts, 3)
	assert.Equal(t, "hello ", fstr.Parts[0].Text)
	assert.NotNil(t, fstr.Parts[1].Expr)
	assert.Equal(t, "!", fstr.Parts[2].Text)
}

func TestParseProgram_ListComprehension(t *testing.T) {
	prog, err := ParseProgram("xs = [y for y in range(3) if y > 0]\n")
	require.NoError(t, err)
	assign := prog.Statements[0].(*ast.AssignStatement)
	comp, ok := assign.Value.(*ast.Comprehension)
	require.True(t, ok)
	assert.Equal(t, ast.ListComp, comp.Kind)
	require.Len(t, comp.Clauses, 2)
}

func TestParseProgram_SliceWithStep(t *testing.T) {
	prog, err := ParseProgram("y = s[1:10:2]\n")
	require.NoError(t, err)
	assign := prog.Statements[0].(*ast.AssignStatement)
	sub, ok := assign.Value.(*ast.SubscriptExpression)
	require.True(t, ok)
	require.NotNil(t, sub.Slice)
	assert.NotNil(t, sub.Slice.Start)
	assert.NotNil(t, sub.Slice.Stop)
	assert.NotNil(t, sub.Slice.Step)
}

func TestParseProgram_TryExceptWithMultipleKinds(t *testing.T) {
	prog, err := ParseProgram("try:\n    pass\nexcept (KeyError, IndexError) as e:\n    pass\n")
	require.NoError(t, err)
	tryStmt, ok := prog.Statements[0].(*ast.TryStatement)
	require.True(t, ok)
	require.Len(t, tryStmt.Handlers, 1)
	assert.Equal(t, []string{"KeyError", "IndexError"}, tryStmt.Handlers[0].Kinds)
	assert.Equal(t, "e", tryStmt.Handlers[0].As)
}

func TestParseProgram_WhileIsForbiddenAtParseTime(t *testing.T) {
	_, err := ParseProgram("while True:\n    pass\n")
	require.Error(t, err)
}
