package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daios-rlm/pyrepl/internal/object"
	"github.com/daios-rlm/pyrepl/internal/parser"
)

func validateSource(t *testing.T, src string) *Violation {
	t.Helper()
	prog, err := parser.ParseProgram(src)
	require.NoError(t, err)
	return Validate(prog, Limits{MaxASTNodes: 10000})
}

func TestValidate_PlainProgramIsAccepted(t *testing.T) {
	viol := validateSource(t, "x = 1\ny = x + 2\nprint(y)\n")
	assert.Nil(t, viol)
}

func TestValidate_DunderNameIsForbidden(t *testing.T) {
	viol := validateSource(t, "__x = 1\n")
	require.NotNil(t, viol)
	assert.Equal(t, object.ForbiddenName, viol.Kind)
}

func TestValidate_DunderAttributeAccessIsForbidden(t *testing.T) {
	viol := validateSource(t, "x = (1).__class__\n")
	require.NotNil(t, viol)
	assert.Equal(t, object.ForbiddenName, viol.Kind)
}

func TestValidate_DunderFunctionNameIsForbidden(t *testing.T) {
	viol := validateSource(t, "def __f():\n    pass\n")
	require.NotNil(t, viol)
	assert.Equal(t, object.ForbiddenName, viol.Kind)
}

func TestValidate_DunderParamNameIsForbidden(t *testing.T) {
	viol := validateSource(t, "def f(__x):\n    pass\n")
	require.NotNil(t, viol)
	assert.Equal(t, object.ForbiddenName, viol.Kind)
}

func TestValidate_DunderExceptBindingIsForbidden(t *testing.T) {
	viol := validateSource(t, "try:\n    pass\nexcept ValueError as __e:\n    pass\n")
	require.NotNil(t, viol)
	assert.Equal(t, object.ForbiddenName, viol.Kind)
}

func TestValidate_ForbiddenBuiltinCallIsForbidden(t *testing.T) {
	for _, name := range []string{"eval", "exec", "getattr", "open", "type"} {
		viol := validateSource(t, name+"(1)\n")
		require.NotNil(t, viol, "expected violation calling %s", name)
		assert.Equal(t, object.ForbiddenName, viol.Kind)
	}
}

func TestValidate_AttributeAssignmentIsForbidden(t *testing.T) {
	viol := validateSource(t, "x.y = 1\n")
	require.NotNil(t, viol)
	assert.Equal(t, object.ForbiddenSyntax, viol.Kind)
}

func TestValidate_TupleUnpackAssignmentTargetsAreChecked(t *testing.T) {
	viol := validateSource(t, "a, __b = 1, 2\n")
	require.NotNil(t, viol)
	assert.Equal(t, object.ForbiddenName, viol.Kind)
}

func TestValidate_ResourceLimitExceededOnTooManyNodes(t *testing.T) {
	prog, err := parser.ParseProgram("x = 1 + 1\n")
	require.NoError(t, err)
	viol := Validate(prog, Limits{MaxASTNodes: 1})
	require.NotNil(t, viol)
	assert.Equal(t, object.ResourceLimitExceeded, viol.Kind)
}

func TestAttrPermitted_TableMatchesExpectedShape(t *testing.T) {
	assert.True(t, AttrPermitted(object.STRING, "strip"))
	assert.True(t, AttrPermitted(object.DICT, "items"))
	assert.False(t, AttrPermitted(object.STRING, "__class__"))
	assert.False(t, AttrPermitted(object.INTEGER, "keys"))
}
