package session

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daios-rlm/pyrepl/internal/object"
)

func newTestSession(context, query string) *Session {
	return New(context, query, object.DefaultLimits())
}

// TestExecute_E1_FindIndexOfStrippedQuery mirrors spec scenario E1.
func TestExecute_E1_FindIndexOfStrippedQuery(t *testing.T) {
	s := newTestSession("Hello WORLD", "  world  ")
	out := s.Execute(ExecuteInput{Code: "s = query.strip()\nidx = context.lower().find(s.lower())\nprint(idx)\n"})
	require.True(t, out.OK)
	assert.Equal(t, "6\n", out.Output)
	assert.Nil(t, out.Error)
}

// TestExecute_E2_EmptyProgram mirrors spec scenario E2.
func TestExecute_E2_EmptyProgram(t *testing.T) {
	s := newTestSession("", "")
	out := s.Execute(ExecuteInput{Code: ""})
	require.True(t, out.OK)
	assert.Equal(t, "No code to execute", out.Output)
}

// TestExecute_E3_BareExprEchoesEmptyString mirrors spec scenario E3.
func TestExecute_E3_BareExprEchoesEmptyString(t *testing.T) {
	s := newTestSession("abc", "")
	out := s.Execute(ExecuteInput{Code: "query"})
	require.True(t, out.OK)
	assert.Equal(t, "''", out.Output)
}

// TestExecute_E4_RegexSearchWithFlags mirrors spec scenario E4.
func TestExecute_E4_RegexSearchWithFlags(t *testing.T) {
	s := newTestSession("key-8 special magic number 42\nmore text", "")
	code := "m = re.search(r'key-8.*?(\\d+)', context, flags=re.IGNORECASE|re.DOTALL)\nprint(m.group(1))\n"
	out := s.Execute(ExecuteInput{Code: code})
	require.True(t, out.OK, "error: %+v", out.Error)
	assert.Equal(t, "42\n", out.Output)
}

// TestExecute_E5_ImportIsNoOpBase64Decode mirrors spec scenario E5.
func TestExecute_E5_ImportIsNoOpBase64Decode(t *testing.T) {
	s := newTestSession("", "aGVsbG8=")
	out := s.Execute(ExecuteInput{Code: "import base64\nprint(base64.b64decode(query).decode('utf-8'))\n"})
	require.True(t, out.OK, "error: %+v", out.Error)
	assert.Equal(t, "hello\n", out.Output)
}

// TestExecute_E6_OpenIsForbiddenName mirrors spec scenario E6.
func TestExecute_E6_OpenIsForbiddenName(t *testing.T) {
	s := newTestSession("", "")
	out := s.Execute(ExecuteInput{Code: "open('/etc/passwd')"})
	require.False(t, out.OK)
	require.NotNil(t, out.Error)
	assert.Equal(t, "ForbiddenName", out.Error.Kind)
}

// TestExecute_E7_ErrorStatePersistsUpToFailure mirrors spec scenario E7.
func TestExecute_E7_ErrorStatePersistsUpToFailure(t *testing.T) {
	s := newTestSession("", "")
	out := s.Execute(ExecuteInput{Code: "x = 1\ny = x + undefined\nprint(x)"})
	require.False(t, out.OK)
	require.NotNil(t, out.Error)
	assert.Equal(t, "NameError", out.Error.Kind)

	verify := s.Execute(ExecuteInput{Code: "print(x)"})
	require.True(t, verify.OK, "error: %+v", verify.Error)
	assert.Equal(t, "1\n", verify.Output)
}

// TestExecute_E8_ZlibOutputCeiling mirrors spec scenario E8.
func TestExecute_E8_ZlibOutputCeiling(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	chunk := bytes.Repeat([]byte{'a'}, 1<<20)
	for i := 0; i < 2; i++ {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	s := newTestSession("", "")
	b64 := encodeBase64(buf.Bytes())
	code := "import zlib, base64\nzlib.decompress(base64.b64decode('" + b64 + "'))\n"
	out := s.Execute(ExecuteInput{Code: code})
	require.False(t, out.OK)
	require.NotNil(t, out.Error)
	assert.Equal(t, "ResourceLimitExceeded", out.Error.Kind)
}

func encodeBase64(b []byte) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	var out []byte
	for i := 0; i < len(b); i += 3 {
		var n uint32
		rem := len(b) - i
		n = uint32(b[i]) << 16
		if rem > 1 {
			n |= uint32(b[i+1]) << 8
		}
		if rem > 2 {
			n |= uint32(b[i+2])
		}
		out = append(out, alphabet[(n>>18)&0x3f], alphabet[(n>>12)&0x3f])
		if rem > 1 {
			out = append(out, alphabet[(n>>6)&0x3f])
		} else {
			out = append(out, '=')
		}
		if rem > 2 {
			out = append(out, alphabet[n&0x3f])
		} else {
			out = append(out, '=')
		}
	}
	return string(out)
}

func TestExecute_StatePersistsAcrossCalls(t *testing.T) {
	s := newTestSession("", "")
	first := s.Execute(ExecuteInput{Code: "total = 0\nfor i in range(5):\n    total += i\n"})
	require.True(t, first.OK, "error: %+v", first.Error)

	second := s.Execute(ExecuteInput{Code: "print(total)"})
	require.True(t, second.OK, "error: %+v", second.Error)
	assert.Equal(t, "10\n", second.Output)
}

func TestExecute_FunctionDefinitionPersists(t *testing.T) {
	s := newTestSession("", "")
	first := s.Execute(ExecuteInput{Code: "def double(x):\n    return x * 2\n"})
	require.True(t, first.OK, "error: %+v", first.Error)

	second := s.Execute(ExecuteInput{Code: "print(double(21))"})
	require.True(t, second.OK, "error: %+v", second.Error)
	assert.Equal(t, "42\n", second.Output)
}

func TestExecute_OutputTruncationMarker(t *testing.T) {
	s := newTestSession("", "")
	out := s.Execute(ExecuteInput{
		Code:           "print('a' * 50)",
		MaxOutputChars: 10,
	})
	require.True(t, out.OK, "error: %+v", out.Error)
	assert.Contains(t, out.Output, "[Output truncated:")
}

func TestExecute_SyntaxErrorLeavesEnvironmentUnchanged(t *testing.T) {
	s := newTestSession("", "")
	pre := s.Execute(ExecuteInput{Code: "x = 5"})
	require.True(t, pre.OK)

	out := s.Execute(ExecuteInput{Code: "def bad(:\n"})
	require.False(t, out.OK)
	require.NotNil(t, out.Error)
	assert.Equal(t, "SyntaxError", out.Error.Kind)

	verify := s.Execute(ExecuteInput{Code: "print(x)"})
	require.True(t, verify.OK, "error: %+v", verify.Error)
	assert.Equal(t, "5\n", verify.Output)
}

func TestExecute_CodeFenceStripping(t *testing.T) {
	s := newTestSession("", "")
	out := s.Execute(ExecuteInput{Code: "```python\nprint(1 + 1)\n```"})
	require.True(t, out.OK, "error: %+v", out.Error)
	assert.Equal(t, "2\n", out.Output)
}

// TestExecute_ComprehensionDoesNotLeakEnclosingLocal guards the §4.3
// comprehension-scoping quirk: the element expression sees only names
// its for-clauses bind or iterate over, plus globals, never an
// enclosing function's locals that are not named by a for-clause.
func TestExecute_ComprehensionDoesNotLeakEnclosingLocal(t *testing.T) {
	s := newTestSession("", "")
	out := s.Execute(ExecuteInput{Code: "def f():\n    x = 5\n    return [x for i in range(3)]\nprint(f())\n"})
	require.False(t, out.OK)
	require.NotNil(t, out.Error)
	assert.Equal(t, "NameError", out.Error.Kind)
}

// TestExecute_ComprehensionSeesLoopTarget is the positive counterpart:
// a name bound by the for-clause target is always visible in the
// element expression.
func TestExecute_ComprehensionSeesLoopTarget(t *testing.T) {
	s := newTestSession("", "")
	out := s.Execute(ExecuteInput{Code: "print([y * 2 for y in range(3)])\n"})
	require.True(t, out.OK, "error: %+v", out.Error)
	assert.Equal(t, "[0, 2, 4]\n", out.Output)
}

// TestExecute_RangeRespectsMaxListSize guards the §4.5/§8 resource
// ceiling on range(): it must not silently exceed max_list_size.
func TestExecute_RangeRespectsMaxListSize(t *testing.T) {
	s := newTestSession("", "")
	out := s.Execute(ExecuteInput{Code: "range(1000001)\n"})
	require.False(t, out.OK)
	require.NotNil(t, out.Error)
	assert.Equal(t, "ValueError", out.Error.Kind)
}

func TestSnapshot_JSONRoundTripPreservesBindingsAndFunctions(t *testing.T) {
	s := newTestSession("", "")
	setup := s.Execute(ExecuteInput{Code: "nums = [1, 2, 3]\ndef triple(x):\n    return x * 3\n"})
	require.True(t, setup.OK, "error: %+v", setup.Error)

	data, err := json.Marshal(setup.State)
	require.NoError(t, err)

	var restored Snapshot
	require.NoError(t, json.Unmarshal(data, &restored))

	s2 := newTestSession("", "")
	out := s2.Execute(ExecuteInput{Code: "print(nums)\nprint(triple(4))", State: &restored})
	require.True(t, out.OK, "error: %+v", out.Error)
	assert.Equal(t, "[1, 2, 3]\n12\n", out.Output)
}
