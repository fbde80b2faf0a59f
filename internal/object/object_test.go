package object

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString_DisplayQuotesInspectDoesNot(t *testing.T) {
	s := &String{Value: "hi"}
	assert.Equal(t, "hi", s.Inspect())
	assert.Equal(t, "'hi'", s.Display())
}

func TestString_DisplayPrefersSingleQuoteUnlessStringContainsOne(t *testing.T) {
	assert.Equal(t, `"it's"`, (&String{Value: "it's"}).Display())
	assert.Equal(t, `'plain'`, (&String{Value: "plain"}).Display())
}

func TestBytes_DisplayEscapesNonPrintable(t *testing.T) {
	b := &Bytes{Value: []byte{'a', 0, '\n', 0xff}}
	assert.Equal(t, `b'a\x00\n\xff'`, b.Display())
}

func TestTuple_DisplaySingletonHasTrailingComma(t *testing.T) {
	tup := &Tuple{Elements: []Value{NewInt(1)}}
	assert.Equal(t, "(1,)", tup.Display())
}

func TestTuple_DisplayMultipleElements(t *testing.T) {
	tup := &Tuple{Elements: []Value{NewInt(1), NewInt(2)}}
	assert.Equal(t, "(1, 2)", tup.Display())
}

func TestDictKey_RoundTripsThroughDictKeyToValue(t *testing.T) {
	for _, v := range []Value{&String{Value: "k"}, NewInt(42), TRUE, FALSE, NULL} {
		k, ok := DictKey(v)
		assert.True(t, ok)
		got := DictKeyToValue(k)
		assert.Equal(t, v.Display(), got.Display())
	}
}

func TestDictKey_BooleanCollidesWithIntegerByDesign(t *testing.T) {
	kTrue, _ := DictKey(TRUE)
	kOne, _ := DictKey(NewInt(1))
	assert.Equal(t, kOne, kTrue)
}

func TestDictKey_UnhashableValueIsRejected(t *testing.T) {
	_, ok := DictKey(&List{})
	assert.False(t, ok)
}

func TestDict_SetGetDeletePreservesInsertionOrder(t *testing.T) {
	d := NewDict()
	d.Set("s:b", &String{Value: "B"})
	d.Set("s:a", &String{Value: "A"})
	assert.Equal(t, []string{"s:b", "s:a"}, d.Keys())
	d.Delete("s:b")
	assert.Equal(t, []string{"s:a"}, d.Keys())
	_, ok := d.Get("s:b")
	assert.False(t, ok)
}

func TestSet_AddIsIdempotentForDuplicateKeys(t *testing.T) {
	s := NewSet()
	s.Add("i:1", NewInt(1))
	s.Add("i:1", NewInt(1))
	s.Add("i:2", NewInt(2))
	assert.Equal(t, 2, s.Len())
}

func TestTruthy_MatchesPythonTruthiness(t *testing.T) {
	assert.False(t, Truthy(NULL))
	assert.False(t, Truthy(FALSE))
	assert.False(t, Truthy(NewInt(0)))
	assert.False(t, Truthy(&String{Value: ""}))
	assert.False(t, Truthy(&List{}))
	assert.True(t, Truthy(NewInt(1)))
	assert.True(t, Truthy(&String{Value: "x"}))
	assert.True(t, Truthy(&List{Elements: []Value{NULL}}))
}

func TestMatch_InspectTruncatesLongMatchedText(t *testing.T) {
	long := ""
	for i := 0; i < matchReprWidth+10; i++ {
		long += "a"
	}
	m := &Match{Groups: []*string{&long}, Starts: []int{0}, Ends: []int{len(long)}}
	out := m.Inspect()
	assert.Contains(t, out, "...")
}

func TestMatch_GroupReturnsFalseForUnparticipatingGroup(t *testing.T) {
	m := &Match{Groups: []*string{stringPtr("whole"), nil}}
	_, ok := m.Group(1)
	assert.False(t, ok)
	v, ok := m.Group(0)
	assert.True(t, ok)
	assert.Equal(t, "whole", v)
}

func stringPtr(s string) *string { return &s }

func TestInteger_DisplayUsesArbitraryPrecision(t *testing.T) {
	big64, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	i := &Integer{Value: big64}
	assert.Equal(t, "123456789012345678901234567890", i.Display())
}
