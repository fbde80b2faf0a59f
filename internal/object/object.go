// Package object implements the runtime value universe described by the
// interpreter's data model: a closed tagged union of String, Bytes,
// Integer, Boolean, Null, List, Dict, Tuple, Match, Callable, and
// Module values, plus the lexical Environment that holds them.
package object

import (
	"fmt"
	"math/big"
	"strings"
)

// Type tags every runtime value.
type Type string

const (
	STRING   Type = "str"
	BYTES    Type = "bytes"
	INTEGER  Type = "int"
	BOOLEAN  Type = "bool"
	NULLTYPE Type = "NoneType"
	LIST     Type = "list"
	DICT     Type = "dict"
	TUPLE    Type = "tuple"
	SET      Type = "set"
	MATCH    Type = "match"
	BUILTIN  Type = "builtin_function"
	FUNCTION Type = "function"
	MODULE   Type = "module"
)

// Value is satisfied by every runtime value. Display is the repr-style
// form used when the value is nested inside a list/tuple/dict; Inspect
// is the form used for the bare-expression echo and print(str(x)).
type Value interface {
	Type() Type
	Display() string
	Inspect() string
}

// String is immutable UTF-8 text.
type String struct{ Value string }

func (s *String) Type() Type        { return STRING }
func (s *String) Inspect() string   { return s.Value }
func (s *String) Display() string   { return pyQuote(s.Value) }

// Bytes is an immutable octet sequence.
type Bytes struct{ Value []byte }

func (b *Bytes) Type() Type      { return BYTES }
func (b *Bytes) Inspect() string { return b.Display() }
func (b *Bytes) Display() string {
	var sb strings.Builder
	sb.WriteString("b'")
	for _, c := range b.Value {
		switch c {
		case '\\':
			sb.WriteString(`\\`)
		case '\'':
			sb.WriteString(`\'`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c >= 0x20 && c < 0x7f {
				sb.WriteByte(c)
			} else {
				fmt.Fprintf(&sb, `\x%02x`, c)
			}
		}
	}
	sb.WriteString("'")
	return sb.String()
}

// Integer is an arbitrary-precision signed integer; the big.Int backing
// guarantees the spec's "must not wrap silently" requirement trivially.
type Integer struct{ Value *big.Int }

func NewInt(i int64) *Integer { return &Integer{Value: big.NewInt(i)} }

func (i *Integer) Type() Type      { return INTEGER }
func (i *Integer) Inspect() string { return i.Value.String() }
func (i *Integer) Display() string { return i.Value.String() }

// Boolean is distinct from Integer for display purposes even though it
// participates in integer arithmetic like Python's bool.
type Boolean struct{ Value bool }

var (
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

func NativeBoolToBoolean(v bool) *Boolean {
	if v {
		return TRUE
	}
	return FALSE
}

func (b *Boolean) Type() Type { return BOOLEAN }
func (b *Boolean) Inspect() string {
	if b.Value {
		return "True"
	}
	return "False"
}
func (b *Boolean) Display() string { return b.Inspect() }

// Null has a single inhabitant.
type Null struct{}

var NULL = &Null{}

func (n *Null) Type() Type      { return NULLTYPE }
func (n *Null) Inspect() string { return "None" }
func (n *Null) Display() string { return "None" }

// List is a mutable ordered sequence.
type List struct{ Elements []Value }

func (l *List) Type() Type      { return LIST }
func (l *List) Display() string { return displaySeq("[", "]", l.Elements) }
func (l *List) Inspect() string { return l.Display() }

// Tuple is an immutable ordered sequence, distinct from List.
type Tuple struct{ Elements []Value }

func (t *Tuple) Type() Type { return TUPLE }
func (t *Tuple) Display() string {
	if len(t.Elements) == 1 {
		return "(" + t.Elements[0].Display() + ",)"
	}
	return displaySeq("(", ")", t.Elements)
}
func (t *Tuple) Inspect() string { return t.Display() }

// Set is a mutable, order-insensitive collection (display uses
// insertion order for determinism, matching this interpreter's
// no-hash-order-dependence guarantee).
type Set struct {
	order []string
	items map[string]Value
}

func NewSet() *Set { return &Set{items: make(map[string]Value)} }

func (s *Set) Add(key string, v Value) {
	if _, ok := s.items[key]; !ok {
		s.order = append(s.order, key)
	}
	s.items[key] = v
}

func (s *Set) Len() int { return len(s.order) }

func (s *Set) Elements() []Value {
	out := make([]Value, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.items[k])
	}
	return out
}

func (s *Set) Type() Type      { return SET }
func (s *Set) Display() string { return displaySeq("{", "}", s.Elements()) }
func (s *Set) Inspect() string { return s.Display() }

// Dict maps String keys to Value, preserving insertion order.
type Dict struct {
	order []string
	items map[string]Value
}

func NewDict() *Dict { return &Dict{items: make(map[string]Value)} }

func (d *Dict) Set(key string, v Value) {
	if _, ok := d.items[key]; !ok {
		d.order = append(d.order, key)
	}
	d.items[key] = v
}

func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.items[key]
	return v, ok
}

func (d *Dict) Delete(key string) {
	if _, ok := d.items[key]; !ok {
		return
	}
	delete(d.items, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *Dict) Keys() []string { return d.order }
func (d *Dict) Len() int       { return len(d.order) }

func (d *Dict) Type() Type { return DICT }
func (d *Dict) Display() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range d.order {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(DictKeyToValue(k).Display())
		sb.WriteString(": ")
		sb.WriteString(d.items[k].Display())
	}
	sb.WriteByte('}')
	return sb.String()
}

// DictKey encodes v as the internal string key backing Dict's map,
// prefixing the key with its kind so that e.g. the string "1" and the
// integer 1 stay distinct. Booleans share the integer keys, so True and
// 1 name the same entry. Returns ok=false for a value kind that cannot
// serve as a dict key.
func DictKey(v Value) (string, bool) {
	switch x := v.(type) {
	case *String:
		return "s:" + x.Value, true
	case *Integer:
		return "i:" + x.Value.String(), true
	case *Boolean:
		if x.Value {
			return "i:1", true
		}
		return "i:0", true
	case *Null:
		return "n:", true
	default:
		return "", false
	}
}

// DictKeyToValue reverses DictKey, used to render a Dict's keys back
// as Values for display, iteration, and keys()/items().
func DictKeyToValue(k string) Value {
	if len(k) < 2 {
		return &String{Value: k}
	}
	prefix, rest := k[:2], k[2:]
	switch prefix {
	case "s:":
		return &String{Value: rest}
	case "i:":
		n := NewInt(0)
		n.Value.SetString(rest, 10)
		return n
	case "n:":
		return NULL
	default:
		return &String{Value: k}
	}
}
func (d *Dict) Inspect() string { return d.Display() }

// Match holds the original subject and capture-group slots produced by
// a regex search. Groups[0] is always the whole match.
type Match struct {
	Subject string
	Groups  []*string // nil entry means an unmatched optional group
	Starts  []int
	Ends    []int
	Names   map[string]int
}

const matchReprWidth = 50

func (m *Match) Type() Type { return MATCH }
func (m *Match) Display() string {
	return m.Inspect()
}
func (m *Match) Inspect() string {
	matched := ""
	if len(m.Groups) > 0 && m.Groups[0] != nil {
		matched = *m.Groups[0]
	}
	if len(matched) > matchReprWidth {
		matched = matched[:matchReprWidth] + "..."
	}
	start, end := 0, 0
	if len(m.Starts) > 0 {
		start, end = m.Starts[0], m.Ends[0]
	}
	return fmt.Sprintf("<re.Match object; span=(%d, %d), match=%s>", start, end, pyQuote(matched))
}

// Group returns group n, or ("", false) if it did not participate.
func (m *Match) Group(n int) (string, bool) {
	if n < 0 || n >= len(m.Groups) || m.Groups[n] == nil {
		return "", false
	}
	return *m.Groups[n], true
}

// Builtin is a native function closure bound in session globals; it is
// never overridable by user code in that frame (builtins are bound with
// Environment.SetFrozen, so assigning to one of their names there is a
// TypeError at run time).
type Builtin struct {
	Name string
	Fn   func(ctx CallCtx, args []Value) (Value, *InterpError)
	// ParamNames names this builtin's positional parameters in order,
	// enabling §4.4's trailing keyword arguments (`flags=0`,
	// `maxsplit=0`, `count=0`, `wbits=15`) to be bound by name at the
	// call site. nil means the builtin is positional-only; a keyword
	// argument to such a builtin is a TypeError.
	ParamNames []string
	// FnKW is set instead of Fn for builtins that take both a variable
	// number of positional arguments and trailing keywords (print's
	// sep/end), which ParamNames' fixed-arity binding cannot express.
	// When set, it takes priority over Fn.
	FnKW func(ctx CallCtx, args []Value, kwargs map[string]Value) (Value, *InterpError)
}

func (b *Builtin) Type() Type      { return BUILTIN }
func (b *Builtin) Inspect() string { return fmt.Sprintf("<built-in function %s>", b.Name) }
func (b *Builtin) Display() string { return b.Inspect() }

// Function is a user-defined function: parameters, body, and the
// environment captured at definition time.
type Function struct {
	Name    string
	Params  []string
	Body    interface{} // *ast.BlockStatement; typed as interface{} to avoid an import cycle
	Env     *Environment
}

func (f *Function) Type() Type { return FUNCTION }
func (f *Function) Inspect() string {
	if f.Name != "" {
		return fmt.Sprintf("<function %s>", f.Name)
	}
	return "<function <anonymous>>"
}
func (f *Function) Display() string { return f.Inspect() }

// Module is a frozen mapping of name to Value exposing a curated subset
// of a standard module. Attribute assignment on a Module (as on any
// value) is rejected by the validator as ForbiddenSyntax before
// evaluation begins.
type Module struct {
	Name    string
	Exports map[string]Value
}

func (m *Module) Type() Type      { return MODULE }
func (m *Module) Inspect() string { return fmt.Sprintf("<module '%s'>", m.Name) }
func (m *Module) Display() string { return m.Inspect() }

func (m *Module) Get(name string) (Value, bool) {
	v, ok := m.Exports[name]
	return v, ok
}

func displaySeq(open, close string, elems []Value) string {
	var sb strings.Builder
	sb.WriteString(open)
	for i, e := range elems {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.Display())
	}
	sb.WriteString(close)
	return sb.String()
}

// pyQuote renders a string the way Python's repr() does: single-quoted
// unless the string contains a single quote and no double quote.
func pyQuote(s string) string {
	quote := byte('\'')
	if strings.Contains(s, "'") && !strings.Contains(s, "\"") {
		quote = '"'
	}
	var sb strings.Builder
	sb.WriteByte(quote)
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case rune(quote):
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}

// Truthy implements Python-style truthiness for the permitted value
// kinds.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case *Null:
		return false
	case *Boolean:
		return x.Value
	case *Integer:
		return x.Value.Sign() != 0
	case *String:
		return x.Value != ""
	case *Bytes:
		return len(x.Value) != 0
	case *List:
		return len(x.Elements) != 0
	case *Tuple:
		return len(x.Elements) != 0
	case *Set:
		return x.Len() != 0
	case *Dict:
		return x.Len() != 0
	default:
		return true
	}
}

// CallCtx is the bridge between a builtin's native Go implementation and
// the calling evaluator, mirroring the teacher's EvaluatorContext
// capability-passing pattern: builtins receive just enough surface to
// call back into user functions without being handed the whole
// evaluator.
type CallCtx interface {
	Apply(fn Value, args []Value) (Value, *InterpError)
	NewError(kind ErrorKind, format string, a ...interface{}) *InterpError
	Step() *InterpError
	Limits() Limits
	Print(s string)
}

// Limits is the resource-ceiling table from the spec's Session section.
type Limits struct {
	MaxCodeChars       int
	MaxOutputChars      int
	MaxASTNodes         int
	MaxSteps            int
	MaxStringSize       int
	MaxZlibOutputBytes  int
	MaxListSize         int
}

// DefaultLimits returns the defaults from the Session resource-limit
// table.
func DefaultLimits() Limits {
	return Limits{
		MaxCodeChars:       20000,
		MaxOutputChars:     2000,
		MaxASTNodes:        50000,
		MaxSteps:           200000,
		MaxStringSize:      10000000,
		MaxZlibOutputBytes: 1000000,
		MaxListSize:        1000000,
	}
}
