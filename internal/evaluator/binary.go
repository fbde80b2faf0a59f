package evaluator

import (
	"math/big"
	"strings"

	"github.com/daios-rlm/pyrepl/internal/object"
)

// applyBinary implements every infix operator the grammar accepts:
// arithmetic and bitwise on Integer, + on String/List/Tuple, * on
// String/List, %
// string formatting, and the comparison/membership/identity family.
// Integer arithmetic is overflow-safe by construction since Integer is
// backed by math/big.
func (e *Evaluator) applyBinary(op string, left, right object.Value) (object.Value, *object.InterpError) {
	switch op {
	case "+":
		return e.opAdd(left, right)
	case "-":
		return e.intOp(op, left, right, func(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) })
	case "*":
		return e.opMul(left, right)
	case "%":
		return e.opMod(left, right)
	case "|":
		return e.intOp(op, left, right, func(a, b *big.Int) *big.Int { return new(big.Int).Or(a, b) })
	case "&":
		return e.intOp(op, left, right, func(a, b *big.Int) *big.Int { return new(big.Int).And(a, b) })
	case "==":
		return object.NativeBoolToBoolean(valuesEqual(left, right)), nil
	case "!=":
		return object.NativeBoolToBoolean(!valuesEqual(left, right)), nil
	case "<", "<=", ">", ">=":
		return e.compare(op, left, right)
	case "in":
		return e.opIn(left, right, false)
	case "not in":
		return e.opIn(left, right, true)
	case "is":
		return object.NativeBoolToBoolean(sameIdentity(left, right)), nil
	case "is not":
		return object.NativeBoolToBoolean(!sameIdentity(left, right)), nil
	default:
		return nil, e.NewError(object.ForbiddenSyntax, "unsupported operator %q", op)
	}
}

func asInt(v object.Value) (*big.Int, bool) {
	switch x := v.(type) {
	case *object.Integer:
		return x.Value, true
	case *object.Boolean:
		if x.Value {
			return big.NewInt(1), true
		}
		return big.NewInt(0), true
	default:
		return nil, false
	}
}

func (e *Evaluator) intOp(op string, left, right object.Value, fn func(a, b *big.Int) *big.Int) (object.Value, *object.InterpError) {
	a, ok1 := asInt(left)
	b, ok2 := asInt(right)
	if !ok1 || !ok2 {
		return nil, e.NewError(object.TypeError, "unsupported operand type(s) for %s: '%s' and '%s'", op, left.Type(), right.Type())
	}
	return &object.Integer{Value: fn(a, b)}, nil
}

func (e *Evaluator) opAdd(left, right object.Value) (object.Value, *object.InterpError) {
	if a, ok := asInt(left); ok {
		if b, ok := asInt(right); ok {
			return &object.Integer{Value: new(big.Int).Add(a, b)}, nil
		}
	}
	switch l := left.(type) {
	case *object.String:
		r, ok := right.(*object.String)
		if !ok {
			return nil, e.NewError(object.TypeError, "can only concatenate str (not '%s') to str", right.Type())
		}
		if len(l.Value)+len(r.Value) > e.limits.MaxStringSize {
			return nil, e.NewError(object.ValueError, "string concatenation result exceeds the maximum permitted size")
		}
		return &object.String{Value: l.Value + r.Value}, nil
	case *object.List:
		r, ok := right.(*object.List)
		if !ok {
			return nil, e.NewError(object.TypeError, "can only concatenate list (not '%s') to list", right.Type())
		}
		if len(l.Elements)+len(r.Elements) > e.limits.MaxListSize {
			return nil, e.NewError(object.ValueError, "list concatenation result exceeds the maximum permitted size")
		}
		out := make([]object.Value, 0, len(l.Elements)+len(r.Elements))
		out = append(out, l.Elements...)
		out = append(out, r.Elements...)
		return &object.List{Elements: out}, nil
	case *object.Tuple:
		r, ok := right.(*object.Tuple)
		if !ok {
			return nil, e.NewError(object.TypeError, "can only concatenate tuple (not '%s') to tuple", right.Type())
		}
		out := make([]object.Value, 0, len(l.Elements)+len(r.Elements))
		out = append(out, l.Elements...)
		out = append(out, r.Elements...)
		return &object.Tuple{Elements: out}, nil
	case *object.Bytes:
		r, ok := right.(*object.Bytes)
		if !ok {
			return nil, e.NewError(object.TypeError, "can only concatenate bytes (not '%s') to bytes", right.Type())
		}
		out := make([]byte, 0, len(l.Value)+len(r.Value))
		out = append(out, l.Value...)
		out = append(out, r.Value...)
		return &object.Bytes{Value: out}, nil
	default:
		return nil, e.NewError(object.TypeError, "unsupported operand type(s) for +: '%s' and '%s'", left.Type(), right.Type())
	}
}

func (e *Evaluator) opMul(left, right object.Value) (object.Value, *object.InterpError) {
	if a, ok := asInt(left); ok {
		if b, ok := asInt(right); ok {
			return &object.Integer{Value: new(big.Int).Mul(a, b)}, nil
		}
	}
	str, n, swapErr := stringRepeatOperands(left, right)
	if swapErr == nil {
		if len(str)*n > e.limits.MaxStringSize {
			return nil, e.NewError(object.ValueError, "string repetition result exceeds the maximum permitted size")
		}
		return &object.String{Value: strings.Repeat(str, n)}, nil
	}
	if lst, n, ok := listRepeatOperands(left, right); ok {
		if len(lst)*n > e.limits.MaxListSize {
			return nil, e.NewError(object.ValueError, "list repetition result exceeds the maximum permitted size")
		}
		out := make([]object.Value, 0, len(lst)*n)
		for i := 0; i < n; i++ {
			out = append(out, lst...)
		}
		return &object.List{Elements: out}, nil
	}
	return nil, e.NewError(object.TypeError, "unsupported operand type(s) for *: '%s' and '%s'", left.Type(), right.Type())
}

func stringRepeatOperands(left, right object.Value) (string, int, error) {
	if s, ok := left.(*object.String); ok {
		if n, ok := asInt(right); ok {
			return s.Value, intClampNonNeg(n), nil
		}
	}
	if s, ok := right.(*object.String); ok {
		if n, ok := asInt(left); ok {
			return s.Value, intClampNonNeg(n), nil
		}
	}
	return "", 0, errNotMatch
}

func listRepeatOperands(left, right object.Value) ([]object.Value, int, bool) {
	if l, ok := left.(*object.List); ok {
		if n, ok := asInt(right); ok {
			return l.Elements, intClampNonNeg(n), true
		}
	}
	if l, ok := right.(*object.List); ok {
		if n, ok := asInt(left); ok {
			return l.Elements, intClampNonNeg(n), true
		}
	}
	return nil, 0, false
}

func intClampNonNeg(n *big.Int) int {
	if n.Sign() < 0 {
		return 0
	}
	return int(n.Int64())
}

var errNotMatch = &matchErr{}

type matchErr struct{}

func (*matchErr) Error() string { return "operand mismatch" }

func (e *Evaluator) opMod(left, right object.Value) (object.Value, *object.InterpError) {
	if s, ok := left.(*object.String); ok {
		return e.formatPercent(s.Value, right)
	}
	a, ok1 := asInt(left)
	b, ok2 := asInt(right)
	if !ok1 || !ok2 {
		return nil, e.NewError(object.TypeError, "unsupported operand type(s) for %%: '%s' and '%s'", left.Type(), right.Type())
	}
	if b.Sign() == 0 {
		return nil, e.NewError(object.ZeroDivisionError, "modulo by zero")
	}
	m := new(big.Int).Mod(a, b)
	if m.Sign() != 0 && b.Sign() < 0 {
		m.Add(m, b)
	}
	return &object.Integer{Value: m}, nil
}

func (e *Evaluator) compare(op string, left, right object.Value) (object.Value, *object.InterpError) {
	if a, ok := asInt(left); ok {
		if b, ok := asInt(right); ok {
			return object.NativeBoolToBoolean(intCompare(op, a.Cmp(b))), nil
		}
	}
	if a, ok := left.(*object.String); ok {
		if b, ok := right.(*object.String); ok {
			return object.NativeBoolToBoolean(intCompare(op, strings.Compare(a.Value, b.Value))), nil
		}
	}
	return nil, e.NewError(object.TypeError, "'%s' not supported between instances of '%s' and '%s'", op, left.Type(), right.Type())
}

func intCompare(op string, c int) bool {
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func (e *Evaluator) opIn(left, right object.Value, negate bool) (object.Value, *object.InterpError) {
	found := false
	switch r := right.(type) {
	case *object.List:
		for _, v := range r.Elements {
			if valuesEqual(left, v) {
				found = true
				break
			}
		}
	case *object.Tuple:
		for _, v := range r.Elements {
			if valuesEqual(left, v) {
				found = true
				break
			}
		}
	case *object.Set:
		for _, v := range r.Elements() {
			if valuesEqual(left, v) {
				found = true
				break
			}
		}
	case *object.Dict:
		key, kerr := dictKey(e, left)
		if kerr != nil {
			return nil, kerr
		}
		_, found = r.Get(key)
	case *object.String:
		needle, ok := left.(*object.String)
		if !ok {
			return nil, e.NewError(object.TypeError, "'in <string>' requires string as left operand, not %s", left.Type())
		}
		found = strings.Contains(r.Value, needle.Value)
	default:
		return nil, e.NewError(object.TypeError, "argument of type '%s' is not iterable", right.Type())
	}
	if negate {
		found = !found
	}
	return object.NativeBoolToBoolean(found), nil
}

// valuesEqual implements structural equality for the permitted value
// kinds, matching Python's == for these types.
func valuesEqual(a, b object.Value) bool {
	if ai, ok := asInt(a); ok {
		if bi, ok := asInt(b); ok {
			return ai.Cmp(bi) == 0
		}
	}
	switch x := a.(type) {
	case *object.String:
		y, ok := b.(*object.String)
		return ok && x.Value == y.Value
	case *object.Bytes:
		y, ok := b.(*object.Bytes)
		return ok && string(x.Value) == string(y.Value)
	case *object.Null:
		_, ok := b.(*object.Null)
		return ok
	case *object.List:
		y, ok := b.(*object.List)
		return ok && valueSliceEqual(x.Elements, y.Elements)
	case *object.Tuple:
		y, ok := b.(*object.Tuple)
		return ok && valueSliceEqual(x.Elements, y.Elements)
	case *object.Dict:
		y, ok := b.(*object.Dict)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.Keys() {
			xv, _ := x.Get(k)
			yv, ok := y.Get(k)
			if !ok || !valuesEqual(xv, yv) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func valueSliceEqual(a, b []object.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// sameIdentity implements `is`/`is not`. Since this interpreter has no
// object identity concept beyond Go pointer equality for mutable types
// and value equality for the singletons (None/bool/small ints behave
// like CPython's interned small-int cache), fall back to value
// equality for the immutable scalar kinds and pointer equality for
// List/Dict/Set.
func sameIdentity(a, b object.Value) bool {
	switch a.(type) {
	case *object.Null, *object.Boolean, *object.Integer, *object.String:
		return valuesEqual(a, b)
	default:
		return a == b
	}
}
