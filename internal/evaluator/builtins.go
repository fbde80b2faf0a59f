package evaluator

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/daios-rlm/pyrepl/internal/object"
)

// InstallBuiltins binds the permitted free functions frozen into
// globals, the way the teacher's own interpreter seeds its global
// environment once at construction rather than looking builtins up
// through a separate registry at call time. Session calls this once
// when it creates a session's persistent globals frame.
func InstallBuiltins(globals *object.Environment) {
	globals.SetFrozen("print", &object.Builtin{Name: "print", FnKW: biPrint})
	for name, fn := range map[string]func(object.CallCtx, []object.Value) (object.Value, *object.InterpError){
		"len":       biLen,
		"max":       biMax,
		"min":       biMin,
		"sum":       biSum,
		"sorted":    biSorted,
		"reversed":  biReversed,
		"enumerate": biEnumerate,
		"range":     biRange,
		"str":       biStr,
		"int":       biInt,
		"bool":      biBool,
		"bytes":     biBytes,
		"list":      biList,
		"dict":      biDict,
		"tuple":     biTuple,
		"set":       biSet,
		"any":       biAny,
		"all":       biAll,
		"abs":       biAbs,
	} {
		globals.SetFrozen(name, &object.Builtin{Name: name, Fn: fn})
	}
}

// biPrint implements §4.3's print emulation: str-converted positional
// arguments joined by a configurable separator (default a single
// space), followed by a configurable terminator (default a newline).
// sep/end arrive through Builtin.FnKW since print also takes an
// arbitrary number of positional arguments, which the fixed-arity
// ParamNames binding used by the module builtins cannot express.
func biPrint(ctx object.CallCtx, args []object.Value, kwargs map[string]object.Value) (object.Value, *object.InterpError) {
	sep, end := " ", "\n"
	if v, ok := kwargs["sep"]; ok {
		s, ok2 := v.(*object.String)
		if !ok2 {
			return nil, ctx.NewError(object.TypeError, "sep must be None or a string")
		}
		sep = s.Value
	}
	if v, ok := kwargs["end"]; ok {
		s, ok2 := v.(*object.String)
		if !ok2 {
			return nil, ctx.NewError(object.TypeError, "end must be None or a string")
		}
		end = s.Value
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Inspect()
	}
	ctx.Print(strings.Join(parts, sep))
	ctx.Print(end)
	return object.NULL, nil
}

func biLen(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) != 1 {
		return nil, ctx.NewError(object.TypeError, "len() takes exactly one argument")
	}
	switch x := args[0].(type) {
	case *object.String:
		return object.NewInt(int64(len([]rune(x.Value)))), nil
	case *object.Bytes:
		return object.NewInt(int64(len(x.Value))), nil
	case *object.List:
		return object.NewInt(int64(len(x.Elements))), nil
	case *object.Tuple:
		return object.NewInt(int64(len(x.Elements))), nil
	case *object.Set:
		return object.NewInt(int64(x.Len())), nil
	case *object.Dict:
		return object.NewInt(int64(x.Len())), nil
	default:
		return nil, ctx.NewError(object.TypeError, "object of type '%s' has no len()", x.Type())
	}
}

func toElements(ctx object.CallCtx, v object.Value, fn string) ([]object.Value, *object.InterpError) {
	switch x := v.(type) {
	case *object.List:
		return x.Elements, nil
	case *object.Tuple:
		return x.Elements, nil
	case *object.Set:
		return x.Elements(), nil
	case *object.String:
		runes := []rune(x.Value)
		out := make([]object.Value, len(runes))
		for i, r := range runes {
			out[i] = &object.String{Value: string(r)}
		}
		return out, nil
	case *object.Dict:
		out := make([]object.Value, 0, x.Len())
		for _, k := range x.Keys() {
			out = append(out, object.DictKeyToValue(k))
		}
		return out, nil
	default:
		return nil, ctx.NewError(object.TypeError, "%s() argument must be iterable", fn)
	}
}

func biMax(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	return minmax(ctx, args, "max", false)
}

func biMin(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	return minmax(ctx, args, "min", true)
}

func minmax(ctx object.CallCtx, args []object.Value, name string, wantMin bool) (object.Value, *object.InterpError) {
	var elems []object.Value
	if len(args) == 1 {
		var err *object.InterpError
		elems, err = toElements(ctx, args[0], name)
		if err != nil {
			return nil, err
		}
	} else {
		elems = args
	}
	if len(elems) == 0 {
		return nil, ctx.NewError(object.ValueError, "%s() arg is an empty sequence", name)
	}
	best := elems[0]
	for _, v := range elems[1:] {
		less, err := lessThan(ctx, v, best)
		if err != nil {
			return nil, err
		}
		if less == wantMin {
			best = v
		}
	}
	return best, nil
}

func biSum(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) == 0 {
		return nil, ctx.NewError(object.TypeError, "sum() missing argument")
	}
	elems, err := toElements(ctx, args[0], "sum")
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	if len(args) > 1 {
		iv, ok := asInt(args[1])
		if !ok {
			return nil, ctx.NewError(object.TypeError, "sum() start value must be a number")
		}
		total = new(big.Int).Set(iv)
	}
	for _, v := range elems {
		iv, ok := asInt(v)
		if !ok {
			return nil, ctx.NewError(object.TypeError, "sum() items must be numbers")
		}
		total.Add(total, iv)
	}
	return &object.Integer{Value: total}, nil
}

func biSorted(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) != 1 {
		return nil, ctx.NewError(object.TypeError, "sorted() takes exactly one argument")
	}
	elems, err := toElements(ctx, args[0], "sorted")
	if err != nil {
		return nil, err
	}
	out := append([]object.Value{}, elems...)
	var sortErr *object.InterpError
	sort.SliceStable(out, func(i, j int) bool {
		less, err := lessThan(ctx, out[i], out[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return &object.List{Elements: out}, nil
}

func biReversed(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) != 1 {
		return nil, ctx.NewError(object.TypeError, "reversed() takes exactly one argument")
	}
	elems, err := toElements(ctx, args[0], "reversed")
	if err != nil {
		return nil, err
	}
	out := make([]object.Value, len(elems))
	for i, v := range elems {
		out[len(elems)-1-i] = v
	}
	return &object.List{Elements: out}, nil
}

func biEnumerate(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) != 1 {
		return nil, ctx.NewError(object.TypeError, "enumerate() takes exactly one argument")
	}
	elems, err := toElements(ctx, args[0], "enumerate")
	if err != nil {
		return nil, err
	}
	out := make([]object.Value, len(elems))
	for i, v := range elems {
		out[i] = &object.Tuple{Elements: []object.Value{object.NewInt(int64(i)), v}}
	}
	return &object.List{Elements: out}, nil
}

func biRange(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	var start, stop, step int64 = 0, 0, 1
	switch len(args) {
	case 1:
		n, ok := asInt(args[0])
		if !ok {
			return nil, ctx.NewError(object.TypeError, "range() argument must be an integer")
		}
		stop = n.Int64()
	case 2, 3:
		a, ok := asInt(args[0])
		b, ok2 := asInt(args[1])
		if !ok || !ok2 {
			return nil, ctx.NewError(object.TypeError, "range() arguments must be integers")
		}
		start, stop = a.Int64(), b.Int64()
		if len(args) == 3 {
			c, ok3 := asInt(args[2])
			if !ok3 {
				return nil, ctx.NewError(object.TypeError, "range() arguments must be integers")
			}
			step = c.Int64()
			if step == 0 {
				return nil, ctx.NewError(object.ValueError, "range() arg 3 must not be zero")
			}
		}
	default:
		return nil, ctx.NewError(object.TypeError, "range() expects 1 to 3 arguments")
	}
	var n int64
	if step > 0 && stop > start {
		n = (stop - start + step - 1) / step
	} else if step < 0 && stop < start {
		n = (start - stop - step - 1) / -step
	}
	if n > int64(ctx.Limits().MaxListSize) {
		return nil, ctx.NewError(object.ValueError, "range() result exceeds the maximum permitted list size")
	}
	var out []object.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			if len(out) >= ctx.Limits().MaxListSize {
				return nil, ctx.NewError(object.ValueError, "range() result exceeds the maximum permitted list size")
			}
			if err := ctx.Step(); err != nil {
				return nil, err
			}
			out = append(out, object.NewInt(i))
		}
	} else {
		for i := start; i > stop; i += step {
			if len(out) >= ctx.Limits().MaxListSize {
				return nil, ctx.NewError(object.ValueError, "range() result exceeds the maximum permitted list size")
			}
			if err := ctx.Step(); err != nil {
				return nil, err
			}
			out = append(out, object.NewInt(i))
		}
	}
	return &object.List{Elements: out}, nil
}

func biStr(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) == 0 {
		return &object.String{Value: ""}, nil
	}
	return &object.String{Value: args[0].Inspect()}, nil
}

func biInt(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) == 0 {
		return object.NewInt(0), nil
	}
	switch x := args[0].(type) {
	case *object.Integer:
		return &object.Integer{Value: new(big.Int).Set(x.Value)}, nil
	case *object.Boolean:
		if x.Value {
			return object.NewInt(1), nil
		}
		return object.NewInt(0), nil
	case *object.String:
		n := new(big.Int)
		trimmed := strings.TrimSpace(x.Value)
		if _, ok := n.SetString(trimmed, 10); !ok {
			return nil, ctx.NewError(object.ValueError, "invalid literal for int() with base 10: %s", pyQuoteLocal(x.Value))
		}
		return &object.Integer{Value: n}, nil
	default:
		return nil, ctx.NewError(object.TypeError, "int() argument must be a string or a number, not '%s'", x.Type())
	}
}

func pyQuoteLocal(s string) string { return strconv.Quote(s) }

func biBool(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) == 0 {
		return object.FALSE, nil
	}
	return object.NativeBoolToBoolean(object.Truthy(args[0])), nil
}

func biBytes(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) == 0 {
		return &object.Bytes{}, nil
	}
	switch x := args[0].(type) {
	case *object.String:
		return &object.Bytes{Value: []byte(x.Value)}, nil
	case *object.List:
		out := make([]byte, len(x.Elements))
		for i, v := range x.Elements {
			iv, ok := asInt(v)
			if !ok {
				return nil, ctx.NewError(object.TypeError, "bytes() argument must be a list of integers")
			}
			out[i] = byte(iv.Int64())
		}
		return &object.Bytes{Value: out}, nil
	default:
		return nil, ctx.NewError(object.TypeError, "cannot convert '%s' object to bytes", x.Type())
	}
}

func biList(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) == 0 {
		return &object.List{}, nil
	}
	elems, err := toElements(ctx, args[0], "list")
	if err != nil {
		return nil, err
	}
	return &object.List{Elements: append([]object.Value{}, elems...)}, nil
}

func biDict(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	d := object.NewDict()
	if len(args) == 0 {
		return d, nil
	}
	elems, err := toElements(ctx, args[0], "dict")
	if err != nil {
		return nil, err
	}
	for _, v := range elems {
		pair, ok := v.(*object.Tuple)
		if !ok || len(pair.Elements) != 2 {
			return nil, ctx.NewError(object.TypeError, "dict() argument must be an iterable of (key, value) pairs")
		}
		key, kerr := dictKey(ctx, pair.Elements[0])
		if kerr != nil {
			return nil, kerr
		}
		d.Set(key, pair.Elements[1])
	}
	return d, nil
}

func biTuple(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) == 0 {
		return &object.Tuple{}, nil
	}
	elems, err := toElements(ctx, args[0], "tuple")
	if err != nil {
		return nil, err
	}
	return &object.Tuple{Elements: append([]object.Value{}, elems...)}, nil
}

func biSet(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	s := object.NewSet()
	if len(args) == 0 {
		return s, nil
	}
	elems, err := toElements(ctx, args[0], "set")
	if err != nil {
		return nil, err
	}
	for _, v := range elems {
		k, kerr := dictKey(ctx, v)
		if kerr != nil {
			return nil, kerr
		}
		s.Add(k, v)
	}
	return s, nil
}

func biAny(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) != 1 {
		return nil, ctx.NewError(object.TypeError, "any() takes exactly one argument")
	}
	elems, err := toElements(ctx, args[0], "any")
	if err != nil {
		return nil, err
	}
	for _, v := range elems {
		if object.Truthy(v) {
			return object.TRUE, nil
		}
	}
	return object.FALSE, nil
}

func biAll(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) != 1 {
		return nil, ctx.NewError(object.TypeError, "all() takes exactly one argument")
	}
	elems, err := toElements(ctx, args[0], "all")
	if err != nil {
		return nil, err
	}
	for _, v := range elems {
		if !object.Truthy(v) {
			return object.FALSE, nil
		}
	}
	return object.TRUE, nil
}

func biAbs(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) != 1 {
		return nil, ctx.NewError(object.TypeError, "abs() takes exactly one argument")
	}
	iv, ok := asInt(args[0])
	if !ok {
		return nil, ctx.NewError(object.TypeError, "bad operand type for abs(): '%s'", args[0].Type())
	}
	return &object.Integer{Value: new(big.Int).Abs(iv)}, nil
}
