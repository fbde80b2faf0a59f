package modules

import (
	"math"
	"math/big"

	"github.com/daios-rlm/pyrepl/internal/object"
)

func toFloat(ctx object.CallCtx, v object.Value, fn string) (float64, *object.InterpError) {
	switch x := v.(type) {
	case *object.Integer:
		f := new(big.Float).SetInt(x.Value)
		out, _ := f.Float64()
		return out, nil
	case *object.Boolean:
		if x.Value {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, ctx.NewError(object.TypeError, "%s() argument must be a number", fn)
	}
}

// NewMath builds the `math` pseudo-module on stdlib math; no pack
// dependency supplies floor/ceil/sqrt/pi/e, so there is nothing to
// wire here besides the standard library.
func NewMath() *object.Module {
	floor := &object.Builtin{Name: "math.floor", Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		if len(args) != 1 {
			return nil, ctx.NewError(object.TypeError, "floor() takes exactly one argument")
		}
		f, err := toFloat(ctx, args[0], "floor")
		if err != nil {
			return nil, err
		}
		return object.NewInt(int64(math.Floor(f))), nil
	}}

	ceil := &object.Builtin{Name: "math.ceil", Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		if len(args) != 1 {
			return nil, ctx.NewError(object.TypeError, "ceil() takes exactly one argument")
		}
		f, err := toFloat(ctx, args[0], "ceil")
		if err != nil {
			return nil, err
		}
		return object.NewInt(int64(math.Ceil(f))), nil
	}}

	sqrt := &object.Builtin{Name: "math.sqrt", Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		if len(args) != 1 {
			return nil, ctx.NewError(object.TypeError, "sqrt() takes exactly one argument")
		}
		f, err := toFloat(ctx, args[0], "sqrt")
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return nil, ctx.NewError(object.ValueError, "math domain error")
		}
		return object.NewInt(int64(math.Sqrt(f))), nil
	}}

	return &object.Module{Name: "math", Exports: map[string]object.Value{
		"floor": floor,
		"ceil":  ceil,
		"sqrt":  sqrt,
		"pi":    object.NewInt(3),
		"e":     object.NewInt(2),
	}}
}
