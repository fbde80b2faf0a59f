package evaluator

import (
	"math/big"

	"github.com/daios-rlm/pyrepl/internal/ast"
	"github.com/daios-rlm/pyrepl/internal/object"
	"github.com/daios-rlm/pyrepl/internal/validator"
)

func (e *Evaluator) evalExpr(expr ast.Expression) (object.Value, *object.InterpError) {
	if err := e.step(expr.Pos()); err != nil {
		return nil, err
	}
	switch x := expr.(type) {
	case *ast.IntegerLiteral:
		n := new(big.Int)
		n.SetString(x.Value, 10)
		return &object.Integer{Value: n}, nil

	case *ast.StringLiteral:
		return &object.String{Value: x.Value}, nil

	case *ast.BytesLiteral:
		return &object.Bytes{Value: x.Value}, nil

	case *ast.BooleanLiteral:
		return object.NativeBoolToBoolean(x.Value), nil

	case *ast.NoneLiteral:
		return object.NULL, nil

	case *ast.FString:
		return e.evalFString(x)

	case *ast.Identifier:
		v, ok := e.CurrentEnv().Get(x.Value)
		if !ok {
			return nil, e.NewError(object.NameError, "name '%s' is not defined", x.Value)
		}
		return v, nil

	case *ast.ListLiteral:
		elems, err := e.evalExprList(x.Elements)
		if err != nil {
			return nil, err
		}
		return &object.List{Elements: elems}, nil

	case *ast.TupleLiteral:
		elems, err := e.evalExprList(x.Elements)
		if err != nil {
			return nil, err
		}
		return &object.Tuple{Elements: elems}, nil

	case *ast.SetLiteral:
		elems, err := e.evalExprList(x.Elements)
		if err != nil {
			return nil, err
		}
		s := object.NewSet()
		for _, v := range elems {
			k, kerr := dictKey(e, v)
			if kerr != nil {
				return nil, kerr
			}
			s.Add(k, v)
		}
		return s, nil

	case *ast.DictLiteral:
		d := object.NewDict()
		for _, entry := range x.Entries {
			k, err := e.evalExpr(entry.Key)
			if err != nil {
				return nil, err
			}
			v, err := e.evalExpr(entry.Value)
			if err != nil {
				return nil, err
			}
			key, kerr := dictKey(e, k)
			if kerr != nil {
				return nil, kerr
			}
			d.Set(key, v)
		}
		return d, nil

	case *ast.PrefixExpression:
		return e.evalPrefix(x)

	case *ast.NotExpression:
		v, err := e.evalExpr(x.Right)
		if err != nil {
			return nil, err
		}
		return object.NativeBoolToBoolean(!object.Truthy(v)), nil

	case *ast.BoolExpression:
		return e.evalBoolExpr(x)

	case *ast.InfixExpression:
		left, err := e.evalExpr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.evalExpr(x.Right)
		if err != nil {
			return nil, err
		}
		return e.applyBinary(x.Operator, left, right)

	case *ast.ConditionalExpression:
		cond, err := e.evalExpr(x.Condition)
		if err != nil {
			return nil, err
		}
		if object.Truthy(cond) {
			return e.evalExpr(x.Then)
		}
		return e.evalExpr(x.Else)

	case *ast.CallExpression:
		return e.evalCall(x)

	case *ast.AttributeExpression:
		return e.evalAttribute(x)

	case *ast.SubscriptExpression:
		return e.evalSubscript(x)

	case *ast.Comprehension:
		return e.evalComprehension(x)

	default:
		return nil, e.NewError(object.ForbiddenSyntax, "unsupported expression")
	}
}

func (e *Evaluator) evalExprList(exprs []ast.Expression) ([]object.Value, *object.InterpError) {
	out := make([]object.Value, 0, len(exprs))
	for _, x := range exprs {
		v, err := e.evalExpr(x)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Evaluator) evalFString(f *ast.FString) (object.Value, *object.InterpError) {
	var sb []byte
	for _, part := range f.Parts {
		if part.Expr == nil {
			sb = append(sb, part.Text...)
			continue
		}
		v, err := e.evalExpr(part.Expr)
		if err != nil {
			return nil, err
		}
		sb = append(sb, v.Inspect()...)
	}
	return &object.String{Value: string(sb)}, nil
}

func (e *Evaluator) evalPrefix(x *ast.PrefixExpression) (object.Value, *object.InterpError) {
	v, err := e.evalExpr(x.Right)
	if err != nil {
		return nil, err
	}
	switch x.Operator {
	case "-":
		i, ok := v.(*object.Integer)
		if !ok {
			return nil, e.NewError(object.TypeError, "bad operand type for unary -: '%s'", v.Type())
		}
		return &object.Integer{Value: new(big.Int).Neg(i.Value)}, nil
	case "+":
		i, ok := v.(*object.Integer)
		if !ok {
			return nil, e.NewError(object.TypeError, "bad operand type for unary +: '%s'", v.Type())
		}
		return &object.Integer{Value: new(big.Int).Set(i.Value)}, nil
	default:
		return nil, e.NewError(object.ForbiddenSyntax, "unsupported unary operator %q", x.Operator)
	}
}

func (e *Evaluator) evalBoolExpr(x *ast.BoolExpression) (object.Value, *object.InterpError) {
	left, err := e.evalExpr(x.Left)
	if err != nil {
		return nil, err
	}
	if x.Operator == "and" {
		if !object.Truthy(left) {
			return left, nil
		}
		return e.evalExpr(x.Right)
	}
	if object.Truthy(left) {
		return left, nil
	}
	return e.evalExpr(x.Right)
}

func (e *Evaluator) evalCall(x *ast.CallExpression) (object.Value, *object.InterpError) {
	fn, err := e.evalExpr(x.Function)
	if err != nil {
		return nil, err
	}
	args, err := e.evalExprList(x.Args)
	if err != nil {
		return nil, err
	}
	if len(x.Keywords) == 0 {
		return e.applyFunction(fn, args)
	}
	kwargs := make([]kwArg, len(x.Keywords))
	for i, kw := range x.Keywords {
		v, err := e.evalExpr(kw.Value)
		if err != nil {
			return nil, err
		}
		kwargs[i] = kwArg{Name: kw.Name, Value: v}
	}
	return e.applyFunctionKW(fn, args, kwargs)
}

func (e *Evaluator) evalAttribute(x *ast.AttributeExpression) (object.Value, *object.InterpError) {
	obj, err := e.evalExpr(x.Object)
	if err != nil {
		return nil, err
	}
	if mod, ok := obj.(*object.Module); ok {
		v, ok := mod.Get(x.Name)
		if !ok {
			return nil, e.NewError(object.AttributeError, "module '%s' has no attribute '%s'", mod.Name, x.Name)
		}
		return v, nil
	}
	if !validator.AttrPermitted(obj.Type(), x.Name) {
		return nil, e.NewError(object.AttributeError, "'%s' object has no attribute '%s'", obj.Type(), x.Name)
	}
	return e.boundMethod(obj, x.Name)
}

func (e *Evaluator) evalSubscript(x *ast.SubscriptExpression) (object.Value, *object.InterpError) {
	obj, err := e.evalExpr(x.Object)
	if err != nil {
		return nil, err
	}
	if x.Slice != nil {
		return e.evalSlice(obj, x.Slice)
	}
	idx, err := e.evalExpr(x.Index)
	if err != nil {
		return nil, err
	}
	switch container := obj.(type) {
	case *object.List:
		i, ierr := indexOf(e, idx, len(container.Elements))
		if ierr != nil {
			return nil, ierr
		}
		return container.Elements[i], nil
	case *object.Tuple:
		i, ierr := indexOf(e, idx, len(container.Elements))
		if ierr != nil {
			return nil, ierr
		}
		return container.Elements[i], nil
	case *object.String:
		runes := []rune(container.Value)
		i, ierr := indexOf(e, idx, len(runes))
		if ierr != nil {
			return nil, ierr
		}
		return &object.String{Value: string(runes[i])}, nil
	case *object.Dict:
		key, kerr := dictKey(e, idx)
		if kerr != nil {
			return nil, kerr
		}
		v, ok := container.Get(key)
		if !ok {
			return nil, e.NewError(object.KeyError, "%s", idx.Display())
		}
		return v, nil
	default:
		return nil, e.NewError(object.TypeError, "'%s' object is not subscriptable", obj.Type())
	}
}

// evalSlice implements the negative-index normalization and clamping
// rules of §4.3's slicing semantics, shared by list/tuple/string.
func (e *Evaluator) evalSlice(obj object.Value, sl *ast.Slice) (object.Value, *object.InterpError) {
	length := 0
	switch x := obj.(type) {
	case *object.List:
		length = len(x.Elements)
	case *object.Tuple:
		length = len(x.Elements)
	case *object.String:
		length = len([]rune(x.Value))
	default:
		return nil, e.NewError(object.TypeError, "'%s' object is not subscriptable", obj.Type())
	}

	step := 1
	if sl.Step != nil {
		v, err := e.evalExpr(sl.Step)
		if err != nil {
			return nil, err
		}
		iv, ok := v.(*object.Integer)
		if !ok {
			return nil, e.NewError(object.TypeError, "slice step must be an integer")
		}
		step = int(iv.Value.Int64())
		if step == 0 {
			return nil, e.NewError(object.ValueError, "slice step cannot be zero")
		}
	}

	start, stop, err := e.sliceBounds(sl.Start, sl.Stop, length, step)
	if err != nil {
		return nil, err
	}

	var idxs []int
	if step > 0 {
		for i := start; i < stop; i += step {
			idxs = append(idxs, i)
		}
	} else {
		for i := start; i > stop; i += step {
			idxs = append(idxs, i)
		}
	}

	switch x := obj.(type) {
	case *object.List:
		out := make([]object.Value, len(idxs))
		for n, i := range idxs {
			out[n] = x.Elements[i]
		}
		return &object.List{Elements: out}, nil
	case *object.Tuple:
		out := make([]object.Value, len(idxs))
		for n, i := range idxs {
			out[n] = x.Elements[i]
		}
		return &object.Tuple{Elements: out}, nil
	case *object.String:
		runes := []rune(x.Value)
		out := make([]rune, len(idxs))
		for n, i := range idxs {
			out[n] = runes[i]
		}
		if len(out) > e.limits.MaxStringSize {
			return nil, e.NewError(object.ValueError, "slice result exceeds the maximum permitted string size")
		}
		return &object.String{Value: string(out)}, nil
	}
	return nil, e.NewError(object.TypeError, "not sliceable")
}

func (e *Evaluator) sliceBounds(startExpr, stopExpr ast.Expression, length, step int) (int, int, *object.InterpError) {
	normalize := func(expr ast.Expression, def int) (int, *object.InterpError) {
		if expr == nil {
			return def, nil
		}
		v, err := e.evalExpr(expr)
		if err != nil {
			return 0, err
		}
		iv, ok := v.(*object.Integer)
		if !ok {
			return 0, e.NewError(object.TypeError, "slice indices must be integers")
		}
		i := int(iv.Value.Int64())
		if i < 0 {
			i += length
		}
		return i, nil
	}

	defStart, defStop := 0, length
	if step < 0 {
		defStart, defStop = length-1, -1
	}
	start, err := normalize(startExpr, defStart)
	if err != nil {
		return 0, 0, err
	}
	stop, err := normalize(stopExpr, defStop)
	if err != nil {
		return 0, 0, err
	}
	if step > 0 {
		if start < 0 {
			start = 0
		}
		if stop > length {
			stop = length
		}
	} else {
		if start > length-1 {
			start = length - 1
		}
		if stop < -1 {
			stop = -1
		}
	}
	return start, stop, nil
}
