package evaluator

import (
	"github.com/daios-rlm/pyrepl/internal/ast"
	"github.com/daios-rlm/pyrepl/internal/object"
)

// ctrlSignal threads a `return` out of nested block execution without
// resorting to panic/recover, the way the teacher's own evaluator
// avoids exceptions for ordinary control flow.
type ctrlSignal struct {
	returning bool
	value     object.Value
}

var noSignal = ctrlSignal{}

func (e *Evaluator) execStmt(stmt ast.Statement) (ctrlSignal, *object.InterpError) {
	if err := e.step(stmt.Pos()); err != nil {
		return noSignal, err
	}
	e.lastStmtWasExpr = false

	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		v, err := e.evalExpr(s.Expression)
		if err != nil {
			return noSignal, err
		}
		e.lastStmtWasExpr = true
		e.lastExprValue = v
		return noSignal, nil

	case *ast.AssignStatement:
		return noSignal, e.execAssign(s)

	case *ast.AugAssignStatement:
		return noSignal, e.execAugAssign(s)

	case *ast.PassStatement:
		return noSignal, nil

	case *ast.ReturnStatement:
		var v object.Value = object.NULL
		if s.Value != nil {
			var err *object.InterpError
			v, err = e.evalExpr(s.Value)
			if err != nil {
				return noSignal, err
			}
		}
		return ctrlSignal{returning: true, value: v}, nil

	case *ast.IfStatement:
		return e.execIf(s)

	case *ast.ForStatement:
		return e.execFor(s)

	case *ast.TryStatement:
		return e.execTry(s)

	case *ast.FunctionDef:
		e.CurrentEnv().Set(s.Name, &object.Function{
			Name:   s.Name,
			Params: s.Params,
			Body:   s.Body,
			Env:    e.CurrentEnv(),
		})
		return noSignal, nil

	case *ast.ImportStatement:
		return noSignal, e.execImport(s)

	case *ast.FromImportStatement:
		return noSignal, e.execFromImport(s)

	default:
		return noSignal, e.NewError(object.ForbiddenSyntax, "unsupported statement")
	}
}

// execBlock runs every statement of b in the current environment,
// stopping at the first error or return signal.
func (e *Evaluator) execBlock(b *ast.BlockStatement) (ctrlSignal, *object.InterpError) {
	for _, stmt := range b.Statements {
		sig, err := e.execStmt(stmt)
		if err != nil {
			return noSignal, err
		}
		if sig.returning {
			return sig, nil
		}
	}
	return noSignal, nil
}

func (e *Evaluator) execIf(s *ast.IfStatement) (ctrlSignal, *object.InterpError) {
	cond, err := e.evalExpr(s.Condition)
	if err != nil {
		return noSignal, err
	}
	if object.Truthy(cond) {
		return e.execBlock(s.Then)
	}
	if s.Else != nil {
		return e.execBlock(s.Else)
	}
	return noSignal, nil
}

func (e *Evaluator) execFor(s *ast.ForStatement) (ctrlSignal, *object.InterpError) {
	iterable, err := e.evalExpr(s.Iterable)
	if err != nil {
		return noSignal, err
	}
	items, err := e.iterate(iterable)
	if err != nil {
		return noSignal, err
	}
	for _, item := range items {
		if err := e.step(s.Pos()); err != nil {
			return noSignal, err
		}
		if err := e.assignTarget(s.Target, item); err != nil {
			return noSignal, err
		}
		sig, err := e.execBlock(s.Body)
		if err != nil {
			return noSignal, err
		}
		if sig.returning {
			return sig, nil
		}
	}
	return noSignal, nil
}

// iterate produces the Go-level element slice for a for-loop/comprehension
// source, per §4.3: List/Tuple elements, Dict keys, String runes-as-
// single-char-strings, Set elements in insertion order.
func (e *Evaluator) iterate(v object.Value) ([]object.Value, *object.InterpError) {
	switch x := v.(type) {
	case *object.List:
		return x.Elements, nil
	case *object.Tuple:
		return x.Elements, nil
	case *object.Set:
		return x.Elements(), nil
	case *object.Dict:
		out := make([]object.Value, 0, x.Len())
		for _, k := range x.Keys() {
			out = append(out, object.DictKeyToValue(k))
		}
		return out, nil
	case *object.String:
		runes := []rune(x.Value)
		out := make([]object.Value, 0, len(runes))
		for _, r := range runes {
			out = append(out, &object.String{Value: string(r)})
		}
		return out, nil
	default:
		return nil, e.NewError(object.TypeError, "%s object is not iterable", x.Type())
	}
}

func (e *Evaluator) execTry(s *ast.TryStatement) (ctrlSignal, *object.InterpError) {
	sig, err := e.execBlock(s.Body)
	if err == nil {
		return sig, nil
	}
	if !object.Catchable(err.Kind) {
		return noSignal, err
	}
	for _, h := range s.Handlers {
		if !handlerMatches(h, err.Kind) {
			continue
		}
		if h.As != "" {
			e.CurrentEnv().Set(h.As, &object.String{Value: err.Message})
		}
		return e.execBlock(h.Body)
	}
	return noSignal, err
}

func handlerMatches(h *ast.ExceptClause, kind object.ErrorKind) bool {
	if len(h.Kinds) == 0 {
		return true
	}
	for _, k := range h.Kinds {
		if object.ErrorKind(k) == kind {
			return true
		}
	}
	return false
}

func (e *Evaluator) execAssign(s *ast.AssignStatement) *object.InterpError {
	v, err := e.evalExpr(s.Value)
	if err != nil {
		return err
	}
	if len(s.Targets) == 1 {
		return e.assignTarget(s.Targets[0], v)
	}
	// Multiple `=` targets (a = b = value) all bind to the same value.
	for _, t := range s.Targets {
		if err := e.assignTarget(t, v); err != nil {
			return err
		}
	}
	return nil
}

// assignTarget handles plain names, subscripts, and recursive tuple/list
// unpacking per §4.2's permitted assignment targets.
func (e *Evaluator) assignTarget(target ast.Expression, v object.Value) *object.InterpError {
	switch t := target.(type) {
	case *ast.Identifier:
		return e.CurrentEnv().Set(t.Value, v)

	case *ast.TupleLiteral:
		return e.unpackInto(t.Elements, v)
	case *ast.ListLiteral:
		return e.unpackInto(t.Elements, v)

	case *ast.SubscriptExpression:
		return e.assignSubscript(t, v)

	default:
		return e.NewError(object.ForbiddenSyntax, "invalid assignment target")
	}
}

// unpackInto implements tuple/list-target unpacking: the right-hand
// value must be a List or Tuple of exactly len(targets) elements.
func (e *Evaluator) unpackInto(targets []ast.Expression, v object.Value) *object.InterpError {
	var elems []object.Value
	switch x := v.(type) {
	case *object.List:
		elems = x.Elements
	case *object.Tuple:
		elems = x.Elements
	default:
		return e.NewError(object.TypeError, "cannot unpack non-iterable %s object", v.Type())
	}
	if len(elems) != len(targets) {
		return e.NewError(object.ValueError, "too many values to unpack (expected %d)", len(targets))
	}
	for i, t := range targets {
		if err := e.assignTarget(t, elems[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Evaluator) assignSubscript(t *ast.SubscriptExpression, v object.Value) *object.InterpError {
	obj, err := e.evalExpr(t.Object)
	if err != nil {
		return err
	}
	if _, isModule := obj.(*object.Module); isModule {
		return e.NewError(object.TypeError, "'module' object does not support item assignment")
	}
	idx, err := e.evalExpr(t.Index)
	if err != nil {
		return err
	}
	switch container := obj.(type) {
	case *object.List:
		i, ierr := indexOf(e, idx, len(container.Elements))
		if ierr != nil {
			return ierr
		}
		container.Elements[i] = v
		return nil
	case *object.Dict:
		key, kerr := dictKey(e, idx)
		if kerr != nil {
			return kerr
		}
		container.Set(key, v)
		return nil
	default:
		return e.NewError(object.TypeError, "'%s' object does not support item assignment", obj.Type())
	}
}

func (e *Evaluator) execAugAssign(s *ast.AugAssignStatement) *object.InterpError {
	cur, err := e.evalExpr(s.Target)
	if err != nil {
		return err
	}
	rhs, err := e.evalExpr(s.Value)
	if err != nil {
		return err
	}
	op := "+"
	if s.Operator == "-=" {
		op = "-"
	}
	result, err := e.applyBinary(op, cur, rhs)
	if err != nil {
		return err
	}
	return e.assignTarget(s.Target, result)
}

func (e *Evaluator) execImport(s *ast.ImportStatement) *object.InterpError {
	for _, n := range s.Names {
		mod, ok := e.modules[n.Path]
		if !ok {
			return e.NewError(object.ForbiddenName, "import of %q is not permitted", n.Path)
		}
		e.CurrentEnv().Set(n.Alias, mod)
	}
	return nil
}

func (e *Evaluator) execFromImport(s *ast.FromImportStatement) *object.InterpError {
	mod, ok := e.modules[s.Module]
	if !ok {
		return e.NewError(object.ForbiddenName, "import of %q is not permitted", s.Module)
	}
	for _, n := range s.Names {
		v, ok := mod.Get(n.Path)
		if !ok {
			return e.NewError(object.AttributeError, "module %q has no attribute %q", s.Module, n.Path)
		}
		e.CurrentEnv().Set(n.Alias, v)
	}
	return nil
}

func dictKey(ctx object.CallCtx, v object.Value) (string, *object.InterpError) {
	k, ok := object.DictKey(v)
	if !ok {
		return "", ctx.NewError(object.TypeError, "unhashable type: '%s'", v.Type())
	}
	return k, nil
}

func indexOf(ctx object.CallCtx, v object.Value, length int) (int, *object.InterpError) {
	iv, ok := v.(*object.Integer)
	if !ok {
		return 0, ctx.NewError(object.TypeError, "indices must be integers")
	}
	i := int(iv.Value.Int64())
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, ctx.NewError(object.IndexError, "index out of range")
	}
	return i, nil
}
