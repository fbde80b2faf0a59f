package evaluator

import (
	"github.com/daios-rlm/pyrepl/internal/ast"
	"github.com/daios-rlm/pyrepl/internal/object"
)

// applyFunction dispatches a call to either a native Builtin or a
// user-defined Function, mirroring the teacher's own Apply helper that
// lets builtins call back into user code without knowing which kind
// they were handed.
func (e *Evaluator) applyFunction(fn object.Value, args []object.Value) (object.Value, *object.InterpError) {
	return e.applyFunctionKW(fn, args, nil)
}

// kwArg is one evaluated `name=value` keyword argument at a call site.
type kwArg struct {
	Name  string
	Value object.Value
}

// applyFunctionKW is applyFunction extended with keyword arguments,
// needed for the §4.4 module signatures that take a trailing
// `flags=0`/`maxsplit=0`/`count=0`/`wbits=15` keyword. A callee only
// accepts keyword arguments if it declares the parameter names they
// bind to (Builtin.ParamNames, or a user Function's own Params); any
// other callee rejects a keyword argument with a TypeError.
func (e *Evaluator) applyFunctionKW(fn object.Value, args []object.Value, kwargs []kwArg) (object.Value, *object.InterpError) {
	switch f := fn.(type) {
	case *object.Builtin:
		if f.FnKW != nil {
			kwmap := make(map[string]object.Value, len(kwargs))
			for _, kw := range kwargs {
				kwmap[kw.Name] = kw.Value
			}
			return f.FnKW(e, args, kwmap)
		}
		if len(kwargs) == 0 {
			return f.Fn(e, args)
		}
		bound, err := bindKeywords(e, f.Name, f.ParamNames, args, kwargs)
		if err != nil {
			return nil, err
		}
		return f.Fn(e, bound)
	case *object.Function:
		if len(kwargs) == 0 {
			return e.callUserFunction(f, args)
		}
		bound, err := bindKeywords(e, f.Name, f.Params, args, kwargs)
		if err != nil {
			return nil, err
		}
		return e.callUserFunction(f, bound)
	default:
		return nil, e.NewError(object.TypeError, "'%s' object is not callable", fn.Type())
	}
}

// bindKeywords merges positional args with keyword args into a single
// positional slice ordered by paramNames, the way Python's own call
// binding does before a function ever sees its arguments.
func bindKeywords(e *Evaluator, name string, paramNames []string, args []object.Value, kwargs []kwArg) ([]object.Value, *object.InterpError) {
	if paramNames == nil {
		return nil, e.NewError(object.TypeError, "%s() does not accept keyword arguments", name)
	}
	bound := make([]object.Value, len(paramNames))
	filled := make([]bool, len(paramNames))
	for i := range args {
		if i >= len(paramNames) {
			return nil, e.NewError(object.TypeError, "%s() takes at most %d argument(s)", name, len(paramNames))
		}
		bound[i] = args[i]
		filled[i] = true
	}
	for _, kw := range kwargs {
		idx := -1
		for i, p := range paramNames {
			if p == kw.Name {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, e.NewError(object.TypeError, "%s() got an unexpected keyword argument '%s'", name, kw.Name)
		}
		if filled[idx] {
			return nil, e.NewError(object.TypeError, "%s() got multiple values for argument '%s'", name, kw.Name)
		}
		bound[idx] = kw.Value
		filled[idx] = true
	}
	trimmed := len(bound)
	for trimmed > 0 && !filled[trimmed-1] {
		trimmed--
	}
	return bound[:trimmed], nil
}

func (e *Evaluator) callUserFunction(f *object.Function, args []object.Value) (object.Value, *object.InterpError) {
	if len(args) != len(f.Params) {
		return nil, e.NewError(object.TypeError, "%s() takes %d positional argument(s) but %d were given", f.Name, len(f.Params), len(args))
	}
	body, ok := f.Body.(*ast.BlockStatement)
	if !ok {
		return nil, e.NewError(object.TypeError, "function %s has no body", f.Name)
	}
	frame := object.NewEnclosedEnvironment(f.Env)
	for i, p := range f.Params {
		frame.Set(p, args[i])
	}
	e.PushEnv(frame)
	defer e.PopEnv()
	sig, err := e.execBlock(body)
	if err != nil {
		return nil, err
	}
	if sig.returning {
		return sig.value, nil
	}
	return object.NULL, nil
}

// boundMethod resolves obj.name into a zero-argument-bound Builtin so
// that a subsequent CallExpression can invoke it uniformly with the
// rest of the call machinery, the way the teacher binds its own
// foreign methods at attribute-access time rather than at call time.
func (e *Evaluator) boundMethod(obj object.Value, name string) (object.Value, *object.InterpError) {
	fn, ok := methodTable[name]
	if !ok {
		return nil, e.NewError(object.AttributeError, "'%s' object has no attribute '%s'", obj.Type(), name)
	}
	return &object.Builtin{Name: name, Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		return fn(ctx, obj, args)
	}}, nil
}

type methodFn func(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError)

func (e *Evaluator) evalComprehension(c *ast.Comprehension) (object.Value, *object.InterpError) {
	var results []object.Value
	// elementEnv is parented directly to the session globals (the
	// bottom of envStack), never to the clause frame — this is the
	// scoping quirk §4.3 calls out explicitly. Names referenced by the
	// element expression are copied across only when they are also bound
	// by a for-clause target or referenced by a for-clause iterable, so
	// an enclosing local named in both the iteration source and the
	// element resolves; any other enclosing local is invisible to the
	// element and its name falls straight to globals.
	globals := e.envStack[0]
	elementNames := identifiersIn(c.Element)
	clauseNames := map[string]bool{}
	for _, cl := range c.Clauses {
		if cl.Target != nil {
			for _, n := range identifiersInTarget(cl.Target) {
				clauseNames[n] = true
			}
			for _, n := range identifiersIn(cl.Iterable) {
				clauseNames[n] = true
			}
		}
	}
	var copyNames []string
	for _, n := range elementNames {
		if clauseNames[n] {
			copyNames = append(copyNames, n)
		}
	}

	var walk func(idx int, clauseEnv *object.Environment) *object.InterpError
	walk = func(idx int, clauseEnv *object.Environment) *object.InterpError {
		if idx == len(c.Clauses) {
			var elementEnv *object.Environment
			if e.strict {
				elementEnv = object.NewEnclosedEnvironment(clauseEnv)
			} else {
				elementEnv = object.NewEnclosedEnvironment(globals)
				for _, name := range copyNames {
					if v, ok := clauseEnv.Get(name); ok {
						elementEnv.Set(name, v)
					}
				}
			}
			e.PushEnv(elementEnv)
			v, err := e.evalExpr(c.Element)
			e.PopEnv()
			if err != nil {
				return err
			}
			results = append(results, v)
			return nil
		}
		clause := c.Clauses[idx]
		if clause.Target == nil {
			e.PushEnv(clauseEnv)
			cond, err := e.evalExpr(clause.Cond)
			e.PopEnv()
			if err != nil {
				return err
			}
			if !object.Truthy(cond) {
				return nil
			}
			return walk(idx+1, clauseEnv)
		}
		e.PushEnv(clauseEnv)
		iterable, err := e.evalExpr(clause.Iterable)
		e.PopEnv()
		if err != nil {
			return err
		}
		items, err := e.iterate(iterable)
		if err != nil {
			return err
		}
		for _, item := range items {
			if serr := e.step(c.Pos()); serr != nil {
				return serr
			}
			next := object.NewEnclosedEnvironment(clauseEnv)
			e.PushEnv(next)
			aerr := e.assignTarget(clause.Target, item)
			e.PopEnv()
			if aerr != nil {
				return aerr
			}
			if err := walk(idx+1, next); err != nil {
				return err
			}
		}
		return nil
	}

	root := object.NewEnclosedEnvironment(e.CurrentEnv())
	if err := walk(0, root); err != nil {
		return nil, err
	}

	switch c.Kind {
	case ast.SetComp:
		s := object.NewSet()
		for _, v := range results {
			k, kerr := dictKey(e, v)
			if kerr != nil {
				return nil, kerr
			}
			s.Add(k, v)
		}
		return s, nil
	default:
		return &object.List{Elements: results}, nil
	}
}

// identifiersIn collects every identifier referenced anywhere in e.
func identifiersIn(e ast.Expression) []string {
	seen := map[string]bool{}
	var out []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	var walk func(e ast.Expression)
	walk = func(e ast.Expression) {
		switch x := e.(type) {
		case nil:
			return
		case *ast.Identifier:
			add(x.Value)
		case *ast.CallExpression:
			walk(x.Function)
			for _, a := range x.Args {
				walk(a)
			}
		case *ast.AttributeExpression:
			walk(x.Object)
		case *ast.SubscriptExpression:
			walk(x.Object)
			walk(x.Index)
			if x.Slice != nil {
				walk(x.Slice.Start)
				walk(x.Slice.Stop)
				walk(x.Slice.Step)
			}
		case *ast.InfixExpression:
			walk(x.Left)
			walk(x.Right)
		case *ast.BoolExpression:
			walk(x.Left)
			walk(x.Right)
		case *ast.PrefixExpression:
			walk(x.Right)
		case *ast.NotExpression:
			walk(x.Right)
		case *ast.ConditionalExpression:
			walk(x.Condition)
			walk(x.Then)
			walk(x.Else)
		case *ast.ListLiteral:
			for _, el := range x.Elements {
				walk(el)
			}
		case *ast.TupleLiteral:
			for _, el := range x.Elements {
				walk(el)
			}
		case *ast.SetLiteral:
			for _, el := range x.Elements {
				walk(el)
			}
		case *ast.DictLiteral:
			for _, en := range x.Entries {
				walk(en.Key)
				walk(en.Value)
			}
		case *ast.FString:
			for _, p := range x.Parts {
				walk(p.Expr)
			}
		}
	}
	walk(e)
	return out
}

// identifiersInTarget collects the names a for-clause target binds
// (plain name, or tuple/list unpacking of names).
func identifiersInTarget(target ast.Expression) []string {
	switch t := target.(type) {
	case *ast.Identifier:
		return []string{t.Value}
	case *ast.TupleLiteral:
		var out []string
		for _, el := range t.Elements {
			out = append(out, identifiersInTarget(el)...)
		}
		return out
	case *ast.ListLiteral:
		var out []string
		for _, el := range t.Elements {
			out = append(out, identifiersInTarget(el)...)
		}
		return out
	default:
		return nil
	}
}
