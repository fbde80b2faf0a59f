package evaluator

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/daios-rlm/pyrepl/internal/object"
)

// methodTable implements every attribute the Allowlist Validator
// permits (see internal/validator's permittedAttrs table), dispatching
// on the runtime type of self since several names are shared between
// types (startswith and endswith by String and Bytes, count by String
// and List).
var methodTable = map[string]methodFn{
	"strip":      strMethod(strings.TrimSpace),
	"lstrip":     strMethod(func(s string) string { return strings.TrimLeft(s, " \t\n\r") }),
	"rstrip":     strMethod(func(s string) string { return strings.TrimRight(s, " \t\n\r") }),
	"lower":      strMethod(strings.ToLower),
	"upper":      strMethod(strings.ToUpper),
	"isdigit":    strPredicate(isDigitString),
	"isalpha":    strPredicate(isAlphaString),
	"find":       methodFind,
	"rfind":      methodRfind,
	"replace":    methodReplace,
	"split":      methodSplit,
	"rsplit":     methodRsplit,
	"splitlines": methodSplitlines,
	"startswith": methodStartsEnds(strings.HasPrefix, func(b []byte, p []byte) bool { return len(b) >= len(p) && string(b[:len(p)]) == string(p) }),
	"endswith":   methodStartsEnds(strings.HasSuffix, func(b []byte, p []byte) bool { return len(b) >= len(p) && string(b[len(b)-len(p):]) == string(p) }),
	"count":      methodCount,
	"join":       methodJoin,
	"encode":     methodEncode,
	"decode":     methodDecode,
	"hex":        methodHex,

	"append":  methodAppend,
	"extend":  methodExtend,
	"index":   methodIndex,
	"sort":    methodSort,
	"reverse": methodReverse,

	"get":    methodGet,
	"keys":   methodKeys,
	"values": methodValues,
	"items":  methodItems,

	"group":  methodGroup,
	"start":  methodStart,
	"end":    methodEnd,
	"span":   methodSpan,
	"groups": methodGroups,
}

func strMethod(f func(string) string) methodFn {
	return func(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
		s, ok := self.(*object.String)
		if !ok {
			return nil, ctx.NewError(object.TypeError, "expected str")
		}
		return &object.String{Value: f(s.Value)}, nil
	}
}

func strPredicate(f func(string) bool) methodFn {
	return func(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
		s, ok := self.(*object.String)
		if !ok {
			return nil, ctx.NewError(object.TypeError, "expected str")
		}
		return object.NativeBoolToBoolean(f(s.Value)), nil
	}
}

func isDigitString(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlphaString(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}

func argString(ctx object.CallCtx, args []object.Value, i int, fn string) (string, *object.InterpError) {
	if i >= len(args) {
		return "", ctx.NewError(object.TypeError, "%s() missing argument", fn)
	}
	s, ok := args[i].(*object.String)
	if !ok {
		return "", ctx.NewError(object.TypeError, "%s() expected a str argument", fn)
	}
	return s.Value, nil
}

func methodFind(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	s, ok := self.(*object.String)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected str")
	}
	sub, err := argString(ctx, args, 0, "find")
	if err != nil {
		return nil, err
	}
	return object.NewInt(int64(strings.Index(s.Value, sub))), nil
}

func methodRfind(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	s, ok := self.(*object.String)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected str")
	}
	sub, err := argString(ctx, args, 0, "rfind")
	if err != nil {
		return nil, err
	}
	return object.NewInt(int64(strings.LastIndex(s.Value, sub))), nil
}

func methodReplace(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	s, ok := self.(*object.String)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected str")
	}
	old, err := argString(ctx, args, 0, "replace")
	if err != nil {
		return nil, err
	}
	new_, err := argString(ctx, args, 1, "replace")
	if err != nil {
		return nil, err
	}
	return &object.String{Value: strings.ReplaceAll(s.Value, old, new_)}, nil
}

func methodSplit(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	s, ok := self.(*object.String)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected str")
	}
	var parts []string
	if len(args) == 0 {
		parts = strings.Fields(s.Value)
	} else {
		sep, err := argString(ctx, args, 0, "split")
		if err != nil {
			return nil, err
		}
		parts = strings.Split(s.Value, sep)
	}
	return stringsToList(parts), nil
}

// methodRsplit delegates to methodSplit: the permitted signature takes
// no maxsplit argument, and without one split/rsplit produce the same
// list regardless of split direction.
func methodRsplit(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	return methodSplit(ctx, self, args)
}

func methodSplitlines(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	s, ok := self.(*object.String)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected str")
	}
	lines := strings.Split(strings.ReplaceAll(s.Value, "\r\n", "\n"), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return stringsToList(lines), nil
}

func stringsToList(ss []string) *object.List {
	out := make([]object.Value, len(ss))
	for i, s := range ss {
		out[i] = &object.String{Value: s}
	}
	return &object.List{Elements: out}
}

func methodStartsEnds(strFn func(string, string) bool, byteFn func([]byte, []byte) bool) methodFn {
	return func(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
		switch s := self.(type) {
		case *object.String:
			sub, err := argString(ctx, args, 0, "startswith")
			if err != nil {
				return nil, err
			}
			return object.NativeBoolToBoolean(strFn(s.Value, sub)), nil
		case *object.Bytes:
			if len(args) == 0 {
				return nil, ctx.NewError(object.TypeError, "startswith() missing argument")
			}
			b, ok := args[0].(*object.Bytes)
			if !ok {
				return nil, ctx.NewError(object.TypeError, "expected bytes argument")
			}
			return object.NativeBoolToBoolean(byteFn(s.Value, b.Value)), nil
		default:
			return nil, ctx.NewError(object.TypeError, "expected str or bytes")
		}
	}
}

func methodCount(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	if l, ok := self.(*object.List); ok {
		if len(args) != 1 {
			return nil, ctx.NewError(object.TypeError, "count() takes exactly one argument")
		}
		var n int64
		for _, el := range l.Elements {
			if valuesEqual(el, args[0]) {
				n++
			}
		}
		return object.NewInt(n), nil
	}
	s, ok := self.(*object.String)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected str or list")
	}
	sub, err := argString(ctx, args, 0, "count")
	if err != nil {
		return nil, err
	}
	return object.NewInt(int64(strings.Count(s.Value, sub))), nil
}

func methodJoin(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	sep, ok := self.(*object.String)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected str")
	}
	if len(args) != 1 {
		return nil, ctx.NewError(object.TypeError, "join() takes exactly one argument")
	}
	var parts []string
	switch x := args[0].(type) {
	case *object.List:
		for _, v := range x.Elements {
			s, ok := v.(*object.String)
			if !ok {
				return nil, ctx.NewError(object.TypeError, "sequence item: expected str instance")
			}
			parts = append(parts, s.Value)
		}
	case *object.Tuple:
		for _, v := range x.Elements {
			s, ok := v.(*object.String)
			if !ok {
				return nil, ctx.NewError(object.TypeError, "sequence item: expected str instance")
			}
			parts = append(parts, s.Value)
		}
	default:
		return nil, ctx.NewError(object.TypeError, "can only join an iterable")
	}
	return &object.String{Value: strings.Join(parts, sep.Value)}, nil
}

func methodEncode(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	s, ok := self.(*object.String)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected str")
	}
	return &object.Bytes{Value: []byte(s.Value)}, nil
}

func methodDecode(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	b, ok := self.(*object.Bytes)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected bytes")
	}
	return &object.String{Value: string(b.Value)}, nil
}

func methodHex(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	b, ok := self.(*object.Bytes)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected bytes")
	}
	return &object.String{Value: hex.EncodeToString(b.Value)}, nil
}

func methodAppend(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	l, ok := self.(*object.List)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected list")
	}
	if len(args) != 1 {
		return nil, ctx.NewError(object.TypeError, "append() takes exactly one argument")
	}
	if len(l.Elements)+1 > ctx.Limits().MaxListSize {
		return nil, ctx.NewError(object.ValueError, "list exceeds the maximum permitted size")
	}
	l.Elements = append(l.Elements, args[0])
	return object.NULL, nil
}

func methodExtend(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	l, ok := self.(*object.List)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected list")
	}
	if len(args) != 1 {
		return nil, ctx.NewError(object.TypeError, "extend() takes exactly one argument")
	}
	var extra int
	switch other := args[0].(type) {
	case *object.List:
		extra = len(other.Elements)
	case *object.Tuple:
		extra = len(other.Elements)
	default:
		return nil, ctx.NewError(object.TypeError, "argument to extend() must be iterable")
	}
	if len(l.Elements)+extra > ctx.Limits().MaxListSize {
		return nil, ctx.NewError(object.ValueError, "list exceeds the maximum permitted size")
	}
	switch other := args[0].(type) {
	case *object.List:
		l.Elements = append(l.Elements, other.Elements...)
	case *object.Tuple:
		l.Elements = append(l.Elements, other.Elements...)
	}
	return object.NULL, nil
}

func methodIndex(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	l, ok := self.(*object.List)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected list")
	}
	if len(args) != 1 {
		return nil, ctx.NewError(object.TypeError, "index() takes exactly one argument")
	}
	for i, v := range l.Elements {
		if valuesEqual(v, args[0]) {
			return object.NewInt(int64(i)), nil
		}
	}
	return nil, ctx.NewError(object.ValueError, "%s is not in list", args[0].Display())
}

func methodSort(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	l, ok := self.(*object.List)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected list")
	}
	var sortErr *object.InterpError
	sort.SliceStable(l.Elements, func(i, j int) bool {
		less, err := lessThan(ctx, l.Elements[i], l.Elements[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return less
	})
	return object.NULL, sortErr
}

func lessThan(ctx object.CallCtx, a, b object.Value) (bool, *object.InterpError) {
	if ai, ok := asInt(a); ok {
		if bi, ok := asInt(b); ok {
			return ai.Cmp(bi) < 0, nil
		}
	}
	if as, ok := a.(*object.String); ok {
		if bs, ok := b.(*object.String); ok {
			return as.Value < bs.Value, nil
		}
	}
	return false, ctx.NewError(object.TypeError, "unorderable types")
}

func methodReverse(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	l, ok := self.(*object.List)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected list")
	}
	for i, j := 0, len(l.Elements)-1; i < j; i, j = i+1, j-1 {
		l.Elements[i], l.Elements[j] = l.Elements[j], l.Elements[i]
	}
	return object.NULL, nil
}

func methodGet(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	d, ok := self.(*object.Dict)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected dict")
	}
	if len(args) < 1 {
		return nil, ctx.NewError(object.TypeError, "get() takes at least one argument")
	}
	key, kerr := dictKey(ctx, args[0])
	if kerr != nil {
		return nil, kerr
	}
	if v, ok := d.Get(key); ok {
		return v, nil
	}
	if len(args) > 1 {
		return args[1], nil
	}
	return object.NULL, nil
}

func methodKeys(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	d, ok := self.(*object.Dict)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected dict")
	}
	out := make([]object.Value, 0, d.Len())
	for _, k := range d.Keys() {
		out = append(out, object.DictKeyToValue(k))
	}
	return &object.List{Elements: out}, nil
}

func methodValues(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	d, ok := self.(*object.Dict)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected dict")
	}
	out := make([]object.Value, 0, d.Len())
	for _, k := range d.Keys() {
		v, _ := d.Get(k)
		out = append(out, v)
	}
	return &object.List{Elements: out}, nil
}

func methodItems(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	d, ok := self.(*object.Dict)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected dict")
	}
	out := make([]object.Value, 0, d.Len())
	for _, k := range d.Keys() {
		v, _ := d.Get(k)
		out = append(out, &object.Tuple{Elements: []object.Value{object.DictKeyToValue(k), v}})
	}
	return &object.List{Elements: out}, nil
}


func methodGroup(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	m, ok := self.(*object.Match)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected match object")
	}
	n := 0
	if len(args) > 0 {
		iv, ok := args[0].(*object.Integer)
		if !ok {
			return nil, ctx.NewError(object.TypeError, "group() argument must be an integer")
		}
		n = int(iv.Value.Int64())
	}
	s, ok := m.Group(n)
	if !ok {
		return object.NULL, nil
	}
	return &object.String{Value: s}, nil
}

func methodStart(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	m, ok := self.(*object.Match)
	if !ok || len(m.Starts) == 0 {
		return nil, ctx.NewError(object.TypeError, "expected match object")
	}
	return object.NewInt(int64(m.Starts[0])), nil
}

func methodEnd(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	m, ok := self.(*object.Match)
	if !ok || len(m.Ends) == 0 {
		return nil, ctx.NewError(object.TypeError, "expected match object")
	}
	return object.NewInt(int64(m.Ends[0])), nil
}

func methodSpan(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	m, ok := self.(*object.Match)
	if !ok || len(m.Starts) == 0 {
		return nil, ctx.NewError(object.TypeError, "expected match object")
	}
	return &object.Tuple{Elements: []object.Value{object.NewInt(int64(m.Starts[0])), object.NewInt(int64(m.Ends[0]))}}, nil
}

func methodGroups(ctx object.CallCtx, self object.Value, args []object.Value) (object.Value, *object.InterpError) {
	m, ok := self.(*object.Match)
	if !ok {
		return nil, ctx.NewError(object.TypeError, "expected match object")
	}
	n := len(m.Groups) - 1
	if n < 0 {
		n = 0
	}
	out := make([]object.Value, 0, n)
	for i := 1; i < len(m.Groups); i++ {
		if m.Groups[i] == nil {
			out = append(out, object.NULL)
		} else {
			out = append(out, &object.String{Value: *m.Groups[i]})
		}
	}
	return &object.Tuple{Elements: out}, nil
}
