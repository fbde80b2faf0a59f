package modules

import (
	"encoding/base64"
	"strings"

	"github.com/daios-rlm/pyrepl/internal/object"
)

// NewBase64 builds the `base64` pseudo-module. There is no pack or
// ecosystem third-party library that improves on encoding/base64 for a
// single well-known wire format, so this is a deliberate stdlib-only
// module.
func NewBase64() *object.Module {
	b64decode := &object.Builtin{Name: "base64.b64decode", Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		if len(args) != 1 {
			return nil, ctx.NewError(object.TypeError, "b64decode() takes exactly one argument")
		}
		var raw string
		switch v := args[0].(type) {
		case *object.String:
			raw = v.Value
		case *object.Bytes:
			raw = string(v.Value)
		default:
			return nil, ctx.NewError(object.TypeError, "b64decode() argument must be str or bytes")
		}
		raw = strings.TrimRight(raw, "=")
		out, err := base64.RawStdEncoding.DecodeString(raw)
		if err != nil {
			return nil, ctx.NewError(object.ValueError, "invalid base64 data: %s", err.Error())
		}
		return &object.Bytes{Value: out}, nil
	}}

	return &object.Module{Name: "base64", Exports: map[string]object.Value{
		"b64decode": b64decode,
	}}
}
