package modules

import (
	"encoding/hex"

	"github.com/daios-rlm/pyrepl/internal/object"
)

// NewBinascii builds the `binascii` pseudo-module, on stdlib
// encoding/hex for the same reason base64mod.go is stdlib-only.
func NewBinascii() *object.Module {
	hexlify := &object.Builtin{Name: "binascii.hexlify", Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		if len(args) != 1 {
			return nil, ctx.NewError(object.TypeError, "hexlify() takes exactly one argument")
		}
		b, ok := args[0].(*object.Bytes)
		if !ok {
			return nil, ctx.NewError(object.TypeError, "hexlify() argument must be bytes")
		}
		return &object.Bytes{Value: []byte(hex.EncodeToString(b.Value))}, nil
	}}

	return &object.Module{Name: "binascii", Exports: map[string]object.Value{
		"hexlify": hexlify,
	}}
}
