package modules

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/daios-rlm/pyrepl/internal/object"
)

// NewZlib builds the `zlib` pseudo-module, backed by klauspost/compress
// rather than stdlib compress/zlib so the decompression path in this
// interpreter shares the same compression library the rest of the
// example pack already depends on for its own compressed-payload
// handling (see DESIGN.md).
func NewZlib() *object.Module {
	decompress := &object.Builtin{Name: "zlib.decompress", ParamNames: []string{"data", "wbits"}, Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		if len(args) < 1 {
			return nil, ctx.NewError(object.TypeError, "decompress() takes at least one argument")
		}
		b, ok := args[0].(*object.Bytes)
		if !ok {
			return nil, ctx.NewError(object.TypeError, "decompress() argument must be bytes")
		}
		r, err := zlib.NewReader(bytes.NewReader(b.Value))
		if err != nil {
			return nil, ctx.NewError(object.ValueError, "invalid zlib data: %s", err.Error())
		}
		defer r.Close()

		ceiling := int64(ctx.Limits().MaxZlibOutputBytes)
		limited := io.LimitReader(r, ceiling+1)
		out, err := io.ReadAll(limited)
		if err != nil {
			return nil, ctx.NewError(object.ValueError, "zlib decompression failed: %s", err.Error())
		}
		if int64(len(out)) > ceiling {
			return nil, ctx.NewError(object.ResourceLimitExceeded, "decompressed output exceeds the maximum permitted size")
		}
		return &object.Bytes{Value: out}, nil
	}}

	return &object.Module{Name: "zlib", Exports: map[string]object.Value{
		"decompress": decompress,
		"MAX_WBITS":  object.NewInt(15),
	}}
}
