package evaluator

import (
	"strings"

	"github.com/daios-rlm/pyrepl/internal/object"
)

// formatPercent implements the %-formatting subset this interpreter
// accepts: %s %d %x %r %%. A single non-tuple right-hand value is
// treated as the sole argument; a Tuple supplies one value per
// directive in order.
func (e *Evaluator) formatPercent(template string, rhs object.Value) (object.Value, *object.InterpError) {
	var args []object.Value
	if t, ok := rhs.(*object.Tuple); ok {
		args = t.Elements
	} else {
		args = []object.Value{rhs}
	}

	var sb strings.Builder
	argi := 0
	runes := []rune(template)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' {
			sb.WriteRune(runes[i])
			continue
		}
		if i+1 >= len(runes) {
			return nil, e.NewError(object.ValueError, "incomplete format")
		}
		i++
		switch runes[i] {
		case '%':
			sb.WriteByte('%')
		case 's':
			v, err := e.nextFormatArg(args, &argi)
			if err != nil {
				return nil, err
			}
			sb.WriteString(v.Inspect())
		case 'r':
			v, err := e.nextFormatArg(args, &argi)
			if err != nil {
				return nil, err
			}
			sb.WriteString(v.Display())
		case 'd':
			v, err := e.nextFormatArg(args, &argi)
			if err != nil {
				return nil, err
			}
			iv, ok := asInt(v)
			if !ok {
				return nil, e.NewError(object.TypeError, "%%d format: a number is required, not %s", v.Type())
			}
			sb.WriteString(iv.String())
		case 'x':
			v, err := e.nextFormatArg(args, &argi)
			if err != nil {
				return nil, err
			}
			iv, ok := asInt(v)
			if !ok {
				return nil, e.NewError(object.TypeError, "%%x format: an integer is required, not %s", v.Type())
			}
			sb.WriteString(iv.Text(16))
		default:
			return nil, e.NewError(object.ValueError, "unsupported format character '%c'", runes[i])
		}
	}
	return &object.String{Value: sb.String()}, nil
}

func (e *Evaluator) nextFormatArg(args []object.Value, i *int) (object.Value, *object.InterpError) {
	if *i >= len(args) {
		return nil, e.NewError(object.TypeError, "not enough arguments for format string")
	}
	v := args[*i]
	*i++
	return v, nil
}
