package modules

import (
	"math/big"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/daios-rlm/pyrepl/internal/object"
)

// jsonDecoder is a small hand-written recursive-descent JSON reader,
// built the same "scan a rune slice with a position cursor" way
// internal/lexer scans source text. It exists because Go's stdlib
// encoding/json decodes objects into an unordered map[string]any,
// which cannot satisfy the insertion-order guarantee object.Dict
// requires; writing the decoder directly avoids a second pass to
// recover an order stdlib JSON already threw away.
type jsonDecoder struct {
	src []rune
	pos int
}

func (d *jsonDecoder) skipWS() {
	for d.pos < len(d.src) {
		switch d.src[d.pos] {
		case ' ', '\t', '\n', '\r':
			d.pos++
		default:
			return
		}
	}
}

func (d *jsonDecoder) peek() rune {
	if d.pos >= len(d.src) {
		return 0
	}
	return d.src[d.pos]
}

func (d *jsonDecoder) decodeValue() (object.Value, error) {
	d.skipWS()
	if d.pos >= len(d.src) {
		return nil, jsonErr("unexpected end of input")
	}
	switch c := d.peek(); {
	case c == '{':
		return d.decodeObject()
	case c == '[':
		return d.decodeArray()
	case c == '"':
		s, err := d.decodeString()
		if err != nil {
			return nil, err
		}
		return &object.String{Value: s}, nil
	case c == 't':
		return d.decodeLiteral("true", object.TRUE)
	case c == 'f':
		return d.decodeLiteral("false", object.FALSE)
	case c == 'n':
		return d.decodeLiteral("null", object.NULL)
	case c == '-' || (c >= '0' && c <= '9'):
		return d.decodeNumber()
	default:
		return nil, jsonErr("unexpected character " + string(c))
	}
}

func (d *jsonDecoder) decodeLiteral(lit string, v object.Value) (object.Value, error) {
	if d.pos+len(lit) > len(d.src) || string(d.src[d.pos:d.pos+len(lit)]) != lit {
		return nil, jsonErr("invalid literal")
	}
	d.pos += len(lit)
	return v, nil
}

func (d *jsonDecoder) decodeNumber() (object.Value, error) {
	start := d.pos
	if d.peek() == '-' {
		d.pos++
	}
	isFloat := false
	for d.pos < len(d.src) {
		c := d.src[d.pos]
		if c >= '0' && c <= '9' {
			d.pos++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
			isFloat = true
			d.pos++
			continue
		}
		break
	}
	text := string(d.src[start:d.pos])
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, jsonErr("invalid number")
		}
		return &object.Integer{Value: big.NewInt(int64(f))}, nil
	}
	n := new(big.Int)
	if _, ok := n.SetString(text, 10); !ok {
		return nil, jsonErr("invalid number")
	}
	return &object.Integer{Value: n}, nil
}

func (d *jsonDecoder) decodeString() (string, error) {
	d.pos++ // opening quote
	var sb strings.Builder
	for {
		if d.pos >= len(d.src) {
			return "", jsonErr("unterminated string")
		}
		c := d.src[d.pos]
		if c == '"' {
			d.pos++
			return sb.String(), nil
		}
		if c == '\\' {
			d.pos++
			if d.pos >= len(d.src) {
				return "", jsonErr("unterminated escape")
			}
			esc := d.src[d.pos]
			switch esc {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case '/':
				sb.WriteByte('/')
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'u':
				if d.pos+4 >= len(d.src) {
					return "", jsonErr("invalid unicode escape")
				}
				hex := string(d.src[d.pos+1 : d.pos+5])
				n, err := strconv.ParseUint(hex, 16, 32)
				if err != nil {
					return "", jsonErr("invalid unicode escape")
				}
				r := rune(n)
				d.pos += 4
				if utf16.IsSurrogate(r) && d.pos+6 < len(d.src) && d.src[d.pos+1] == '\\' && d.src[d.pos+2] == 'u' {
					hex2 := string(d.src[d.pos+3 : d.pos+7])
					n2, err2 := strconv.ParseUint(hex2, 16, 32)
					if err2 == nil {
						combined := utf16.DecodeRune(r, rune(n2))
						if combined != utf8.RuneError {
							sb.WriteRune(combined)
							d.pos += 6
							d.pos++
							continue
						}
					}
				}
				sb.WriteRune(r)
			default:
				return "", jsonErr("invalid escape character")
			}
			d.pos++
			continue
		}
		sb.WriteRune(c)
		d.pos++
	}
}

func (d *jsonDecoder) decodeArray() (object.Value, error) {
	d.pos++ // '['
	list := &object.List{}
	d.skipWS()
	if d.peek() == ']' {
		d.pos++
		return list, nil
	}
	for {
		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		list.Elements = append(list.Elements, v)
		d.skipWS()
		if d.peek() == ',' {
			d.pos++
			continue
		}
		if d.peek() == ']' {
			d.pos++
			return list, nil
		}
		return nil, jsonErr("expected ',' or ']'")
	}
}

func (d *jsonDecoder) decodeObject() (object.Value, error) {
	d.pos++ // '{'
	dict := object.NewDict()
	d.skipWS()
	if d.peek() == '}' {
		d.pos++
		return dict, nil
	}
	for {
		d.skipWS()
		if d.peek() != '"' {
			return nil, jsonErr("expected string key")
		}
		key, err := d.decodeString()
		if err != nil {
			return nil, err
		}
		d.skipWS()
		if d.peek() != ':' {
			return nil, jsonErr("expected ':'")
		}
		d.pos++
		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		encodedKey, _ := object.DictKey(&object.String{Value: key})
		dict.Set(encodedKey, v)
		d.skipWS()
		if d.peek() == ',' {
			d.pos++
			continue
		}
		if d.peek() == '}' {
			d.pos++
			return dict, nil
		}
		return nil, jsonErr("expected ',' or '}'")
	}
}

type jsonError struct{ msg string }

func (e *jsonError) Error() string { return e.msg }
func jsonErr(msg string) error     { return &jsonError{msg: msg} }

func jsonEncode(v object.Value, sb *strings.Builder) error {
	switch x := v.(type) {
	case *object.Null:
		sb.WriteString("null")
	case *object.Boolean:
		if x.Value {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case *object.Integer:
		sb.WriteString(x.Value.String())
	case *object.String:
		jsonEncodeString(x.Value, sb)
	case *object.List:
		sb.WriteByte('[')
		for i, e := range x.Elements {
			if i != 0 {
				sb.WriteByte(',')
			}
			if err := jsonEncode(e, sb); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case *object.Tuple:
		sb.WriteByte('[')
		for i, e := range x.Elements {
			if i != 0 {
				sb.WriteByte(',')
			}
			if err := jsonEncode(e, sb); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case *object.Dict:
		sb.WriteByte('{')
		for i, k := range x.Keys() {
			if i != 0 {
				sb.WriteByte(',')
			}
			jsonEncodeString(dictKeyText(k), sb)
			sb.WriteByte(':')
			val, _ := x.Get(k)
			if err := jsonEncode(val, sb); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	default:
		return jsonErr("object of type " + string(v.Type()) + " is not JSON serializable")
	}
	return nil
}

// dictKeyText recovers the literal text a Dict's internal encoded key
// should render as inside a JSON object key, decoding it the same way
// object.DictKeyToValue does for display and iteration.
func dictKeyText(k string) string {
	v := object.DictKeyToValue(k)
	if s, ok := v.(*object.String); ok {
		return s.Value
	}
	return v.Inspect()
}

func jsonEncodeString(s string, sb *strings.Builder) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if r < 0x20 {
				sb.WriteString("\\u")
				sb.WriteString(strconv.FormatInt(int64(r), 16))
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
}

// EncodeValue renders v as JSON text, exported for reuse by
// internal/session's sqlite-backed snapshot store so that persisted
// bindings use the same encoder the json module itself exposes to
// user code, rather than a second hand-rolled serializer.
func EncodeValue(v object.Value) (string, error) {
	var sb strings.Builder
	if err := jsonEncode(v, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// DecodeValue parses s as JSON text, the counterpart to EncodeValue.
func DecodeValue(s string) (object.Value, error) {
	d := &jsonDecoder{src: []rune(s)}
	v, err := d.decodeValue()
	if err != nil {
		return nil, err
	}
	d.skipWS()
	if d.pos != len(d.src) {
		return nil, jsonErr("trailing data")
	}
	return v, nil
}

// NewJSON builds the `json` pseudo-module.
func NewJSON() *object.Module {
	loads := &object.Builtin{Name: "json.loads", Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		if len(args) != 1 {
			return nil, ctx.NewError(object.TypeError, "loads() takes exactly one argument")
		}
		s, ok := args[0].(*object.String)
		if !ok {
			return nil, ctx.NewError(object.TypeError, "loads() argument must be str")
		}
		d := &jsonDecoder{src: []rune(s.Value)}
		v, err := d.decodeValue()
		if err != nil {
			return nil, ctx.NewError(object.ValueError, "invalid JSON: %s", err.Error())
		}
		d.skipWS()
		if d.pos != len(d.src) {
			return nil, ctx.NewError(object.ValueError, "invalid JSON: trailing data")
		}
		return v, nil
	}}

	dumps := &object.Builtin{Name: "json.dumps", Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		if len(args) != 1 {
			return nil, ctx.NewError(object.TypeError, "dumps() takes exactly one argument")
		}
		var sb strings.Builder
		if err := jsonEncode(args[0], &sb); err != nil {
			return nil, ctx.NewError(object.TypeError, "%s", err.Error())
		}
		return &object.String{Value: sb.String()}, nil
	}}

	return &object.Module{Name: "json", Exports: map[string]object.Value{
		"loads": loads,
		"dumps": dumps,
	}}
}
