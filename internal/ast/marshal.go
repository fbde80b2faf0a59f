package ast

import (
	"encoding/json"
	"fmt"

	"github.com/daios-rlm/pyrepl/internal/token"
)

// This file lets a Function value's body survive a Snapshot round
// trip through JSON (the CLI framing's opaque `state` token is a JSON
// document, and a session global bound to a user-defined function
// must still be callable after a process restart). The AST's node set
// is closed, so a discriminated envelope — {"kind": "...", "data": ...}
// — is enough; there is no need for a general reflection-based codec.

type envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func encode(kind string, v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: kind, Data: data})
}

// EncodeBlock serializes a *BlockStatement (a Function's Body) for the
// Snapshot wire format.
func EncodeBlock(b *BlockStatement) (json.RawMessage, error) {
	if b == nil {
		return json.Marshal(nil)
	}
	stmts, err := encodeStatements(b.Statements)
	if err != nil {
		return nil, err
	}
	return encode("Block", struct {
		Position   token.Position    `json:"pos"`
		Statements []json.RawMessage `json:"statements"`
	}{b.Position, stmts})
}

// DecodeBlock is the inverse of EncodeBlock.
func DecodeBlock(raw json.RawMessage) (*BlockStatement, error) {
	if string(raw) == "null" {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Kind != "Block" {
		return nil, fmt.Errorf("ast: expected Block, got %q", env.Kind)
	}
	var body struct {
		Position   token.Position    `json:"pos"`
		Statements []json.RawMessage `json:"statements"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil {
		return nil, err
	}
	stmts, err := decodeStatements(body.Statements)
	if err != nil {
		return nil, err
	}
	return &BlockStatement{Base: Base{Position: body.Position}, Statements: stmts}, nil
}

func encodeStatements(stmts []Statement) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(stmts))
	for i, s := range stmts {
		raw, err := EncodeStatement(s)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

func decodeStatements(raws []json.RawMessage) ([]Statement, error) {
	out := make([]Statement, len(raws))
	for i, raw := range raws {
		s, err := DecodeStatement(raw)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func encodeExpressions(exprs []Expression) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(exprs))
	for i, e := range exprs {
		raw, err := EncodeExpression(e)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

func decodeExpressions(raws []json.RawMessage) ([]Expression, error) {
	out := make([]Expression, len(raws))
	for i, raw := range raws {
		e, err := DecodeExpression(raw)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// EncodeStatement serializes any Statement node.
func EncodeStatement(s Statement) (json.RawMessage, error) {
	switch n := s.(type) {
	case *ExpressionStatement:
		expr, err := EncodeExpression(n.Expression)
		if err != nil {
			return nil, err
		}
		return encode("ExpressionStatement", struct {
			Position   token.Position  `json:"pos"`
			Expression json.RawMessage `json:"expression"`
		}{n.Position, expr})
	case *AssignStatement:
		targets, err := encodeExpressions(n.Targets)
		if err != nil {
			return nil, err
		}
		value, err := EncodeExpression(n.Value)
		if err != nil {
			return nil, err
		}
		return encode("AssignStatement", struct {
			Position token.Position    `json:"pos"`
			Targets  []json.RawMessage `json:"targets"`
			Value    json.RawMessage   `json:"value"`
		}{n.Position, targets, value})
	case *AugAssignStatement:
		target, err := EncodeExpression(n.Target)
		if err != nil {
			return nil, err
		}
		value, err := EncodeExpression(n.Value)
		if err != nil {
			return nil, err
		}
		return encode("AugAssignStatement", struct {
			Position token.Position  `json:"pos"`
			Target   json.RawMessage `json:"target"`
			Operator string          `json:"operator"`
			Value    json.RawMessage `json:"value"`
		}{n.Position, target, n.Operator, value})
	case *PassStatement:
		return encode("PassStatement", struct {
			Position token.Position `json:"pos"`
		}{n.Position})
	case *ReturnStatement:
		var value json.RawMessage
		if n.Value != nil {
			v, err := EncodeExpression(n.Value)
			if err != nil {
				return nil, err
			}
			value = v
		}
		return encode("ReturnStatement", struct {
			Position token.Position  `json:"pos"`
			Value    json.RawMessage `json:"value,omitempty"`
		}{n.Position, value})
	case *IfStatement:
		cond, err := EncodeExpression(n.Condition)
		if err != nil {
			return nil, err
		}
		then, err := EncodeBlock(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := EncodeBlock(n.Else)
		if err != nil {
			return nil, err
		}
		return encode("IfStatement", struct {
			Position  token.Position  `json:"pos"`
			Condition json.RawMessage `json:"condition"`
			Then      json.RawMessage `json:"then"`
			Else      json.RawMessage `json:"else"`
		}{n.Position, cond, then, els})
	case *ForStatement:
		target, err := EncodeExpression(n.Target)
		if err != nil {
			return nil, err
		}
		iterable, err := EncodeExpression(n.Iterable)
		if err != nil {
			return nil, err
		}
		body, err := EncodeBlock(n.Body)
		if err != nil {
			return nil, err
		}
		return encode("ForStatement", struct {
			Position token.Position  `json:"pos"`
			Target   json.RawMessage `json:"target"`
			Iterable json.RawMessage `json:"iterable"`
			Body     json.RawMessage `json:"body"`
		}{n.Position, target, iterable, body})
	case *TryStatement:
		body, err := EncodeBlock(n.Body)
		if err != nil {
			return nil, err
		}
		handlers := make([]json.RawMessage, len(n.Handlers))
		for i, h := range n.Handlers {
			hb, err := EncodeBlock(h.Body)
			if err != nil {
				return nil, err
			}
			hraw, err := json.Marshal(struct {
				Position token.Position  `json:"pos"`
				Kinds    []string        `json:"kinds"`
				As       string          `json:"as"`
				Body     json.RawMessage `json:"body"`
			}{h.Position, h.Kinds, h.As, hb})
			if err != nil {
				return nil, err
			}
			handlers[i] = hraw
		}
		return encode("TryStatement", struct {
			Position token.Position    `json:"pos"`
			Body     json.RawMessage   `json:"body"`
			Handlers []json.RawMessage `json:"handlers"`
		}{n.Position, body, handlers})
	case *FunctionDef:
		body, err := EncodeBlock(n.Body)
		if err != nil {
			return nil, err
		}
		return encode("FunctionDef", struct {
			Position token.Position `json:"pos"`
			Name     string         `json:"name"`
			Params   []string       `json:"params"`
			Body     json.RawMessage `json:"body"`
		}{n.Position, n.Name, n.Params, body})
	case *ImportStatement:
		return encode("ImportStatement", struct {
			Position token.Position `json:"pos"`
			Names    []ImportName   `json:"names"`
		}{n.Position, n.Names})
	case *FromImportStatement:
		return encode("FromImportStatement", struct {
			Position token.Position `json:"pos"`
			Module   string         `json:"module"`
			Names    []ImportName   `json:"names"`
		}{n.Position, n.Module, n.Names})
	default:
		return nil, fmt.Errorf("ast: unsupported statement kind %T", s)
	}
}

// DecodeStatement is the inverse of EncodeStatement.
func DecodeStatement(raw json.RawMessage) (Statement, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "ExpressionStatement":
		var body struct {
			Position   token.Position  `json:"pos"`
			Expression json.RawMessage `json:"expression"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		expr, err := DecodeExpression(body.Expression)
		if err != nil {
			return nil, err
		}
		return &ExpressionStatement{Base: Base{body.Position}, Expression: expr}, nil
	case "AssignStatement":
		var body struct {
			Position token.Position    `json:"pos"`
			Targets  []json.RawMessage `json:"targets"`
			Value    json.RawMessage   `json:"value"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		targets, err := decodeExpressions(body.Targets)
		if err != nil {
			return nil, err
		}
		value, err := DecodeExpression(body.Value)
		if err != nil {
			return nil, err
		}
		return &AssignStatement{Base: Base{body.Position}, Targets: targets, Value: value}, nil
	case "AugAssignStatement":
		var body struct {
			Position token.Position  `json:"pos"`
			Target   json.RawMessage `json:"target"`
			Operator string          `json:"operator"`
			Value    json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		target, err := DecodeExpression(body.Target)
		if err != nil {
			return nil, err
		}
		value, err := DecodeExpression(body.Value)
		if err != nil {
			return nil, err
		}
		return &AugAssignStatement{Base: Base{body.Position}, Target: target, Operator: body.Operator, Value: value}, nil
	case "PassStatement":
		var body struct {
			Position token.Position `json:"pos"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		return &PassStatement{Base: Base{body.Position}}, nil
	case "ReturnStatement":
		var body struct {
			Position token.Position  `json:"pos"`
			Value    json.RawMessage `json:"value,omitempty"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		var value Expression
		if len(body.Value) > 0 && string(body.Value) != "null" {
			v, err := DecodeExpression(body.Value)
			if err != nil {
				return nil, err
			}
			value = v
		}
		return &ReturnStatement{Base: Base{body.Position}, Value: value}, nil
	case "IfStatement":
		var body struct {
			Position  token.Position  `json:"pos"`
			Condition json.RawMessage `json:"condition"`
			Then      json.RawMessage `json:"then"`
			Else      json.RawMessage `json:"else"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		cond, err := DecodeExpression(body.Condition)
		if err != nil {
			return nil, err
		}
		then, err := DecodeBlock(body.Then)
		if err != nil {
			return nil, err
		}
		els, err := DecodeBlock(body.Else)
		if err != nil {
			return nil, err
		}
		return &IfStatement{Base: Base{body.Position}, Condition: cond, Then: then, Else: els}, nil
	case "ForStatement":
		var body struct {
			Position token.Position  `json:"pos"`
			Target   json.RawMessage `json:"target"`
			Iterable json.RawMessage `json:"iterable"`
			Body     json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		target, err := DecodeExpression(body.Target)
		if err != nil {
			return nil, err
		}
		iterable, err := DecodeExpression(body.Iterable)
		if err != nil {
			return nil, err
		}
		block, err := DecodeBlock(body.Body)
		if err != nil {
			return nil, err
		}
		return &ForStatement{Base: Base{body.Position}, Target: target, Iterable: iterable, Body: block}, nil
	case "TryStatement":
		var body struct {
			Position token.Position    `json:"pos"`
			Body     json.RawMessage   `json:"body"`
			Handlers []json.RawMessage `json:"handlers"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		block, err := DecodeBlock(body.Body)
		if err != nil {
			return nil, err
		}
		handlers := make([]*ExceptClause, len(body.Handlers))
		for i, hraw := range body.Handlers {
			var h struct {
				Position token.Position  `json:"pos"`
				Kinds    []string        `json:"kinds"`
				As       string          `json:"as"`
				Body     json.RawMessage `json:"body"`
			}
			if err := json.Unmarshal(hraw, &h); err != nil {
				return nil, err
			}
			hb, err := DecodeBlock(h.Body)
			if err != nil {
				return nil, err
			}
			handlers[i] = &ExceptClause{Base: Base{h.Position}, Kinds: h.Kinds, As: h.As, Body: hb}
		}
		return &TryStatement{Base: Base{body.Position}, Body: block, Handlers: handlers}, nil
	case "FunctionDef":
		var body struct {
			Position token.Position  `json:"pos"`
			Name     string          `json:"name"`
			Params   []string        `json:"params"`
			Body     json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		block, err := DecodeBlock(body.Body)
		if err != nil {
			return nil, err
		}
		return &FunctionDef{Base: Base{body.Position}, Name: body.Name, Params: body.Params, Body: block}, nil
	case "ImportStatement":
		var body struct {
			Position token.Position `json:"pos"`
			Names    []ImportName   `json:"names"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		return &ImportStatement{Base: Base{body.Position}, Names: body.Names}, nil
	case "FromImportStatement":
		var body struct {
			Position token.Position `json:"pos"`
			Module   string         `json:"module"`
			Names    []ImportName   `json:"names"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		return &FromImportStatement{Base: Base{body.Position}, Module: body.Module, Names: body.Names}, nil
	default:
		return nil, fmt.Errorf("ast: unsupported statement kind %q", env.Kind)
	}
}

// EncodeExpression serializes any Expression node.
func EncodeExpression(e Expression) (json.RawMessage, error) {
	switch n := e.(type) {
	case *Identifier:
		return encode("Identifier", struct {
			Position token.Position `json:"pos"`
			Value    string         `json:"value"`
		}{n.Position, n.Value})
	case *IntegerLiteral:
		return encode("IntegerLiteral", struct {
			Position token.Position `json:"pos"`
			Value    string         `json:"value"`
		}{n.Position, n.Value})
	case *StringLiteral:
		return encode("StringLiteral", struct {
			Position token.Position `json:"pos"`
			Value    string         `json:"value"`
		}{n.Position, n.Value})
	case *BytesLiteral:
		return encode("BytesLiteral", struct {
			Position token.Position `json:"pos"`
			Value    []byte         `json:"value"`
		}{n.Position, n.Value})
	case *FString:
		parts := make([]struct {
			Text string          `json:"text"`
			Expr json.RawMessage `json:"expr,omitempty"`
		}, len(n.Parts))
		for i, p := range n.Parts {
			if p.Expr != nil {
				raw, err := EncodeExpression(p.Expr)
				if err != nil {
					return nil, err
				}
				parts[i] = struct {
					Text string          `json:"text"`
					Expr json.RawMessage `json:"expr,omitempty"`
				}{p.Text, raw}
			} else {
				parts[i].Text = p.Text
			}
		}
		return encode("FString", struct {
			Position token.Position `json:"pos"`
			Parts    []struct {
				Text string          `json:"text"`
				Expr json.RawMessage `json:"expr,omitempty"`
			} `json:"parts"`
		}{n.Position, parts})
	case *BooleanLiteral:
		return encode("BooleanLiteral", struct {
			Position token.Position `json:"pos"`
			Value    bool           `json:"value"`
		}{n.Position, n.Value})
	case *NoneLiteral:
		return encode("NoneLiteral", struct {
			Position token.Position `json:"pos"`
		}{n.Position})
	case *ListLiteral:
		elems, err := encodeExpressions(n.Elements)
		if err != nil {
			return nil, err
		}
		return encode("ListLiteral", struct {
			Position token.Position    `json:"pos"`
			Elements []json.RawMessage `json:"elements"`
		}{n.Position, elems})
	case *TupleLiteral:
		elems, err := encodeExpressions(n.Elements)
		if err != nil {
			return nil, err
		}
		return encode("TupleLiteral", struct {
			Position token.Position    `json:"pos"`
			Elements []json.RawMessage `json:"elements"`
		}{n.Position, elems})
	case *SetLiteral:
		elems, err := encodeExpressions(n.Elements)
		if err != nil {
			return nil, err
		}
		return encode("SetLiteral", struct {
			Position token.Position    `json:"pos"`
			Elements []json.RawMessage `json:"elements"`
		}{n.Position, elems})
	case *DictLiteral:
		entries := make([]struct {
			Key   json.RawMessage `json:"key"`
			Value json.RawMessage `json:"value"`
		}, len(n.Entries))
		for i, ent := range n.Entries {
			k, err := EncodeExpression(ent.Key)
			if err != nil {
				return nil, err
			}
			v, err := EncodeExpression(ent.Value)
			if err != nil {
				return nil, err
			}
			entries[i] = struct {
				Key   json.RawMessage `json:"key"`
				Value json.RawMessage `json:"value"`
			}{k, v}
		}
		return encode("DictLiteral", struct {
			Position token.Position `json:"pos"`
			Entries  []struct {
				Key   json.RawMessage `json:"key"`
				Value json.RawMessage `json:"value"`
			} `json:"entries"`
		}{n.Position, entries})
	case *PrefixExpression:
		right, err := EncodeExpression(n.Right)
		if err != nil {
			return nil, err
		}
		return encode("PrefixExpression", struct {
			Position token.Position `json:"pos"`
			Operator string          `json:"operator"`
			Right    json.RawMessage `json:"right"`
		}{n.Position, n.Operator, right})
	case *InfixExpression:
		left, err := EncodeExpression(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := EncodeExpression(n.Right)
		if err != nil {
			return nil, err
		}
		return encode("InfixExpression", struct {
			Position token.Position `json:"pos"`
			Operator string          `json:"operator"`
			Left     json.RawMessage `json:"left"`
			Right    json.RawMessage `json:"right"`
		}{n.Position, n.Operator, left, right})
	case *BoolExpression:
		left, err := EncodeExpression(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := EncodeExpression(n.Right)
		if err != nil {
			return nil, err
		}
		return encode("BoolExpression", struct {
			Position token.Position `json:"pos"`
			Operator string          `json:"operator"`
			Left     json.RawMessage `json:"left"`
			Right    json.RawMessage `json:"right"`
		}{n.Position, n.Operator, left, right})
	case *NotExpression:
		right, err := EncodeExpression(n.Right)
		if err != nil {
			return nil, err
		}
		return encode("NotExpression", struct {
			Position token.Position `json:"pos"`
			Right    json.RawMessage `json:"right"`
		}{n.Position, right})
	case *ConditionalExpression:
		cond, err := EncodeExpression(n.Condition)
		if err != nil {
			return nil, err
		}
		then, err := EncodeExpression(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := EncodeExpression(n.Else)
		if err != nil {
			return nil, err
		}
		return encode("ConditionalExpression", struct {
			Position  token.Position `json:"pos"`
			Condition json.RawMessage `json:"condition"`
			Then      json.RawMessage `json:"then"`
			Else      json.RawMessage `json:"else"`
		}{n.Position, cond, then, els})
	case *CallExpression:
		fn, err := EncodeExpression(n.Function)
		if err != nil {
			return nil, err
		}
		args, err := encodeExpressions(n.Args)
		if err != nil {
			return nil, err
		}
		kwargs := make([]struct {
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
		}, len(n.Keywords))
		for i, kw := range n.Keywords {
			v, err := EncodeExpression(kw.Value)
			if err != nil {
				return nil, err
			}
			kwargs[i] = struct {
				Name  string          `json:"name"`
				Value json.RawMessage `json:"value"`
			}{kw.Name, v}
		}
		return encode("CallExpression", struct {
			Position token.Position    `json:"pos"`
			Function json.RawMessage   `json:"function"`
			Args     []json.RawMessage `json:"args"`
			Keywords []struct {
				Name  string          `json:"name"`
				Value json.RawMessage `json:"value"`
			} `json:"keywords,omitempty"`
		}{n.Position, fn, args, kwargs})
	case *AttributeExpression:
		obj, err := EncodeExpression(n.Object)
		if err != nil {
			return nil, err
		}
		return encode("AttributeExpression", struct {
			Position token.Position `json:"pos"`
			Object   json.RawMessage `json:"object"`
			Name     string          `json:"name"`
		}{n.Position, obj, n.Name})
	case *SubscriptExpression:
		obj, err := EncodeExpression(n.Object)
		if err != nil {
			return nil, err
		}
		var index json.RawMessage
		if n.Index != nil {
			idx, err := EncodeExpression(n.Index)
			if err != nil {
				return nil, err
			}
			index = idx
		}
		var slice *struct {
			Start json.RawMessage `json:"start,omitempty"`
			Stop  json.RawMessage `json:"stop,omitempty"`
			Step  json.RawMessage `json:"step,omitempty"`
		}
		if n.Slice != nil {
			s := &struct {
				Start json.RawMessage `json:"start,omitempty"`
				Stop  json.RawMessage `json:"stop,omitempty"`
				Step  json.RawMessage `json:"step,omitempty"`
			}{}
			if n.Slice.Start != nil {
				v, err := EncodeExpression(n.Slice.Start)
				if err != nil {
					return nil, err
				}
				s.Start = v
			}
			if n.Slice.Stop != nil {
				v, err := EncodeExpression(n.Slice.Stop)
				if err != nil {
					return nil, err
				}
				s.Stop = v
			}
			if n.Slice.Step != nil {
				v, err := EncodeExpression(n.Slice.Step)
				if err != nil {
					return nil, err
				}
				s.Step = v
			}
			slice = s
		}
		return encode("SubscriptExpression", struct {
			Position token.Position  `json:"pos"`
			Object   json.RawMessage `json:"object"`
			Index    json.RawMessage `json:"index,omitempty"`
			Slice    *struct {
				Start json.RawMessage `json:"start,omitempty"`
				Stop  json.RawMessage `json:"stop,omitempty"`
				Step  json.RawMessage `json:"step,omitempty"`
			} `json:"slice,omitempty"`
		}{n.Position, obj, index, slice})
	case *Comprehension:
		elem, err := EncodeExpression(n.Element)
		if err != nil {
			return nil, err
		}
		clauses := make([]struct {
			Target   json.RawMessage `json:"target,omitempty"`
			Iterable json.RawMessage `json:"iterable,omitempty"`
			Cond     json.RawMessage `json:"cond,omitempty"`
		}, len(n.Clauses))
		for i, c := range n.Clauses {
			var cl struct {
				Target   json.RawMessage `json:"target,omitempty"`
				Iterable json.RawMessage `json:"iterable,omitempty"`
				Cond     json.RawMessage `json:"cond,omitempty"`
			}
			if c.Target != nil {
				v, err := EncodeExpression(c.Target)
				if err != nil {
					return nil, err
				}
				cl.Target = v
			}
			if c.Iterable != nil {
				v, err := EncodeExpression(c.Iterable)
				if err != nil {
					return nil, err
				}
				cl.Iterable = v
			}
			if c.Cond != nil {
				v, err := EncodeExpression(c.Cond)
				if err != nil {
					return nil, err
				}
				cl.Cond = v
			}
			clauses[i] = cl
		}
		return encode("Comprehension", struct {
			Position token.Position `json:"pos"`
			Kind     int             `json:"kind"`
			Element  json.RawMessage `json:"element"`
			Clauses  []struct {
				Target   json.RawMessage `json:"target,omitempty"`
				Iterable json.RawMessage `json:"iterable,omitempty"`
				Cond     json.RawMessage `json:"cond,omitempty"`
			} `json:"clauses"`
		}{n.Position, int(n.Kind), elem, clauses})
	default:
		return nil, fmt.Errorf("ast: unsupported expression kind %T", e)
	}
}

// DecodeExpression is the inverse of EncodeExpression.
func DecodeExpression(raw json.RawMessage) (Expression, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "Identifier":
		var body struct {
			Position token.Position `json:"pos"`
			Value    string         `json:"value"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		return &Identifier{Base: Base{body.Position}, Value: body.Value}, nil
	case "IntegerLiteral":
		var body struct {
			Position token.Position `json:"pos"`
			Value    string         `json:"value"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		return &IntegerLiteral{Base: Base{body.Position}, Value: body.Value}, nil
	case "StringLiteral":
		var body struct {
			Position token.Position `json:"pos"`
			Value    string         `json:"value"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		return &StringLiteral{Base: Base{body.Position}, Value: body.Value}, nil
	case "BytesLiteral":
		var body struct {
			Position token.Position `json:"pos"`
			Value    []byte         `json:"value"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		return &BytesLiteral{Base: Base{body.Position}, Value: body.Value}, nil
	case "FString":
		var body struct {
			Position token.Position `json:"pos"`
			Parts    []struct {
				Text string          `json:"text"`
				Expr json.RawMessage `json:"expr,omitempty"`
			} `json:"parts"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		parts := make([]FStringPart, len(body.Parts))
		for i, p := range body.Parts {
			var expr Expression
			if len(p.Expr) > 0 {
				e, err := DecodeExpression(p.Expr)
				if err != nil {
					return nil, err
				}
				expr = e
			}
			parts[i] = FStringPart{Text: p.Text, Expr: expr}
		}
		return &FString{Base: Base{body.Position}, Parts: parts}, nil
	case "BooleanLiteral":
		var body struct {
			Position token.Position `json:"pos"`
			Value    bool           `json:"value"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		return &BooleanLiteral{Base: Base{body.Position}, Value: body.Value}, nil
	case "NoneLiteral":
		var body struct {
			Position token.Position `json:"pos"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		return &NoneLiteral{Base: Base{body.Position}}, nil
	case "ListLiteral":
		var body struct {
			Position token.Position    `json:"pos"`
			Elements []json.RawMessage `json:"elements"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		elems, err := decodeExpressions(body.Elements)
		if err != nil {
			return nil, err
		}
		return &ListLiteral{Base: Base{body.Position}, Elements: elems}, nil
	case "TupleLiteral":
		var body struct {
			Position token.Position    `json:"pos"`
			Elements []json.RawMessage `json:"elements"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		elems, err := decodeExpressions(body.Elements)
		if err != nil {
			return nil, err
		}
		return &TupleLiteral{Base: Base{body.Position}, Elements: elems}, nil
	case "SetLiteral":
		var body struct {
			Position token.Position    `json:"pos"`
			Elements []json.RawMessage `json:"elements"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		elems, err := decodeExpressions(body.Elements)
		if err != nil {
			return nil, err
		}
		return &SetLiteral{Base: Base{body.Position}, Elements: elems}, nil
	case "DictLiteral":
		var body struct {
			Position token.Position `json:"pos"`
			Entries  []struct {
				Key   json.RawMessage `json:"key"`
				Value json.RawMessage `json:"value"`
			} `json:"entries"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		entries := make([]DictEntry, len(body.Entries))
		for i, ent := range body.Entries {
			k, err := DecodeExpression(ent.Key)
			if err != nil {
				return nil, err
			}
			v, err := DecodeExpression(ent.Value)
			if err != nil {
				return nil, err
			}
			entries[i] = DictEntry{Key: k, Value: v}
		}
		return &DictLiteral{Base: Base{body.Position}, Entries: entries}, nil
	case "PrefixExpression":
		var body struct {
			Position token.Position  `json:"pos"`
			Operator string          `json:"operator"`
			Right    json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		right, err := DecodeExpression(body.Right)
		if err != nil {
			return nil, err
		}
		return &PrefixExpression{Base: Base{body.Position}, Operator: body.Operator, Right: right}, nil
	case "InfixExpression":
		var body struct {
			Position token.Position  `json:"pos"`
			Operator string          `json:"operator"`
			Left     json.RawMessage `json:"left"`
			Right    json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		left, err := DecodeExpression(body.Left)
		if err != nil {
			return nil, err
		}
		right, err := DecodeExpression(body.Right)
		if err != nil {
			return nil, err
		}
		return &InfixExpression{Base: Base{body.Position}, Operator: body.Operator, Left: left, Right: right}, nil
	case "BoolExpression":
		var body struct {
			Position token.Position  `json:"pos"`
			Operator string          `json:"operator"`
			Left     json.RawMessage `json:"left"`
			Right    json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		left, err := DecodeExpression(body.Left)
		if err != nil {
			return nil, err
		}
		right, err := DecodeExpression(body.Right)
		if err != nil {
			return nil, err
		}
		return &BoolExpression{Base: Base{body.Position}, Operator: body.Operator, Left: left, Right: right}, nil
	case "NotExpression":
		var body struct {
			Position token.Position  `json:"pos"`
			Right    json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		right, err := DecodeExpression(body.Right)
		if err != nil {
			return nil, err
		}
		return &NotExpression{Base: Base{body.Position}, Right: right}, nil
	case "ConditionalExpression":
		var body struct {
			Position  token.Position  `json:"pos"`
			Condition json.RawMessage `json:"condition"`
			Then      json.RawMessage `json:"then"`
			Else      json.RawMessage `json:"else"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		cond, err := DecodeExpression(body.Condition)
		if err != nil {
			return nil, err
		}
		then, err := DecodeExpression(body.Then)
		if err != nil {
			return nil, err
		}
		els, err := DecodeExpression(body.Else)
		if err != nil {
			return nil, err
		}
		return &ConditionalExpression{Base: Base{body.Position}, Condition: cond, Then: then, Else: els}, nil
	case "CallExpression":
		var body struct {
			Position token.Position    `json:"pos"`
			Function json.RawMessage   `json:"function"`
			Args     []json.RawMessage `json:"args"`
			Keywords []struct {
				Name  string          `json:"name"`
				Value json.RawMessage `json:"value"`
			} `json:"keywords,omitempty"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		fn, err := DecodeExpression(body.Function)
		if err != nil {
			return nil, err
		}
		args, err := decodeExpressions(body.Args)
		if err != nil {
			return nil, err
		}
		keywords := make([]Keyword, len(body.Keywords))
		for i, kw := range body.Keywords {
			v, err := DecodeExpression(kw.Value)
			if err != nil {
				return nil, err
			}
			keywords[i] = Keyword{Name: kw.Name, Value: v}
		}
		return &CallExpression{Base: Base{body.Position}, Function: fn, Args: args, Keywords: keywords}, nil
	case "AttributeExpression":
		var body struct {
			Position token.Position  `json:"pos"`
			Object   json.RawMessage `json:"object"`
			Name     string          `json:"name"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		obj, err := DecodeExpression(body.Object)
		if err != nil {
			return nil, err
		}
		return &AttributeExpression{Base: Base{body.Position}, Object: obj, Name: body.Name}, nil
	case "SubscriptExpression":
		var body struct {
			Position token.Position  `json:"pos"`
			Object   json.RawMessage `json:"object"`
			Index    json.RawMessage `json:"index,omitempty"`
			Slice    *struct {
				Start json.RawMessage `json:"start,omitempty"`
				Stop  json.RawMessage `json:"stop,omitempty"`
				Step  json.RawMessage `json:"step,omitempty"`
			} `json:"slice,omitempty"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		obj, err := DecodeExpression(body.Object)
		if err != nil {
			return nil, err
		}
		var index Expression
		if len(body.Index) > 0 {
			idx, err := DecodeExpression(body.Index)
			if err != nil {
				return nil, err
			}
			index = idx
		}
		var slice *Slice
		if body.Slice != nil {
			s := &Slice{}
			if len(body.Slice.Start) > 0 {
				v, err := DecodeExpression(body.Slice.Start)
				if err != nil {
					return nil, err
				}
				s.Start = v
			}
			if len(body.Slice.Stop) > 0 {
				v, err := DecodeExpression(body.Slice.Stop)
				if err != nil {
					return nil, err
				}
				s.Stop = v
			}
			if len(body.Slice.Step) > 0 {
				v, err := DecodeExpression(body.Slice.Step)
				if err != nil {
					return nil, err
				}
				s.Step = v
			}
			slice = s
		}
		return &SubscriptExpression{Base: Base{body.Position}, Object: obj, Index: index, Slice: slice}, nil
	case "Comprehension":
		var body struct {
			Position token.Position  `json:"pos"`
			Kind     int             `json:"kind"`
			Element  json.RawMessage `json:"element"`
			Clauses  []struct {
				Target   json.RawMessage `json:"target,omitempty"`
				Iterable json.RawMessage `json:"iterable,omitempty"`
				Cond     json.RawMessage `json:"cond,omitempty"`
			} `json:"clauses"`
		}
		if err := json.Unmarshal(env.Data, &body); err != nil {
			return nil, err
		}
		elem, err := DecodeExpression(body.Element)
		if err != nil {
			return nil, err
		}
		clauses := make([]ComprehensionClause, len(body.Clauses))
		for i, c := range body.Clauses {
			var cl ComprehensionClause
			if len(c.Target) > 0 {
				v, err := DecodeExpression(c.Target)
				if err != nil {
					return nil, err
				}
				cl.Target = v
			}
			if len(c.Iterable) > 0 {
				v, err := DecodeExpression(c.Iterable)
				if err != nil {
					return nil, err
				}
				cl.Iterable = v
			}
			if len(c.Cond) > 0 {
				v, err := DecodeExpression(c.Cond)
				if err != nil {
					return nil, err
				}
				cl.Cond = v
			}
			clauses[i] = cl
		}
		return &Comprehension{Base: Base{body.Position}, Kind: ComprehensionKind(body.Kind), Element: elem, Clauses: clauses}, nil
	default:
		return nil, fmt.Errorf("ast: unsupported expression kind %q", env.Kind)
	}
}
