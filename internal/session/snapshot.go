package session

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/daios-rlm/pyrepl/internal/ast"
	"github.com/daios-rlm/pyrepl/internal/object"
)

// Binding is one non-frozen name captured out of session globals.
type Binding struct {
	Name  string
	Value object.Value
}

// Snapshot is the opaque `state` token from the Execute contract.
// Concretely it captures every user-set global binding (builtins and
// modules are frozen and always re-installed fresh, so they are never
// part of the snapshot) plus the Session's identity and cumulative
// metrics. It round-trips through JSON so the CLI framing in §6 can
// hand it back to the orchestrator between process invocations, the
// way the RLM loop threads state across turns.
type Snapshot struct {
	ID       uuid.UUID
	Bindings []Binding
	Metrics  Metrics
}

// Snapshot captures the Session's current globals. Frozen bindings
// (builtins, modules) are skipped since InstallBuiltins/module
// registration recreate them identically on Restore.
func (s *Session) Snapshot() Snapshot {
	var bindings []Binding
	for _, name := range s.globals.Names() {
		v, ok := s.globals.Raw(name)
		if !ok {
			continue
		}
		if isFrozenKind(v) {
			continue
		}
		bindings = append(bindings, Binding{Name: name, Value: v})
	}
	return Snapshot{ID: s.ID, Bindings: bindings, Metrics: s.metrics}
}

// Restore replaces the Session's user-bound globals with snap's
// bindings, leaving builtins/modules untouched (they are never part
// of a snapshot). The Session's identity and metrics are adopted from
// snap, matching the "opaque token round-trips" requirement in §6.
// Function values are rebound with Env pointed at this Session's own
// globals frame, since this implementation only permits top-level
// closures over session globals.
func (s *Session) Restore(snap Snapshot) {
	s.ID = snap.ID
	s.metrics = snap.Metrics
	for _, b := range snap.Bindings {
		v := b.Value
		if fn, ok := v.(*object.Function); ok {
			rebound := *fn
			rebound.Env = s.globals
			v = &rebound
		}
		s.globals.Set(b.Name, v)
	}
}

func isFrozenKind(v object.Value) bool {
	switch v.(type) {
	case *object.Builtin, *object.Module:
		return true
	default:
		return false
	}
}

// wireBinding and wireSnapshot are the JSON-friendly mirrors of
// Binding/Snapshot: object.Value is an interface, so a discriminated
// {"type": ..., ...} envelope stands in for it on the wire, the same
// way internal/ast's envelope lets a Function's body survive the trip.
type wireSnapshot struct {
	ID       uuid.UUID     `json:"id"`
	Bindings []wireBinding `json:"bindings"`
	Metrics  Metrics       `json:"metrics"`
}

type wireBinding struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON implements the Snapshot side of the opaque `state` token.
func (snap Snapshot) MarshalJSON() ([]byte, error) {
	wire := wireSnapshot{ID: snap.ID, Metrics: snap.Metrics}
	for _, b := range snap.Bindings {
		raw, err := encodeValue(b.Value)
		if err != nil {
			return nil, fmt.Errorf("session: snapshot binding %q: %w", b.Name, err)
		}
		wire.Bindings = append(wire.Bindings, wireBinding{Name: b.Name, Value: raw})
	}
	return json.Marshal(wire)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (snap *Snapshot) UnmarshalJSON(data []byte) error {
	var wire wireSnapshot
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	snap.ID = wire.ID
	snap.Metrics = wire.Metrics
	snap.Bindings = nil
	for _, wb := range wire.Bindings {
		v, err := decodeValue(wb.Value)
		if err != nil {
			return fmt.Errorf("session: snapshot binding %q: %w", wb.Name, err)
		}
		snap.Bindings = append(snap.Bindings, Binding{Name: wb.Name, Value: v})
	}
	return nil
}

type valueEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func wrapValue(typ string, v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueEnvelope{Type: typ, Data: data})
}

// encodeValue serializes any runtime Value reachable as a session
// global. Builtin and Module are excluded by isFrozenKind before a
// Binding is ever created, so they never reach here.
func encodeValue(v object.Value) (json.RawMessage, error) {
	switch x := v.(type) {
	case *object.String:
		return wrapValue("str", x.Value)
	case *object.Bytes:
		return wrapValue("bytes", x.Value)
	case *object.Integer:
		return wrapValue("int", x.Value.String())
	case *object.Boolean:
		return wrapValue("bool", x.Value)
	case *object.Null:
		return wrapValue("none", nil)
	case *object.List:
		elems, err := encodeValues(x.Elements)
		if err != nil {
			return nil, err
		}
		return wrapValue("list", elems)
	case *object.Tuple:
		elems, err := encodeValues(x.Elements)
		if err != nil {
			return nil, err
		}
		return wrapValue("tuple", elems)
	case *object.Set:
		elems, err := encodeValues(x.Elements())
		if err != nil {
			return nil, err
		}
		return wrapValue("set", elems)
	case *object.Dict:
		entries := make([]struct {
			Key   string          `json:"key"`
			Value json.RawMessage `json:"value"`
		}, 0, x.Len())
		for _, k := range x.Keys() {
			val, _ := x.Get(k)
			raw, err := encodeValue(val)
			if err != nil {
				return nil, err
			}
			entries = append(entries, struct {
				Key   string          `json:"key"`
				Value json.RawMessage `json:"value"`
			}{k, raw})
		}
		return wrapValue("dict", entries)
	case *object.Match:
		return wrapValue("match", struct {
			Subject string    `json:"subject"`
			Groups  []*string `json:"groups"`
			Starts  []int     `json:"starts"`
			Ends    []int     `json:"ends"`
			Names   map[string]int `json:"names"`
		}{x.Subject, x.Groups, x.Starts, x.Ends, x.Names})
	case *object.Function:
		block, _ := x.Body.(*ast.BlockStatement)
		body, err := ast.EncodeBlock(block)
		if err != nil {
			return nil, err
		}
		return wrapValue("function", struct {
			Name   string          `json:"name"`
			Params []string        `json:"params"`
			Body   json.RawMessage `json:"body"`
		}{x.Name, x.Params, body})
	default:
		return nil, fmt.Errorf("value of type %s cannot be captured in a snapshot", v.Type())
	}
}

func encodeValues(vs []object.Value) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(vs))
	for i, v := range vs {
		raw, err := encodeValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

func decodeValues(raws []json.RawMessage) ([]object.Value, error) {
	out := make([]object.Value, len(raws))
	for i, raw := range raws {
		v, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// decodeValue is the inverse of encodeValue. Function values decode
// with Env left nil; Restore fills it in with the target Session's
// globals frame before rebinding.
func decodeValue(raw json.RawMessage) (object.Value, error) {
	var env valueEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case "str":
		var s string
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return nil, err
		}
		return &object.String{Value: s}, nil
	case "bytes":
		var b []byte
		if err := json.Unmarshal(env.Data, &b); err != nil {
			return nil, err
		}
		return &object.Bytes{Value: b}, nil
	case "int":
		var s string
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return nil, err
		}
		n := new(big.Int)
		if _, ok := n.SetString(s, 10); !ok {
			return nil, fmt.Errorf("invalid integer literal %q in snapshot", s)
		}
		return &object.Integer{Value: n}, nil
	case "bool":
		var b bool
		if err := json.Unmarshal(env.Data, &b); err != nil {
			return nil, err
		}
		return object.NativeBoolToBoolean(b), nil
	case "none":
		return object.NULL, nil
	case "list":
		var raws []json.RawMessage
		if err := json.Unmarshal(env.Data, &raws); err != nil {
			return nil, err
		}
		elems, err := decodeValues(raws)
		if err != nil {
			return nil, err
		}
		return &object.List{Elements: elems}, nil
	case "tuple":
		var raws []json.RawMessage
		if err := json.Unmarshal(env.Data, &raws); err != nil {
			return nil, err
		}
		elems, err := decodeValues(raws)
		if err != nil {
			return nil, err
		}
		return &object.Tuple{Elements: elems}, nil
	case "set":
		var raws []json.RawMessage
		if err := json.Unmarshal(env.Data, &raws); err != nil {
			return nil, err
		}
		elems, err := decodeValues(raws)
		if err != nil {
			return nil, err
		}
		s := object.NewSet()
		for _, e := range elems {
			s.Add(e.Display(), e)
		}
		return s, nil
	case "dict":
		var entries []struct {
			Key   string          `json:"key"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(env.Data, &entries); err != nil {
			return nil, err
		}
		d := object.NewDict()
		for _, ent := range entries {
			v, err := decodeValue(ent.Value)
			if err != nil {
				return nil, err
			}
			d.Set(ent.Key, v)
		}
		return d, nil
	case "match":
		var m struct {
			Subject string          `json:"subject"`
			Groups  []*string       `json:"groups"`
			Starts  []int           `json:"starts"`
			Ends    []int           `json:"ends"`
			Names   map[string]int `json:"names"`
		}
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, err
		}
		return &object.Match{Subject: m.Subject, Groups: m.Groups, Starts: m.Starts, Ends: m.Ends, Names: m.Names}, nil
	case "function":
		var fn struct {
			Name   string          `json:"name"`
			Params []string        `json:"params"`
			Body   json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(env.Data, &fn); err != nil {
			return nil, err
		}
		block, err := ast.DecodeBlock(fn.Body)
		if err != nil {
			return nil, err
		}
		return &object.Function{Name: fn.Name, Params: fn.Params, Body: block, Env: nil}, nil
	default:
		return nil, fmt.Errorf("unknown snapshot value type %q", env.Type)
	}
}
