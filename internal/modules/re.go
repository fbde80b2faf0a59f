// Package modules implements the closed set of built-in pseudo-modules
// from §4.4: re, json, base64, binascii, zlib, math. Each is built once
// per Session as an immutable object.Module and frozen into session
// globals; no other modules exist and none perform dynamic lookup.
package modules

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/daios-rlm/pyrepl/internal/object"
)

// regexMatchTimeout bounds a single regexp2 match attempt so
// catastrophic backtracking surfaces as ResourceLimitExceeded instead
// of hanging; regexp2 is chosen over the stdlib RE2 engine specifically
// because RE2 cannot backtrack at all and so cannot reproduce Python's
// re semantics (backreferences excluded, but greedy/lazy quantifier
// interaction included) under a step-style budget.
const regexMatchTimeout = 200 * time.Millisecond

func compileFlags(flags int64) regexp2.RegexOptions {
	opts := regexp2.RegexOptions(0)
	if flags&1 != 0 { // IGNORECASE
		opts |= regexp2.IgnoreCase
	}
	if flags&2 != 0 { // DOTALL
		opts |= regexp2.Singleline
	}
	if flags&4 != 0 { // MULTILINE
		opts |= regexp2.Multiline
	}
	return opts
}

func compilePattern(ctx object.CallCtx, pat string, flags int64) (*regexp2.Regexp, *object.InterpError) {
	re, err := regexp2.Compile(pat, compileFlags(flags))
	if err != nil {
		return nil, ctx.NewError(object.ValueError, "invalid regular expression: %s", err.Error())
	}
	re.MatchTimeout = regexMatchTimeout
	return re, nil
}

func buildMatch(m *regexp2.Match, subject string) *object.Match {
	groups := m.Groups()
	out := &object.Match{
		Subject: subject,
		Groups:  make([]*string, len(groups)),
		Starts:  make([]int, len(groups)),
		Ends:    make([]int, len(groups)),
		Names:   make(map[string]int),
	}
	for i, g := range groups {
		if g.Length == 0 && g.Index == -1 {
			continue
		}
		s := g.String()
		out.Groups[i] = &s
		out.Starts[i] = g.Index
		out.Ends[i] = g.Index + g.Length
		if g.Name != "" && g.Name != "0" {
			out.Names[g.Name] = i
		}
	}
	return out
}

func argInt(v object.Value, dflt int64) int64 {
	if i, ok := v.(*object.Integer); ok {
		return i.Value.Int64()
	}
	return dflt
}

// reError classifies a regexp2 match failure. A timed-out match (the
// defense against catastrophic backtracking described in §4.4) is
// ResourceLimitExceeded, not ValueError, since the pattern itself was
// well-formed and the failure is purely a resource ceiling.
func reError(ctx object.CallCtx, err error) *object.InterpError {
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return ctx.NewError(object.ResourceLimitExceeded, "regular expression exceeded the maximum permitted matching steps")
	}
	return ctx.NewError(object.ValueError, "regex match failed: %s", err.Error())
}

// NewRe builds the `re` pseudo-module.
func NewRe() *object.Module {
	search := &object.Builtin{Name: "re.search", ParamNames: []string{"pattern", "string", "flags"}, Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		if len(args) < 2 {
			return nil, ctx.NewError(object.TypeError, "search() takes at least 2 arguments")
		}
		pat, ok := args[0].(*object.String)
		subj, ok2 := args[1].(*object.String)
		if !ok || !ok2 {
			return nil, ctx.NewError(object.TypeError, "search() expects (str, str)")
		}
		flags := int64(0)
		if len(args) > 2 {
			flags = argInt(args[2], 0)
		}
		re, ierr := compilePattern(ctx, pat.Value, flags)
		if ierr != nil {
			return nil, ierr
		}
		m, err := re.FindStringMatch(subj.Value)
		if err != nil {
			return nil, reError(ctx, err)
		}
		if m == nil {
			return object.NULL, nil
		}
		return buildMatch(m, subj.Value), nil
	}}

	match := &object.Builtin{Name: "re.match", ParamNames: []string{"pattern", "string", "flags"}, Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		if len(args) < 2 {
			return nil, ctx.NewError(object.TypeError, "match() takes at least 2 arguments")
		}
		pat, ok := args[0].(*object.String)
		subj, ok2 := args[1].(*object.String)
		if !ok || !ok2 {
			return nil, ctx.NewError(object.TypeError, "match() expects (str, str)")
		}
		flags := int64(0)
		if len(args) > 2 {
			flags = argInt(args[2], 0)
		}
		anchored := "\\A(?:" + pat.Value + ")"
		re, ierr := compilePattern(ctx, anchored, flags)
		if ierr != nil {
			return nil, ierr
		}
		m, err := re.FindStringMatch(subj.Value)
		if err != nil {
			return nil, reError(ctx, err)
		}
		if m == nil {
			return object.NULL, nil
		}
		return buildMatch(m, subj.Value), nil
	}}

	findall := &object.Builtin{Name: "re.findall", ParamNames: []string{"pattern", "string", "flags"}, Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		if len(args) < 2 {
			return nil, ctx.NewError(object.TypeError, "findall() takes at least 2 arguments")
		}
		pat, ok := args[0].(*object.String)
		subj, ok2 := args[1].(*object.String)
		if !ok || !ok2 {
			return nil, ctx.NewError(object.TypeError, "findall() expects (str, str)")
		}
		flags := int64(0)
		if len(args) > 2 {
			flags = argInt(args[2], 0)
		}
		re, ierr := compilePattern(ctx, pat.Value, flags)
		if ierr != nil {
			return nil, ierr
		}
		result := &object.List{}
		m, err := re.FindStringMatch(subj.Value)
		for m != nil {
			if err := ctx.Step(); err != nil {
				return nil, err
			}
			groups := m.Groups()
			switch len(groups) {
			case 1:
				result.Elements = append(result.Elements, &object.String{Value: groups[0].String()})
			case 2:
				result.Elements = append(result.Elements, &object.String{Value: groups[1].String()})
			default:
				tup := &object.Tuple{}
				for _, g := range groups[1:] {
					tup.Elements = append(tup.Elements, &object.String{Value: g.String()})
				}
				result.Elements = append(result.Elements, tup)
			}
			m, err = re.FindNextMatch(m)
		}
		if err != nil {
			return nil, reError(ctx, err)
		}
		return result, nil
	}}

	split := &object.Builtin{Name: "re.split", ParamNames: []string{"pattern", "string", "maxsplit", "flags"}, Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		if len(args) < 2 {
			return nil, ctx.NewError(object.TypeError, "split() takes at least 2 arguments")
		}
		pat, ok := args[0].(*object.String)
		subj, ok2 := args[1].(*object.String)
		if !ok || !ok2 {
			return nil, ctx.NewError(object.TypeError, "split() expects (str, str)")
		}
		maxsplit := int64(0)
		flags := int64(0)
		if len(args) > 2 {
			maxsplit = argInt(args[2], 0)
		}
		if len(args) > 3 {
			flags = argInt(args[3], 0)
		}
		re, ierr := compilePattern(ctx, pat.Value, flags)
		if ierr != nil {
			return nil, ierr
		}
		subjRunes := []rune(subj.Value)
		result := &object.List{}
		last := 0
		count := int64(0)
		m, err := re.FindStringMatch(subj.Value)
		for m != nil && (maxsplit <= 0 || count < maxsplit) {
			if err := ctx.Step(); err != nil {
				return nil, err
			}
			g := m.Groups()[0]
			result.Elements = append(result.Elements, &object.String{Value: string(subjRunes[last:g.Index])})
			last = g.Index + g.Length
			count++
			m, err = re.FindNextMatch(m)
		}
		if err != nil {
			return nil, reError(ctx, err)
		}
		result.Elements = append(result.Elements, &object.String{Value: string(subjRunes[last:])})
		return result, nil
	}}

	sub := &object.Builtin{Name: "re.sub", ParamNames: []string{"pattern", "repl", "string", "count", "flags"}, Fn: func(ctx object.CallCtx, args []object.Value) (object.Value, *object.InterpError) {
		if len(args) < 3 {
			return nil, ctx.NewError(object.TypeError, "sub() takes at least 3 arguments")
		}
		pat, ok := args[0].(*object.String)
		repl, ok2 := args[1].(*object.String)
		subj, ok3 := args[2].(*object.String)
		if !ok || !ok2 || !ok3 {
			return nil, ctx.NewError(object.TypeError, "sub() expects (str, str, str)")
		}
		count := int64(0)
		flags := int64(0)
		if len(args) > 3 {
			count = argInt(args[3], 0)
		}
		if len(args) > 4 {
			flags = argInt(args[4], 0)
		}
		re, ierr := compilePattern(ctx, pat.Value, flags)
		if ierr != nil {
			return nil, ierr
		}
		subjRunes := []rune(subj.Value)
		var sb strings.Builder
		last := 0
		replaced := int64(0)
		m, err := re.FindStringMatch(subj.Value)
		for m != nil && (count <= 0 || replaced < count) {
			if err := ctx.Step(); err != nil {
				return nil, err
			}
			g := m.Groups()[0]
			sb.WriteString(string(subjRunes[last:g.Index]))
			sb.WriteString(expandBackrefs(repl.Value, m))
			last = g.Index + g.Length
			replaced++
			m, err = re.FindNextMatch(m)
		}
		if err != nil {
			return nil, reError(ctx, err)
		}
		sb.WriteString(string(subjRunes[last:]))
		return &object.String{Value: sb.String()}, nil
	}}

	return &object.Module{Name: "re", Exports: map[string]object.Value{
		"search":     search,
		"match":      match,
		"findall":    findall,
		"split":      split,
		"sub":        sub,
		"IGNORECASE": object.NewInt(1),
		"DOTALL":     object.NewInt(2),
		"MULTILINE":  object.NewInt(4),
	}}
}

// expandBackrefs substitutes \1..\9 backreferences in a re.sub
// replacement string against the groups of m.
func expandBackrefs(repl string, m *regexp2.Match) string {
	var sb strings.Builder
	groups := m.Groups()
	runes := []rune(repl)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9' {
			n := int(runes[i+1] - '0')
			if n < len(groups) {
				sb.WriteString(groups[n].String())
			}
			i++
			continue
		}
		sb.WriteRune(runes[i])
	}
	return sb.String()
}
