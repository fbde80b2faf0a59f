// Package rlmproto recognizes the FINAL/FINAL_VAR textual terminator
// forms described informatively in §6. Nothing in this package is
// part of the Execute contract — it is provided so an external RLM
// runner embedding this module does not need to hand-roll the same
// regular expressions, but the interpreter core never calls into it.
package rlmproto

import "regexp"

// FinalLiteral is set when model prose contains a recognized
// FINAL("...") form; Literal holds the unquoted string content.
type FinalLiteral struct {
	Literal string
}

// FinalVar is set when model prose contains a recognized
// FINAL_VAR(name) form; Name holds the referenced variable name.
type FinalVar struct {
	Name string
}

var (
	finalTriple = regexp.MustCompile(`(?s)FINAL\(\s*"""(.*?)"""\s*\)`)
	finalDouble = regexp.MustCompile(`FINAL\(\s*"((?:[^"\\]|\\.)*)"\s*\)`)
	finalSingle = regexp.MustCompile(`FINAL\(\s*'((?:[^'\\]|\\.)*)'\s*\)`)
	finalVar    = regexp.MustCompile(`FINAL_VAR\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)`)
)

// ScanFinal inspects prose for a FINAL("...") literal form, trying the
// triple-quoted form first so an embedded unescaped quote inside a
// triple-quoted literal cannot be mistaken for the terminator. It
// returns nil if no recognized form is present. Per §6, FINAL(expr)
// where expr is not a string literal (e.g. a bare name) is never
// recognized.
func ScanFinal(prose string) *FinalLiteral {
	if m := finalTriple.FindStringSubmatch(prose); m != nil {
		return &FinalLiteral{Literal: m[1]}
	}
	if m := finalDouble.FindStringSubmatch(prose); m != nil {
		return &FinalLiteral{Literal: unescape(m[1])}
	}
	if m := finalSingle.FindStringSubmatch(prose); m != nil {
		return &FinalLiteral{Literal: unescape(m[1])}
	}
	return nil
}

// ScanFinalVar inspects prose for a FINAL_VAR(name) form.
func ScanFinalVar(prose string) *FinalVar {
	if m := finalVar.FindStringSubmatch(prose); m != nil {
		return &FinalVar{Name: m[1]}
	}
	return nil
}

func unescape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		out = append(out, s[i])
	}
	return string(out)
}
