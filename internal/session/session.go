// Package session implements the persistent Session described in §4.5:
// a single root environment pre-populated with context, query, and the
// curated module set, carried across successive Execute calls and
// mutated in place, the way the teacher's own REPL keeps one
// *object.Environment alive across lines typed at the prompt.
package session

import (
	"strings"

	"github.com/google/uuid"

	"github.com/daios-rlm/pyrepl/internal/evaluator"
	"github.com/daios-rlm/pyrepl/internal/modules"
	"github.com/daios-rlm/pyrepl/internal/object"
	"github.com/daios-rlm/pyrepl/internal/parser"
	"github.com/daios-rlm/pyrepl/internal/validator"
)

// Metrics accumulates cross-call counters for the opaque state
// snapshot; nothing about their values changes Execute's own
// behavior, they are purely informative for a consumer inspecting
// state.
type Metrics struct {
	TotalSteps    int
	TotalExecutes int
}

// Session owns the environment across successive Execute calls.
type Session struct {
	ID      uuid.UUID
	globals *object.Environment
	limits  object.Limits
	// Strict disables the comprehension-scoping quirk described in
	// §4.3/§9; the zero value keeps the quirky parity-mode default the
	// spec directs.
	Strict  bool
	metrics Metrics
}

// New builds a Session with fresh session globals seeded with context,
// query, every built-in module, and the permitted free functions,
// exactly the pre-population §3's Environment section requires.
func New(context, query string, limits object.Limits) *Session {
	globals := object.NewEnvironment()
	globals.Set("context", &object.String{Value: context})
	globals.Set("query", &object.String{Value: query})
	evaluator.InstallBuiltins(globals)
	for name, mod := range modules.BuildAll() {
		globals.SetFrozen(name, mod)
	}
	return &Session{
		ID:      uuid.New(),
		globals: globals,
		limits:  limits,
	}
}

// ExecuteInput mirrors the Execute contract's input record (§6).
type ExecuteInput struct {
	Context        string    `json:"context"`
	Query          string    `json:"query"`
	Code           string    `json:"code"`
	MaxOutputChars int       `json:"max_output_chars,omitempty"` // 0 means "use the Session's configured default"
	State          *Snapshot `json:"state,omitempty"`
}

// ExecuteError mirrors the Execute contract's error record.
type ExecuteError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Line    *int   `json:"line"`
	Column  *int   `json:"column"`
}

// ExecuteOutput mirrors the Execute contract's output record (§6).
type ExecuteOutput struct {
	OK     bool          `json:"ok"`
	Output string        `json:"output"`
	Error  *ExecuteError `json:"error"`
	State  Snapshot      `json:"state"`
}

// Execute runs one code fragment to completion per the contract in §6:
// strip any fenced-code wrapper, parse, validate, evaluate against the
// persistent environment, and return a response record. On a runtime
// error, statements already committed before the failing one remain
// visible in post-state, matching §4.3's error-state persistence
// invariant — there is no rollback step because nothing buffers
// mutations before committing them to globals.
func (s *Session) Execute(in ExecuteInput) ExecuteOutput {
	// context/query are seeded from the input first, then a restored
	// snapshot (if any) is layered on top: §3's "Session snapshot
	// before Execute wins for the initial read" means a prior turn's
	// rebinding of context/query must survive a later call that still
	// carries the orchestrator's original values in the input record.
	if in.Context != "" {
		s.globals.Set("context", &object.String{Value: in.Context})
	}
	if in.Query != "" {
		s.globals.Set("query", &object.String{Value: in.Query})
	}
	if in.State != nil {
		s.Restore(*in.State)
	}

	limits := s.limits
	if in.MaxOutputChars > 0 {
		limits.MaxOutputChars = in.MaxOutputChars
	}

	s.metrics.TotalExecutes++

	code := stripCodeFence(in.Code)

	if len([]rune(code)) > limits.MaxCodeChars {
		return s.errorOutput(object.ResourceLimitExceeded, "code exceeds the maximum permitted size", nil, nil)
	}

	prog, perr := parser.ParseProgram(code)
	if perr != nil {
		if fse, ok := perr.(*parser.ForbiddenStatementError); ok {
			line, col := fse.Line, fse.Column
			return s.errorOutput(object.ForbiddenSyntax, fse.Error(), &line, &col)
		}
		if se, ok := perr.(*parser.SyntaxError); ok {
			line, col := se.Line, se.Column
			return s.errorOutput(object.SyntaxError, se.Msg, &line, &col)
		}
		return s.errorOutput(object.SyntaxError, perr.Error(), nil, nil)
	}

	if !prog.Empty {
		if viol := validator.Validate(prog, validator.Limits{MaxASTNodes: limits.MaxASTNodes}); viol != nil {
			var line, col *int
			if viol.Line != 0 {
				line, col = &viol.Line, &viol.Column
			}
			return s.errorOutput(viol.Kind, viol.Message, line, col)
		}
	}

	ev := evaluator.New(s.globals, limits, s.Strict)
	output, everr := ev.EvalProgram(prog)
	s.metrics.TotalSteps += ev.Steps()

	if everr != nil {
		line, col := everr.Line, everr.Column
		var linep, colp *int
		if line != 0 {
			linep, colp = &line, &col
		}
		return ExecuteOutput{
			OK:     false,
			Output: "",
			Error:  &ExecuteError{Kind: string(everr.Kind), Message: everr.WireMessage(), Line: linep, Column: colp},
			State:  s.Snapshot(),
		}
	}

	return ExecuteOutput{OK: true, Output: output, Error: nil, State: s.Snapshot()}
}

func (s *Session) errorOutput(kind object.ErrorKind, msg string, line, col *int) ExecuteOutput {
	werr := &object.InterpError{Kind: kind, Message: msg}
	return ExecuteOutput{
		OK:     false,
		Output: "",
		Error:  &ExecuteError{Kind: string(kind), Message: werr.WireMessage(), Line: line, Column: col},
		State:  s.Snapshot(),
	}
}

// stripCodeFence removes at most one leading ```` ```python ```` or
// ```` ``` ```` fence and its trailing terminator, per §4.5.
func stripCodeFence(code string) string {
	trimmed := strings.TrimSpace(code)
	if !strings.HasPrefix(trimmed, "```") {
		return code
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return code
	}
	last := len(lines) - 1
	if strings.TrimSpace(lines[last]) != "```" {
		return code
	}
	body := lines[1:last]
	return strings.Join(body, "\n")
}
