// Package evaluator executes a validated AST against a persistent
// object.Environment, the same envStack/PushEnv/PopEnv discipline the
// teacher's own evaluator uses, extended with the step ceiling and
// echo-last-expression REPL semantics this spec requires.
package evaluator

import (
	"strconv"
	"strings"

	"github.com/daios-rlm/pyrepl/internal/ast"
	"github.com/daios-rlm/pyrepl/internal/modules"
	"github.com/daios-rlm/pyrepl/internal/object"
	"github.com/daios-rlm/pyrepl/internal/token"
)

// Evaluator runs one Execute call's worth of statements against a
// Session's persistent environment. A fresh Evaluator is built per
// call; the Environment it is pointed at outlives it.
type Evaluator struct {
	envStack []*object.Environment
	steps    int
	limits   object.Limits
	strict   bool // disables the comprehension-scoping quirk when true

	output strings.Builder
	curPos token.Position

	lastStmtWasExpr bool
	lastExprValue   object.Value

	modules map[string]*object.Module
}

// New constructs an Evaluator with root as the bottom of the
// environment stack (session globals).
func New(root *object.Environment, limits object.Limits, strict bool) *Evaluator {
	return &Evaluator{
		envStack: []*object.Environment{root},
		limits:   limits,
		strict:   strict,
		modules:  modules.BuildAll(),
	}
}

func (e *Evaluator) PushEnv(env *object.Environment) { e.envStack = append(e.envStack, env) }

func (e *Evaluator) PopEnv() {
	if len(e.envStack) > 1 {
		e.envStack = e.envStack[:len(e.envStack)-1]
	}
}

func (e *Evaluator) CurrentEnv() *object.Environment { return e.envStack[len(e.envStack)-1] }

// ---- object.CallCtx ----

func (e *Evaluator) Apply(fn object.Value, args []object.Value) (object.Value, *object.InterpError) {
	return e.applyFunction(fn, args)
}

func (e *Evaluator) NewError(kind object.ErrorKind, format string, a ...interface{}) *object.InterpError {
	return object.NewInterpError(kind, e.curPos.Line, e.curPos.Column, format, a...)
}

func (e *Evaluator) Step() *object.InterpError {
	e.steps++
	if e.steps > e.limits.MaxSteps {
		return e.NewError(object.ResourceLimitExceeded, "execution exceeded the maximum permitted number of steps")
	}
	return nil
}

func (e *Evaluator) Limits() object.Limits { return e.limits }

func (e *Evaluator) Print(s string) { e.output.WriteString(s) }

// Steps reports the total dispatch count for this call, used by the
// Session to accumulate cumulative metrics.
func (e *Evaluator) Steps() int { return e.steps }

// step records one evaluator dispatch at pos and enforces the step
// ceiling, mirroring the teacher's envStack bookkeeping extended with
// a resource check this spec's untrusted-input model requires.
func (e *Evaluator) step(pos token.Position) *object.InterpError {
	e.curPos = pos
	return e.Step()
}

// EvalProgram runs every statement of prog in order against the
// current environment and returns the rendered output buffer (with
// truncation applied) or the first uncaught error. prog.Empty is
// handled here per §4.1's designated empty-program tree.
func (e *Evaluator) EvalProgram(prog *ast.Program) (string, *object.InterpError) {
	if prog.Empty {
		return "No code to execute", nil
	}
	e.lastStmtWasExpr = false
	e.lastExprValue = nil
	for _, stmt := range prog.Statements {
		sig, err := e.execStmt(stmt)
		if err != nil {
			return e.renderOutput(), err
		}
		if sig.returning {
			break
		}
	}
	if e.lastStmtWasExpr && e.lastExprValue != nil {
		if _, isNull := e.lastExprValue.(*object.Null); !isNull {
			if e.output.Len() > 0 {
				e.output.WriteByte('\n')
			}
			e.output.WriteString(e.lastExprValue.Display())
		}
	}
	return e.renderOutput(), nil
}

// renderOutput applies the §3 output-buffer truncation rule: hard-cut
// at max_output_chars and append the marker exactly once, with the
// dropped-count computed before the marker itself is appended so the
// marker's own length is never counted as dropped.
func (e *Evaluator) renderOutput() string {
	s := e.output.String()
	max := e.limits.MaxOutputChars
	if max <= 0 || len([]rune(s)) <= max {
		return s
	}
	runes := []rune(s)
	kept := runes[:max]
	dropped := len(runes) - max
	return string(kept) + marker(dropped)
}

func marker(dropped int) string {
	return "[Output truncated: " + strconv.Itoa(dropped) + " chars dropped]"
}
