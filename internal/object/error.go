package object

import "fmt"

// ErrorKind is the closed set of error tags the Execute contract can
// surface.
type ErrorKind string

const (
	SyntaxError          ErrorKind = "SyntaxError"
	ForbiddenSyntax      ErrorKind = "ForbiddenSyntax"
	ForbiddenName        ErrorKind = "ForbiddenName"
	NameError            ErrorKind = "NameError"
	TypeError            ErrorKind = "TypeError"
	ValueError           ErrorKind = "ValueError"
	AttributeError       ErrorKind = "AttributeError"
	IndexError           ErrorKind = "IndexError"
	KeyError             ErrorKind = "KeyError"
	ZeroDivisionError    ErrorKind = "ZeroDivisionError"
	ResourceLimitExceeded ErrorKind = "ResourceLimitExceeded"
)

// Catchable runtime kinds a try/except block may name or catch bare.
var catchableKinds = map[ErrorKind]bool{
	NameError:         true,
	TypeError:         true,
	ValueError:        true,
	AttributeError:    true,
	IndexError:        true,
	KeyError:          true,
	ZeroDivisionError: true,
}

// Catchable reports whether k may be caught by a try/except inside user
// code. SyntaxError, ForbiddenSyntax, ForbiddenName, and
// ResourceLimitExceeded always terminate the Execute call.
func Catchable(k ErrorKind) bool { return catchableKinds[k] }

// InterpError is the single internal error representation used below
// the Session boundary; it is translated to the wire-level
// {kind, message, line, column} record only at the Session/CLI edge.
type InterpError struct {
	Kind    ErrorKind
	Message string
	Line    int
	Column  int
}

func (e *InterpError) Error() string { return e.Message }

// NewInterpError builds an InterpError with position information.
func NewInterpError(kind ErrorKind, line, col int, format string, a ...interface{}) *InterpError {
	return &InterpError{Kind: kind, Message: fmt.Sprintf(format, a...), Line: line, Column: col}
}

// WireMessage renders the user-facing message per §7: runtime kinds get
// the "Execution error: ..." prefix, others are plain single-line
// messages.
func (e *InterpError) WireMessage() string {
	if Catchable(e.Kind) {
		return "Execution error: " + e.Message
	}
	return e.Message
}
