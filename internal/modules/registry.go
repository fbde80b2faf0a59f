package modules

import "github.com/daios-rlm/pyrepl/internal/object"

// BuildAll constructs every pseudo-module once, the way the teacher
// builds its own fixed builtin registry at interpreter construction
// time rather than on first use. The result is bound frozen into
// session globals by internal/session.
func BuildAll() map[string]*object.Module {
	return map[string]*object.Module{
		"re":       NewRe(),
		"json":     NewJSON(),
		"base64":   NewBase64(),
		"binascii": NewBinascii(),
		"zlib":     NewZlib(),
		"math":     NewMath(),
	}
}
