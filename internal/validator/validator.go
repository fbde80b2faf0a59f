// Package validator implements the Allowlist Validator: a single AST
// walk that rejects any statement, expression, name, or attribute not
// explicitly permitted, before the evaluator ever runs. It is the
// security perimeter described in §4.2 — nothing downstream trusts the
// tree until this pass has accepted it.
package validator

import (
	"strings"

	"github.com/daios-rlm/pyrepl/internal/ast"
	"github.com/daios-rlm/pyrepl/internal/object"
)

// forbiddenCallNames are always rejected as ForbiddenName regardless of
// whether anything binds them, since the sandbox must refuse even a
// shadowed rebind attempt.
var forbiddenCallNames = map[string]bool{
	"getattr": true, "setattr": true, "delattr": true, "vars": true,
	"globals": true, "locals": true, "dir": true, "type": true,
	"id": true, "eval": true, "exec": true, "compile": true, "open": true,
}

// permittedAttrs is the exhaustive per-type attribute table from §4.2.
// Module attribute access is checked separately against its own
// Exports map, since its permitted set is per-instance, not per-type.
var permittedAttrs = map[object.Type]map[string]bool{
	object.STRING: set("strip", "lstrip", "rstrip", "lower", "upper",
		"find", "rfind", "replace", "split", "rsplit", "splitlines",
		"startswith", "endswith", "count", "join", "encode", "isdigit",
		"isalpha"),
	object.BYTES: set("decode", "hex", "startswith", "endswith"),
	object.LIST:  set("append", "extend", "index", "count", "sort", "reverse"),
	object.DICT:  set("get", "keys", "values", "items"),
	object.MATCH: set("group", "start", "end", "span", "groups"),
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// AttrPermitted reports whether name is a permitted attribute of
// values with the given static type. It is exported so the evaluator
// can re-check at call time (the validator only sees static type
// annotations it does not have — in practice this table is the single
// source of truth, consulted by both passes).
func AttrPermitted(t object.Type, name string) bool {
	tbl, ok := permittedAttrs[t]
	if !ok {
		return false
	}
	return tbl[name]
}

// Violation is a single validator rejection; callers convert it to an
// *object.InterpError at the Session boundary.
type Violation struct {
	Kind    object.ErrorKind // ForbiddenSyntax or ForbiddenName
	Message string
	Line    int
	Column  int
}

// Limits narrows object.Limits to the one field the validator checks
// inline while walking.
type Limits struct {
	MaxASTNodes int
}

// Validate walks prog and returns the first violation found, or nil if
// the program is entirely within the allowlist. AST-node counting
// happens inline during the same walk so a runaway node count raises
// ResourceLimitExceeded without a second pass.
func Validate(prog *ast.Program, limits Limits) *Violation {
	v := &validator{limits: limits}
	for _, stmt := range prog.Statements {
		if viol := v.stmt(stmt); viol != nil {
			return viol
		}
	}
	if v.nodeCount > limits.MaxASTNodes {
		return &Violation{Kind: object.ResourceLimitExceeded, Message: "program exceeds the maximum permitted AST node count"}
	}
	return nil
}

type validator struct {
	limits    Limits
	nodeCount int
}

func (v *validator) count(pos ast.Node) *Violation {
	v.nodeCount++
	if v.nodeCount > v.limits.MaxASTNodes {
		p := pos.Pos()
		return &Violation{Kind: object.ResourceLimitExceeded, Message: "program exceeds the maximum permitted AST node count", Line: p.Line, Column: p.Column}
	}
	return nil
}

func forbiddenSyntax(n ast.Node, msg string) *Violation {
	p := n.Pos()
	return &Violation{Kind: object.ForbiddenSyntax, Message: msg, Line: p.Line, Column: p.Column}
}

func forbiddenName(n ast.Node, name string) *Violation {
	p := n.Pos()
	return &Violation{Kind: object.ForbiddenName, Message: "use of forbidden name " + name, Line: p.Line, Column: p.Column}
}

func isDunder(name string) bool { return strings.HasPrefix(name, "_") }

func (v *validator) stmt(s ast.Statement) *Violation {
	if viol := v.count(s); viol != nil {
		return viol
	}
	switch n := s.(type) {
	case *ast.AssignStatement:
		for _, t := range n.Targets {
			if viol := v.checkAssignTarget(t); viol != nil {
				return viol
			}
		}
		return v.expr(n.Value)
	case *ast.AugAssignStatement:
		if viol := v.checkAssignTarget(n.Target); viol != nil {
			return viol
		}
		return v.expr(n.Value)
	case *ast.PassStatement:
		return nil
	case *ast.ReturnStatement:
		if n.Value == nil {
			return nil
		}
		return v.expr(n.Value)
	case *ast.IfStatement:
		if viol := v.expr(n.Condition); viol != nil {
			return viol
		}
		if viol := v.block(n.Then); viol != nil {
			return viol
		}
		return v.block(n.Else)
	case *ast.ForStatement:
		if viol := v.checkAssignTarget(n.Target); viol != nil {
			return viol
		}
		if viol := v.expr(n.Iterable); viol != nil {
			return viol
		}
		return v.block(n.Body)
	case *ast.TryStatement:
		if viol := v.block(n.Body); viol != nil {
			return viol
		}
		for _, h := range n.Handlers {
			if h.As != "" && isDunder(h.As) {
				return forbiddenName(h, h.As)
			}
			if viol := v.block(h.Body); viol != nil {
				return viol
			}
		}
		return nil
	case *ast.FunctionDef:
		if isDunder(n.Name) {
			return forbiddenName(n, n.Name)
		}
		for _, p := range n.Params {
			if isDunder(p) {
				return forbiddenName(n, p)
			}
		}
		return v.block(n.Body)
	case *ast.ImportStatement, *ast.FromImportStatement:
		// Accepted at the syntax level; the Session resolves whether
		// every referenced module/symbol is allowlisted (§4.5) and
		// raises ForbiddenName itself when it is not.
		return nil
	case *ast.ExpressionStatement:
		return v.expr(n.Expression)
	default:
		return forbiddenSyntax(s, "statement form is not permitted")
	}
}

// checkAssignTarget rejects assignment to any attribute target (module
// or not) and to any dunder name, per §4.2's forbidden list. Plain name,
// tuple, and list targets (for unpacking) are walked structurally
// rather than type-checked, since the validator has no runtime values
// yet; subscript assignment into a module value is refused at run time
// by the evaluator.
func (v *validator) checkAssignTarget(target ast.Expression) *Violation {
	switch t := target.(type) {
	case *ast.Identifier:
		if isDunder(t.Value) {
			return forbiddenName(t, t.Value)
		}
		return nil
	case *ast.TupleLiteral:
		for _, e := range t.Elements {
			if viol := v.checkAssignTarget(e); viol != nil {
				return viol
			}
		}
		return nil
	case *ast.ListLiteral:
		for _, e := range t.Elements {
			if viol := v.checkAssignTarget(e); viol != nil {
				return viol
			}
		}
		return nil
	case *ast.SubscriptExpression:
		return v.expr(t.Object)
	case *ast.AttributeExpression:
		return forbiddenSyntax(t, "assignment to an attribute is not permitted")
	default:
		return forbiddenSyntax(target, "invalid assignment target")
	}
}

func (v *validator) block(b *ast.BlockStatement) *Violation {
	if b == nil {
		return nil
	}
	for _, s := range b.Statements {
		if viol := v.stmt(s); viol != nil {
			return viol
		}
	}
	return nil
}

func (v *validator) expr(e ast.Expression) *Violation {
	if e == nil {
		return nil
	}
	if viol := v.count(e); viol != nil {
		return viol
	}
	switch n := e.(type) {
	case *ast.IntegerLiteral, *ast.StringLiteral, *ast.BytesLiteral,
		*ast.BooleanLiteral, *ast.NoneLiteral:
		return nil
	case *ast.FString:
		for _, part := range n.Parts {
			if part.Expr != nil {
				if viol := v.expr(part.Expr); viol != nil {
					return viol
				}
			}
		}
		return nil
	case *ast.Identifier:
		if isDunder(n.Value) {
			return forbiddenName(n, n.Value)
		}
		if forbiddenCallNames[n.Value] {
			return forbiddenName(n, n.Value)
		}
		return nil
	case *ast.ListLiteral:
		return v.exprList(n.Elements)
	case *ast.TupleLiteral:
		return v.exprList(n.Elements)
	case *ast.SetLiteral:
		return v.exprList(n.Elements)
	case *ast.DictLiteral:
		for _, entry := range n.Entries {
			if viol := v.expr(entry.Key); viol != nil {
				return viol
			}
			if viol := v.expr(entry.Value); viol != nil {
				return viol
			}
		}
		return nil
	case *ast.PrefixExpression:
		return v.expr(n.Right)
	case *ast.NotExpression:
		return v.expr(n.Right)
	case *ast.InfixExpression:
		if viol := v.expr(n.Left); viol != nil {
			return viol
		}
		return v.expr(n.Right)
	case *ast.BoolExpression:
		if viol := v.expr(n.Left); viol != nil {
			return viol
		}
		return v.expr(n.Right)
	case *ast.ConditionalExpression:
		if viol := v.expr(n.Condition); viol != nil {
			return viol
		}
		if viol := v.expr(n.Then); viol != nil {
			return viol
		}
		return v.expr(n.Else)
	case *ast.CallExpression:
		if id, ok := n.Function.(*ast.Identifier); ok {
			if forbiddenCallNames[id.Value] {
				return forbiddenName(id, id.Value)
			}
			if isDunder(id.Value) {
				return forbiddenName(id, id.Value)
			}
		} else if viol := v.expr(n.Function); viol != nil {
			return viol
		}
		if viol := v.exprList(n.Args); viol != nil {
			return viol
		}
		for _, kw := range n.Keywords {
			if viol := v.expr(kw.Value); viol != nil {
				return viol
			}
		}
		return nil
	case *ast.AttributeExpression:
		if isDunder(n.Name) {
			return forbiddenName(n, n.Name)
		}
		return v.expr(n.Object)
	case *ast.SubscriptExpression:
		if viol := v.expr(n.Object); viol != nil {
			return viol
		}
		if n.Slice != nil {
			if viol := v.expr(n.Slice.Start); viol != nil {
				return viol
			}
			if viol := v.expr(n.Slice.Stop); viol != nil {
				return viol
			}
			return v.expr(n.Slice.Step)
		}
		return v.expr(n.Index)
	case *ast.Comprehension:
		for _, c := range n.Clauses {
			if c.Iterable != nil {
				if viol := v.checkAssignTarget(c.Target); viol != nil {
					return viol
				}
				if viol := v.expr(c.Iterable); viol != nil {
					return viol
				}
			} else if viol := v.expr(c.Cond); viol != nil {
				return viol
			}
		}
		return v.expr(n.Element)
	default:
		return forbiddenSyntax(e, "expression form is not permitted")
	}
}

func (v *validator) exprList(es []ast.Expression) *Violation {
	for _, e := range es {
		if viol := v.expr(e); viol != nil {
			return viol
		}
	}
	return nil
}
