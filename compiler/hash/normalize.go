package hash

import (
	"fmt"
	"math/big"

	"github.com/cockroachdb/apd/v3"

	"github.com/chazu/plc/compiler"
	"github.com/chazu/plc/vm"
)

// ---------------------------------------------------------------------------
// AST Normalization: analyzed compiler AST → frozen hashing AST
//
// Spans are dropped. Literals become canonical text, resolved types become
// type names, and resolved bindings become a description of the binding
// (its name, type and mutability) so that re-analysis of the same tree is
// observable in the hash.
// ---------------------------------------------------------------------------

// NormalizeSource transforms an analyzed Source into its hashing tree. It
// fails with an Unanalyzed runtime error if any annotation is missing.
func NormalizeSource(src *compiler.Source) (HNode, error) {
	root := HNode{Tag: TagSource}
	for _, g := range src.Globals {
		n, err := normalizeGlobal(g)
		if err != nil {
			return HNode{}, err
		}
		root.Children = append(root.Children, n)
	}
	for _, fn := range src.Functions {
		n, err := normalizeFunction(fn)
		if err != nil {
			return HNode{}, err
		}
		root.Children = append(root.Children, n)
	}
	return root, nil
}

func unanalyzed(n compiler.Node) error {
	return &vm.RuntimeError{
		Kind:   vm.Unanalyzed,
		Detail: fmt.Sprintf("%T at %s has no analysis annotations", n, n.Span().Start),
	}
}

func describeVariable(v *vm.Variable) (string, uint8) {
	var flags uint8
	if v.Mutable {
		flags |= FlagMutable
	}
	if v.IsList {
		flags |= FlagList
	}
	return v.Name + ": " + v.Type.String(), flags
}

func normalizeGlobal(g *compiler.Global) (HNode, error) {
	if g.Variable == nil {
		return HNode{}, unanalyzed(g)
	}
	binding, flags := describeVariable(g.Variable)
	n := HNode{Tag: TagGlobal, Text: g.Name, Type: g.TypeName, Binding: binding, Flags: flags}
	if g.TypeName != "" {
		n.Flags |= FlagAnnotated
	}
	if g.Value != nil {
		value, err := normalizeExpr(g.Value)
		if err != nil {
			return HNode{}, err
		}
		n.Children = []HNode{value}
	}
	return n, nil
}

func normalizeFunction(fn *compiler.Function) (HNode, error) {
	if fn.Function == nil {
		return HNode{}, unanalyzed(fn)
	}
	n := HNode{Tag: TagFunction, Text: fn.Name, Type: fn.ReturnTypeName, Binding: fn.Function.Signature()}
	for i, p := range fn.Parameters {
		n.Children = append(n.Children, HNode{
			Tag:  TagParam,
			Text: p,
			Type: fn.Function.ParameterTypes[i].String(),
		})
	}
	body, err := normalizeBlock(fn.Statements)
	if err != nil {
		return HNode{}, err
	}
	n.Children = append(n.Children, body)
	return n, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func normalizeBlock(stmts []compiler.Stmt) (HNode, error) {
	var children []HNode
	for _, s := range stmts {
		n, err := normalizeStmt(s)
		if err != nil {
			return HNode{}, err
		}
		children = append(children, n)
	}
	return block(children), nil
}

func normalizeStmt(stmt compiler.Stmt) (HNode, error) {
	switch s := stmt.(type) {
	case *compiler.ExprStmt:
		return wrap(TagExprStmt, s.Expr)

	case *compiler.Declaration:
		if s.Variable == nil {
			return HNode{}, unanalyzed(s)
		}
		binding, flags := describeVariable(s.Variable)
		n := HNode{Tag: TagDeclaration, Text: s.Name, Type: s.TypeName, Binding: binding, Flags: flags}
		if s.Value != nil {
			value, err := normalizeExpr(s.Value)
			if err != nil {
				return HNode{}, err
			}
			n.Children = []HNode{value}
		}
		return n, nil

	case *compiler.Assignment:
		receiver, err := normalizeExpr(s.Receiver)
		if err != nil {
			return HNode{}, err
		}
		value, err := normalizeExpr(s.Value)
		if err != nil {
			return HNode{}, err
		}
		return HNode{Tag: TagAssignment, Children: []HNode{receiver, value}}, nil

	case *compiler.If:
		cond, err := normalizeExpr(s.Condition)
		if err != nil {
			return HNode{}, err
		}
		then, err := normalizeBlock(s.Then)
		if err != nil {
			return HNode{}, err
		}
		els, err := normalizeBlock(s.Else)
		if err != nil {
			return HNode{}, err
		}
		return HNode{Tag: TagIf, Children: []HNode{cond, then, els}}, nil

	case *compiler.Switch:
		cond, err := normalizeExpr(s.Condition)
		if err != nil {
			return HNode{}, err
		}
		n := HNode{Tag: TagSwitch, Children: []HNode{cond}}
		for _, c := range s.Cases {
			arm, err := normalizeCase(c)
			if err != nil {
				return HNode{}, err
			}
			n.Children = append(n.Children, arm)
		}
		return n, nil

	case *compiler.While:
		cond, err := normalizeExpr(s.Condition)
		if err != nil {
			return HNode{}, err
		}
		body, err := normalizeBlock(s.Statements)
		if err != nil {
			return HNode{}, err
		}
		return HNode{Tag: TagWhile, Children: []HNode{cond, body}}, nil

	case *compiler.Return:
		return wrap(TagReturn, s.Value)

	default:
		return HNode{}, fmt.Errorf("hash: unhandled statement type %T", stmt)
	}
}

func normalizeCase(c *compiler.Case) (HNode, error) {
	n := HNode{Tag: TagCase}
	if c.Value == nil {
		n.Flags = FlagDefault
	} else {
		value, err := normalizeExpr(c.Value)
		if err != nil {
			return HNode{}, err
		}
		n.Children = append(n.Children, value)
	}
	body, err := normalizeBlock(c.Statements)
	if err != nil {
		return HNode{}, err
	}
	n.Children = append(n.Children, body)
	return n, nil
}

func wrap(tag byte, e compiler.Expr) (HNode, error) {
	child, err := normalizeExpr(e)
	if err != nil {
		return HNode{}, err
	}
	return HNode{Tag: tag, Children: []HNode{child}}, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func normalizeExpr(expr compiler.Expr) (HNode, error) {
	if expr.Type() == nil {
		return HNode{}, unanalyzed(expr)
	}

	var n HNode
	switch e := expr.(type) {
	case *compiler.Literal:
		n = normalizeLiteral(e.Value)

	case *compiler.Group:
		inner, err := normalizeExpr(e.Expr)
		if err != nil {
			return HNode{}, err
		}
		n = HNode{Tag: TagGroup, Children: []HNode{inner}}

	case *compiler.Binary:
		left, err := normalizeExpr(e.Left)
		if err != nil {
			return HNode{}, err
		}
		right, err := normalizeExpr(e.Right)
		if err != nil {
			return HNode{}, err
		}
		n = HNode{Tag: TagBinary, Text: e.Operator, Children: []HNode{left, right}}

	case *compiler.Access:
		if e.Variable == nil {
			return HNode{}, unanalyzed(e)
		}
		binding, flags := describeVariable(e.Variable)
		n = HNode{Tag: TagAccess, Text: e.Name, Binding: binding, Flags: flags}
		if e.Offset != nil {
			offset, err := normalizeExpr(e.Offset)
			if err != nil {
				return HNode{}, err
			}
			n.Tag = TagIndexedAccess
			n.Flags |= FlagIndexed
			n.Children = []HNode{offset}
		}

	case *compiler.Call:
		if e.Function == nil {
			return HNode{}, unanalyzed(e)
		}
		n = HNode{Tag: TagCall, Text: e.Name, Binding: e.Function.Signature()}
		for _, arg := range e.Arguments {
			a, err := normalizeExpr(arg)
			if err != nil {
				return HNode{}, err
			}
			n.Children = append(n.Children, a)
		}

	case *compiler.ListLiteral:
		n = HNode{Tag: TagList}
		for _, el := range e.Elements {
			c, err := normalizeExpr(el)
			if err != nil {
				return HNode{}, err
			}
			n.Children = append(n.Children, c)
		}

	default:
		return HNode{}, fmt.Errorf("hash: unhandled expression type %T", expr)
	}

	n.Type = expr.Type().String()
	return n, nil
}

func normalizeLiteral(value any) HNode {
	switch v := value.(type) {
	case nil:
		return leaf(TagNilLiteral, "")
	case bool:
		if v {
			return leaf(TagBoolLiteral, "true")
		}
		return leaf(TagBoolLiteral, "false")
	case rune:
		return leaf(TagCharLiteral, string(v))
	case string:
		return leaf(TagStringLiteral, v)
	case *big.Int:
		return leaf(TagIntLiteral, v.String())
	case *apd.Decimal:
		return leaf(TagDecimalLiteral, v.Text('f'))
	default:
		return leaf(TagReservedZero, fmt.Sprintf("%T", value))
	}
}
