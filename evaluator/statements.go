package evaluator

import (
	"fmt"

	"github.com/chazu/plc/compiler"
	"github.com/chazu/plc/vm"
)

// completion is the outcome of executing a statement. A RETURN sets
// returned and the enclosing blocks unwind until the function body sees it.
type completion struct {
	returned bool
	value    vm.Value
}

var next = completion{}

func (in *Interpreter) execBlock(stmts []compiler.Stmt) (completion, error) {
	for _, s := range stmts {
		c, err := in.exec(s)
		if err != nil || c.returned {
			return c, err
		}
	}
	return next, nil
}

// execNested runs stmts in a child scope and restores the current scope on
// every exit path.
func (in *Interpreter) execNested(stmts []compiler.Stmt) (completion, error) {
	saved := in.scope
	in.scope = vm.NewScope(saved)
	defer func() { in.scope = saved }()
	return in.execBlock(stmts)
}

func (in *Interpreter) exec(stmt compiler.Stmt) (completion, error) {
	switch s := stmt.(type) {
	case *compiler.ExprStmt:
		_, err := in.eval(s.Expr)
		return next, err

	case *compiler.Declaration:
		return next, in.execDeclaration(s)

	case *compiler.Assignment:
		return next, in.execAssignment(s)

	case *compiler.If:
		ok, err := in.condition(s.Condition)
		if err != nil {
			return next, err
		}
		if ok {
			return in.execNested(s.Then)
		}
		return in.execNested(s.Else)

	case *compiler.Switch:
		return in.execSwitch(s)

	case *compiler.While:
		for {
			ok, err := in.condition(s.Condition)
			if err != nil || !ok {
				return next, err
			}
			c, err := in.execNested(s.Statements)
			if err != nil || c.returned {
				return c, err
			}
		}

	case *compiler.Return:
		v, err := in.eval(s.Value)
		if err != nil {
			return next, err
		}
		return completion{returned: true, value: v}, nil

	default:
		return next, fmt.Errorf("evaluator: unhandled statement type %T", stmt)
	}
}

func (in *Interpreter) execDeclaration(s *compiler.Declaration) error {
	if s.Variable == nil {
		return unanalyzed(s)
	}
	value := vm.Nil
	if s.Value != nil {
		v, err := in.eval(s.Value)
		if err != nil {
			return err
		}
		value = v
	}
	if _, err := in.scope.DefineVariable(s.Name, s.Variable.JvmName, s.Variable.Type, true, value); err != nil {
		return fmt.Errorf("cannot bind %s: %w", s.Name, err)
	}
	return nil
}

func (in *Interpreter) execAssignment(s *compiler.Assignment) error {
	receiver, ok := s.Receiver.(*compiler.Access)
	if !ok {
		return &vm.RuntimeError{Kind: vm.TypeMismatch, Detail: fmt.Sprintf("cannot assign to %T", s.Receiver)}
	}
	if receiver.Variable == nil {
		return unanalyzed(receiver)
	}
	target, err := in.lookupVariable(receiver.Name)
	if err != nil {
		return err
	}

	if receiver.Offset != nil {
		list, index, err := in.slot(target, receiver.Offset)
		if err != nil {
			return err
		}
		value, err := in.eval(s.Value)
		if err != nil {
			return err
		}
		return list.Set(index, value)
	}

	if !target.Mutable {
		return &vm.RuntimeError{Kind: vm.ImmutableAssignment, Detail: receiver.Name}
	}
	value, err := in.eval(s.Value)
	if err != nil {
		return err
	}
	target.Value = value
	return nil
}

// execSwitch evaluates the condition once and runs the first arm whose
// value is equal to it, else the DEFAULT arm. Arms never fall through.
func (in *Interpreter) execSwitch(s *compiler.Switch) (completion, error) {
	cond, err := in.eval(s.Condition)
	if err != nil {
		return next, err
	}
	var fallback *compiler.Case
	for _, c := range s.Cases {
		if c.Value == nil {
			fallback = c
			continue
		}
		v, err := in.eval(c.Value)
		if err != nil {
			return next, err
		}
		if cond.Equal(v) {
			return in.execNested(c.Statements)
		}
	}
	if fallback != nil {
		return in.execNested(fallback.Statements)
	}
	return next, nil
}

func (in *Interpreter) condition(e compiler.Expr) (bool, error) {
	v, err := in.eval(e)
	if err != nil {
		return false, err
	}
	b, ok := v.Bool()
	if !ok {
		return false, &vm.RuntimeError{Kind: vm.TypeMismatch, Detail: fmt.Sprintf("condition is %s, not Boolean", v.Kind())}
	}
	return b, nil
}
