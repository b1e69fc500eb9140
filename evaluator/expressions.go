package evaluator

import (
	"fmt"
	"math/big"

	"github.com/chazu/plc/compiler"
	"github.com/chazu/plc/vm"
)

func (in *Interpreter) eval(expr compiler.Expr) (vm.Value, error) {
	if expr.Type() == nil {
		return vm.Nil, unanalyzed(expr)
	}

	switch e := expr.(type) {
	case *compiler.Literal:
		v, err := vm.FromLiteral(e.Value)
		if err != nil {
			return vm.Nil, &vm.RuntimeError{Kind: vm.TypeMismatch, Detail: err.Error()}
		}
		return v, nil

	case *compiler.Group:
		return in.eval(e.Expr)

	case *compiler.Binary:
		return in.evalBinary(e)

	case *compiler.Access:
		return in.evalAccess(e)

	case *compiler.Call:
		return in.evalCall(e)

	case *compiler.ListLiteral:
		elems := make([]vm.Value, len(e.Elements))
		for i, el := range e.Elements {
			v, err := in.eval(el)
			if err != nil {
				return vm.Nil, err
			}
			elems[i] = v
		}
		return vm.FromList(vm.NewList(elems)), nil

	default:
		return vm.Nil, fmt.Errorf("evaluator: unhandled expression type %T", expr)
	}
}

func (in *Interpreter) evalBinary(e *compiler.Binary) (vm.Value, error) {
	left, err := in.eval(e.Left)
	if err != nil {
		return vm.Nil, err
	}

	switch e.Operator {
	case "&&", "||":
		l, err := boolean(e.Operator, left)
		if err != nil {
			return vm.Nil, err
		}
		// The right operand only runs when it decides the result.
		if l == (e.Operator == "||") {
			return vm.FromBool(l), nil
		}
		right, err := in.eval(e.Right)
		if err != nil {
			return vm.Nil, err
		}
		r, err := boolean(e.Operator, right)
		if err != nil {
			return vm.Nil, err
		}
		return vm.FromBool(r), nil
	}

	right, err := in.eval(e.Right)
	if err != nil {
		return vm.Nil, err
	}

	switch e.Operator {
	case "==":
		return vm.FromBool(left.Equal(right)), nil
	case "!=":
		return vm.FromBool(!left.Equal(right)), nil
	case "<", ">":
		cmp, err := vm.Compare(left, right)
		if err != nil {
			return vm.Nil, err
		}
		if e.Operator == "<" {
			return vm.FromBool(cmp < 0), nil
		}
		return vm.FromBool(cmp > 0), nil
	case "+":
		return vm.Add(left, right)
	case "-":
		return vm.Sub(left, right)
	case "*":
		return vm.Mul(left, right)
	case "/":
		return vm.Div(left, right)
	case "^":
		return vm.Pow(left, right)
	default:
		return vm.Nil, fmt.Errorf("evaluator: unknown operator %q", e.Operator)
	}
}

func boolean(op string, v vm.Value) (bool, error) {
	b, ok := v.Bool()
	if !ok {
		return false, &vm.RuntimeError{Kind: vm.TypeMismatch, Detail: fmt.Sprintf("operand of %s is %s, not Boolean", op, v.Kind())}
	}
	return b, nil
}

func (in *Interpreter) evalAccess(e *compiler.Access) (vm.Value, error) {
	if e.Variable == nil {
		return vm.Nil, unanalyzed(e)
	}
	v, err := in.lookupVariable(e.Name)
	if err != nil {
		return vm.Nil, err
	}
	if e.Offset == nil {
		return v.Value, nil
	}
	list, index, err := in.slot(v, e.Offset)
	if err != nil {
		return vm.Nil, err
	}
	return list.At(index)
}

func (in *Interpreter) lookupVariable(name string) (*vm.Variable, error) {
	v, err := in.scope.LookupVariable(name)
	if err != nil {
		return nil, &vm.RuntimeError{Kind: vm.UndefinedName, Detail: name, Err: err}
	}
	return v, nil
}

// slot evaluates an index expression against the list held by v.
func (in *Interpreter) slot(v *vm.Variable, offset compiler.Expr) (*vm.List, *big.Int, error) {
	list, ok := v.Value.List()
	if !ok {
		return nil, nil, &vm.RuntimeError{Kind: vm.TypeMismatch, Detail: fmt.Sprintf("%s is %s, not a list", v.Name, v.Value.Kind())}
	}
	idx, err := in.eval(offset)
	if err != nil {
		return nil, nil, err
	}
	index, ok := idx.Int()
	if !ok {
		return nil, nil, &vm.RuntimeError{Kind: vm.TypeMismatch, Detail: fmt.Sprintf("list index is %s, not Integer", idx.Kind())}
	}
	return list, index, nil
}

func (in *Interpreter) evalCall(e *compiler.Call) (vm.Value, error) {
	if e.Function == nil {
		return vm.Nil, unanalyzed(e)
	}
	args := make([]vm.Value, len(e.Arguments))
	for i, arg := range e.Arguments {
		v, err := in.eval(arg)
		if err != nil {
			return vm.Nil, err
		}
		args[i] = v
	}

	fn, err := in.scope.LookupFunction(e.Name, len(args))
	if err != nil {
		if others := in.scope.FunctionsNamed(e.Name); len(others) > 0 {
			return vm.Nil, &vm.RuntimeError{
				Kind:   vm.ArityMismatch,
				Detail: fmt.Sprintf("%s does not take %d arguments", e.Name, len(args)),
				Err:    err,
			}
		}
		return vm.Nil, &vm.RuntimeError{Kind: vm.UndefinedName, Detail: e.Name, Err: err}
	}
	return fn.Invoke(args)
}
