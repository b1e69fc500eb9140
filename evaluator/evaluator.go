// Package evaluator runs analyzed PLC programs by walking the tree.
//
// The interpreter never consults the scopes the analyzer built. It builds
// its own runtime scope chain under the builtins, binding globals and
// functions by name as it goes, and relies on the analyzer's annotations
// only as proof that the tree was checked.
package evaluator

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/plc/compiler"
	"github.com/chazu/plc/vm"
)

var log = commonlog.GetLogger("plc.evaluator")

// DefaultMaxDepth bounds nested function calls.
const DefaultMaxDepth = 10000

// Interpreter evaluates one program at a time. It is not safe for
// concurrent use.
type Interpreter struct {
	builtins *vm.Scope
	scope    *vm.Scope // innermost scope of the running code
	depth    int

	// MaxDepth is the deepest call nesting allowed before a StackOverflow
	// runtime error. Zero means DefaultMaxDepth.
	MaxDepth int
}

// New creates an interpreter whose programs see builtins as their outermost
// scope.
func New(builtins *vm.Scope) *Interpreter {
	return &Interpreter{builtins: builtins}
}

// Interpret runs src against builtins and returns main's result.
func Interpret(src *compiler.Source, builtins *vm.Scope) (vm.Value, error) {
	return New(builtins).Run(src)
}

// Run binds every global in order, defines every function, then invokes
// main with no arguments and returns its value.
func (in *Interpreter) Run(src *compiler.Source) (vm.Value, error) {
	module := vm.NewScope(in.builtins)
	in.scope = module
	in.depth = 0

	for _, g := range src.Globals {
		if err := in.bindGlobal(g); err != nil {
			return vm.Nil, err
		}
	}
	for _, fn := range src.Functions {
		if err := in.defineFunction(fn, module); err != nil {
			return vm.Nil, err
		}
	}

	main, err := module.LookupFunction("main", 0)
	if err != nil {
		return vm.Nil, &vm.RuntimeError{Kind: vm.UndefinedName, Detail: "main/0", Err: err}
	}
	log.Debugf("invoking %s", main.Signature())
	return main.Invoke(nil)
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func (in *Interpreter) bindGlobal(g *compiler.Global) error {
	if g.Variable == nil {
		return unanalyzed(g)
	}
	value := vm.Nil
	if g.Value != nil {
		v, err := in.eval(g.Value)
		if err != nil {
			return err
		}
		value = v
	}
	v, err := in.scope.DefineVariable(g.Name, g.Variable.JvmName, g.Variable.Type, g.Variable.Mutable, value)
	if err != nil {
		return fmt.Errorf("cannot bind %s: %w", g.Name, err)
	}
	v.IsList = g.Variable.IsList
	return nil
}

// defineFunction binds fn in closure. Every call runs in a fresh child of
// closure, never of the caller's scope.
func (in *Interpreter) defineFunction(fn *compiler.Function, closure *vm.Scope) error {
	checked := fn.Function
	if checked == nil {
		return unanalyzed(fn)
	}
	binding := &vm.Function{
		Name:           checked.Name,
		JvmName:        checked.JvmName,
		Arity:          checked.Arity,
		ParameterTypes: checked.ParameterTypes,
		ReturnType:     checked.ReturnType,
	}
	binding.Invoke = func(args []vm.Value) (vm.Value, error) {
		return in.invoke(fn, binding, closure, args)
	}
	if _, err := closure.DefineFunction(binding); err != nil {
		return fmt.Errorf("cannot define %s: %w", fn.Name, err)
	}
	return nil
}

func (in *Interpreter) invoke(fn *compiler.Function, binding *vm.Function, closure *vm.Scope, args []vm.Value) (vm.Value, error) {
	if len(args) != binding.Arity {
		return vm.Nil, &vm.RuntimeError{
			Kind:   vm.ArityMismatch,
			Detail: fmt.Sprintf("%s takes %d arguments, got %d", fn.Name, binding.Arity, len(args)),
		}
	}
	limit := in.MaxDepth
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	if in.depth >= limit {
		return vm.Nil, &vm.RuntimeError{
			Kind:   vm.StackOverflow,
			Detail: fmt.Sprintf("%s exceeds %d nested calls", fn.Name, limit),
		}
	}

	saved := in.scope
	in.scope = vm.NewScope(closure)
	in.depth++
	defer func() {
		in.scope = saved
		in.depth--
	}()

	for i, name := range fn.Parameters {
		if _, err := in.scope.DefineVariable(name, compiler.JvmName(name), binding.ParameterTypes[i], true, args[i]); err != nil {
			return vm.Nil, fmt.Errorf("cannot bind parameter %s: %w", name, err)
		}
	}

	c, err := in.execBlock(fn.Statements)
	if err != nil {
		return vm.Nil, err
	}
	if c.returned {
		return c.value, nil
	}
	return vm.Nil, nil
}

func unanalyzed(n compiler.Node) error {
	return &vm.RuntimeError{
		Kind:   vm.Unanalyzed,
		Detail: fmt.Sprintf("%T at %s has no analysis annotations", n, n.Span().Start),
	}
}
