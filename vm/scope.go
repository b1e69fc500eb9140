package vm

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Bindings
// ---------------------------------------------------------------------------

// Variable is a named, typed slot owned by exactly one Scope.
type Variable struct {
	Name    string
	JvmName string // runtime alias used by the generator
	Type    *Type
	Mutable bool
	IsList  bool // Type is the element type
	Value   Value
}

// Function is a callable binding. The same name may be bound several times
// in one scope with different arities.
type Function struct {
	Name           string
	JvmName        string
	Arity          int
	ParameterTypes []*Type
	ReturnType     *Type
	Invoke         func(args []Value) (Value, error)
}

// Signature renders f as name(T1, T2) -> R.
func (f *Function) Signature() string {
	s := f.Name + "("
	for i, t := range f.ParameterTypes {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s + ") -> " + f.ReturnType.String()
}

type functionKey struct {
	name  string
	arity int
}

// ---------------------------------------------------------------------------
// Scope
// ---------------------------------------------------------------------------

// Scope is a block-level binding table. Lookups fall through to the parent
// chain; definitions only ever touch the receiver. A parent never references
// its children, so a child becomes garbage as soon as the block that created
// it stops holding it.
type Scope struct {
	parent    *Scope
	variables map[string]*Variable
	functions map[functionKey]*Function
}

// NewScope creates a scope nested in parent (nil for a root scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent:    parent,
		variables: make(map[string]*Variable),
		functions: make(map[functionKey]*Function),
	}
}

// Parent returns the enclosing scope.
func (s *Scope) Parent() *Scope { return s.parent }

// DefineVariable binds a new variable in this scope.
func (s *Scope) DefineVariable(name, jvmName string, typ *Type, mutable bool, value Value) (*Variable, error) {
	if _, exists := s.variables[name]; exists {
		return nil, &RedefinitionError{Kind: "variable", Name: name, Arity: -1}
	}
	v := &Variable{
		Name:    name,
		JvmName: jvmName,
		Type:    typ,
		Mutable: mutable,
		Value:   value,
	}
	s.variables[name] = v
	return v, nil
}

// LookupVariable finds the innermost variable with the given name.
func (s *Scope) LookupVariable(name string) (*Variable, error) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.variables[name]; ok {
			return v, nil
		}
	}
	return nil, &UnresolvedNameError{Kind: "variable", Name: name, Arity: -1}
}

// DefineFunction binds a function in this scope, keyed by name and arity.
func (s *Scope) DefineFunction(fn *Function) (*Function, error) {
	key := functionKey{fn.Name, fn.Arity}
	if _, exists := s.functions[key]; exists {
		return nil, &RedefinitionError{Kind: "function", Name: fn.Name, Arity: fn.Arity}
	}
	s.functions[key] = fn
	return fn, nil
}

// LookupFunction finds the innermost function with the given name and arity.
func (s *Scope) LookupFunction(name string, arity int) (*Function, error) {
	key := functionKey{name, arity}
	for sc := s; sc != nil; sc = sc.parent {
		if fn, ok := sc.functions[key]; ok {
			return fn, nil
		}
	}
	return nil, &UnresolvedNameError{Kind: "function", Name: name, Arity: arity}
}

// FunctionsNamed returns every function visible from s with the given name,
// innermost first. Shadowed arities are omitted.
func (s *Scope) FunctionsNamed(name string) []*Function {
	var out []*Function
	seen := make(map[int]bool)
	for sc := s; sc != nil; sc = sc.parent {
		for key, fn := range sc.functions {
			if key.name == name && !seen[key.arity] {
				seen[key.arity] = true
				out = append(out, fn)
			}
		}
	}
	return out
}

// Variables lists this scope's own variables in name order.
func (s *Scope) Variables() []*Variable {
	out := make([]*Variable, 0, len(s.variables))
	for _, v := range s.variables {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Functions lists this scope's own functions ordered by name, then arity.
func (s *Scope) Functions() []*Function {
	out := make([]*Function, 0, len(s.functions))
	for _, fn := range s.functions {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Arity < out[j].Arity
	})
	return out
}

// ---------------------------------------------------------------------------
// Lookup errors
// ---------------------------------------------------------------------------

// UnresolvedNameError reports a lookup that exhausted the scope chain.
// Arity is -1 for anything that is not a function.
type UnresolvedNameError struct {
	Kind  string
	Name  string
	Arity int
}

func (e *UnresolvedNameError) Error() string {
	if e.Arity >= 0 {
		return fmt.Sprintf("undefined %s %s/%d", e.Kind, e.Name, e.Arity)
	}
	return fmt.Sprintf("undefined %s %s", e.Kind, e.Name)
}

// RedefinitionError reports a second definition in the same scope.
type RedefinitionError struct {
	Kind  string
	Name  string
	Arity int
}

func (e *RedefinitionError) Error() string {
	if e.Arity >= 0 {
		return fmt.Sprintf("%s %s/%d is already defined in this scope", e.Kind, e.Name, e.Arity)
	}
	return fmt.Sprintf("%s %s is already defined in this scope", e.Kind, e.Name)
}
