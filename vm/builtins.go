package vm

import (
	"fmt"
	"io"
)

// NewBuiltins builds the root scope every pipeline run starts from. It is
// constructed per run and never shared, so two runs never observe each
// other's output writer.
//
// The scope currently holds a single native function:
//
//	print(Any) -> Nil   writes the value's print form and a newline to out
func NewBuiltins(out io.Writer) *Scope {
	s := NewScope(nil)
	s.DefineFunction(&Function{
		Name:           "print",
		JvmName:        "System.out.println",
		Arity:          1,
		ParameterTypes: []*Type{AnyType},
		ReturnType:     NilType,
		Invoke: func(args []Value) (Value, error) {
			if _, err := fmt.Fprintln(out, args[0].String()); err != nil {
				return Nil, fmt.Errorf("print: %w", err)
			}
			return Nil, nil
		},
	})
	return s
}
