package vm

import "fmt"

// ErrorKind classifies runtime failures.
type ErrorKind int

const (
	UndefinedName ErrorKind = iota + 1
	ArityMismatch
	ImmutableAssignment
	DivisionByZero
	IndexOutOfRange
	TypeMismatch
	NegativeExponent
	// Unanalyzed means the interpreter was handed a tree the analyzer has
	// not annotated.
	Unanalyzed
	StackOverflow
)

var errorKindNames = map[ErrorKind]string{
	UndefinedName:       "undefined name",
	ArityMismatch:       "arity mismatch",
	ImmutableAssignment: "immutable assignment",
	DivisionByZero:      "division by zero",
	IndexOutOfRange:     "index out of range",
	TypeMismatch:        "type mismatch",
	NegativeExponent:    "negative exponent",
	Unanalyzed:          "unanalyzed tree",
	StackOverflow:       "stack overflow",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// RuntimeError terminates interpretation. No construct in the language can
// catch it.
type RuntimeError struct {
	Kind   ErrorKind
	Detail string
	Err    error // underlying lookup or arithmetic error, if any
}

func (e *RuntimeError) Error() string {
	if e.Detail == "" {
		return "runtime error: " + e.Kind.String()
	}
	return fmt.Sprintf("runtime error: %s: %s", e.Kind, e.Detail)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Is matches another *RuntimeError of the same kind, so callers can write
// errors.Is(err, &vm.RuntimeError{Kind: vm.DivisionByZero}).
func (e *RuntimeError) Is(target error) bool {
	t, ok := target.(*RuntimeError)
	return ok && t.Kind == e.Kind
}

func runtimeErrorf(kind ErrorKind, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
