package vm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Value is a boxed runtime value.
//
// The payload is one of:
//   - nil            (Nil)
//   - bool           (Boolean)
//   - rune           (Character)
//   - string         (String)
//   - *big.Int       (Integer)
//   - *apd.Decimal   (Decimal)
//   - *List          (list)
//
// Payloads are never mutated after boxing, with the exception of list slots,
// which indexed assignment replaces in place. Values compare with == when
// their payloads do.
type Value struct {
	data any
}

// Kind identifies the payload of a Value.
type Kind int

const (
	KindNil Kind = iota
	KindBoolean
	KindCharacter
	KindString
	KindInteger
	KindDecimal
	KindList
)

var kindNames = [...]string{
	KindNil:       "Nil",
	KindBoolean:   "Boolean",
	KindCharacter: "Character",
	KindString:    "String",
	KindInteger:   "Integer",
	KindDecimal:   "Decimal",
	KindList:      "List",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Nil is the NIL value.
var Nil = Value{}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func FromBool(b bool) Value { return Value{data: b} }
func FromChar(r rune) Value { return Value{data: r} }
func FromString(s string) Value { return Value{data: s} }
func FromInt(i *big.Int) Value { return Value{data: i} }
func FromInt64(i int64) Value { return Value{data: big.NewInt(i)} }
func FromDecimal(d *apd.Decimal) Value { return Value{data: d} }
func FromList(l *List) Value { return Value{data: l} }

// FromLiteral boxes a parsed literal. Accepted inputs mirror the payload
// set documented on Value.
func FromLiteral(lit any) (Value, error) {
	switch x := lit.(type) {
	case nil:
		return Nil, nil
	case bool:
		return FromBool(x), nil
	case rune:
		return FromChar(x), nil
	case string:
		return FromString(x), nil
	case *big.Int:
		return FromInt(x), nil
	case *apd.Decimal:
		return FromDecimal(x), nil
	}
	return Nil, fmt.Errorf("unsupported literal %T", lit)
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Kind returns the payload kind.
func (v Value) Kind() Kind {
	switch v.data.(type) {
	case bool:
		return KindBoolean
	case rune:
		return KindCharacter
	case string:
		return KindString
	case *big.Int:
		return KindInteger
	case *apd.Decimal:
		return KindDecimal
	case *List:
		return KindList
	}
	return KindNil
}

func (v Value) IsNil() bool { return v.data == nil }

// Bool returns the boolean payload; ok is false for other kinds.
func (v Value) Bool() (b, ok bool) {
	b, ok = v.data.(bool)
	return b, ok
}

func (v Value) Char() (rune, bool) {
	r, ok := v.data.(rune)
	return r, ok
}

func (v Value) Str() (string, bool) {
	s, ok := v.data.(string)
	return s, ok
}

func (v Value) Int() (*big.Int, bool) {
	i, ok := v.data.(*big.Int)
	return i, ok
}

func (v Value) Decimal() (*apd.Decimal, bool) {
	d, ok := v.data.(*apd.Decimal)
	return d, ok
}

func (v Value) List() (*List, bool) {
	l, ok := v.data.(*List)
	return l, ok
}

// ---------------------------------------------------------------------------
// Formatting and equality
// ---------------------------------------------------------------------------

// String renders v the way print shows it.
func (v Value) String() string {
	switch x := v.data.(type) {
	case nil:
		return "null"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case rune:
		return string(x)
	case string:
		return x
	case *big.Int:
		return x.String()
	case *apd.Decimal:
		return x.Text('f')
	case *List:
		return x.String()
	}
	return fmt.Sprintf("%v", v.data)
}

// Equal compares by value. Values of different kinds are never equal;
// decimals compare numerically, so 2.0 equals 2.00.
func (v Value) Equal(o Value) bool {
	switch x := v.data.(type) {
	case nil:
		return o.data == nil
	case bool:
		y, ok := o.data.(bool)
		return ok && x == y
	case rune:
		y, ok := o.data.(rune)
		return ok && x == y
	case string:
		y, ok := o.data.(string)
		return ok && x == y
	case *big.Int:
		y, ok := o.data.(*big.Int)
		return ok && x.Cmp(y) == 0
	case *apd.Decimal:
		y, ok := o.data.(*apd.Decimal)
		return ok && x.Cmp(y) == 0
	case *List:
		y, ok := o.data.(*List)
		if !ok || len(x.elems) != len(y.elems) {
			return false
		}
		for i := range x.elems {
			if !x.elems[i].Equal(y.elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

// List is the backing sequence of a LIST value.
type List struct {
	elems []Value
}

// NewList copies elems into a fresh list.
func NewList(elems []Value) *List {
	l := &List{elems: make([]Value, len(elems))}
	copy(l.elems, elems)
	return l
}

func (l *List) Len() int { return len(l.elems) }

// At returns the element at a zero-based index.
func (l *List) At(index *big.Int) (Value, error) {
	i, err := l.slot(index)
	if err != nil {
		return Nil, err
	}
	return l.elems[i], nil
}

// Set replaces the element at a zero-based index.
func (l *List) Set(index *big.Int, v Value) error {
	i, err := l.slot(index)
	if err != nil {
		return err
	}
	l.elems[i] = v
	return nil
}

// Elements returns a copy of the backing sequence.
func (l *List) Elements() []Value {
	out := make([]Value, len(l.elems))
	copy(out, l.elems)
	return out
}

func (l *List) slot(index *big.Int) (int, error) {
	if !index.IsInt64() || index.Sign() < 0 || index.Int64() >= int64(len(l.elems)) {
		return 0, &RuntimeError{
			Kind:   IndexOutOfRange,
			Detail: fmt.Sprintf("index %s out of range for list of length %d", index, len(l.elems)),
		}
	}
	return int(index.Int64()), nil
}

func (l *List) String() string {
	parts := make([]string, len(l.elems))
	for i, e := range l.elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
