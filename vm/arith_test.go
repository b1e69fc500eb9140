package vm

import (
	"errors"
	"testing"
)

func TestIntegerArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   func(a, b Value) (Value, error)
		a, b int64
		want string
	}{
		{"add", Add, 2, 3, "5"},
		{"sub", Sub, 2, 3, "-1"},
		{"mul", Mul, -4, 3, "-12"},
		{"div", Div, 7, 2, "3"},
		{"div truncates toward zero", Div, -7, 2, "-3"},
		{"pow", Pow, 2, 10, "1024"},
		{"pow zero", Pow, 5, 0, "1"},
	}

	for _, tc := range tests {
		got, err := tc.op(FromInt64(tc.a), FromInt64(tc.b))
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if got.String() != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestIntegerOverflowIsExact(t *testing.T) {
	got, err := Pow(FromInt64(2), FromInt64(100))
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "1267650600228229401496703205376" {
		t.Errorf("2^100 = %s", got)
	}
}

func TestDecimalArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   func(a, b Value) (Value, error)
		a, b string
		want string
	}{
		{"add", Add, "0.1", "0.2", "0.3"},
		{"sub", Sub, "1.00", "0.25", "0.75"},
		{"mul", Mul, "1.5", "1.5", "2.25"},
		{"div one third", Div, "1.0", "3.0", "0.3"},
		{"div keeps dividend scale", Div, "10.00", "4.0", "2.50"},
		{"div tie rounds to even (down)", Div, "2.5", "2.0", "1.2"},
		{"div tie rounds to even (up)", Div, "3.5", "2.0", "1.8"},
		{"div negative", Div, "-1.0", "3.0", "-0.3"},
		{"div to zero", Div, "0.1", "3.0", "0.0"},
	}

	for _, tc := range tests {
		got, err := tc.op(FromDecimal(dec(t, tc.a)), FromDecimal(dec(t, tc.b)))
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if got.String() != tc.want {
			t.Errorf("%s: %s op %s = %s, want %s", tc.name, tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDecimalPow(t *testing.T) {
	got, err := Pow(FromDecimal(dec(t, "1.5")), FromInt64(2))
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "2.25" {
		t.Errorf("1.5^2 = %s", got)
	}

	got, err = Pow(FromDecimal(dec(t, "2.0")), FromInt64(-1))
	if err != nil {
		t.Fatal(err)
	}
	if c, _ := Compare(got, FromDecimal(dec(t, "0.5"))); c != 0 {
		t.Errorf("2.0^-1 = %s, want 0.5", got)
	}
}

func TestArithmeticErrors(t *testing.T) {
	tests := []struct {
		name string
		op   func(a, b Value) (Value, error)
		a, b Value
		kind ErrorKind
	}{
		{"int div zero", Div, FromInt64(5), FromInt64(0), DivisionByZero},
		{"dec div zero", Div, FromDecimal(dec(t, "1.0")), FromDecimal(dec(t, "0.0")), DivisionByZero},
		{"negative int exponent", Pow, FromInt64(2), FromInt64(-1), NegativeExponent},
		{"decimal exponent", Pow, FromInt64(2), FromDecimal(dec(t, "1.0")), TypeMismatch},
		{"mixed kinds", Add, FromInt64(1), FromDecimal(dec(t, "1.0")), TypeMismatch},
		{"boolean operand", Sub, FromBool(true), FromInt64(1), TypeMismatch},
		{"zero to negative", Pow, FromDecimal(dec(t, "0.0")), FromInt64(-2), DivisionByZero},
	}

	for _, tc := range tests {
		_, err := tc.op(tc.a, tc.b)
		if !errors.Is(err, &RuntimeError{Kind: tc.kind}) {
			t.Errorf("%s: error = %v, want %v", tc.name, err, tc.kind)
		}
	}
}

func TestAddConcatenates(t *testing.T) {
	tests := []struct {
		a, b Value
		want string
	}{
		{FromString("n="), FromInt64(3), "n=3"},
		{FromInt64(3), FromString("!"), "3!"},
		{FromString("x"), FromChar('y'), "xy"},
		{FromString("v"), Nil, "vnull"},
		{FromString("d"), FromDecimal(dec(t, "1.50")), "d1.50"},
	}

	for _, tc := range tests {
		got, err := Add(tc.a, tc.b)
		if err != nil {
			t.Errorf("Add(%v, %v): %v", tc.a, tc.b, err)
			continue
		}
		if s, _ := got.Str(); s != tc.want {
			t.Errorf("Add(%v, %v) = %q, want %q", tc.a, tc.b, s, tc.want)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b Value
		want int
	}{
		{FromInt64(1), FromInt64(2), -1},
		{FromDecimal(dec(t, "2.0")), FromDecimal(dec(t, "1.99")), 1},
		{FromChar('a'), FromChar('a'), 0},
		{FromString("abc"), FromString("abd"), -1},
	}
	for _, tc := range tests {
		got, err := Compare(tc.a, tc.b)
		if err != nil {
			t.Errorf("Compare(%v, %v): %v", tc.a, tc.b, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}

	if _, err := Compare(FromInt64(1), FromString("1")); err == nil {
		t.Error("Compare of mixed kinds should fail")
	}
	if _, err := Compare(FromBool(true), FromBool(false)); err == nil {
		t.Error("Compare of booleans should fail")
	}
}
