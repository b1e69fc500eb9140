package vm

import (
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// ---------------------------------------------------------------------------
// Arithmetic on runtime values
//
// Integers are math/big integers and decimals are apd decimals, so + - *
// are exact. Decimal division keeps the dividend's exponent and rounds
// half-to-even; integer division truncates toward zero.
// ---------------------------------------------------------------------------

// reciprocalPrecision bounds the digits of x ^ -n for decimal x.
const reciprocalPrecision = 34

// exact never rounds: a zero precision disables rounding for add/sub/mul.
var exact = apd.BaseContext

// Add implements +. Either side being a String makes it concatenation.
func Add(a, b Value) (Value, error) {
	_, as := a.Str()
	_, bs := b.Str()
	if as || bs {
		return FromString(a.String() + b.String()), nil
	}
	return numeric("+", a, b,
		func(x, y *big.Int) (*big.Int, error) { return new(big.Int).Add(x, y), nil },
		func(x, y *apd.Decimal) (*apd.Decimal, error) {
			d := new(apd.Decimal)
			_, err := exact.Add(d, x, y)
			return d, err
		})
}

// Sub implements -.
func Sub(a, b Value) (Value, error) {
	return numeric("-", a, b,
		func(x, y *big.Int) (*big.Int, error) { return new(big.Int).Sub(x, y), nil },
		func(x, y *apd.Decimal) (*apd.Decimal, error) {
			d := new(apd.Decimal)
			_, err := exact.Sub(d, x, y)
			return d, err
		})
}

// Mul implements *.
func Mul(a, b Value) (Value, error) {
	return numeric("*", a, b,
		func(x, y *big.Int) (*big.Int, error) { return new(big.Int).Mul(x, y), nil },
		func(x, y *apd.Decimal) (*apd.Decimal, error) {
			d := new(apd.Decimal)
			_, err := exact.Mul(d, x, y)
			return d, err
		})
}

// Div implements /.
func Div(a, b Value) (Value, error) {
	return numeric("/", a, b,
		func(x, y *big.Int) (*big.Int, error) {
			if y.Sign() == 0 {
				return nil, runtimeErrorf(DivisionByZero, "%s / 0", x)
			}
			return new(big.Int).Quo(x, y), nil
		},
		divideDecimal)
}

// Pow implements ^. The exponent must be an Integer.
func Pow(a, b Value) (Value, error) {
	exp, ok := b.Int()
	if !ok {
		return Nil, runtimeErrorf(TypeMismatch, "exponent must be Integer, got %s", b.Kind())
	}
	if !exp.IsInt64() {
		return Nil, runtimeErrorf(TypeMismatch, "exponent %s is too large", exp)
	}
	n := exp.Int64()

	if base, ok := a.Int(); ok {
		if n < 0 {
			return Nil, runtimeErrorf(NegativeExponent, "%s ^ %d", base, n)
		}
		return FromInt(new(big.Int).Exp(base, exp, nil)), nil
	}
	if base, ok := a.Decimal(); ok {
		d, err := powDecimal(base, n)
		if err != nil {
			return Nil, err
		}
		return FromDecimal(d), nil
	}
	return Nil, runtimeErrorf(TypeMismatch, "cannot raise %s to a power", a.Kind())
}

// Compare orders two values of the same comparable kind.
func Compare(a, b Value) (int, error) {
	if a.Kind() != b.Kind() {
		return 0, runtimeErrorf(TypeMismatch, "cannot compare %s with %s", a.Kind(), b.Kind())
	}
	switch x := a.data.(type) {
	case *big.Int:
		return x.Cmp(b.data.(*big.Int)), nil
	case *apd.Decimal:
		return x.Cmp(b.data.(*apd.Decimal)), nil
	case rune:
		y := b.data.(rune)
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	case string:
		return strings.Compare(x, b.data.(string)), nil
	}
	return 0, runtimeErrorf(TypeMismatch, "%s is not comparable", a.Kind())
}

func numeric(op string, a, b Value,
	onInt func(x, y *big.Int) (*big.Int, error),
	onDec func(x, y *apd.Decimal) (*apd.Decimal, error)) (Value, error) {

	if x, ok := a.Int(); ok {
		if y, ok := b.Int(); ok {
			r, err := onInt(x, y)
			if err != nil {
				return Nil, err
			}
			return FromInt(r), nil
		}
	}
	if x, ok := a.Decimal(); ok {
		if y, ok := b.Decimal(); ok {
			r, err := onDec(x, y)
			if err != nil {
				return Nil, err
			}
			return FromDecimal(r), nil
		}
	}
	return Nil, runtimeErrorf(TypeMismatch, "%s %s %s", a.Kind(), op, b.Kind())
}

// divideDecimal returns x / y at x's exponent, rounded half-to-even.
//
// With x = X·10^ex and y = Y·10^ey the result is R·10^ex where
// R = X / (Y·10^ey), computed exactly on the coefficients.
func divideDecimal(x, y *apd.Decimal) (*apd.Decimal, error) {
	if y.IsZero() {
		return nil, runtimeErrorf(DivisionByZero, "%s / %s", x.Text('f'), y.Text('f'))
	}
	num := new(big.Int).Set(x.Coeff.MathBigInt())
	den := new(big.Int).Set(y.Coeff.MathBigInt())
	switch {
	case y.Exponent > 0:
		den.Mul(den, pow10(int64(y.Exponent)))
	case y.Exponent < 0:
		num.Mul(num, pow10(int64(-y.Exponent)))
	}

	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	switch new(big.Int).Lsh(r, 1).Cmp(den) {
	case 1:
		q.Add(q, big.NewInt(1))
	case 0:
		if q.Bit(0) == 1 {
			q.Add(q, big.NewInt(1))
		}
	}
	if x.Negative != y.Negative {
		q.Neg(q)
	}
	return apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(q), x.Exponent), nil
}

func powDecimal(base *apd.Decimal, n int64) (*apd.Decimal, error) {
	neg := n < 0
	if neg {
		n = -n
	}
	orig := n
	result := apd.New(1, 0)
	sq := new(apd.Decimal).Set(base)
	for n > 0 {
		if n&1 == 1 {
			if _, err := exact.Mul(result, result, sq); err != nil {
				return nil, err
			}
		}
		n >>= 1
		if n > 0 {
			if _, err := exact.Mul(sq, sq, sq); err != nil {
				return nil, err
			}
		}
	}
	if !neg {
		return result, nil
	}
	if result.IsZero() {
		return nil, runtimeErrorf(DivisionByZero, "%s ^ -%d", base.Text('f'), orig)
	}
	ctx := apd.BaseContext.WithPrecision(reciprocalPrecision)
	ctx.Rounding = apd.RoundHalfEven
	d := new(apd.Decimal)
	if _, err := ctx.Quo(d, apd.New(1, 0), result); err != nil {
		return nil, err
	}
	return d, nil
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}
