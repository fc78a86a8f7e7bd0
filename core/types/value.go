package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// ErrArithmeticOverflow is returned whenever an arithmetic step would wrap,
// underflow below zero or divide by zero. Amount math never saturates.
var ErrArithmeticOverflow = errors.New("value: arithmetic overflow")

// ValueDecimals is the fixed-point scale shared by every amount, balance and
// price in the ledger.
const ValueDecimals = 18

// Value is an unsigned fixed-point quantity scaled by 10^18. The zero value is
// ready to use and represents zero. Values are immutable; every operation
// returns a fresh result.
type Value struct {
	i uint256.Int
}

// NewValue wraps a raw uint64 amount expressed in the smallest unit.
func NewValue(v uint64) Value {
	var out Value
	out.i.SetUint64(v)
	return out
}

// ValueFromBig converts a big integer amount. Negative or oversized inputs are
// rejected as overflow.
func ValueFromBig(b *big.Int) (Value, error) {
	if b == nil {
		return Value{}, nil
	}
	i, overflow := uint256.FromBig(b)
	if overflow {
		return Value{}, ErrArithmeticOverflow
	}
	var out Value
	out.i.Set(i)
	return out, nil
}

// ValueFromString parses a base-10 amount expressed in the smallest unit.
func ValueFromString(s string) (Value, error) {
	i, err := uint256.FromDecimal(s)
	if err != nil {
		return Value{}, fmt.Errorf("value: parse %q: %w", s, err)
	}
	var out Value
	out.i.Set(i)
	return out, nil
}

// MustValue parses a base-10 amount and panics on failure. Intended for
// constants and test fixtures.
func MustValue(s string) Value {
	v, err := ValueFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Add returns v+o, failing on overflow.
func (v Value) Add(o Value) (Value, error) {
	var out Value
	if _, overflow := out.i.AddOverflow(&v.i, &o.i); overflow {
		return Value{}, ErrArithmeticOverflow
	}
	return out, nil
}

// Sub returns v-o, failing when the result would go below zero.
func (v Value) Sub(o Value) (Value, error) {
	var out Value
	if _, underflow := out.i.SubOverflow(&v.i, &o.i); underflow {
		return Value{}, ErrArithmeticOverflow
	}
	return out, nil
}

// Mul returns v*o, failing on overflow.
func (v Value) Mul(o Value) (Value, error) {
	var out Value
	if _, overflow := out.i.MulOverflow(&v.i, &o.i); overflow {
		return Value{}, ErrArithmeticOverflow
	}
	return out, nil
}

// MulUint64 returns v*m, failing on overflow.
func (v Value) MulUint64(m uint64) (Value, error) {
	var factor uint256.Int
	factor.SetUint64(m)
	var out Value
	if _, overflow := out.i.MulOverflow(&v.i, &factor); overflow {
		return Value{}, ErrArithmeticOverflow
	}
	return out, nil
}

// MulDiv returns floor(v*mul/div). The intermediate product is tracked at full
// width so the usual price*amount expressions cannot silently wrap.
func (v Value) MulDiv(mul, div Value) (Value, error) {
	if div.i.IsZero() {
		return Value{}, ErrArithmeticOverflow
	}
	var out Value
	if _, overflow := out.i.MulDivOverflow(&v.i, &mul.i, &div.i); overflow {
		return Value{}, ErrArithmeticOverflow
	}
	return out, nil
}

// Cmp returns -1, 0 or 1 comparing v against o.
func (v Value) Cmp(o Value) int { return v.i.Cmp(&o.i) }

// IsZero reports whether the value is exactly zero.
func (v Value) IsZero() bool { return v.i.IsZero() }

// Uint64 returns the amount as a uint64, failing when it does not fit.
func (v Value) Uint64() (uint64, error) {
	if !v.i.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return v.i.Uint64(), nil
}

// Big returns the amount as a fresh big integer.
func (v Value) Big() *big.Int { return v.i.ToBig() }

// String renders the amount as a base-10 integer in the smallest unit.
func (v Value) String() string { return v.i.Dec() }

// MarshalJSON renders the amount as a quoted base-10 string so clients never
// lose precision to floating point.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted or bare base-10 amount.
func (v *Value) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ValueFromString(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
