// Package rational provides arbitrary-precision token amounts.
//
// On-chain amounts are 256-bit integers scaled by a token's decimals
// (anywhere from 6 to 24 across the tokens this system classifies).
// Floating point cannot represent that range losslessly, so every amount
// that crosses a decoder boundary is a Rational.
package rational

import (
	"fmt"
	"math/big"
	"strings"
)

// Rational wraps big.Rat with the overflow-aware constructors the
// classification pipeline needs. The zero value reads as 0; New, Zero and
// the FromRaw* constructors are the usual ways to build one.
type Rational struct {
	r *big.Rat
}

// Zero returns the rational 0/1.
func Zero() Rational {
	return Rational{r: new(big.Rat)}
}

// New wraps an existing big.Rat. A nil input yields Zero().
func New(r *big.Rat) Rational {
	if r == nil {
		return Zero()
	}
	return Rational{r: new(big.Rat).Set(r)}
}

// FromRawAmount scales an on-chain integer amount by 10^decimals, producing
// the human-denominated Rational. This is the mandatory conversion named in
// component 4.C: decoders never hand raw integer amounts downstream.
func FromRawAmount(amount *big.Int, decimals uint8) (Rational, error) {
	if amount == nil {
		return Zero(), fmt.Errorf("rational: nil amount")
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	if scale.Sign() == 0 {
		return Zero(), fmt.Errorf("rational: zero scale for decimals %d", decimals)
	}
	num := new(big.Rat).SetInt(amount)
	den := new(big.Rat).SetInt(scale)
	return Rational{r: num.Quo(num, den)}, nil
}

// MustFromRawAmount panics on error; for use with constants in tests/fixtures.
func MustFromRawAmount(amount *big.Int, decimals uint8) Rational {
	v, err := FromRawAmount(amount, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// Add returns a + b without mutating either operand.
func Add(a, b Rational) Rational {
	return Rational{r: new(big.Rat).Add(a.orZero(), b.orZero())}
}

// Sub returns a - b without mutating either operand.
func Sub(a, b Rational) Rational {
	return Rational{r: new(big.Rat).Sub(a.orZero(), b.orZero())}
}

// Mul returns a * b without mutating either operand.
func Mul(a, b Rational) Rational {
	return Rational{r: new(big.Rat).Mul(a.orZero(), b.orZero())}
}

// Cmp compares a and b the way big.Rat.Cmp does.
func Cmp(a, b Rational) int {
	return a.orZero().Cmp(b.orZero())
}

// IsZero reports whether the value is exactly zero.
func (v Rational) IsZero() bool {
	return v.orZero().Sign() == 0
}

// Sign returns -1, 0, or 1.
func (v Rational) Sign() int {
	return v.orZero().Sign()
}

// String renders a fixed-point decimal string, trimming trailing zeros.
func (v Rational) String() string {
	s := v.orZero().FloatString(24)
	if strings.Contains(s, ".") {
		s = strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// Rat exposes the underlying big.Rat for callers that need raw math; the
// returned value is a copy and safe to mutate.
func (v Rational) Rat() *big.Rat {
	return new(big.Rat).Set(v.orZero())
}

func (v Rational) orZero() *big.Rat {
	if v.r == nil {
		return new(big.Rat)
	}
	return v.r
}

// MarshalJSON renders the rational as a decimal string so downstream
// consumers never parse a float.
func (v Rational) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

// UnmarshalJSON parses a decimal or fraction string.
func (v *Rational) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return fmt.Errorf("rational: invalid value %q", s)
	}
	v.r = r
	return nil
}
