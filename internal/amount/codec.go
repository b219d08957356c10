// Package amount converts between human decimal strings and integer base units.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// DisplayDecimals caps the fractional digits Format emits.
const DisplayDecimals = 6

var (
	ErrInvalidAmount  = errors.New("invalid token amount")
	ErrNegativeAmount = errors.New("negative token amount")
)

// Parse converts a decimal string such as "1.5" into base units for a token
// with the given decimals. Fractional digits beyond decimals are truncated.
// An empty string parses to zero.
func Parse(value string, decimals uint8) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return new(big.Int), nil
	}
	if strings.HasPrefix(value, "-") {
		return nil, fmt.Errorf("%w: %q", ErrNegativeAmount, value)
	}

	whole, fraction, _ := strings.Cut(value, ".")
	if strings.Contains(fraction, ".") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || !isDigits(fraction) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}

	d := int(decimals)
	if len(fraction) > d {
		fraction = fraction[:d]
	} else {
		fraction += strings.Repeat("0", d-len(fraction))
	}

	out, ok := new(big.Int).SetString(whole+fraction, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	return out, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(value string, decimals uint8) *big.Int {
	v, err := Parse(value, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// Format renders base units as a decimal string with at most DisplayDecimals
// fractional digits and no trailing zeros.
func Format(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if value.Sign() < 0 {
		return "-" + Format(new(big.Int).Neg(value), decimals)
	}

	divisor := pow10(decimals)
	whole, rem := new(big.Int).QuoRem(value, divisor, new(big.Int))

	if rem.Sign() == 0 {
		return whole.String()
	}

	frac := rem.String()
	frac = strings.Repeat("0", int(decimals)-len(frac)) + frac
	if len(frac) > DisplayDecimals {
		frac = frac[:DisplayDecimals]
	}
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole.String()
	}
	return whole.String() + "." + frac
}

// IsPositive reports whether value is a syntactically valid amount greater than zero.
func IsPositive(value string, decimals uint8) bool {
	v, err := Parse(value, decimals)
	return err == nil && v.Sign() > 0
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
