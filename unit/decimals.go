package unit

import (
	"fmt"
	"math/big"
	"strings"
)

// MaxTokenDecimals is the largest decimals value a token may declare.
const MaxTokenDecimals = 9

// ToBaseUnits converts a decimal token amount such as "12.5" into integer
// base units for a token with the given decimals. Digits beyond the token's
// precision are an error.
func ToBaseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidValue)
	}
	if strings.HasPrefix(amount, "-") {
		return nil, ErrNegativeValue
	}

	whole, frac, found := strings.Cut(amount, ".")
	if found && strings.Contains(frac, ".") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidValue, amount)
	}
	if whole == "" {
		whole = "0"
	}

	frac = strings.TrimRight(frac, "0")
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrPrecision, amount, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	digits := whole + frac
	for _, c := range digits {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidValue, amount)
		}
	}

	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidValue, amount)
	}
	return n, nil
}

// FromBaseUnits renders integer token base units as a decimal string.
func FromBaseUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}

	str := new(big.Int).Abs(amount).String()
	d := int(decimals)
	if len(str) <= d {
		str = strings.Repeat("0", d-len(str)+1) + str
	}

	whole := str[:len(str)-d]
	frac := strings.TrimRight(str[len(str)-d:], "0")

	out := whole
	if frac != "" {
		out += "." + frac
	}
	if amount.Sign() < 0 {
		out = "-" + out
	}
	return out
}
