// Package unit converts between integer base units (satoshi) and display
// denominations. Fractional values only exist at this boundary; everything
// downstream works in uint64 satoshi or *big.Int token base units.
package unit

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Unit is a display denomination.
type Unit int

const (
	Sat Unit = iota
	Bit
	BCH
	USD
)

const (
	// SatsPerBCH is the fixed ledger scaling factor.
	SatsPerBCH = 100_000_000

	// SatsPerBit is the number of satoshi in one bit (micro-BCH).
	SatsPerBit = 100
)

var (
	// ErrInvalidUnit indicates an unrecognized denomination name.
	ErrInvalidUnit = errors.New("unit: invalid unit")

	// ErrInvalidValue indicates a value string that is not a plain decimal.
	ErrInvalidValue = errors.New("unit: invalid value")

	// ErrNegativeValue indicates a negative amount.
	ErrNegativeValue = errors.New("unit: value must not be negative")

	// ErrPrecision indicates a value finer than the smallest base unit.
	ErrPrecision = errors.New("unit: value exceeds base unit precision")

	// ErrNoExchangeRate indicates a currency conversion without a rate.
	ErrNoExchangeRate = errors.New("unit: exchange rate required")

	// ErrOverflow indicates a value that does not fit in 64 bits of satoshi.
	ErrOverflow = errors.New("unit: value overflows satoshi range")
)

var unitNames = map[string]Unit{
	"sat":      Sat,
	"sats":     Sat,
	"satoshi":  Sat,
	"satoshis": Sat,
	"bit":      Bit,
	"bits":     Bit,
	"bch":      BCH,
	"usd":      USD,
}

// ParseUnit resolves a denomination name, case-insensitively.
func ParseUnit(name string) (Unit, error) {
	if u, ok := unitNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return u, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, name)
}

func (u Unit) String() string {
	switch u {
	case Sat:
		return "sat"
	case Bit:
		return "bit"
	case BCH:
		return "bch"
	case USD:
		return "usd"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

// places is the number of fractional digits used when formatting.
func (u Unit) places() int {
	switch u {
	case Bit:
		return 2
	case BCH:
		return 8
	case USD:
		return 2
	default:
		return 0
	}
}

// ParseValue parses a plain decimal string such as "0.015" or "1000".
// Fractions ("1/3") and exponents ("1e3") are rejected.
func ParseValue(s string) (*big.Rat, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "/eE") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	return r, nil
}

// ToSatoshi converts value in unit u into satoshi. usdPerBCH is only
// consulted for USD; currency amounts round down to whole satoshi, all other
// units must be exact.
func ToSatoshi(value *big.Rat, u Unit, usdPerBCH *big.Rat) (uint64, error) {
	if value == nil {
		return 0, fmt.Errorf("%w: nil", ErrInvalidValue)
	}
	if value.Sign() < 0 {
		return 0, ErrNegativeValue
	}

	sats := new(big.Rat)
	switch u {
	case Sat:
		sats.Set(value)
	case Bit:
		sats.Mul(value, big.NewRat(SatsPerBit, 1))
	case BCH:
		sats.Mul(value, big.NewRat(SatsPerBCH, 1))
	case USD:
		if usdPerBCH == nil || usdPerBCH.Sign() <= 0 {
			return 0, ErrNoExchangeRate
		}
		sats.Quo(value, usdPerBCH)
		sats.Mul(sats, big.NewRat(SatsPerBCH, 1))
		whole := new(big.Int).Quo(sats.Num(), sats.Denom())
		sats.SetInt(whole)
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidUnit, u)
	}

	if !sats.IsInt() {
		return 0, fmt.Errorf("%w: %s %s", ErrPrecision, value.FloatString(12), u)
	}
	n := sats.Num()
	if !n.IsUint64() {
		return 0, ErrOverflow
	}
	return n.Uint64(), nil
}

// ParseSatoshi parses a decimal string in unit u and converts it to satoshi.
func ParseSatoshi(value string, u Unit, usdPerBCH *big.Rat) (uint64, error) {
	r, err := ParseValue(value)
	if err != nil {
		return 0, err
	}
	return ToSatoshi(r, u, usdPerBCH)
}

// FromSatoshi converts satoshi into unit u.
func FromSatoshi(sat uint64, u Unit, usdPerBCH *big.Rat) (*big.Rat, error) {
	v := new(big.Rat).SetInt(new(big.Int).SetUint64(sat))
	switch u {
	case Sat:
		return v, nil
	case Bit:
		return v.Quo(v, big.NewRat(SatsPerBit, 1)), nil
	case BCH:
		return v.Quo(v, big.NewRat(SatsPerBCH, 1)), nil
	case USD:
		if usdPerBCH == nil || usdPerBCH.Sign() <= 0 {
			return nil, ErrNoExchangeRate
		}
		v.Quo(v, big.NewRat(SatsPerBCH, 1))
		return v.Mul(v, usdPerBCH), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidUnit, u)
	}
}

// FormatSatoshi renders sat in unit u as a decimal string without trailing
// zeros.
func FormatSatoshi(sat uint64, u Unit, usdPerBCH *big.Rat) (string, error) {
	v, err := FromSatoshi(sat, u, usdPerBCH)
	if err != nil {
		return "", err
	}
	return trimZeros(v.FloatString(u.places())), nil
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Balance is a satoshi amount rendered in every display denomination.
type Balance struct {
	Sat uint64 `json:"sat"`
	BCH string `json:"bch"`
	USD string `json:"usd,omitempty"`
}

// BalanceFromSatoshi renders sat for display. USD is left empty when no rate
// is known.
func BalanceFromSatoshi(sat uint64, usdPerBCH *big.Rat) Balance {
	b := Balance{Sat: sat}
	b.BCH, _ = FormatSatoshi(sat, BCH, nil)
	if usdPerBCH != nil && usdPerBCH.Sign() > 0 {
		b.USD, _ = FormatSatoshi(sat, USD, usdPerBCH)
	}
	return b
}
