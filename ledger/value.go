package ledger

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Value is an amount of the native asset, denominated in gwei.
type Value uint64

const (
	Gwei  Value = 1
	Ether Value = 1_000_000_000

	etherDecimals = 9
)

// Add returns v+o, or an Overflow error.
func (v Value) Add(o Value) (Value, error) {
	sum, carry := bits.Add64(uint64(v), uint64(o), 0)
	if carry != 0 {
		return 0, &Error{Kind: KindOverflow, Message: fmt.Sprintf("value overflow: %d + %d", v, o)}
	}
	return Value(sum), nil
}

// Mul returns v*n, or an Overflow error.
func (v Value) Mul(n uint64) (Value, error) {
	hi, lo := bits.Mul64(uint64(v), n)
	if hi != 0 {
		return 0, &Error{Kind: KindOverflow, Message: fmt.Sprintf("value overflow: %d * %d", v, n)}
	}
	return Value(lo), nil
}

// String formats v as decimal ether without trailing zeros ("0.5", "12").
func (v Value) String() string {
	whole := uint64(v / Ether)
	frac := uint64(v % Ether)
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	fs := fmt.Sprintf("%0*d", etherDecimals, frac)
	return strconv.FormatUint(whole, 10) + "." + strings.TrimRight(fs, "0")
}

// ParseEther parses a non-negative decimal ether amount such as "1", "0.5" or
// "0.000000001". Precision beyond one gwei is rejected.
func ParseEther(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("ledger: empty amount")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && frac == "" {
		return 0, fmt.Errorf("ledger: invalid amount %q", s)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("ledger: invalid amount %q", s)
	}
	if len(frac) > etherDecimals {
		if strings.Trim(frac[etherDecimals:], "0") != "" {
			return 0, fmt.Errorf("ledger: amount %q has more than %d decimals", s, etherDecimals)
		}
		frac = frac[:etherDecimals]
	}

	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ledger: invalid amount %q: %w", s, err)
	}
	out, err := Value(w).Mul(uint64(Ether))
	if err != nil {
		return 0, err
	}
	if frac != "" {
		frac += strings.Repeat("0", etherDecimals-len(frac))
		f, err := strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ledger: invalid amount %q: %w", s, err)
		}
		if out, err = out.Add(Value(f)); err != nil {
			return 0, err
		}
	}
	return out, nil
}

// MustParseEther is like ParseEther but panics on error.
func MustParseEther(s string) Value {
	v, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return v
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
