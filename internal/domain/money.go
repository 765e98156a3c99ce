package domain

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in minor units (cents).
type Money int64

// NewMoney builds an amount from whole units and cents.
func NewMoney(units int64, cents int64) Money {
	return Money(units*100 + cents)
}

// ParseMoney parses a decimal amount such as "5", "5.5" or "5.00".
// More than two fractional digits is an error.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse money: empty amount")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && (!hasFrac || frac == "") {
		return 0, fmt.Errorf("parse money: invalid amount %q", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("parse money: too many fractional digits in %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	for len(frac) < 2 {
		frac += "0"
	}

	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("parse money: invalid amount %q", s)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > maxMoneyUnits {
		return 0, fmt.Errorf("parse money: amount %q out of range", s)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse money: invalid amount %q", s)
	}

	m := NewMoney(units, cents)
	if neg {
		m = -m
	}
	return m, nil
}

// maxMoneyUnits keeps units*100 + 99 within int64.
const maxMoneyUnits = (math.MaxInt64 - 99) / 100

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return int64(m)
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a JSON number with two decimals, e.g. 5.00.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
