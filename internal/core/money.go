// Package core holds the pure domain of the shopping engine: fixed-point
// money and quantity arithmetic, the list aggregate invariants, the list
// state machine and the budget alert rule. Nothing here touches storage,
// transport or the clock.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount with two fixed fractional digits, stored as integer
// cents. Integer arithmetic keeps subtotals and running totals exact where
// binary floating point would drift.
type Money struct {
	Cents int64
}

// Quantity has three fixed fractional digits (1.500 kg), stored as integer
// thousandths.
type Quantity struct {
	Milli int64
}

// Subtotal computes price × quantity, rounded half-up to the cent.
func Subtotal(price Money, qty Quantity) Money {
	product := price.Cents * qty.Milli
	return Money{Cents: (product + 500) / 1000}
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// String renders the amount as a plain decimal ("42.90"), the wire format
// for all monetary fields.
func (m Money) String() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func (q Quantity) String() string {
	milli := q.Milli
	neg := milli < 0
	if neg {
		milli = -milli
	}
	s := strconv.FormatInt(milli/1000, 10)
	if rem := milli % 1000; rem != 0 {
		s += "." + strings.TrimRight(fmt.Sprintf("%03d", rem), "0")
	}
	if neg {
		return "-" + s
	}
	return s
}

// ParseMoney converts a decimal string to Money. Both dot and comma decimal
// separators are accepted; a third fractional digit is rounded half-up.
// Negative amounts are rejected: every monetary input in this engine
// (prices, budgets, funding) is non-negative at the parse boundary.
func ParseMoney(s string) (Money, error) {
	units, err := parseFixed(s, 2)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: units}, nil
}

// ParseQuantity converts a decimal string to a Quantity with up to three
// fractional digits.
func ParseQuantity(s string) (Quantity, error) {
	units, err := parseFixed(s, 3)
	if err != nil {
		return Quantity{}, ErrInvalidQuantity
	}
	return Quantity{Milli: units}, nil
}

// parseFixed parses a non-negative decimal into integer units carrying
// `digits` fractional places, rounding the next place half-up.
func parseFixed(s string, digits int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	scale := int64(1)
	for i := 0; i < digits; i++ {
		scale *= 10
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	maxSafe := (int64(1)<<62 - 1) / scale
	if iv > maxSafe {
		return 0, ErrInvalidAmount
	}
	units := iv * scale

	if fracPart != "" {
		// Keep digits+1 places so the extra one drives the rounding.
		frac := fracPart
		if len(frac) > digits+1 {
			frac = frac[:digits+1]
		}
		for len(frac) < digits+1 {
			frac += "0"
		}
		fv, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		units += (fv + 5) / 10
	}

	return units, nil
}
