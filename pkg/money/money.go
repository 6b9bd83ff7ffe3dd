// Package money formats the string prices posts and orders carry ("Free" or "£2.50").
package money

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const (
	Free          = "Free"
	DefaultSymbol = "£"
)

var ErrInvalidPrice = errors.New("price must be Free or a positive amount")

// IsFree reports whether price is exactly the literal "Free".
func IsFree(price string) bool {
	return price == Free
}

// Amount extracts the numeric part of a price: every character other than digits
// and '.' is dropped and anything from a second '.' onwards is ignored.
// A price without digits yields zero.
func Amount(price string) decimal.Decimal {
	var b strings.Builder
	seenDot := false
	for _, r := range price {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			if seenDot {
				return parse(b.String())
			}
			seenDot = true
			b.WriteRune(r)
		}
	}
	return parse(b.String())
}

func parse(s string) decimal.Decimal {
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "." {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Symbol returns the currency prefix of price, or DefaultSymbol when it has none.
func Symbol(price string) string {
	trimmed := strings.TrimSpace(price)
	idx := strings.IndexFunc(trimmed, func(r rune) bool {
		return unicode.IsDigit(r) || r == '.'
	})
	if idx <= 0 {
		return DefaultSymbol
	}
	symbol := strings.TrimSpace(trimmed[:idx])
	if symbol == "" {
		return DefaultSymbol
	}
	return symbol
}

// Format renders amount with exactly two decimals behind symbol.
func Format(symbol string, amount decimal.Decimal) string {
	return symbol + amount.StringFixed(2)
}

// Total derives an order total from the unit price and the ordered quantity.
func Total(pricePerItem string, quantity int) string {
	if IsFree(pricePerItem) {
		return Free
	}
	amount := Amount(pricePerItem).Mul(decimal.NewFromInt(int64(quantity)))
	return Format(Symbol(pricePerItem), amount)
}

// Normalize turns user input into a catalog price. "free" in any case and
// zero amounts become Free; other amounts are rendered with two decimals.
func Normalize(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if strings.EqualFold(trimmed, Free) {
		return Free, nil
	}
	if !strings.ContainsFunc(trimmed, unicode.IsDigit) {
		return "", ErrInvalidPrice
	}
	amount := Amount(trimmed)
	if amount.IsZero() {
		return Free, nil
	}
	return Format(Symbol(trimmed), amount), nil
}
