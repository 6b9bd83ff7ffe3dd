package feed

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseCount strips every non-digit character from quantity and parses the
// rest as a base-10 integer. An empty or unparseable remainder counts as 0.
func ParseCount(quantity string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, quantity)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Unit returns the label that follows the count, "Plates" in "12 Plates".
func Unit(quantity string) string {
	label := strings.Join(strings.Fields(strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return -1
		}
		return r
	}, quantity)), " ")
	if label == "" {
		return DefaultUnit
	}
	return label
}

func FormatQuantity(n int, unit string) string {
	if n < 0 {
		n = 0
	}
	if strings.TrimSpace(unit) == "" {
		unit = DefaultUnit
	}
	return strconv.Itoa(n) + " " + unit
}
