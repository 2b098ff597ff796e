// Package tax holds the numeric rules shared by every money-handling path:
// Israeli tax-ID check digits, VAT calculation and the money rounding rule.
package tax

import (
	"fmt"
	"strings"
)

// TaxIDLength is the number of digits in an Israeli tax ID (teudat zehut / company number).
const TaxIDLength = 9

// NormalizeTaxID strips everything but ASCII digits.
func NormalizeTaxID(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CheckDigit computes the check digit for the first 8 digits of a tax ID.
func CheckDigit(first8 string) (int, error) {
	if len(first8) != TaxIDLength-1 {
		return 0, fmt.Errorf("expected %d digits, got %d", TaxIDLength-1, len(first8))
	}

	sum := 0
	for i := 0; i < len(first8); i++ {
		c := first8[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-digit %q at position %d", c, i)
		}
		product := int(c-'0') * (i%2 + 1)
		if product > 9 {
			product -= 9
		}
		sum += product
	}
	return (10 - sum%10) % 10, nil
}

// ValidateIsraeliTaxID reports whether s, after stripping non-digits, is a
// 9-digit tax ID whose last digit matches the computed check digit.
func ValidateIsraeliTaxID(s string) bool {
	digits := NormalizeTaxID(s)
	if len(digits) != TaxIDLength {
		return false
	}
	check, err := CheckDigit(digits[:TaxIDLength-1])
	if err != nil {
		return false
	}
	return check == int(digits[TaxIDLength-1]-'0')
}
