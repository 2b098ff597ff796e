package tax

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places every stored amount carries.
const MoneyPlaces = 2

// DefaultVATRate is the Israeli standard VAT rate in percent.
var DefaultVATRate = decimal.NewFromInt(17)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds to 2 places, half away from zero. Every call site that
// derives an amount must go through here so modules agree to the agora.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// CalculateVAT returns the VAT on amount at rate percent and the gross total.
func CalculateVAT(amount, rate decimal.Decimal) (vat, total decimal.Decimal) {
	vat = RoundMoney(amount.Mul(rate).Div(hundred))
	total = RoundMoney(amount).Add(vat)
	return vat, total
}

// HasMoneyPrecision reports whether d has no more than 2 decimal places.
func HasMoneyPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyPlaces))
}
