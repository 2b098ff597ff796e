package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateVAT(t *testing.T) {
	tests := []struct {
		amount, rate string
		vat, total   string
	}{
		{"100", "17", "17.00", "117.00"},
		{"0", "17", "0", "0"},
		{"19.99", "17", "3.40", "23.39"},
		{"0.05", "17", "0.01", "0.06"},
		{"0.02", "17", "0.00", "0.02"},
		{"1000", "18", "180", "1180"},
		{"-100", "17", "-17", "-117"},
	}
	for _, tt := range tests {
		vat, total := CalculateVAT(dec(tt.amount), dec(tt.rate))
		assert.True(t, vat.Equal(dec(tt.vat)), "vat(%s@%s) = %s, want %s", tt.amount, tt.rate, vat, tt.vat)
		assert.True(t, total.Equal(dec(tt.total)), "total(%s@%s) = %s, want %s", tt.amount, tt.rate, total, tt.total)
	}
}

func TestCalculateVAT_StringForm(t *testing.T) {
	vat, total := CalculateVAT(dec("100"), DefaultVATRate)
	assert.Equal(t, "17.00", vat.StringFixed(2))
	assert.Equal(t, "117.00", total.StringFixed(2))
}

func TestRoundMoney(t *testing.T) {
	assert.True(t, RoundMoney(dec("1.005")).Equal(dec("1.01")))
	assert.True(t, RoundMoney(dec("-1.005")).Equal(dec("-1.01")))
	assert.True(t, RoundMoney(dec("2.004")).Equal(dec("2.00")))
}

func TestHasMoneyPrecision(t *testing.T) {
	assert.True(t, HasMoneyPrecision(dec("10.12")))
	assert.True(t, HasMoneyPrecision(dec("10")))
	assert.False(t, HasMoneyPrecision(dec("10.123")))
}
