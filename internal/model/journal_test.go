package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTotals(t *testing.T) {
	entries := []*JournalEntry{
		{Debit: decimal.RequireFromString("1170")},
		{Credit: decimal.RequireFromString("1000")},
		{Credit: decimal.RequireFromString("170")},
	}
	debit, credit := Totals(entries)
	assert.True(t, debit.Equal(decimal.NewFromInt(1170)))
	assert.True(t, credit.Equal(decimal.NewFromInt(1170)))

	debit, credit = Totals(nil)
	assert.True(t, debit.IsZero())
	assert.True(t, credit.IsZero())
}

func TestEntryAmount(t *testing.T) {
	e := &JournalEntry{Credit: decimal.NewFromInt(5)}
	assert.False(t, e.IsDebit())
	assert.True(t, e.Amount().Equal(decimal.NewFromInt(5)))
}

func TestAccountTypeNormalSide(t *testing.T) {
	tests := []struct {
		typ  AccountType
		want bool
	}{
		{AccountTypeAsset, true},
		{AccountTypeExpense, true},
		{AccountTypeLiability, false},
		{AccountTypeEquity, false},
		{AccountTypeRevenue, false},
	}
	for _, tt := range tests {
		assert.True(t, tt.typ.IsValid())
		assert.Equal(t, tt.want, tt.typ.IsDebitNormal(), "IsDebitNormal(%s)", tt.typ)
	}
	assert.False(t, AccountType("contra").IsValid())
}

func TestParseAccountType(t *testing.T) {
	got, ok := ParseAccountType("Revenue")
	assert.True(t, ok)
	assert.Equal(t, AccountTypeRevenue, got)

	got, ok = ParseAccountType("liability")
	assert.True(t, ok)
	assert.Equal(t, AccountTypeLiability, got)

	_, ok = ParseAccountType("income")
	assert.False(t, ok)
}

func TestErrorKinds(t *testing.T) {
	verr := fmt.Errorf("creating account: %w", NewValidationError("number", "must be 3-6 digits"))
	assert.ErrorIs(t, verr, ErrValidation)
	assert.NotErrorIs(t, verr, ErrNotFound)

	nf := &NotFoundError{Kind: "account", Key: "1100"}
	assert.ErrorIs(t, nf, ErrNotFound)
	assert.Equal(t, "account 1100 not found", nf.Error())

	imb := &ImbalanceError{TransactionNumber: "SAL-2025-01-000001", Debit: decimal.NewFromInt(10), Credit: decimal.NewFromInt(9)}
	assert.ErrorIs(t, imb, ErrImbalance)
	assert.Contains(t, imb.Error(), "10.00")

	assert.True(t, IsRetryable(fmt.Errorf("wrap: %w", ErrConcurrencyConflict)))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.True(t, IsNotFound(&NotFoundError{Kind: "account", Key: "1200"}))
	assert.False(t, IsNotFound(ErrValidation))
}

func TestLessNumber(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"200", "1000", true},
		{"1000", "200", false},
		{"1000", "10000", true},
		{"1100", "1200", true},
		{"0100", "100", true},
		{"100", "100", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LessNumber(tt.a, tt.b), "%s < %s", tt.a, tt.b)
	}

	accounts := []*Account{{Number: "10000"}, {Number: "200"}, {Number: "1000"}}
	SortByNumber(accounts)
	assert.Equal(t, "200", accounts[0].Number)
	assert.Equal(t, "1000", accounts[1].Number)
	assert.Equal(t, "10000", accounts[2].Number)
}
