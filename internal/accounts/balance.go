package accounts

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/books/internal/model"
)

// SignedDelta converts a posting into the change of the account's stored
// balance. Debit-normal accounts grow with debits, credit-normal ones with
// credits.
func SignedDelta(t model.AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	if t.IsDebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// ReportSides maps a stored balance onto the debit and credit columns of a
// report. Exactly one side is nonzero unless the balance is zero.
func ReportSides(t model.AccountType, balance decimal.Decimal) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	switch {
	case balance.IsZero():
	case t.IsDebitNormal() == balance.IsPositive():
		debit = balance.Abs()
	default:
		credit = balance.Abs()
	}
	return debit, credit
}
