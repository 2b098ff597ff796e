package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferenceType names the kind of business document a posting came from.
type ReferenceType string

const (
	ReferenceSalesOrder    ReferenceType = "sales_order"
	ReferencePurchaseOrder ReferenceType = "purchase_order"
	ReferenceReceipt       ReferenceType = "receipt"
	ReferencePayment       ReferenceType = "payment"
	ReferenceAdjustment    ReferenceType = "inventory_adjustment"
	ReferenceReversal      ReferenceType = "reversal"
)

// JournalEntry is a single posting line: one side of a double-entry
// transaction against one account. Entries are written once and never
// updated; corrections are new reversing postings.
type JournalEntry struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	AccountID         uuid.UUID
	TransactionDate   time.Time
	TransactionNumber string // groups sibling postings into one business transaction
	Description       string
	Debit             decimal.Decimal // zero if credit side
	Credit            decimal.Decimal // zero if debit side
	ReferenceType     ReferenceType
	ReferenceID       uuid.UUID
	Sequence          int64
	CreatedBy         uuid.UUID
	CreatedAt         time.Time
}

// IsDebit reports whether this is the debit side of its transaction.
func (e *JournalEntry) IsDebit() bool {
	return !e.Debit.IsZero()
}

// Amount returns whichever side is set.
func (e *JournalEntry) Amount() decimal.Decimal {
	if e.IsDebit() {
		return e.Debit
	}
	return e.Credit
}

// Totals sums the debit and credit sides of a set of postings.
func Totals(entries []*JournalEntry) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	return debit, credit
}
