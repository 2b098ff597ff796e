package sqlstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/books/internal/model"
)

// Amounts are stored as int64 agorot so balance updates are exact SQL
// increments on every dialect.
const minorPlaces = 2

type accountRow struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_accounts_tenant_number,priority:1"`
	Number        string     `gorm:"size:6;not null;uniqueIndex:idx_ledger_accounts_tenant_number,priority:2"`
	Name          string     `gorm:"size:200;not null"`
	LocalizedName string     `gorm:"size:200"`
	Type          string     `gorm:"size:16;not null"`
	Level         int        `gorm:"not null"`
	ParentID      *uuid.UUID `gorm:"type:uuid;index"`
	BalanceMinor  int64      `gorm:"not null"`
	IsActive      bool       `gorm:"not null"`
	IsControl     bool       `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (accountRow) TableName() string { return "ledger_accounts" }

type entryRow struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID `gorm:"type:uuid;not null;index:idx_ledger_entries_tenant_txn,priority:1;uniqueIndex:idx_ledger_entries_tenant_seq,priority:1"`
	AccountID         uuid.UUID `gorm:"type:uuid;not null;index"`
	TransactionDate   time.Time `gorm:"not null;index"`
	TransactionNumber string    `gorm:"size:40;not null;index:idx_ledger_entries_tenant_txn,priority:2"`
	Description       string    `gorm:"size:500"`
	DebitMinor        int64     `gorm:"not null"`
	CreditMinor       int64     `gorm:"not null"`
	ReferenceType     string    `gorm:"size:40"`
	ReferenceID       uuid.UUID `gorm:"type:uuid"`
	Sequence          int64     `gorm:"not null;uniqueIndex:idx_ledger_entries_tenant_seq,priority:2"`
	CreatedBy         uuid.UUID `gorm:"type:uuid"`
	CreatedAt         time.Time
}

func (entryRow) TableName() string { return "ledger_entries" }

type sequenceRow struct {
	TenantID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Value    int64     `gorm:"not null"`
}

func (sequenceRow) TableName() string { return "ledger_sequences" }

// claimRow makes a reference usable once per tenant across processes.
type claimRow struct {
	TenantID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReferenceType     string    `gorm:"size:40;primaryKey"`
	ReferenceID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionNumber string    `gorm:"size:40;not null"`
	CreatedAt         time.Time
}

func (claimRow) TableName() string { return "ledger_reference_claims" }

func toMinor(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(minorPlaces)
	if !shifted.IsInteger() {
		return 0, model.NewValidationError("amount", "%s has more than %d decimal places", d, minorPlaces)
	}
	return shifted.IntPart(), nil
}

func fromMinor(n int64) decimal.Decimal {
	return decimal.New(n, -minorPlaces)
}

func accountToRow(a *model.Account) (*accountRow, error) {
	balance, err := toMinor(a.Balance)
	if err != nil {
		return nil, fmt.Errorf("account %s balance: %w", a.Number, err)
	}
	return &accountRow{
		ID:            a.ID,
		TenantID:      a.TenantID,
		Number:        a.Number,
		Name:          a.Name,
		LocalizedName: a.LocalizedName,
		Type:          string(a.Type),
		Level:         a.Level,
		ParentID:      a.ParentID,
		BalanceMinor:  balance,
		IsActive:      a.IsActive,
		IsControl:     a.IsControl,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}, nil
}

func (r *accountRow) toModel() *model.Account {
	return &model.Account{
		ID:            r.ID,
		TenantID:      r.TenantID,
		Number:        r.Number,
		Name:          r.Name,
		LocalizedName: r.LocalizedName,
		Type:          model.AccountType(r.Type),
		Level:         r.Level,
		ParentID:      r.ParentID,
		Balance:       fromMinor(r.BalanceMinor),
		IsActive:      r.IsActive,
		IsControl:     r.IsControl,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func entryToRow(e *model.JournalEntry) (*entryRow, error) {
	debit, err := toMinor(e.Debit)
	if err != nil {
		return nil, fmt.Errorf("entry %d debit: %w", e.Sequence, err)
	}
	credit, err := toMinor(e.Credit)
	if err != nil {
		return nil, fmt.Errorf("entry %d credit: %w", e.Sequence, err)
	}
	return &entryRow{
		ID:                e.ID,
		TenantID:          e.TenantID,
		AccountID:         e.AccountID,
		TransactionDate:   e.TransactionDate,
		TransactionNumber: e.TransactionNumber,
		Description:       e.Description,
		DebitMinor:        debit,
		CreditMinor:       credit,
		ReferenceType:     string(e.ReferenceType),
		ReferenceID:       e.ReferenceID,
		Sequence:          e.Sequence,
		CreatedBy:         e.CreatedBy,
		CreatedAt:         e.CreatedAt,
	}, nil
}

func (r *entryRow) toModel() *model.JournalEntry {
	return &model.JournalEntry{
		ID:                r.ID,
		TenantID:          r.TenantID,
		AccountID:         r.AccountID,
		TransactionDate:   r.TransactionDate,
		TransactionNumber: r.TransactionNumber,
		Description:       r.Description,
		Debit:             fromMinor(r.DebitMinor),
		Credit:            fromMinor(r.CreditMinor),
		ReferenceType:     model.ReferenceType(r.ReferenceType),
		ReferenceID:       r.ReferenceID,
		Sequence:          r.Sequence,
		CreatedBy:         r.CreatedBy,
		CreatedAt:         r.CreatedAt,
	}
}
