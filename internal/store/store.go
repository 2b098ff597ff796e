// Package store defines the persistence contract for the bookkeeping core.
//
// All writes happen inside Update, which commits every change made through
// its Tx or none of them. Reads that must not observe a half-applied
// transaction go through View.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/books/internal/model"
)

// EntryFilter narrows ListEntries. Zero values mean "no constraint".
type EntryFilter struct {
	AccountID     *uuid.UUID
	ReferenceType model.ReferenceType
	ReferenceID   *uuid.UUID
	From          time.Time // inclusive
	To            time.Time // inclusive
}

// Reader is the read side shared by snapshots and read-write transactions.
type Reader interface {
	GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*model.Account, error)
	FindAccountByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*model.Account, error)
	// ListAccounts returns the tenant's accounts ordered by model.LessNumber.
	ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]*model.Account, error)
	ListEntriesByTransaction(ctx context.Context, tenantID uuid.UUID, transactionNumber string) ([]*model.JournalEntry, error)
	ListEntries(ctx context.Context, tenantID uuid.UUID, filter EntryFilter) ([]*model.JournalEntry, error)
	MaxSequence(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// Tx is a read-write transaction.
type Tx interface {
	Reader

	// CreateAccount inserts a new account. Duplicate (tenant, number) fails
	// with a validation error.
	CreateAccount(ctx context.Context, a *model.Account) error
	// SetAccountActive flips the active flag.
	SetAccountActive(ctx context.Context, tenantID, accountID uuid.UUID, active bool) error
	// AddBalance atomically adds delta to the stored balance.
	AddBalance(ctx context.Context, tenantID, accountID uuid.UUID, delta decimal.Decimal) error
	// AllocateSequence reserves n consecutive sequence numbers for the tenant
	// and returns the first one.
	AllocateSequence(ctx context.Context, tenantID uuid.UUID, n int) (int64, error)
	// InsertEntries appends postings. Entries are never updated afterwards.
	InsertEntries(ctx context.Context, entries []*model.JournalEntry) error
	// ClaimReference records that transactionNumber consumed the reference
	// (refType, refID). A reference can be claimed once per tenant; a second
	// claim fails with a validation error, even from another process.
	ClaimReference(ctx context.Context, tenantID uuid.UUID, refType model.ReferenceType, refID uuid.UUID, transactionNumber string) error
}

// Store is the storage collaborator of the bookkeeping core.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(r Reader) error) error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
