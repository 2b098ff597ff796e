// Package memory is an in-process Store. Writers are serialized by a single
// lock and stage their changes until commit, so a failed Update leaves no trace.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/store"
)

type accountKey struct {
	tenantID uuid.UUID
	id       uuid.UUID
}

type numberKey struct {
	tenantID uuid.UUID
	number   string
}

type claimKey struct {
	tenantID uuid.UUID
	refType  model.ReferenceType
	refID    uuid.UUID
}

type Store struct {
	mu sync.RWMutex

	accounts  map[accountKey]*model.Account
	byNumber  map[numberKey]uuid.UUID
	entries   map[uuid.UUID][]*model.JournalEntry // per tenant, in sequence order
	sequences map[uuid.UUID]int64
	claims    map[claimKey]string
	closed    bool
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:  make(map[accountKey]*model.Account),
		byNumber:  make(map[numberKey]uuid.UUID),
		entries:   make(map[uuid.UUID][]*model.JournalEntry),
		sequences: make(map[uuid.UUID]int64),
		claims:    make(map[claimKey]string),
	}
}

func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}

	tx := newTx(s)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) View(ctx context.Context, fn func(r store.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return fn(&reader{s: s})
}

func (s *Store) Migrate(context.Context) error { return nil }

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// reader reads committed state. Callers hold s.mu.
type reader struct {
	s *Store
}

func (r *reader) GetAccount(_ context.Context, tenantID, accountID uuid.UUID) (*model.Account, error) {
	a, ok := r.s.accounts[accountKey{tenantID, accountID}]
	if !ok {
		return nil, &model.NotFoundError{Kind: "account", Key: accountID.String()}
	}
	return cloneAccount(a), nil
}

func (r *reader) FindAccountByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*model.Account, error) {
	accountID, ok := r.s.byNumber[numberKey{tenantID, number}]
	if !ok {
		return nil, &model.NotFoundError{Kind: "account", Key: number}
	}
	return r.GetAccount(ctx, tenantID, accountID)
}

func (r *reader) ListAccounts(_ context.Context, tenantID uuid.UUID) ([]*model.Account, error) {
	var result []*model.Account
	for k, a := range r.s.accounts {
		if k.tenantID == tenantID {
			result = append(result, cloneAccount(a))
		}
	}
	model.SortByNumber(result)
	return result, nil
}

func (r *reader) ListEntriesByTransaction(_ context.Context, tenantID uuid.UUID, transactionNumber string) ([]*model.JournalEntry, error) {
	var result []*model.JournalEntry
	for _, e := range r.s.entries[tenantID] {
		if e.TransactionNumber == transactionNumber {
			result = append(result, cloneEntry(e))
		}
	}
	return result, nil
}

func (r *reader) ListEntries(_ context.Context, tenantID uuid.UUID, filter store.EntryFilter) ([]*model.JournalEntry, error) {
	var result []*model.JournalEntry
	for _, e := range r.s.entries[tenantID] {
		if matches(e, filter) {
			result = append(result, cloneEntry(e))
		}
	}
	return result, nil
}

func (r *reader) MaxSequence(_ context.Context, tenantID uuid.UUID) (int64, error) {
	return r.s.sequences[tenantID], nil
}

func matches(e *model.JournalEntry, f store.EntryFilter) bool {
	if f.AccountID != nil && e.AccountID != *f.AccountID {
		return false
	}
	if f.ReferenceType != "" && e.ReferenceType != f.ReferenceType {
		return false
	}
	if f.ReferenceID != nil && e.ReferenceID != *f.ReferenceID {
		return false
	}
	if !f.From.IsZero() && e.TransactionDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.TransactionDate.After(f.To) {
		return false
	}
	return true
}

func cloneAccount(a *model.Account) *model.Account {
	c := *a
	if a.ParentID != nil {
		p := *a.ParentID
		c.ParentID = &p
	}
	return &c
}

func cloneEntry(e *model.JournalEntry) *model.JournalEntry {
	c := *e
	return &c
}

// balanceDelta accumulates AddBalance calls until commit.
type balanceDelta struct {
	key   accountKey
	delta decimal.Decimal
}
