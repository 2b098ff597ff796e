package memory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/store"
)

var errClosed = errors.New("memory store is closed")

// tx stages writes on top of the committed state. The store's write lock is
// held for the whole transaction, so staged state only has to shadow the base.
type tx struct {
	reader

	newAccounts []*model.Account
	active      map[accountKey]bool
	deltas      []balanceDelta
	entries     []*model.JournalEntry
	sequences   map[uuid.UUID]int64
	claims      map[claimKey]string
}

var _ store.Tx = (*tx)(nil)

func newTx(s *Store) *tx {
	return &tx{
		reader:    reader{s: s},
		active:    make(map[accountKey]bool),
		sequences: make(map[uuid.UUID]int64),
		claims:    make(map[claimKey]string),
	}
}

func (t *tx) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*model.Account, error) {
	key := accountKey{tenantID, accountID}
	var a *model.Account
	for _, na := range t.newAccounts {
		if na.TenantID == tenantID && na.ID == accountID {
			a = cloneAccount(na)
			break
		}
	}
	if a == nil {
		base, err := t.reader.GetAccount(ctx, tenantID, accountID)
		if err != nil {
			return nil, err
		}
		a = base
	}
	t.overlay(key, a)
	return a, nil
}

func (t *tx) FindAccountByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*model.Account, error) {
	for _, na := range t.newAccounts {
		if na.TenantID == tenantID && na.Number == number {
			return t.GetAccount(ctx, tenantID, na.ID)
		}
	}
	accountID, ok := t.s.byNumber[numberKey{tenantID, number}]
	if !ok {
		return nil, &model.NotFoundError{Kind: "account", Key: number}
	}
	return t.GetAccount(ctx, tenantID, accountID)
}

func (t *tx) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]*model.Account, error) {
	base, err := t.reader.ListAccounts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, na := range t.newAccounts {
		if na.TenantID == tenantID {
			base = append(base, cloneAccount(na))
		}
	}
	for _, a := range base {
		t.overlay(accountKey{a.TenantID, a.ID}, a)
	}
	model.SortByNumber(base)
	return base, nil
}

func (t *tx) ListEntriesByTransaction(ctx context.Context, tenantID uuid.UUID, transactionNumber string) ([]*model.JournalEntry, error) {
	result, err := t.reader.ListEntriesByTransaction(ctx, tenantID, transactionNumber)
	if err != nil {
		return nil, err
	}
	for _, e := range t.entries {
		if e.TenantID == tenantID && e.TransactionNumber == transactionNumber {
			result = append(result, cloneEntry(e))
		}
	}
	return result, nil
}

func (t *tx) ListEntries(ctx context.Context, tenantID uuid.UUID, filter store.EntryFilter) ([]*model.JournalEntry, error) {
	result, err := t.reader.ListEntries(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	for _, e := range t.entries {
		if e.TenantID == tenantID && matches(e, filter) {
			result = append(result, cloneEntry(e))
		}
	}
	return result, nil
}

func (t *tx) MaxSequence(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	if seq, ok := t.sequences[tenantID]; ok {
		return seq, nil
	}
	return t.reader.MaxSequence(ctx, tenantID)
}

func (t *tx) CreateAccount(ctx context.Context, a *model.Account) error {
	if _, err := t.FindAccountByNumber(ctx, a.TenantID, a.Number); err == nil {
		return model.NewValidationError("number", "account number %s already exists", a.Number)
	}
	t.newAccounts = append(t.newAccounts, cloneAccount(a))
	return nil
}

func (t *tx) SetAccountActive(ctx context.Context, tenantID, accountID uuid.UUID, active bool) error {
	if _, err := t.GetAccount(ctx, tenantID, accountID); err != nil {
		return err
	}
	t.active[accountKey{tenantID, accountID}] = active
	return nil
}

func (t *tx) AddBalance(ctx context.Context, tenantID, accountID uuid.UUID, delta decimal.Decimal) error {
	if _, err := t.GetAccount(ctx, tenantID, accountID); err != nil {
		return err
	}
	t.deltas = append(t.deltas, balanceDelta{key: accountKey{tenantID, accountID}, delta: delta})
	return nil
}

func (t *tx) AllocateSequence(ctx context.Context, tenantID uuid.UUID, n int) (int64, error) {
	if n <= 0 {
		return 0, model.NewValidationError("n", "must allocate at least one sequence number")
	}
	current, err := t.MaxSequence(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	t.sequences[tenantID] = current + int64(n)
	return current + 1, nil
}

func (t *tx) InsertEntries(_ context.Context, entries []*model.JournalEntry) error {
	for _, e := range entries {
		t.entries = append(t.entries, cloneEntry(e))
	}
	return nil
}

func (t *tx) ClaimReference(_ context.Context, tenantID uuid.UUID, refType model.ReferenceType, refID uuid.UUID, transactionNumber string) error {
	key := claimKey{tenantID, refType, refID}
	prior, ok := t.claims[key]
	if !ok {
		prior, ok = t.s.claims[key]
	}
	if ok {
		return model.NewValidationError("reference_id", "%s %s already used by %s", refType, refID, prior)
	}
	t.claims[key] = transactionNumber
	return nil
}

// overlay applies staged active flags and balance deltas to a read copy.
func (t *tx) overlay(key accountKey, a *model.Account) {
	if active, ok := t.active[key]; ok {
		a.IsActive = active
	}
	for _, d := range t.deltas {
		if d.key == key {
			a.Balance = a.Balance.Add(d.delta)
		}
	}
}

func (t *tx) commit() {
	s := t.s
	for _, a := range t.newAccounts {
		key := accountKey{a.TenantID, a.ID}
		s.accounts[key] = a
		s.byNumber[numberKey{a.TenantID, a.Number}] = a.ID
	}
	for key, active := range t.active {
		s.accounts[key].IsActive = active
	}
	for _, d := range t.deltas {
		a := s.accounts[d.key]
		a.Balance = a.Balance.Add(d.delta)
	}
	for tenantID, seq := range t.sequences {
		s.sequences[tenantID] = seq
	}
	for _, e := range t.entries {
		s.entries[e.TenantID] = append(s.entries[e.TenantID], e)
	}
	for key, number := range t.claims {
		s.claims[key] = number
	}
}
