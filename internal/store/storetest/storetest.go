// Package storetest is a conformance suite every store.Store implementation runs.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/store"
)

// Run exercises s. newStore must return an empty, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("CreateAndFindAccount", func(t *testing.T) { testCreateAndFind(t, newStore(t)) })
	t.Run("ListAccountsNumericOrder", func(t *testing.T) { testListOrder(t, newStore(t)) })
	t.Run("DuplicateNumber", func(t *testing.T) { testDuplicateNumber(t, newStore(t)) })
	t.Run("TenantIsolation", func(t *testing.T) { testTenantIsolation(t, newStore(t)) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("AddBalance", func(t *testing.T) { testAddBalance(t, newStore(t)) })
	t.Run("AllocateSequence", func(t *testing.T) { testAllocateSequence(t, newStore(t)) })
	t.Run("Entries", func(t *testing.T) { testEntries(t, newStore(t)) })
	t.Run("SetAccountActive", func(t *testing.T) { testSetActive(t, newStore(t)) })
	t.Run("ClaimReference", func(t *testing.T) { testClaimReference(t, newStore(t)) })
	t.Run("ConcurrentUpdates", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
}

func newAccount(tenantID uuid.UUID, number string, typ model.AccountType) *model.Account {
	now := time.Now().UTC()
	return &model.Account{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Number:    number,
		Name:      "Account " + number,
		Type:      typ,
		Level:     1,
		Balance:   decimal.Zero,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func createAccounts(t *testing.T, s store.Store, accounts ...*model.Account) {
	t.Helper()
	err := s.Update(context.Background(), func(tx store.Tx) error {
		for _, a := range accounts {
			if err := tx.CreateAccount(context.Background(), a); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func testCreateAndFind(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenantID := uuid.New()
	parent := newAccount(tenantID, "1000", model.AccountTypeAsset)
	child := newAccount(tenantID, "1100", model.AccountTypeAsset)
	child.ParentID = &parent.ID
	child.Level = 2
	child.LocalizedName = "לקוחות"
	createAccounts(t, s, parent, child)

	err := s.View(ctx, func(r store.Reader) error {
		got, err := r.FindAccountByNumber(ctx, tenantID, "1100")
		require.NoError(t, err)
		assert.Equal(t, child.ID, got.ID)
		require.NotNil(t, got.ParentID)
		assert.Equal(t, parent.ID, *got.ParentID)
		assert.Equal(t, 2, got.Level)
		assert.Equal(t, "לקוחות", got.LocalizedName)
		assert.True(t, got.Balance.IsZero())

		byID, err := r.GetAccount(ctx, tenantID, parent.ID)
		require.NoError(t, err)
		assert.Equal(t, "1000", byID.Number)
		assert.Nil(t, byID.ParentID)

		all, err := r.ListAccounts(ctx, tenantID)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "1000", all[0].Number)
		assert.Equal(t, "1100", all[1].Number)

		_, err = r.FindAccountByNumber(ctx, tenantID, "9999")
		assert.ErrorIs(t, err, model.ErrNotFound)
		_, err = r.GetAccount(ctx, tenantID, uuid.New())
		assert.ErrorIs(t, err, model.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func testListOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenantID := uuid.New()
	var accounts []*model.Account
	for _, n := range []string{"10000", "200", "1000", "100"} {
		accounts = append(accounts, newAccount(tenantID, n, model.AccountTypeAsset))
	}
	createAccounts(t, s, accounts...)

	var numbers []string
	err := s.Update(ctx, func(tx store.Tx) error {
		all, err := tx.ListAccounts(ctx, tenantID)
		for _, a := range all {
			numbers = append(numbers, a.Number)
		}
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200", "1000", "10000"}, numbers)

	numbers = nil
	err = s.View(ctx, func(r store.Reader) error {
		all, err := r.ListAccounts(ctx, tenantID)
		for _, a := range all {
			numbers = append(numbers, a.Number)
		}
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200", "1000", "10000"}, numbers)
}

func testDuplicateNumber(t *testing.T, s store.Store) {
	tenantID := uuid.New()
	createAccounts(t, s, newAccount(tenantID, "1000", model.AccountTypeAsset))

	err := s.Update(context.Background(), func(tx store.Tx) error {
		return tx.CreateAccount(context.Background(), newAccount(tenantID, "1000", model.AccountTypeAsset))
	})
	assert.ErrorIs(t, err, model.ErrValidation)

	// Same number in another tenant is fine.
	createAccounts(t, s, newAccount(uuid.New(), "1000", model.AccountTypeAsset))
}

func testTenantIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenantA, tenantB := uuid.New(), uuid.New()
	a := newAccount(tenantA, "1000", model.AccountTypeAsset)
	createAccounts(t, s, a)

	err := s.View(ctx, func(r store.Reader) error {
		_, err := r.GetAccount(ctx, tenantB, a.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)
		list, err := r.ListAccounts(ctx, tenantB)
		require.NoError(t, err)
		assert.Empty(t, list)
		return nil
	})
	require.NoError(t, err)
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenantID := uuid.New()
	a := newAccount(tenantID, "1000", model.AccountTypeAsset)
	createAccounts(t, s, a)

	boom := errors.New("boom")
	err := s.Update(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.CreateAccount(ctx, newAccount(tenantID, "2000", model.AccountTypeLiability)))
		require.NoError(t, tx.AddBalance(ctx, tenantID, a.ID, decimal.NewFromInt(50)))
		_, err := tx.AllocateSequence(ctx, tenantID, 3)
		require.NoError(t, err)
		require.NoError(t, tx.InsertEntries(ctx, []*model.JournalEntry{entry(tenantID, a.ID, "SAL-2025-01-000001", 1, "50", "")}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.View(ctx, func(r store.Reader) error {
		_, err := r.FindAccountByNumber(ctx, tenantID, "2000")
		assert.ErrorIs(t, err, model.ErrNotFound)
		got, err := r.GetAccount(ctx, tenantID, a.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.IsZero(), "balance must be rolled back, got %s", got.Balance)
		seq, err := r.MaxSequence(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), seq)
		entries, err := r.ListEntries(ctx, tenantID, store.EntryFilter{})
		require.NoError(t, err)
		assert.Empty(t, entries)
		return nil
	})
	require.NoError(t, err)
}

func testAddBalance(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenantID := uuid.New()
	a := newAccount(tenantID, "1000", model.AccountTypeAsset)
	createAccounts(t, s, a)

	err := s.Update(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.AddBalance(ctx, tenantID, a.ID, decimal.RequireFromString("100.25")))
		require.NoError(t, tx.AddBalance(ctx, tenantID, a.ID, decimal.RequireFromString("-40.10")))
		got, err := tx.GetAccount(ctx, tenantID, a.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.RequireFromString("60.15")), "in-tx balance %s", got.Balance)
		return nil
	})
	require.NoError(t, err)

	err = s.Update(ctx, func(tx store.Tx) error {
		return tx.AddBalance(ctx, tenantID, uuid.New(), decimal.NewFromInt(1))
	})
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = s.View(ctx, func(r store.Reader) error {
		got, err := r.GetAccount(ctx, tenantID, a.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.RequireFromString("60.15")), "committed balance %s", got.Balance)
		return nil
	})
	require.NoError(t, err)
}

func testAllocateSequence(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenantA, tenantB := uuid.New(), uuid.New()

	allocate := func(tenantID uuid.UUID, n int) int64 {
		var first int64
		err := s.Update(ctx, func(tx store.Tx) error {
			var err error
			first, err = tx.AllocateSequence(ctx, tenantID, n)
			return err
		})
		require.NoError(t, err)
		return first
	}

	assert.Equal(t, int64(1), allocate(tenantA, 3))
	assert.Equal(t, int64(4), allocate(tenantA, 2))
	assert.Equal(t, int64(1), allocate(tenantB, 1))
	assert.Equal(t, int64(6), allocate(tenantA, 1))

	err := s.View(ctx, func(r store.Reader) error {
		seq, err := r.MaxSequence(ctx, tenantA)
		require.NoError(t, err)
		assert.Equal(t, int64(6), seq)
		return nil
	})
	require.NoError(t, err)

	err = s.Update(ctx, func(tx store.Tx) error {
		_, err := tx.AllocateSequence(ctx, tenantA, 0)
		return err
	})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func entry(tenantID, accountID uuid.UUID, txn string, seq int64, debit, credit string) *model.JournalEntry {
	e := &model.JournalEntry{
		ID:                uuid.New(),
		TenantID:          tenantID,
		AccountID:         accountID,
		TransactionDate:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		TransactionNumber: txn,
		Description:       "test posting",
		Debit:             decimal.Zero,
		Credit:            decimal.Zero,
		ReferenceType:     model.ReferenceSalesOrder,
		ReferenceID:       uuid.New(),
		Sequence:          seq,
		CreatedBy:         uuid.New(),
		CreatedAt:         time.Now().UTC(),
	}
	if debit != "" {
		e.Debit = decimal.RequireFromString(debit)
	}
	if credit != "" {
		e.Credit = decimal.RequireFromString(credit)
	}
	return e
}

func testEntries(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenantID := uuid.New()
	ar := newAccount(tenantID, "1100", model.AccountTypeAsset)
	rev := newAccount(tenantID, "4000", model.AccountTypeRevenue)
	createAccounts(t, s, ar, rev)

	feb := entry(tenantID, ar.ID, "SAL-2025-02-000003", 3, "20.50", "")
	feb.TransactionDate = time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	febCredit := entry(tenantID, rev.ID, "SAL-2025-02-000003", 4, "", "20.50")
	febCredit.TransactionDate = feb.TransactionDate

	err := s.Update(ctx, func(tx store.Tx) error {
		return tx.InsertEntries(ctx, []*model.JournalEntry{
			entry(tenantID, ar.ID, "SAL-2025-01-000001", 1, "100", ""),
			entry(tenantID, rev.ID, "SAL-2025-01-000001", 2, "", "100"),
			feb,
			febCredit,
		})
	})
	require.NoError(t, err)

	err = s.View(ctx, func(r store.Reader) error {
		txn, err := r.ListEntriesByTransaction(ctx, tenantID, "SAL-2025-01-000001")
		require.NoError(t, err)
		require.Len(t, txn, 2)
		assert.Equal(t, int64(1), txn[0].Sequence)
		assert.True(t, txn[0].Debit.Equal(decimal.NewFromInt(100)))
		assert.True(t, txn[1].Credit.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, model.ReferenceSalesOrder, txn[0].ReferenceType)

		all, err := r.ListEntries(ctx, tenantID, store.EntryFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 4)

		ref := txn[0].ReferenceID
		byRef, err := r.ListEntries(ctx, tenantID, store.EntryFilter{ReferenceType: model.ReferenceSalesOrder, ReferenceID: &ref})
		require.NoError(t, err)
		assert.Len(t, byRef, 1)
		reversals, err := r.ListEntries(ctx, tenantID, store.EntryFilter{ReferenceType: model.ReferenceReversal})
		require.NoError(t, err)
		assert.Empty(t, reversals)

		byAccount, err := r.ListEntries(ctx, tenantID, store.EntryFilter{AccountID: &ar.ID})
		require.NoError(t, err)
		assert.Len(t, byAccount, 2)

		inFeb, err := r.ListEntries(ctx, tenantID, store.EntryFilter{
			From: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.Len(t, inFeb, 2)
		assert.True(t, inFeb[0].Debit.Equal(decimal.RequireFromString("20.50")))

		none, err := r.ListEntriesByTransaction(ctx, uuid.New(), "SAL-2025-01-000001")
		require.NoError(t, err)
		assert.Empty(t, none)
		return nil
	})
	require.NoError(t, err)
}

func testSetActive(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenantID := uuid.New()
	a := newAccount(tenantID, "5000", model.AccountTypeExpense)
	createAccounts(t, s, a)

	err := s.Update(ctx, func(tx store.Tx) error {
		return tx.SetAccountActive(ctx, tenantID, a.ID, false)
	})
	require.NoError(t, err)

	err = s.View(ctx, func(r store.Reader) error {
		got, err := r.GetAccount(ctx, tenantID, a.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		return nil
	})
	require.NoError(t, err)

	err = s.Update(ctx, func(tx store.Tx) error {
		return tx.SetAccountActive(ctx, tenantID, uuid.New(), false)
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func testClaimReference(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenantID, ref := uuid.New(), uuid.New()
	claim := func(tenantID uuid.UUID, refType model.ReferenceType, refID uuid.UUID, number string) error {
		return s.Update(ctx, func(tx store.Tx) error {
			return tx.ClaimReference(ctx, tenantID, refType, refID, number)
		})
	}

	boom := errors.New("boom")
	err := s.Update(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.ClaimReference(ctx, tenantID, model.ReferenceReversal, ref, "REV-2025-01-000001"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, claim(tenantID, model.ReferenceReversal, ref, "REV-2025-01-000002"), "rolled back claim is released")

	err = claim(tenantID, model.ReferenceReversal, ref, "REV-2025-01-000003")
	assert.ErrorIs(t, err, model.ErrValidation)

	assert.NoError(t, claim(uuid.New(), model.ReferenceReversal, ref, "REV-2025-01-000001"), "claims are per tenant")
	assert.NoError(t, claim(tenantID, model.ReferenceSalesOrder, ref, "SAL-2025-01-000004"), "claims are per reference type")
	assert.NoError(t, claim(tenantID, model.ReferenceReversal, uuid.New(), "REV-2025-01-000005"))
}

func testConcurrentUpdates(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenantID := uuid.New()
	a := newAccount(tenantID, "1000", model.AccountTypeAsset)
	createAccounts(t, s, a)

	const workers = 8
	firsts := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Update(ctx, func(tx store.Tx) error {
				first, err := tx.AllocateSequence(ctx, tenantID, 2)
				if err != nil {
					return err
				}
				firsts[i] = first
				return tx.AddBalance(ctx, tenantID, a.ID, decimal.NewFromInt(10))
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, first := range firsts {
		assert.False(t, seen[first], "sequence block %d allocated twice", first)
		assert.False(t, seen[first+1], "sequence %d allocated twice", first+1)
		seen[first] = true
		seen[first+1] = true
	}

	err := s.View(ctx, func(r store.Reader) error {
		got, err := r.GetAccount(ctx, tenantID, a.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.NewFromInt(10*workers)), "balance %s", got.Balance)
		seq, err := r.MaxSequence(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, int64(2*workers), seq)
		return nil
	})
	require.NoError(t, err)
}
