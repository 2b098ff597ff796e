package journal

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/books/internal/model"
)

func testAccounts(tenantID uuid.UUID) (accountSet, *model.Account, *model.Account, *model.Account) {
	cash := &model.Account{ID: uuid.New(), TenantID: tenantID, Number: "1100", Type: model.AccountTypeAsset, IsActive: true}
	revenue := &model.Account{ID: uuid.New(), TenantID: tenantID, Number: "4100", Type: model.AccountTypeRevenue, IsActive: true}
	closed := &model.Account{ID: uuid.New(), TenantID: tenantID, Number: "6100", Type: model.AccountTypeExpense}
	return accountSet{cash.ID: cash, revenue.ID: revenue, closed.ID: closed}, cash, revenue, closed
}

func posting(tenantID, accountID uuid.UUID, seq int64, debit, credit string) *model.JournalEntry {
	return &model.JournalEntry{
		TenantID:          tenantID,
		AccountID:         accountID,
		TransactionNumber: "SAL-2025-01-000001",
		Sequence:          seq,
		Debit:             decimal.RequireFromString(debit),
		Credit:            decimal.RequireFromString(credit),
	}
}

func TestValidateBatch(t *testing.T) {
	tenantID := uuid.New()
	set, cash, revenue, closed := testAccounts(tenantID)

	tests := []struct {
		name    string
		entries func() []*model.JournalEntry
		rules   []string
	}{
		{"valid", func() []*model.JournalEntry {
			return []*model.JournalEntry{posting(tenantID, cash.ID, 1, "100", "0"), posting(tenantID, revenue.ID, 2, "0", "100")}
		}, nil},
		{"empty", func() []*model.JournalEntry { return nil }, []string{RuleEmpty}},
		{"unbalanced", func() []*model.JournalEntry {
			return []*model.JournalEntry{posting(tenantID, cash.ID, 1, "100", "0"), posting(tenantID, revenue.ID, 2, "0", "90")}
		}, []string{RuleBalance}},
		{"both sides", func() []*model.JournalEntry {
			return []*model.JournalEntry{posting(tenantID, cash.ID, 1, "10", "10")}
		}, []string{RuleOneSide}},
		{"neither side", func() []*model.JournalEntry {
			return []*model.JournalEntry{posting(tenantID, cash.ID, 1, "0", "0")}
		}, []string{RuleOneSide}},
		{"negative", func() []*model.JournalEntry {
			return []*model.JournalEntry{posting(tenantID, cash.ID, 1, "-5", "0"), posting(tenantID, revenue.ID, 2, "0", "-5")}
		}, []string{RuleNonNegative, RuleNonNegative}},
		{"precision", func() []*model.JournalEntry {
			return []*model.JournalEntry{posting(tenantID, cash.ID, 1, "1.001", "0"), posting(tenantID, revenue.ID, 2, "0", "1.001")}
		}, []string{RulePrecision, RulePrecision}},
		{"unknown account", func() []*model.JournalEntry {
			return []*model.JournalEntry{posting(tenantID, uuid.New(), 1, "5", "0"), posting(tenantID, revenue.ID, 2, "0", "5")}
		}, []string{RuleUnknownAccount}},
		{"inactive account", func() []*model.JournalEntry {
			return []*model.JournalEntry{posting(tenantID, closed.ID, 1, "5", "0"), posting(tenantID, revenue.ID, 2, "0", "5")}
		}, []string{RuleInactiveAccount}},
		{"reversal to inactive account", func() []*model.JournalEntry {
			entries := []*model.JournalEntry{posting(tenantID, closed.ID, 1, "0", "5"), posting(tenantID, revenue.ID, 2, "5", "0")}
			for _, e := range entries {
				e.ReferenceType = model.ReferenceReversal
			}
			return entries
		}, nil},
		{"mixed transaction numbers", func() []*model.JournalEntry {
			other := posting(tenantID, revenue.ID, 2, "0", "5")
			other.TransactionNumber = "SAL-2025-01-000002"
			return []*model.JournalEntry{posting(tenantID, cash.ID, 1, "5", "0"), other}
		}, []string{RuleTransactionNumber}},
		{"foreign tenant", func() []*model.JournalEntry {
			other := uuid.New()
			return []*model.JournalEntry{posting(tenantID, cash.ID, 1, "5", "0"), posting(other, revenue.ID, 2, "0", "5")}
		}, []string{RuleTenant, RuleUnknownAccount}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := ValidateBatch(tt.entries(), set)
			var rules []string
			for _, v := range vs {
				rules = append(rules, v.Rule)
			}
			assert.Equal(t, tt.rules, rules)
		})
	}
}

func TestViolationsError(t *testing.T) {
	tenantID := uuid.New()
	set, cash, _, _ := testAccounts(tenantID)
	missing := uuid.New()
	entries := []*model.JournalEntry{posting(tenantID, cash.ID, 1, "100", "0"), posting(tenantID, missing, 2, "0", "90")}

	vs := ValidateBatch(entries, set)
	require.Len(t, vs, 2)
	err := violationsError(entries, vs)
	assert.ErrorIs(t, err, model.ErrImbalance)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Contains(t, err.Error(), missing.String())
}
