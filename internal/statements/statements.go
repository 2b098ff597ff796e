// Package statements derives trial balances, balance sheets and income
// statements from a tenant's ledger. Every report reads one consistent
// snapshot of the store.
package statements

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/books/internal/accounts"
	"github.com/cleared-dev/books/internal/logging"
	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/store"
)

// CurrentEarningsName labels the equity line carrying revenue less expenses
// that has not been closed into retained earnings.
const CurrentEarningsName = "Current period earnings"

// Builder computes financial statements.
type Builder struct {
	store  store.Store
	logger *zap.Logger
}

// NewBuilder creates a Builder. A nil logger discards output.
func NewBuilder(st store.Store, logger *zap.Logger) *Builder {
	return &Builder{store: st, logger: logging.OrNop(logger).Named("statements")}
}

// TrialBalanceRow is one account of a trial balance. Exactly one of Debit
// and Credit is nonzero unless the balance is zero.
type TrialBalanceRow struct {
	AccountID     uuid.UUID
	Number        string
	Name          string
	LocalizedName string
	Type          model.AccountType
	Level         int
	Balance       decimal.Decimal
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	IsActive      bool
}

// TrialBalance lists every account with its balance on the debit or credit
// side.
type TrialBalance struct {
	TenantID    uuid.UUID
	AsOf        time.Time
	Rows        []TrialBalanceRow
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	IsBalanced  bool
}

// Line is one account in a statement section, in the account's natural sign.
type Line struct {
	AccountID uuid.UUID
	Number    string
	Name      string
	Amount    decimal.Decimal
}

// Section groups the lines of one account type.
type Section struct {
	Type  model.AccountType
	Lines []Line
	Total decimal.Decimal
}

func (s *Section) add(l Line) {
	s.Lines = append(s.Lines, l)
	s.Total = s.Total.Add(l.Amount)
}

// BalanceSheet partitions balances into assets, liabilities and equity.
// Equity includes a CurrentEarningsName line so the identity holds between
// period closes.
type BalanceSheet struct {
	TenantID                  uuid.UUID
	AsOf                      time.Time
	Assets                    Section
	Liabilities               Section
	Equity                    Section
	CurrentEarnings           decimal.Decimal
	TotalAssets               decimal.Decimal
	TotalLiabilities          decimal.Decimal
	TotalEquity               decimal.Decimal
	TotalLiabilitiesAndEquity decimal.Decimal
	IsBalanced                bool
}

// IncomeStatement sums revenue and expense activity dated within [From, To].
type IncomeStatement struct {
	TenantID      uuid.UUID
	From          time.Time
	To            time.Time
	Revenue       Section
	Expenses      Section
	TotalRevenue  decimal.Decimal
	TotalExpenses decimal.Decimal
	NetIncome     decimal.Decimal
}

// listed reports whether an account appears on the balance sheet.
func listed(a *model.Account) bool {
	return a.IsActive || !a.Balance.IsZero()
}

// TrialBalance reports the current balance of every account, inactive ones
// included. asOf labels the report.
func (b *Builder) TrialBalance(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*TrialBalance, error) {
	list, err := b.accounts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("building trial balance: %w", err)
	}

	tb := &TrialBalance{TenantID: tenantID, AsOf: asOf, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, a := range list {
		debit, credit := accounts.ReportSides(a.Type, a.Balance)
		tb.Rows = append(tb.Rows, TrialBalanceRow{
			AccountID:     a.ID,
			Number:        a.Number,
			Name:          a.Name,
			LocalizedName: a.LocalizedName,
			Type:          a.Type,
			Level:         a.Level,
			Balance:       a.Balance,
			Debit:         debit,
			Credit:        credit,
			IsActive:      a.IsActive,
		})
		tb.TotalDebit = tb.TotalDebit.Add(debit)
		tb.TotalCredit = tb.TotalCredit.Add(credit)
	}
	tb.IsBalanced = tb.TotalDebit.Equal(tb.TotalCredit)
	if !tb.IsBalanced {
		b.logger.Error("trial balance does not balance",
			zap.Stringer("tenant_id", tenantID),
			zap.String("debit", tb.TotalDebit.StringFixed(2)),
			zap.String("credit", tb.TotalCredit.StringFixed(2)))
	}
	return tb, nil
}

// BalanceSheet reports current balances. asOf labels the report.
func (b *Builder) BalanceSheet(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*BalanceSheet, error) {
	list, err := b.accounts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("building balance sheet: %w", err)
	}

	bs := &BalanceSheet{
		TenantID:        tenantID,
		AsOf:            asOf,
		Assets:          newSection(model.AccountTypeAsset),
		Liabilities:     newSection(model.AccountTypeLiability),
		Equity:          newSection(model.AccountTypeEquity),
		CurrentEarnings: decimal.Zero,
	}
	for _, a := range list {
		switch a.Type {
		case model.AccountTypeRevenue:
			bs.CurrentEarnings = bs.CurrentEarnings.Add(a.Balance)
			continue
		case model.AccountTypeExpense:
			bs.CurrentEarnings = bs.CurrentEarnings.Sub(a.Balance)
			continue
		}
		if !listed(a) {
			continue
		}
		line := Line{AccountID: a.ID, Number: a.Number, Name: a.Name, Amount: a.Balance}
		switch a.Type {
		case model.AccountTypeAsset:
			bs.Assets.add(line)
		case model.AccountTypeLiability:
			bs.Liabilities.add(line)
		case model.AccountTypeEquity:
			bs.Equity.add(line)
		}
	}
	if !bs.CurrentEarnings.IsZero() {
		bs.Equity.add(Line{Name: CurrentEarningsName, Amount: bs.CurrentEarnings})
	}

	bs.TotalAssets = bs.Assets.Total
	bs.TotalLiabilities = bs.Liabilities.Total
	bs.TotalEquity = bs.Equity.Total
	bs.TotalLiabilitiesAndEquity = bs.TotalLiabilities.Add(bs.TotalEquity)
	bs.IsBalanced = bs.TotalAssets.Equal(bs.TotalLiabilitiesAndEquity)
	if !bs.IsBalanced {
		b.logger.Error("balance sheet does not balance",
			zap.Stringer("tenant_id", tenantID),
			zap.String("assets", bs.TotalAssets.StringFixed(2)),
			zap.String("liabilities_and_equity", bs.TotalLiabilitiesAndEquity.StringFixed(2)))
	}
	return bs, nil
}

// IncomeStatement sums the postings dated from..to, both inclusive, on
// revenue and expense accounts. Only the calendar dates of from and to
// matter. A zero to means no upper bound.
func (b *Builder) IncomeStatement(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*IncomeStatement, error) {
	if !from.IsZero() {
		from = dateOnly(from)
	}
	if !to.IsZero() {
		to = dateOnly(to)
	}
	if !to.IsZero() && to.Before(from) {
		return nil, model.NewValidationError("to", "period end %s is before start %s",
			to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	var list []*model.Account
	var entries []*model.JournalEntry
	err := b.store.View(ctx, func(r store.Reader) error {
		var err error
		if list, err = r.ListAccounts(ctx, tenantID); err != nil {
			return err
		}
		entries, err = r.ListEntries(ctx, tenantID, store.EntryFilter{From: from, To: to})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("building income statement: %w", err)
	}

	chart := accounts.NewChart(list)
	activity := make(map[uuid.UUID]decimal.Decimal)
	for _, e := range entries {
		a, ok := chart.Account(e.AccountID)
		if !ok || (a.Type != model.AccountTypeRevenue && a.Type != model.AccountTypeExpense) {
			continue
		}
		activity[a.ID] = activity[a.ID].Add(accounts.SignedDelta(a.Type, e.Debit, e.Credit))
	}

	is := &IncomeStatement{
		TenantID: tenantID,
		From:     from,
		To:       to,
		Revenue:  newSection(model.AccountTypeRevenue),
		Expenses: newSection(model.AccountTypeExpense),
	}
	for _, a := range list {
		amount, ok := activity[a.ID]
		if !ok {
			continue
		}
		line := Line{AccountID: a.ID, Number: a.Number, Name: a.Name, Amount: amount}
		switch a.Type {
		case model.AccountTypeRevenue:
			is.Revenue.add(line)
		case model.AccountTypeExpense:
			is.Expenses.add(line)
		}
	}
	is.TotalRevenue = is.Revenue.Total
	is.TotalExpenses = is.Expenses.Total
	is.NetIncome = is.TotalRevenue.Sub(is.TotalExpenses)
	return is, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newSection(t model.AccountType) Section {
	return Section{Type: t, Total: decimal.Zero}
}

func (b *Builder) accounts(ctx context.Context, tenantID uuid.UUID) ([]*model.Account, error) {
	var list []*model.Account
	err := b.store.View(ctx, func(r store.Reader) error {
		var err error
		list, err = r.ListAccounts(ctx, tenantID)
		return err
	})
	return list, err
}
