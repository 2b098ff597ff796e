package statements

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/books/internal/accounts"
	"github.com/cleared-dev/books/internal/journal"
	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/store"
	"github.com/cleared-dev/books/internal/store/memory"
	"github.com/cleared-dev/books/internal/store/sqlstore"
)

var d = decimal.RequireFromString

type fixture struct {
	accounts *accounts.Service
	engine   *journal.Engine
	builder  *Builder
	tenantID uuid.UUID
}

func newFixture(t *testing.T, st store.Store) *fixture {
	t.Helper()
	accts := accounts.NewService(st, nil)
	f := &fixture{
		accounts: accts,
		engine:   journal.NewEngine(st, accts, journal.Options{}),
		builder:  NewBuilder(st, nil),
		tenantID: uuid.New(),
	}
	template, _ := accounts.DefaultChart(accounts.DefaultTemplate)
	_, err := accts.InitializeTenant(context.Background(), f.tenantID, template)
	require.NoError(t, err)
	return f
}

func (f *fixture) header(date time.Time) journal.Header {
	return journal.Header{TenantID: f.tenantID, ActorID: uuid.New(), SourceDocumentID: uuid.New(), Date: date}
}

func day(month time.Month, n int) time.Time {
	return time.Date(2025, month, n, 0, 0, 0, 0, time.UTC)
}

// postActivity books typical activity across January and February.
func (f *fixture) postActivity(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := f.engine.PostPurchase(ctx, journal.PurchaseEvent{Header: f.header(day(1, 3)), Subtotal: d("2000"), Tax: d("340")})
	require.NoError(t, err)
	_, err = f.engine.PostSale(ctx, journal.SaleEvent{
		Header:   f.header(day(1, 15)),
		Subtotal: d("1000"),
		Tax:      d("170"),
		Lines:    []journal.SaleLine{{Cost: d("100")}, {Cost: d("50")}},
	})
	require.NoError(t, err)
	_, err = f.engine.PostPaymentReceived(ctx, journal.PaymentEvent{Header: f.header(day(1, 20)), Amount: d("1170"), Method: journal.PaymentBankTransfer})
	require.NoError(t, err)
	_, err = f.engine.PostPaymentMade(ctx, journal.PaymentEvent{Header: f.header(day(1, 25)), Amount: d("1000"), Method: journal.PaymentBankTransfer})
	require.NoError(t, err)
	_, err = f.engine.PostInventoryAdjustment(ctx, journal.AdjustmentEvent{Header: f.header(day(2, 2)), ValueChange: d("-30")})
	require.NoError(t, err)
	_, err = f.engine.PostSale(ctx, journal.SaleEvent{
		Header:   f.header(day(2, 10)),
		Subtotal: d("400.50"),
		Tax:      d("68.09"),
		Lines:    []journal.SaleLine{{Cost: d("120")}},
	})
	require.NoError(t, err)
}

func TestTrialBalance(t *testing.T) {
	f := newFixture(t, memory.New())
	f.postActivity(t)

	tb, err := f.builder.TrialBalance(context.Background(), f.tenantID, day(2, 28))
	require.NoError(t, err)
	assert.True(t, tb.IsBalanced, "debit %s credit %s", tb.TotalDebit, tb.TotalCredit)
	assert.True(t, tb.TotalDebit.Equal(tb.TotalCredit))

	rows := make(map[string]TrialBalanceRow)
	for _, r := range tb.Rows {
		rows[r.Number] = r
		assert.False(t, !r.Debit.IsZero() && !r.Credit.IsZero(), "row %s has both sides", r.Number)
	}

	// Inventory: +2000 -100 -50 -30 -120
	assert.True(t, rows["1400"].Debit.Equal(d("1700")), "inventory %s", rows["1400"].Debit)
	// Bank: +1170 -1000
	assert.True(t, rows["1110"].Debit.Equal(d("170")))
	assert.True(t, rows["4100"].Credit.Equal(d("1400.50")))
	assert.True(t, rows["5200"].Debit.Equal(d("30")))
	// Payables: 2340 - 1000
	assert.True(t, rows["2100"].Credit.Equal(d("1340")))
}

func TestTrialBalance_NegativeBalanceFlipsSide(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()

	_, err := f.engine.PostPaymentMade(ctx, journal.PaymentEvent{Header: f.header(day(1, 5)), Amount: d("75"), Method: journal.PaymentCash})
	require.NoError(t, err)

	tb, err := f.builder.TrialBalance(ctx, f.tenantID, day(1, 31))
	require.NoError(t, err)
	for _, r := range tb.Rows {
		switch r.Number {
		case "1100":
			assert.True(t, r.Balance.Equal(d("-75")))
			assert.True(t, r.Debit.IsZero())
			assert.True(t, r.Credit.Equal(d("75")), "overdrawn cash reports as a credit")
		case "2100":
			assert.True(t, r.Debit.Equal(d("75")), "negative payable reports as a debit")
		}
	}
	assert.True(t, tb.IsBalanced)
}

func TestTrialBalance_ListsInactiveAccounts(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()

	rent, err := f.accounts.GetByNumber(ctx, f.tenantID, "6100")
	require.NoError(t, err)
	require.NoError(t, f.accounts.Deactivate(ctx, f.tenantID, rent.ID))

	tb, err := f.builder.TrialBalance(ctx, f.tenantID, day(1, 31))
	require.NoError(t, err)

	all, err := f.accounts.List(ctx, f.tenantID)
	require.NoError(t, err)
	require.Len(t, tb.Rows, len(all), "one row per account")

	var found bool
	for _, r := range tb.Rows {
		if r.Number == "6100" {
			found = true
			assert.False(t, r.IsActive)
			assert.True(t, r.Debit.IsZero())
			assert.True(t, r.Credit.IsZero())
		}
	}
	assert.True(t, found, "inactive account 6100 is listed")
	assert.True(t, tb.IsBalanced)
}

func TestBalanceSheet(t *testing.T) {
	f := newFixture(t, memory.New())
	f.postActivity(t)

	bs, err := f.builder.BalanceSheet(context.Background(), f.tenantID, day(2, 28))
	require.NoError(t, err)
	assert.True(t, bs.IsBalanced, "assets %s, liabilities+equity %s", bs.TotalAssets, bs.TotalLiabilitiesAndEquity)
	assert.True(t, bs.TotalAssets.Equal(bs.TotalLiabilitiesAndEquity))

	// Revenue 1400.50 less COGS 270 and adjustment 30.
	assert.True(t, bs.CurrentEarnings.Equal(d("1100.50")), "earnings %s", bs.CurrentEarnings)
	last := bs.Equity.Lines[len(bs.Equity.Lines)-1]
	assert.Equal(t, CurrentEarningsName, last.Name)
	assert.Equal(t, uuid.Nil, last.AccountID)

	assert.Equal(t, model.AccountTypeAsset, bs.Assets.Type)
}

func TestBalanceSheet_EmptyLedger(t *testing.T) {
	f := newFixture(t, memory.New())
	bs, err := f.builder.BalanceSheet(context.Background(), f.tenantID, day(1, 1))
	require.NoError(t, err)
	assert.True(t, bs.IsBalanced)
	assert.True(t, bs.TotalAssets.IsZero())
	assert.True(t, bs.CurrentEarnings.IsZero())
	for _, l := range bs.Equity.Lines {
		assert.NotEqual(t, CurrentEarningsName, l.Name)
	}
}

func TestBalanceSheet_BalancesAfterEveryPosting(t *testing.T) {
	st, err := sqlstore.Open(sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	f := newFixture(t, st)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := f.engine.PostSale(ctx, journal.SaleEvent{
			Header:   f.header(day(3, i)),
			Subtotal: decimal.NewFromInt(int64(i * 111)),
			Tax:      d("18.87").Mul(decimal.NewFromInt(int64(i))),
			Lines:    []journal.SaleLine{{Cost: decimal.NewFromInt(int64(i * 40))}},
		})
		require.NoError(t, err)

		bs, err := f.builder.BalanceSheet(ctx, f.tenantID, day(3, i))
		require.NoError(t, err)
		require.True(t, bs.IsBalanced, "after sale %d: %s != %s", i, bs.TotalAssets, bs.TotalLiabilitiesAndEquity)
	}
}

func TestIncomeStatement(t *testing.T) {
	f := newFixture(t, memory.New())
	f.postActivity(t)
	ctx := context.Background()

	jan, err := f.builder.IncomeStatement(ctx, f.tenantID, day(1, 1), day(1, 31))
	require.NoError(t, err)
	assert.True(t, jan.TotalRevenue.Equal(d("1000")), "jan revenue %s", jan.TotalRevenue)
	assert.True(t, jan.TotalExpenses.Equal(d("150")), "jan expenses %s", jan.TotalExpenses)
	assert.True(t, jan.NetIncome.Equal(d("850")))

	feb, err := f.builder.IncomeStatement(ctx, f.tenantID, day(2, 1), day(2, 28))
	require.NoError(t, err)
	assert.True(t, feb.TotalRevenue.Equal(d("400.50")))
	assert.True(t, feb.TotalExpenses.Equal(d("150")), "feb expenses %s", feb.TotalExpenses)
	assert.True(t, feb.NetIncome.Equal(d("250.50")))

	// Both bounds are inclusive and the time of day is ignored.
	one, err := f.builder.IncomeStatement(ctx, f.tenantID, day(1, 15).Add(13*time.Hour), day(1, 15))
	require.NoError(t, err)
	assert.True(t, one.TotalRevenue.Equal(d("1000")))

	all, err := f.builder.IncomeStatement(ctx, f.tenantID, time.Time{}, time.Time{})
	require.NoError(t, err)
	bs, err := f.builder.BalanceSheet(ctx, f.tenantID, day(2, 28))
	require.NoError(t, err)
	assert.True(t, all.NetIncome.Equal(bs.CurrentEarnings), "unbounded period matches the balance sheet")

	require.Len(t, jan.Revenue.Lines, 1)
	assert.Equal(t, "4100", jan.Revenue.Lines[0].Number)

	_, err = f.builder.IncomeStatement(ctx, f.tenantID, day(2, 1), day(1, 1))
	assert.ErrorIs(t, err, model.ErrValidation)
}
