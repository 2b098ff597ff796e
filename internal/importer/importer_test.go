package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/books/internal/accounts"
	"github.com/cleared-dev/books/internal/journal"
	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/store"
	"github.com/cleared-dev/books/internal/store/memory"
)

const sampleCSV = EventsHeader + `
purchase,2025-01-03,,PO 7,2000,340,,,,
sale,2025-01-15,6f1c2a9e-3b7d-4c55-9e0a-1d2b3c4d5e6f,Invoice 1001,1000,170,,,,100;50
receipt,2025-01-20,,,,,1170,bank_transfer,,
payment,2025-01-25,,,,,1000,cash,,
adjustment,2025-02-02,,Count,,,,,-30,
`

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("events"))
	assert.NotNil(t, r.Get("EVENTS"))
	assert.Nil(t, r.Get("chase"))
	assert.Panics(t, func() { r.Register(&EventsParser{}) })
}

func TestEventsParser(t *testing.T) {
	events, err := (&EventsParser{}).Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, events, 5)

	sale := events[1]
	assert.Equal(t, KindSale, sale.Kind)
	assert.Equal(t, 3, sale.Row)
	assert.Equal(t, "2025-01-15", sale.Date.Format(dateFormat))
	assert.Equal(t, uuid.MustParse("6f1c2a9e-3b7d-4c55-9e0a-1d2b3c4d5e6f"), sale.DocumentID)
	assert.True(t, sale.Subtotal.Equal(decimal.NewFromInt(1000)))
	require.Len(t, sale.Costs, 2)
	assert.True(t, sale.Costs[1].Equal(decimal.NewFromInt(50)))

	assert.NotEqual(t, uuid.Nil, events[0].DocumentID, "missing document ids are generated")
	assert.Equal(t, journal.PaymentBankTransfer, events[2].Method)
	assert.True(t, events[4].ValueChange.Equal(decimal.NewFromInt(-30)))
}

func TestEventsParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"unknown kind", "refund,2025-01-01,,,,,5,cash,,"},
		{"bad date", "sale,15/01/2025,,,100,,,,,"},
		{"bad amount", "sale,2025-01-15,,,abc,,,,,"},
		{"bad document", "sale,2025-01-15,nope,,100,,,,,"},
		{"bad cost", "sale,2025-01-15,,,100,,,,,10;x"},
		{"short row", "sale,2025-01-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&EventsParser{}).Parse(strings.NewReader(EventsHeader + "\n" + tt.row + "\n"))
			assert.Error(t, err)
		})
	}
}

func newEngine(t *testing.T) (*journal.Engine, uuid.UUID) {
	t.Helper()
	st := memory.New()
	accts := accounts.NewService(st, nil)
	tenantID := uuid.New()
	template, _ := accounts.DefaultChart(accounts.DefaultTemplate)
	_, err := accts.InitializeTenant(context.Background(), tenantID, template)
	require.NoError(t, err)
	return journal.NewEngine(st, accts, journal.Options{}), tenantID
}

func TestImportFile(t *testing.T) {
	engine, tenantID := newEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "january.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	posted, err := ImportFile(context.Background(), &EventsParser{}, engine, tenantID, uuid.New(), path)
	require.NoError(t, err)
	require.Len(t, posted, 5)
	assert.Equal(t, "PUR-2025-01-000001", posted[0].Number)
	assert.Equal(t, "SAL-2025-01-000004", posted[1].Number)
	assert.Equal(t, "ADJ-2025-02-000015", posted[4].Number)

	entries, err := engine.Entries(context.Background(), tenantID, store.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 16)
}

func TestPost_StopsAtFirstFailure(t *testing.T) {
	engine, tenantID := newEngine(t)
	csv := EventsHeader + `
purchase,2025-01-03,,,100,,,,,
receipt,2025-01-20,,,,,50,barter,,
sale,2025-01-21,,,100,,,,,
`
	events, err := (&EventsParser{}).Parse(strings.NewReader(csv))
	require.NoError(t, err)

	posted, err := Post(context.Background(), engine, tenantID, uuid.New(), events)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "row 3 (receipt)")
	assert.Len(t, posted, 1)
}

func TestScanAndMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte(EventsHeader+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.csv", files[0].Name)

	require.NoError(t, MarkProcessed(dir, "a.csv"))
	_, err = os.Stat(filepath.Join(dir, "processed", "a.csv"))
	assert.NoError(t, err)

	files, err = Scan(dir)
	require.NoError(t, err)
	assert.Empty(t, files)

	files, err = Scan(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Nil(t, files)
}
