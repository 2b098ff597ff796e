package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestFormatTransactionNumber(t *testing.T) {
	tests := []struct {
		kind Kind
		date time.Time
		seq  int64
		want string
	}{
		{KindSale, date(2025, 1, 15), 1, "SAL-2025-01-000001"},
		{KindPurchase, date(2025, 12, 31), 99, "PUR-2025-12-000099"},
		{KindReversal, date(2026, 3, 1), 1234567, "REV-2026-03-1234567"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTransactionNumber(tt.kind, tt.date, tt.seq))
	}
}

func TestParseTransactionNumber(t *testing.T) {
	tests := []struct {
		input     string
		wantKind  Kind
		wantYear  int
		wantMonth int
		wantSeq   int64
	}{
		{"SAL-2025-01-000001", KindSale, 2025, 1, 1},
		{"ADJ-2025-12-000099", KindAdjustment, 2025, 12, 99},
		{"RCV-2024-06-1234567", KindReceipt, 2024, 6, 1234567},
	}
	for _, tt := range tests {
		kind, year, month, seq, err := ParseTransactionNumber(tt.input)
		require.NoError(t, err, "input: %s", tt.input)
		assert.Equal(t, tt.wantKind, kind)
		assert.Equal(t, tt.wantYear, year)
		assert.Equal(t, tt.wantMonth, month)
		assert.Equal(t, tt.wantSeq, seq)
	}
}

func TestParseTransactionNumber_Errors(t *testing.T) {
	badInputs := []string{
		"",
		"not-valid",
		"SAL-2025-01",
		"XYZ-2025-01-000001",
		"SAL-xxxx-01-000001",
		"SAL-2025-13-000001",
		"SAL-2025-01-abc",
	}
	for _, input := range badInputs {
		_, _, _, _, err := ParseTransactionNumber(input)
		assert.Error(t, err, "expected error for input: %s", input)
	}
}

func TestRoundTrip(t *testing.T) {
	n := FormatTransactionNumber(KindPayment, date(2025, 7, 4), 42)
	kind, year, month, seq, err := ParseTransactionNumber(n)
	require.NoError(t, err)
	assert.Equal(t, KindPayment, kind)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 7, month)
	assert.Equal(t, int64(42), seq)
}
