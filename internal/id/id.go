// Package id formats and parses transaction numbers.
//
// A transaction number groups the postings of one business event. It is
// "<KIND>-<YYYY>-<MM>-<SEQ>" where SEQ is the tenant sequence number of the
// first posting in the transaction, zero-padded to six digits.
package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the transaction-number prefix identifying the business event.
type Kind string

const (
	KindSale       Kind = "SAL"
	KindPurchase   Kind = "PUR"
	KindReceipt    Kind = "RCV"
	KindPayment    Kind = "PAY"
	KindAdjustment Kind = "ADJ"
	KindReversal   Kind = "REV"
)

var kinds = map[Kind]bool{
	KindSale:       true,
	KindPurchase:   true,
	KindReceipt:    true,
	KindPayment:    true,
	KindAdjustment: true,
	KindReversal:   true,
}

// FormatTransactionNumber returns a number like "SAL-2025-01-000042".
func FormatTransactionNumber(kind Kind, date time.Time, seq int64) string {
	return fmt.Sprintf("%s-%04d-%02d-%06d", kind, date.Year(), int(date.Month()), seq)
}

// ParseTransactionNumber parses "SAL-2025-01-000042" into its parts.
func ParseTransactionNumber(s string) (kind Kind, year, month int, seq int64, err error) {
	parts := strings.SplitN(s, "-", 4)
	if len(parts) != 4 {
		return "", 0, 0, 0, fmt.Errorf("invalid transaction number format: %q", s)
	}

	kind = Kind(parts[0])
	if !kinds[kind] {
		return "", 0, 0, 0, fmt.Errorf("unknown kind in transaction number %q", s)
	}

	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid year in transaction number %q: %w", s, err)
	}

	month, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid month in transaction number %q: %w", s, err)
	}
	if month < 1 || month > 12 {
		return "", 0, 0, 0, fmt.Errorf("month out of range in transaction number %q", s)
	}

	seq, err = strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid sequence in transaction number %q: %w", s, err)
	}

	return kind, year, month, seq, nil
}
