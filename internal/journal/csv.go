package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/books/internal/model"
)

// CSVHeader is the CSV header of a postings export.
const CSVHeader = "sequence,transaction_number,date,account_number,account_name,description,debit,credit,reference_type,reference_id,created_by,created_at"

const (
	numFields    = 12
	dateFormat   = "2006-01-02"
	colSeq       = 0
	colTxn       = 1
	colDate      = 2
	colAcctNum   = 3
	colAcctName  = 4
	colDesc      = 5
	colDebit     = 6
	colCredit    = 7
	colRefType   = 8
	colRefID     = 9
	colCreatedBy = 10
	colCreatedAt = 11
)

// WriteEntries writes postings as CSV, header first. Account number and name
// come from accounts; postings to accounts it does not know are written with
// those columns empty.
func WriteEntries(w io.Writer, entries []*model.JournalEntry, accounts AccountChecker) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(CSVHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e, accounts)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalEntry converts a posting to a CSV row.
func MarshalEntry(e *model.JournalEntry, accounts AccountChecker) []string {
	row := make([]string, numFields)
	row[colSeq] = strconv.FormatInt(e.Sequence, 10)
	row[colTxn] = e.TransactionNumber
	row[colDate] = e.TransactionDate.Format(dateFormat)
	if a, ok := accounts.Account(e.AccountID); ok {
		row[colAcctNum] = a.Number
		row[colAcctName] = a.Name
	}
	row[colDesc] = e.Description
	row[colDebit] = formatAmount(e.Debit)
	row[colCredit] = formatAmount(e.Credit)
	row[colRefType] = string(e.ReferenceType)
	row[colRefID] = e.ReferenceID.String()
	row[colCreatedBy] = e.CreatedBy.String()
	row[colCreatedAt] = e.CreatedAt.UTC().Format(time.RFC3339)
	return row
}

func formatAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}
