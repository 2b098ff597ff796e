package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/books/internal/model"
)

const (
	numFields        = 6
	colNumber        = 0
	colName          = 1
	colLocalizedName = 2
	colType          = 3
	colParent        = 4
	colControl       = 5
)

var header = []string{"account_number", "name", "localized_name", "type", "parent_number", "is_control"}

// ReadAccounts reads a chart CSV with a header row.
func ReadAccounts(r io.Reader) ([]TemplateAccount, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []TemplateAccount
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes a chart CSV including the header.
func WriteAccounts(w io.Writer, accounts []TemplateAccount) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts a TemplateAccount to a CSV row.
func MarshalAccount(acct TemplateAccount) []string {
	row := make([]string, numFields)
	row[colNumber] = acct.Number
	row[colName] = acct.Name
	row[colLocalizedName] = acct.LocalizedName
	row[colType] = string(acct.Type)
	row[colParent] = acct.ParentNumber
	row[colControl] = strconv.FormatBool(acct.IsControl)
	return row
}

// UnmarshalAccount converts a CSV row to a TemplateAccount.
func UnmarshalAccount(record []string) (TemplateAccount, error) {
	if len(record) != numFields {
		return TemplateAccount{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	typ, ok := model.ParseAccountType(record[colType])
	if !ok {
		return TemplateAccount{}, fmt.Errorf("unknown account type %q", record[colType])
	}

	var isControl bool
	if record[colControl] != "" {
		var err error
		isControl, err = strconv.ParseBool(record[colControl])
		if err != nil {
			return TemplateAccount{}, fmt.Errorf("parsing is_control %q: %w", record[colControl], err)
		}
	}

	return TemplateAccount{
		Number:        record[colNumber],
		Name:          record[colName],
		LocalizedName: record[colLocalizedName],
		Type:          typ,
		ParentNumber:  record[colParent],
		IsControl:     isControl,
	}, nil
}
