package model

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// AccountTypes lists every account type in statement order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

// IsValid reports whether t is one of the five account types.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// IsDebitNormal reports whether a positive balance of this type reports as a debit.
// Assets and expenses are debit-normal; everything else is credit-normal.
func (t AccountType) IsDebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// ParseAccountType accepts the canonical lowercase names and their capitalized forms.
func ParseAccountType(s string) (AccountType, bool) {
	for _, t := range AccountTypes {
		if string(t) == s || titleCase(string(t)) == s {
			return t, true
		}
	}
	return "", false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// Account is one node of a tenant's chart of accounts.
//
// Balance is stored in the account's natural sign: debit-normal accounts grow
// with debits, credit-normal accounts grow with credits. It only changes as a
// side effect of posting.
type Account struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Number        string
	Name          string
	LocalizedName string
	Type          AccountType
	Level         int
	ParentID      *uuid.UUID // nil = top-level
	Balance       decimal.Decimal
	IsActive      bool
	IsControl     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsRoot reports whether the account has no parent.
func (a *Account) IsRoot() bool {
	return a.ParentID == nil
}

// LessNumber orders account numbers by numeric value, so "200" sorts before
// "1000". Equal values (leading zeros) fall back to string order.
func LessNumber(a, b string) bool {
	x, errX := strconv.Atoi(a)
	y, errY := strconv.Atoi(b)
	if errX == nil && errY == nil && x != y {
		return x < y
	}
	return a < b
}

// SortByNumber sorts accounts by LessNumber.
func SortByNumber(accounts []*Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		return LessNumber(accounts[i].Number, accounts[j].Number)
	})
}
