package journal

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/tax"
)

// Tolerance is the largest debit/credit difference a transaction may carry.
// Any difference of at least this much is an imbalance.
var Tolerance = decimal.New(1, -tax.MoneyPlaces)

// Balanced reports whether debit and credit totals agree within Tolerance.
func Balanced(debit, credit decimal.Decimal) bool {
	return debit.Sub(credit).Abs().LessThan(Tolerance)
}

// Rules checked by ValidateBatch.
const (
	RuleBalance           = "balance"
	RuleOneSide           = "one_side"
	RuleNonNegative       = "non_negative"
	RulePrecision         = "precision"
	RuleUnknownAccount    = "unknown_account"
	RuleInactiveAccount   = "inactive_account"
	RuleTransactionNumber = "transaction_number"
	RuleTenant            = "tenant"
	RuleEmpty             = "empty"
)

// Violation describes a single broken invariant in a batch of postings.
type Violation struct {
	Rule              string
	TransactionNumber string
	Sequence          int64
	AccountID         uuid.UUID
	Description       string
}

func (v Violation) Error() string {
	if v.Sequence != 0 {
		return fmt.Sprintf("%s [%s #%d]: %s", v.Rule, v.TransactionNumber, v.Sequence, v.Description)
	}
	return fmt.Sprintf("%s [%s]: %s", v.Rule, v.TransactionNumber, v.Description)
}

// AccountChecker looks up accounts a batch posts to.
type AccountChecker interface {
	Account(id uuid.UUID) (*model.Account, bool)
}

// ValidateBatch checks the postings of one transaction: they net to zero,
// each has exactly one non-negative side with at most two decimal places,
// and each hits a known account of the same tenant. The account must be
// active unless the posting is a reversal, so a transaction can still be
// corrected after its accounts are retired.
func ValidateBatch(entries []*model.JournalEntry, accounts AccountChecker) []Violation {
	if len(entries) == 0 {
		return []Violation{{Rule: RuleEmpty, Description: "transaction has no postings"}}
	}

	var errs []Violation
	number := entries[0].TransactionNumber
	tenantID := entries[0].TenantID

	debit, credit := model.Totals(entries)
	if !Balanced(debit, credit) {
		errs = append(errs, Violation{
			Rule:              RuleBalance,
			TransactionNumber: number,
			Description:       fmt.Sprintf("debits (%s) != credits (%s)", debit.StringFixed(2), credit.StringFixed(2)),
		})
	}

	for _, e := range entries {
		add := func(rule, format string, args ...any) {
			errs = append(errs, Violation{
				Rule:              rule,
				TransactionNumber: number,
				Sequence:          e.Sequence,
				AccountID:         e.AccountID,
				Description:       fmt.Sprintf(format, args...),
			})
		}

		if e.TransactionNumber != number {
			add(RuleTransactionNumber, "posting belongs to %q", e.TransactionNumber)
		}
		if e.TenantID != tenantID {
			add(RuleTenant, "posting belongs to tenant %s", e.TenantID)
		}

		hasDebit := !e.Debit.IsZero()
		hasCredit := !e.Credit.IsZero()
		if hasDebit == hasCredit {
			add(RuleOneSide, "posting must have exactly one of debit or credit")
		}
		if e.Debit.IsNegative() || e.Credit.IsNegative() {
			add(RuleNonNegative, "amounts must not be negative (debit %s, credit %s)", e.Debit, e.Credit)
		}
		if !tax.HasMoneyPrecision(e.Debit) || !tax.HasMoneyPrecision(e.Credit) {
			add(RulePrecision, "amount has more than %d decimal places", tax.MoneyPlaces)
		}

		a, ok := accounts.Account(e.AccountID)
		switch {
		case !ok:
			add(RuleUnknownAccount, "unknown account %s", e.AccountID)
		case a.TenantID != e.TenantID:
			add(RuleUnknownAccount, "account %s belongs to another tenant", a.Number)
		case !a.IsActive && e.ReferenceType != model.ReferenceReversal:
			add(RuleInactiveAccount, "account %s is inactive", a.Number)
		}
	}
	return errs
}

// violationsError folds violations into one error. A balance violation is an
// ImbalanceError, unknown accounts are NotFoundErrors, everything else is a
// ValidationError.
func violationsError(entries []*model.JournalEntry, vs []Violation) error {
	errs := make([]error, 0, len(vs))
	for _, v := range vs {
		switch v.Rule {
		case RuleBalance:
			debit, credit := model.Totals(entries)
			errs = append(errs, &model.ImbalanceError{TransactionNumber: v.TransactionNumber, Debit: debit, Credit: credit})
		case RuleUnknownAccount:
			errs = append(errs, &model.NotFoundError{Kind: "account", Key: v.AccountID.String()})
		default:
			errs = append(errs, &model.ValidationError{Field: v.Rule, Message: v.Error()})
		}
	}
	return errors.Join(errs...)
}

// accountSet is an AccountChecker over accounts loaded inside a transaction.
type accountSet map[uuid.UUID]*model.Account

func (s accountSet) Account(id uuid.UUID) (*model.Account, bool) {
	a, ok := s[id]
	return a, ok
}
