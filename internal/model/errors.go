package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the bookkeeping core. Typed errors below match these
// with errors.Is so callers can branch on the kind alone.
var (
	ErrValidation          = errors.New("books: validation failed")
	ErrNotFound            = errors.New("books: not found")
	ErrImbalance           = errors.New("books: transaction does not balance")
	ErrConcurrencyConflict = errors.New("books: concurrent modification")
)

// ValidationError is a user-correctable input problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing account or document within a tenant.
type NotFoundError struct {
	Kind string // "account", "parent account", "transaction"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ImbalanceError means a transaction's postings do not net to zero. It is an
// internal invariant violation; the transaction is never committed.
type ImbalanceError struct {
	TransactionNumber string
	Debit             decimal.Decimal
	Credit            decimal.Decimal
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("transaction %s: debits (%s) != credits (%s)",
		e.TransactionNumber, e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

func (e *ImbalanceError) Is(target error) bool {
	return target == ErrImbalance
}

// IsRetryable reports whether the whole operation may be retried as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
