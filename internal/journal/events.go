package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/tax"
	"github.com/cleared-dev/books/internal/validate"
)

// Header carries the fields every business event shares. Inputs arrive
// already scoped to a tenant.
type Header struct {
	TenantID         uuid.UUID `json:"tenant_id" validate:"notnil_uuid"`
	ActorID          uuid.UUID `json:"actor_id" validate:"notnil_uuid"`
	SourceDocumentID uuid.UUID `json:"source_document_id" validate:"notnil_uuid"`
	Date             time.Time `json:"date" validate:"required"`
	Description      string    `json:"description" validate:"max=500"`
}

// SaleLine is one line of a sales order. Cost is the inventory cost of the
// goods sold on that line, zero for services.
type SaleLine struct {
	Description string          `json:"description" validate:"max=500"`
	Cost        decimal.Decimal `json:"cost"`
}

// SaleEvent is a confirmed sales order.
type SaleEvent struct {
	Header
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Lines    []SaleLine      `json:"lines" validate:"dive"`
}

// PurchaseEvent is a received purchase order.
type PurchaseEvent struct {
	Header
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
}

// PaymentEvent is money received from a customer or paid to a supplier.
type PaymentEvent struct {
	Header
	Amount decimal.Decimal `json:"amount"`
	Method PaymentMethod   `json:"method" validate:"required"`
}

// AdjustmentEvent changes the book value of inventory. A positive change
// increases inventory.
type AdjustmentEvent struct {
	Header
	ValueChange decimal.Decimal `json:"value_change"`
}

func (ev *SaleEvent) validate() error {
	if err := validate.Struct(ev); err != nil {
		return err
	}
	if err := checkMoney("subtotal", ev.Subtotal); err != nil {
		return err
	}
	if err := checkMoney("tax", ev.Tax); err != nil {
		return err
	}
	if !ev.Subtotal.Add(ev.Tax).IsPositive() {
		return model.NewValidationError("subtotal", "sale total must be positive")
	}
	for i, l := range ev.Lines {
		if err := checkMoney("lines.cost", l.Cost); err != nil {
			return model.NewValidationError("lines", "line %d: %v", i+1, err)
		}
	}
	return nil
}

func (ev *PurchaseEvent) validate() error {
	if err := validate.Struct(ev); err != nil {
		return err
	}
	if err := checkMoney("subtotal", ev.Subtotal); err != nil {
		return err
	}
	if err := checkMoney("tax", ev.Tax); err != nil {
		return err
	}
	if !ev.Subtotal.Add(ev.Tax).IsPositive() {
		return model.NewValidationError("subtotal", "purchase total must be positive")
	}
	return nil
}

func (ev *PaymentEvent) validate() error {
	if err := validate.Struct(ev); err != nil {
		return err
	}
	if err := checkMoney("amount", ev.Amount); err != nil {
		return err
	}
	if !ev.Amount.IsPositive() {
		return model.NewValidationError("amount", "must be positive")
	}
	return nil
}

func (ev *AdjustmentEvent) validate() error {
	if err := validate.Struct(ev); err != nil {
		return err
	}
	if !tax.HasMoneyPrecision(ev.ValueChange) {
		return model.NewValidationError("value_change", "%s has more than %d decimal places", ev.ValueChange, tax.MoneyPlaces)
	}
	if ev.ValueChange.IsZero() {
		return model.NewValidationError("value_change", "must not be zero")
	}
	return nil
}

func checkMoney(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return model.NewValidationError(field, "%s must not be negative", d)
	}
	if !tax.HasMoneyPrecision(d) {
		return model.NewValidationError(field, "%s has more than %d decimal places", d, tax.MoneyPlaces)
	}
	return nil
}
