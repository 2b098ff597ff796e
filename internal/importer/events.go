package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/books/internal/journal"
)

// Kind is the business event a row describes.
type Kind string

const (
	KindSale       Kind = "sale"
	KindPurchase   Kind = "purchase"
	KindReceipt    Kind = "receipt"
	KindPayment    Kind = "payment"
	KindAdjustment Kind = "adjustment"
)

// Event is one parsed row. Only the columns its Kind uses are set.
type Event struct {
	Row         int
	Kind        Kind
	Date        time.Time
	DocumentID  uuid.UUID
	Description string
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Amount      decimal.Decimal
	Method      journal.PaymentMethod
	ValueChange decimal.Decimal
	Costs       []decimal.Decimal
}

func (ev Event) header(tenantID, actorID uuid.UUID) journal.Header {
	return journal.Header{
		TenantID:         tenantID,
		ActorID:          actorID,
		SourceDocumentID: ev.DocumentID,
		Date:             ev.Date,
		Description:      ev.Description,
	}
}

func (ev Event) post(ctx context.Context, engine *journal.Engine, tenantID, actorID uuid.UUID) (*journal.Transaction, error) {
	h := ev.header(tenantID, actorID)
	switch ev.Kind {
	case KindSale:
		lines := make([]journal.SaleLine, len(ev.Costs))
		for i, c := range ev.Costs {
			lines[i] = journal.SaleLine{Cost: c}
		}
		return engine.PostSale(ctx, journal.SaleEvent{Header: h, Subtotal: ev.Subtotal, Tax: ev.Tax, Lines: lines})
	case KindPurchase:
		return engine.PostPurchase(ctx, journal.PurchaseEvent{Header: h, Subtotal: ev.Subtotal, Tax: ev.Tax})
	case KindReceipt:
		return engine.PostPaymentReceived(ctx, journal.PaymentEvent{Header: h, Amount: ev.Amount, Method: ev.Method})
	case KindPayment:
		return engine.PostPaymentMade(ctx, journal.PaymentEvent{Header: h, Amount: ev.Amount, Method: ev.Method})
	case KindAdjustment:
		return engine.PostInventoryAdjustment(ctx, journal.AdjustmentEvent{Header: h, ValueChange: ev.ValueChange})
	}
	return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
}

// EventsHeader is the header row of the events CSV format.
const EventsHeader = "kind,date,document_id,description,subtotal,tax,amount,method,value_change,costs"

const (
	dateFormat     = "2006-01-02"
	numFields      = 10
	colKind        = 0
	colDate        = 1
	colDocumentID  = 2
	colDescription = 3
	colSubtotal    = 4
	colTax         = 5
	colAmount      = 6
	colMethod      = 7
	colValueChange = 8
	colCosts       = 9
)

// EventsParser reads the native events CSV. Costs are separated by ';'.
// Rows without a document_id get a fresh one.
type EventsParser struct{}

// Format returns the parser name.
func (p *EventsParser) Format() string { return "events" }

// Parse reads an events CSV and returns its rows in order.
func (p *EventsParser) Parse(r io.Reader) ([]Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading events CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var events []Event
	for i, rec := range records[1:] {
		ev, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		ev.Row = i + 2
		events = append(events, ev)
	}
	return events, nil
}

func parseRow(rec []string) (Event, error) {
	ev := Event{
		Kind:        Kind(strings.ToLower(strings.TrimSpace(rec[colKind]))),
		Description: rec[colDescription],
		Method:      journal.PaymentMethod(strings.TrimSpace(rec[colMethod])),
	}
	switch ev.Kind {
	case KindSale, KindPurchase, KindReceipt, KindPayment, KindAdjustment:
	default:
		return Event{}, fmt.Errorf("unknown event kind %q", rec[colKind])
	}

	date, err := time.Parse(dateFormat, rec[colDate])
	if err != nil {
		return Event{}, fmt.Errorf("parsing date %q: %w", rec[colDate], err)
	}
	ev.Date = date

	if s := strings.TrimSpace(rec[colDocumentID]); s != "" {
		ev.DocumentID, err = uuid.Parse(s)
		if err != nil {
			return Event{}, fmt.Errorf("parsing document_id %q: %w", s, err)
		}
	} else {
		ev.DocumentID = uuid.New()
	}

	amounts := []struct {
		col int
		dst *decimal.Decimal
	}{
		{colSubtotal, &ev.Subtotal},
		{colTax, &ev.Tax},
		{colAmount, &ev.Amount},
		{colValueChange, &ev.ValueChange},
	}
	for _, a := range amounts {
		if *a.dst, err = parseAmount(rec[a.col]); err != nil {
			return Event{}, err
		}
	}

	if s := strings.TrimSpace(rec[colCosts]); s != "" {
		for _, part := range strings.Split(s, ";") {
			c, err := parseAmount(part)
			if err != nil {
				return Event{}, err
			}
			ev.Costs = append(ev.Costs, c)
		}
	}
	return ev, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}
