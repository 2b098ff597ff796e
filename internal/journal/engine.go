// Package journal turns business events into balanced batches of postings
// and applies them to account balances.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/books/internal/accounts"
	"github.com/cleared-dev/books/internal/id"
	"github.com/cleared-dev/books/internal/logging"
	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/store"
)

// RetryConfig bounds retries after a concurrency conflict.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

// DefaultRetry is used when Options.Retry is zero.
var DefaultRetry = RetryConfig{MaxAttempts: 5, InitialInterval: 20 * time.Millisecond}

// Options configures an Engine.
type Options struct {
	Bindings Bindings
	Retry    RetryConfig
	Logger   *zap.Logger
	// Now stamps CreatedAt and defaults reversal dates. Defaults to time.Now.
	Now func() time.Time
}

// Engine is the journal entry posting engine.
type Engine struct {
	store    store.Store
	accounts *accounts.Service
	bindings Bindings
	retry    RetryConfig
	logger   *zap.Logger
	now      func() time.Time

	locks tenantLocks
	roles roleCache
}

// NewEngine creates an Engine. Role bindings resolved for a tenant are cached
// until the accounts service reports a new account for that tenant.
func NewEngine(st store.Store, accts *accounts.Service, opts Options) *Engine {
	if opts.Bindings.Roles == nil && opts.Bindings.PaymentMethods == nil {
		opts.Bindings = DefaultBindings()
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = DefaultRetry.MaxAttempts
	}
	if opts.Retry.InitialInterval <= 0 {
		opts.Retry.InitialInterval = DefaultRetry.InitialInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Engine{
		store:    st,
		accounts: accts,
		bindings: opts.Bindings,
		retry:    opts.Retry,
		logger:   logging.OrNop(opts.Logger).Named("journal"),
		now:      opts.Now,
	}
	accts.OnAccountCreated(e.roles.invalidate)
	return e
}

// Transaction is a committed business transaction.
type Transaction struct {
	Number   string
	TenantID uuid.UUID
	Date     time.Time
	Entries  []*model.JournalEntry
}

// Totals sums both sides of the transaction.
func (t *Transaction) Totals() (debit, credit decimal.Decimal) {
	return model.Totals(t.Entries)
}

// RoleMap returns the tenant's resolved role bindings, resolving them on
// first use.
func (e *Engine) RoleMap(ctx context.Context, tenantID uuid.UUID) (*RoleMap, error) {
	if m, ok := e.roles.get(tenantID); ok {
		return m, nil
	}
	var m *RoleMap
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		m, err = resolveRoles(ctx, r, tenantID, e.bindings)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("resolving account roles: %w", err)
	}
	e.roles.put(tenantID, m)
	return m, nil
}

// PostSale records a sale: receivable against revenue and output VAT, and
// for every line carrying a cost, cost of goods sold against inventory.
func (e *Engine) PostSale(ctx context.Context, ev SaleEvent) (*Transaction, error) {
	if err := ev.validate(); err != nil {
		return nil, fmt.Errorf("posting sale: %w", err)
	}
	rm, err := e.RoleMap(ctx, ev.TenantID)
	if err != nil {
		return nil, fmt.Errorf("posting sale: %w", err)
	}

	desc := describe(ev.Description, "Sale")
	d := &draft{kind: id.KindSale, refType: model.ReferenceSalesOrder, header: ev.Header}
	d.debit(rm.Account(RoleAccountsReceivable), ev.Subtotal.Add(ev.Tax), desc)
	d.credit(rm.Account(RoleSalesRevenue), ev.Subtotal, desc)
	d.credit(rm.Account(RoleVATPayable), ev.Tax, desc+" - VAT")
	for _, l := range ev.Lines {
		lineDesc := describe(l.Description, "Cost of goods sold")
		d.debit(rm.Account(RoleCostOfGoodsSold), l.Cost, lineDesc)
		d.credit(rm.Account(RoleInventory), l.Cost, lineDesc)
	}
	return e.post(ctx, d)
}

// PostPurchase records received goods: inventory and input VAT against the
// supplier's payable.
func (e *Engine) PostPurchase(ctx context.Context, ev PurchaseEvent) (*Transaction, error) {
	if err := ev.validate(); err != nil {
		return nil, fmt.Errorf("posting purchase: %w", err)
	}
	rm, err := e.RoleMap(ctx, ev.TenantID)
	if err != nil {
		return nil, fmt.Errorf("posting purchase: %w", err)
	}

	desc := describe(ev.Description, "Purchase")
	d := &draft{kind: id.KindPurchase, refType: model.ReferencePurchaseOrder, header: ev.Header}
	d.debit(rm.Account(RoleInventory), ev.Subtotal, desc)
	d.debit(rm.Account(RoleVATReceivable), ev.Tax, desc+" - VAT")
	d.credit(rm.Account(RoleAccountsPayable), ev.Subtotal.Add(ev.Tax), desc)
	return e.post(ctx, d)
}

// PostPaymentReceived records a customer payment into the account selected
// by the payment method.
func (e *Engine) PostPaymentReceived(ctx context.Context, ev PaymentEvent) (*Transaction, error) {
	if err := ev.validate(); err != nil {
		return nil, fmt.Errorf("posting payment received: %w", err)
	}
	rm, err := e.RoleMap(ctx, ev.TenantID)
	if err != nil {
		return nil, fmt.Errorf("posting payment received: %w", err)
	}
	cash, err := rm.PaymentAccount(ev.Method)
	if err != nil {
		return nil, fmt.Errorf("posting payment received: %w", err)
	}

	desc := describe(ev.Description, "Payment received")
	d := &draft{kind: id.KindReceipt, refType: model.ReferenceReceipt, header: ev.Header}
	d.debit(cash, ev.Amount, desc)
	d.credit(rm.Account(RoleAccountsReceivable), ev.Amount, desc)
	return e.post(ctx, d)
}

// PostPaymentMade records a supplier payment out of the account selected by
// the payment method.
func (e *Engine) PostPaymentMade(ctx context.Context, ev PaymentEvent) (*Transaction, error) {
	if err := ev.validate(); err != nil {
		return nil, fmt.Errorf("posting payment made: %w", err)
	}
	rm, err := e.RoleMap(ctx, ev.TenantID)
	if err != nil {
		return nil, fmt.Errorf("posting payment made: %w", err)
	}
	cash, err := rm.PaymentAccount(ev.Method)
	if err != nil {
		return nil, fmt.Errorf("posting payment made: %w", err)
	}

	desc := describe(ev.Description, "Payment made")
	d := &draft{kind: id.KindPayment, refType: model.ReferencePayment, header: ev.Header}
	d.debit(rm.Account(RoleAccountsPayable), ev.Amount, desc)
	d.credit(cash, ev.Amount, desc)
	return e.post(ctx, d)
}

// PostInventoryAdjustment moves inventory value against the inventory
// adjustment expense. A zero change is rejected.
func (e *Engine) PostInventoryAdjustment(ctx context.Context, ev AdjustmentEvent) (*Transaction, error) {
	if err := ev.validate(); err != nil {
		return nil, fmt.Errorf("posting inventory adjustment: %w", err)
	}
	rm, err := e.RoleMap(ctx, ev.TenantID)
	if err != nil {
		return nil, fmt.Errorf("posting inventory adjustment: %w", err)
	}

	desc := describe(ev.Description, "Inventory adjustment")
	d := &draft{kind: id.KindAdjustment, refType: model.ReferenceAdjustment, header: ev.Header}
	amount := ev.ValueChange.Abs()
	if ev.ValueChange.IsPositive() {
		d.debit(rm.Account(RoleInventory), amount, desc)
		d.credit(rm.Account(RoleInventoryAdjustment), amount, desc)
	} else {
		d.debit(rm.Account(RoleInventoryAdjustment), amount, desc)
		d.credit(rm.Account(RoleInventory), amount, desc)
	}
	return e.post(ctx, d)
}

// Reverse posts a new transaction mirroring every posting of an existing
// one. The original stays untouched. A transaction can be reversed once, and
// reversals themselves cannot be reversed.
func (e *Engine) Reverse(ctx context.Context, tenantID, actorID uuid.UUID, transactionNumber string, date time.Time) (*Transaction, error) {
	kind, _, _, _, err := id.ParseTransactionNumber(transactionNumber)
	if err != nil {
		return nil, fmt.Errorf("reversing: %w", model.NewValidationError("transaction_number", "%v", err))
	}
	if kind == id.KindReversal {
		return nil, fmt.Errorf("reversing: %w",
			model.NewValidationError("transaction_number", "%s is itself a reversal", transactionNumber))
	}
	if date.IsZero() {
		date = e.now()
	}

	var original []*model.JournalEntry
	err = e.store.View(ctx, func(r store.Reader) error {
		var err error
		original, err = r.ListEntriesByTransaction(ctx, tenantID, transactionNumber)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reversing %s: %w", transactionNumber, err)
	}
	if len(original) == 0 {
		return nil, fmt.Errorf("reversing: %w", &model.NotFoundError{Kind: "transaction", Key: transactionNumber})
	}

	ref := ReversalID(tenantID, transactionNumber)
	d := &draft{
		kind:    id.KindReversal,
		refType: model.ReferenceReversal,
		header: Header{
			TenantID:         tenantID,
			ActorID:          actorID,
			SourceDocumentID: ref,
			Date:             date,
		},
		precheck: func(ctx context.Context, tx store.Tx) error {
			prior, err := tx.ListEntries(ctx, tenantID, store.EntryFilter{
				ReferenceType: model.ReferenceReversal,
				ReferenceID:   &ref,
			})
			if err != nil {
				return err
			}
			if len(prior) > 0 {
				return model.NewValidationError("transaction_number",
					"%s was already reversed by %s", transactionNumber, prior[0].TransactionNumber)
			}
			return nil
		},
		claim: true,
	}
	desc := "Reversal of " + transactionNumber
	for _, o := range original {
		d.lines = append(d.lines, draftLine{
			accountID:   o.AccountID,
			debit:       o.Credit,
			credit:      o.Debit,
			description: desc,
		})
	}
	return e.post(ctx, d)
}

// ReversalID is the reference ID reversal postings carry for the original
// transaction number.
func ReversalID(tenantID uuid.UUID, transactionNumber string) uuid.UUID {
	return uuid.NewSHA1(tenantID, []byte("reversal:"+transactionNumber))
}

// ValidateBalanced checks that the stored postings of a transaction net to
// zero within Tolerance.
func (e *Engine) ValidateBalanced(ctx context.Context, tenantID uuid.UUID, transactionNumber string) error {
	return e.store.View(ctx, func(r store.Reader) error {
		return checkStoredBalance(ctx, r, tenantID, transactionNumber)
	})
}

func checkStoredBalance(ctx context.Context, r store.Reader, tenantID uuid.UUID, transactionNumber string) error {
	entries, err := r.ListEntriesByTransaction(ctx, tenantID, transactionNumber)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return &model.NotFoundError{Kind: "transaction", Key: transactionNumber}
	}
	debit, credit := model.Totals(entries)
	if !Balanced(debit, credit) {
		return &model.ImbalanceError{TransactionNumber: transactionNumber, Debit: debit, Credit: credit}
	}
	return nil
}

// NextSequenceNumber returns the sequence number the tenant's next posting
// would get. It is informational; allocation happens atomically at commit.
func (e *Engine) NextSequenceNumber(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var next int64
	err := e.store.View(ctx, func(r store.Reader) error {
		seq, err := r.MaxSequence(ctx, tenantID)
		next = seq + 1
		return err
	})
	return next, err
}

// Entries returns the tenant's postings matching filter in sequence order.
func (e *Engine) Entries(ctx context.Context, tenantID uuid.UUID, filter store.EntryFilter) ([]*model.JournalEntry, error) {
	var entries []*model.JournalEntry
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		entries, err = r.ListEntries(ctx, tenantID, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return entries, nil
}

// Transaction loads a committed transaction by number.
func (e *Engine) Transaction(ctx context.Context, tenantID uuid.UUID, transactionNumber string) (*Transaction, error) {
	var entries []*model.JournalEntry
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		entries, err = r.ListEntriesByTransaction(ctx, tenantID, transactionNumber)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, &model.NotFoundError{Kind: "transaction", Key: transactionNumber}
	}
	return &Transaction{
		Number:   transactionNumber,
		TenantID: tenantID,
		Date:     entries[0].TransactionDate,
		Entries:  entries,
	}, nil
}

type draftLine struct {
	accountID   uuid.UUID
	debit       decimal.Decimal
	credit      decimal.Decimal
	description string
}

// draft is a transaction before numbering.
type draft struct {
	kind     id.Kind
	refType  model.ReferenceType
	header   Header
	lines    []draftLine
	precheck func(ctx context.Context, tx store.Tx) error
	// claim makes the source document usable by one transaction only.
	claim    bool
}

// debit and credit skip zero amounts; optional sides such as VAT vanish.
func (d *draft) debit(accountID uuid.UUID, amount decimal.Decimal, desc string) {
	if amount.IsZero() {
		return
	}
	d.lines = append(d.lines, draftLine{accountID: accountID, debit: amount, credit: decimal.Zero, description: desc})
}

func (d *draft) credit(accountID uuid.UUID, amount decimal.Decimal, desc string) {
	if amount.IsZero() {
		return
	}
	d.lines = append(d.lines, draftLine{accountID: accountID, debit: decimal.Zero, credit: amount, description: desc})
}

func describe(given, fallback string) string {
	if given != "" {
		return given
	}
	return fallback
}

// post commits d under the tenant's writer lock, retrying the whole commit
// on concurrency conflicts.
func (e *Engine) post(ctx context.Context, d *draft) (*Transaction, error) {
	release := e.locks.lock(d.header.TenantID)
	defer release()

	var txn *Transaction
	op := func() error {
		var err error
		txn, err = e.commit(ctx, d)
		if err != nil && !model.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		e.logger.Warn("retrying posting after conflict",
			zap.Stringer("tenant_id", d.header.TenantID),
			zap.String("kind", string(d.kind)),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(op, e.backOff(ctx), notify); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return nil, err
	}

	debit, _ := txn.Totals()
	e.logger.Info("transaction posted",
		zap.Stringer("tenant_id", txn.TenantID),
		zap.String("transaction_number", txn.Number),
		zap.Int("postings", len(txn.Entries)),
		zap.Int64("first_sequence", txn.Entries[0].Sequence),
		zap.Int64("last_sequence", txn.Entries[len(txn.Entries)-1].Sequence),
		zap.String("amount", debit.StringFixed(2)))
	return txn, nil
}

func (e *Engine) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retry.InitialInterval
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.retry.MaxAttempts-1)), ctx)
}

// commit writes one attempt of d in a single store transaction. Nothing is
// persisted unless the batch passes validation both before it is written and
// when read back.
func (e *Engine) commit(ctx context.Context, d *draft) (*Transaction, error) {
	tenantID := d.header.TenantID
	date := dateOnly(d.header.Date)
	now := e.now().UTC()

	entries := make([]*model.JournalEntry, len(d.lines))
	for i, l := range d.lines {
		entries[i] = &model.JournalEntry{
			ID:              uuid.New(),
			TenantID:        tenantID,
			AccountID:       l.accountID,
			TransactionDate: date,
			Description:     l.description,
			Debit:           l.debit,
			Credit:          l.credit,
			ReferenceType:   d.refType,
			ReferenceID:     d.header.SourceDocumentID,
			CreatedBy:       d.header.ActorID,
			CreatedAt:       now,
		}
	}

	var number string
	err := e.store.Update(ctx, func(tx store.Tx) error {
		if d.precheck != nil {
			if err := d.precheck(ctx, tx); err != nil {
				return err
			}
		}

		accts := make(accountSet, len(entries))
		for _, en := range entries {
			if _, ok := accts[en.AccountID]; ok {
				continue
			}
			a, err := tx.GetAccount(ctx, tenantID, en.AccountID)
			if err != nil {
				if model.IsNotFound(err) {
					continue
				}
				return err
			}
			accts[a.ID] = a
		}
		if vs := ValidateBatch(entries, accts); len(vs) > 0 {
			return violationsError(entries, vs)
		}

		first, err := tx.AllocateSequence(ctx, tenantID, len(entries))
		if err != nil {
			return err
		}
		number = id.FormatTransactionNumber(d.kind, date, first)
		for i, en := range entries {
			en.Sequence = first + int64(i)
			en.TransactionNumber = number
		}

		if err := tx.InsertEntries(ctx, entries); err != nil {
			return err
		}
		if d.claim {
			if err := tx.ClaimReference(ctx, tenantID, d.refType, d.header.SourceDocumentID, number); err != nil {
				return err
			}
		}
		for _, en := range entries {
			delta := accounts.SignedDelta(accts[en.AccountID].Type, en.Debit, en.Credit)
			if err := e.accounts.ApplyBalanceDelta(ctx, tx, tenantID, en.AccountID, delta); err != nil {
				return err
			}
		}

		return checkStoredBalance(ctx, tx, tenantID, number)
	})
	if err != nil {
		return nil, err
	}

	return &Transaction{Number: number, TenantID: tenantID, Date: date, Entries: entries}, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
