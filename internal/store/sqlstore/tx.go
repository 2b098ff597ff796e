package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/store"
)

type reader struct {
	db *gorm.DB
}

func (r *reader) GetAccount(_ context.Context, tenantID, accountID uuid.UUID) (*model.Account, error) {
	var row accountRow
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, accountID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &model.NotFoundError{Kind: "account", Key: accountID.String()}
	}
	if err != nil {
		return nil, classify("loading account", err)
	}
	return row.toModel(), nil
}

func (r *reader) FindAccountByNumber(_ context.Context, tenantID uuid.UUID, number string) (*model.Account, error) {
	var row accountRow
	err := r.db.Where("tenant_id = ? AND number = ?", tenantID, number).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &model.NotFoundError{Kind: "account", Key: number}
	}
	if err != nil {
		return nil, classify("loading account by number", err)
	}
	return row.toModel(), nil
}

func (r *reader) ListAccounts(_ context.Context, tenantID uuid.UUID) ([]*model.Account, error) {
	var rows []accountRow
	if err := r.db.Where("tenant_id = ?", tenantID).Order("number ASC").Find(&rows).Error; err != nil {
		return nil, classify("listing accounts", err)
	}
	result := make([]*model.Account, len(rows))
	for i := range rows {
		result[i] = rows[i].toModel()
	}
	model.SortByNumber(result)
	return result, nil
}

func (r *reader) ListEntriesByTransaction(_ context.Context, tenantID uuid.UUID, transactionNumber string) ([]*model.JournalEntry, error) {
	var rows []entryRow
	err := r.db.Where("tenant_id = ? AND transaction_number = ?", tenantID, transactionNumber).
		Order("sequence ASC").
		Find(&rows).Error
	if err != nil {
		return nil, classify("listing transaction entries", err)
	}
	return entriesToModel(rows), nil
}

func (r *reader) ListEntries(_ context.Context, tenantID uuid.UUID, filter store.EntryFilter) ([]*model.JournalEntry, error) {
	query := r.db.Where("tenant_id = ?", tenantID)
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.ReferenceType != "" {
		query = query.Where("reference_type = ?", string(filter.ReferenceType))
	}
	if filter.ReferenceID != nil {
		query = query.Where("reference_id = ?", *filter.ReferenceID)
	}
	if !filter.From.IsZero() {
		query = query.Where("transaction_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("transaction_date <= ?", filter.To)
	}

	var rows []entryRow
	if err := query.Order("sequence ASC").Find(&rows).Error; err != nil {
		return nil, classify("listing entries", err)
	}
	return entriesToModel(rows), nil
}

func (r *reader) MaxSequence(_ context.Context, tenantID uuid.UUID) (int64, error) {
	var row sequenceRow
	err := r.db.Where("tenant_id = ?", tenantID).Limit(1).Find(&row).Error
	if err != nil {
		return 0, classify("reading sequence", err)
	}
	return row.Value, nil
}

func entriesToModel(rows []entryRow) []*model.JournalEntry {
	result := make([]*model.JournalEntry, len(rows))
	for i := range rows {
		result[i] = rows[i].toModel()
	}
	return result
}

type tx struct {
	reader
}

var _ store.Tx = (*tx)(nil)

func (t *tx) CreateAccount(_ context.Context, a *model.Account) error {
	row, err := accountToRow(a)
	if err != nil {
		return err
	}
	if err := t.db.Create(row).Error; err != nil {
		if isDuplicate(err) {
			return model.NewValidationError("number", "account number %s already exists", a.Number)
		}
		return classify("creating account", err)
	}
	return nil
}

func (t *tx) SetAccountActive(_ context.Context, tenantID, accountID uuid.UUID, active bool) error {
	res := t.db.Model(&accountRow{}).
		Where("tenant_id = ? AND id = ?", tenantID, accountID).
		Updates(map[string]any{"is_active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return classify("updating account", res.Error)
	}
	if res.RowsAffected == 0 {
		return &model.NotFoundError{Kind: "account", Key: accountID.String()}
	}
	return nil
}

func (t *tx) AddBalance(_ context.Context, tenantID, accountID uuid.UUID, delta decimal.Decimal) error {
	minor, err := toMinor(delta)
	if err != nil {
		return err
	}
	res := t.db.Model(&accountRow{}).
		Where("tenant_id = ? AND id = ?", tenantID, accountID).
		Updates(map[string]any{
			"balance_minor": gorm.Expr("balance_minor + ?", minor),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return classify("adding balance", res.Error)
	}
	if res.RowsAffected == 0 {
		return &model.NotFoundError{Kind: "account", Key: accountID.String()}
	}
	return nil
}

func (t *tx) AllocateSequence(_ context.Context, tenantID uuid.UUID, n int) (int64, error) {
	if n <= 0 {
		return 0, model.NewValidationError("n", "must allocate at least one sequence number")
	}

	res := t.db.Model(&sequenceRow{}).
		Where("tenant_id = ?", tenantID).
		Update("value", gorm.Expr("value + ?", n))
	if res.Error != nil {
		return 0, classify("allocating sequence", res.Error)
	}

	if res.RowsAffected == 0 {
		if err := t.db.Create(&sequenceRow{TenantID: tenantID, Value: int64(n)}).Error; err != nil {
			if isDuplicate(err) {
				// Another writer created the counter between our update and insert.
				return 0, model.ErrConcurrencyConflict
			}
			return 0, classify("creating sequence", err)
		}
		return 1, nil
	}

	var row sequenceRow
	if err := t.db.Where("tenant_id = ?", tenantID).First(&row).Error; err != nil {
		return 0, classify("reading sequence", err)
	}
	return row.Value - int64(n) + 1, nil
}

func (t *tx) InsertEntries(_ context.Context, entries []*model.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*entryRow, len(entries))
	for i, e := range entries {
		row, err := entryToRow(e)
		if err != nil {
			return err
		}
		rows[i] = row
	}
	if err := t.db.Create(rows).Error; err != nil {
		if isDuplicate(err) {
			return model.ErrConcurrencyConflict
		}
		return classify("inserting entries", err)
	}
	return nil
}

func (t *tx) ClaimReference(_ context.Context, tenantID uuid.UUID, refType model.ReferenceType, refID uuid.UUID, transactionNumber string) error {
	row := &claimRow{
		TenantID:          tenantID,
		ReferenceType:     string(refType),
		ReferenceID:       refID,
		TransactionNumber: transactionNumber,
		CreatedAt:         time.Now().UTC(),
	}
	if err := t.db.Create(row).Error; err != nil {
		if isDuplicate(err) {
			return model.NewValidationError("reference_id", "%s %s already used", refType, refID)
		}
		return classify("claiming reference", err)
	}
	return nil
}
