// Package accounts manages each tenant's chart of accounts: creation,
// the account hierarchy, and the balance sign convention.
package accounts

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/books/internal/logging"
	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/store"
	"github.com/cleared-dev/books/internal/tax"
	"github.com/cleared-dev/books/internal/validate"
)

var numberPattern = regexp.MustCompile(`^\d{3,6}$`)

// Service is the chart-of-accounts hierarchy manager.
type Service struct {
	store  store.Store
	logger *zap.Logger

	mu        sync.RWMutex
	onCreated []func(tenantID uuid.UUID)
}

// NewService creates a Service over st. A nil logger discards output.
func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{store: st, logger: logging.OrNop(logger).Named("accounts")}
}

// OnAccountCreated registers fn to run after accounts are committed for a
// tenant. The posting engine uses it to drop cached role bindings.
func (s *Service) OnAccountCreated(fn func(tenantID uuid.UUID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCreated = append(s.onCreated, fn)
}

func (s *Service) notifyCreated(tenantID uuid.UUID) {
	s.mu.RLock()
	hooks := s.onCreated
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(tenantID)
	}
}

// CreateParams holds the caller-supplied fields of a new account.
type CreateParams struct {
	Number        string            `json:"number" validate:"required"`
	Name          string            `json:"name" validate:"required"`
	LocalizedName string            `json:"localized_name"`
	Type          model.AccountType `json:"type" validate:"required,oneof=asset liability equity revenue expense"`
	ParentID      *uuid.UUID        `json:"parent_id"`
	IsControl     bool              `json:"is_control"`
}

// CreateAccount adds an account to the tenant's chart. The number must be
// 3-6 digits and unique within the tenant. A parent, if given, must exist in
// the same tenant; the new account sits one level below it.
func (s *Service) CreateAccount(ctx context.Context, tenantID uuid.UUID, params CreateParams) (*model.Account, error) {
	var created *model.Account
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		created, err = createInTx(ctx, tx, tenantID, params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating account %s: %w", params.Number, err)
	}

	s.logger.Info("account created",
		zap.Stringer("tenant_id", tenantID),
		zap.String("number", created.Number),
		zap.String("type", string(created.Type)),
		zap.Int("level", created.Level))
	s.notifyCreated(tenantID)
	return created, nil
}

func createInTx(ctx context.Context, tx store.Tx, tenantID uuid.UUID, params CreateParams) (*model.Account, error) {
	params.Number = strings.TrimSpace(params.Number)
	params.Name = strings.TrimSpace(params.Name)
	if err := validate.Struct(params); err != nil {
		return nil, err
	}
	if !numberPattern.MatchString(params.Number) {
		return nil, model.NewValidationError("number", "%q must be 3 to 6 digits", params.Number)
	}

	level := 1
	if params.ParentID != nil {
		parent, err := tx.GetAccount(ctx, tenantID, *params.ParentID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w",
				model.NewValidationError("parent_id", "parent account %s does not exist", params.ParentID), err)
		}
		level = parent.Level + 1
	}

	now := time.Now().UTC()
	a := &model.Account{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Number:        params.Number,
		Name:          params.Name,
		LocalizedName: strings.TrimSpace(params.LocalizedName),
		Type:          params.Type,
		Level:         level,
		ParentID:      params.ParentID,
		Balance:       decimal.Zero,
		IsActive:      true,
		IsControl:     params.IsControl,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Deactivate clears the active flag. Inactive accounts keep their balance and
// history but accept no new postings.
func (s *Service) Deactivate(ctx context.Context, tenantID, accountID uuid.UUID) error {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.SetAccountActive(ctx, tenantID, accountID, false)
	})
	if err != nil {
		return fmt.Errorf("deactivating account: %w", err)
	}
	s.logger.Info("account deactivated", zap.Stringer("tenant_id", tenantID), zap.Stringer("account_id", accountID))
	return nil
}

// Get returns an account by ID.
func (s *Service) Get(ctx context.Context, tenantID, accountID uuid.UUID) (*model.Account, error) {
	var a *model.Account
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		a, err = r.GetAccount(ctx, tenantID, accountID)
		return err
	})
	return a, err
}

// GetByNumber returns an account by its tenant-scoped number.
func (s *Service) GetByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*model.Account, error) {
	var a *model.Account
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		a, err = r.FindAccountByNumber(ctx, tenantID, number)
		return err
	})
	return a, err
}

// List returns every account of the tenant ordered by number.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]*model.Account, error) {
	var list []*model.Account
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		list, err = r.ListAccounts(ctx, tenantID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return list, nil
}

// Chart loads the tenant's accounts into an in-memory Chart.
func (s *Service) Chart(ctx context.Context, tenantID uuid.UUID) (*Chart, error) {
	list, err := s.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return NewChart(list), nil
}

// GetHierarchy returns the tenant's account tree rooted at parentID, or the
// forest of all top-level accounts when parentID is nil.
func (s *Service) GetHierarchy(ctx context.Context, tenantID uuid.UUID, parentID *uuid.UUID) ([]*Node, error) {
	chart, err := s.Chart(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return chart.Tree(parentID)
}

// ApplyBalanceDelta adds delta, already in the account's natural sign, to the
// stored balance. It is the only way a balance changes after creation and
// runs inside the caller's transaction.
func (s *Service) ApplyBalanceDelta(ctx context.Context, tx store.Tx, tenantID, accountID uuid.UUID, delta decimal.Decimal) error {
	if !tax.HasMoneyPrecision(delta) {
		return model.NewValidationError("delta", "%s has more than %d decimal places", delta, tax.MoneyPlaces)
	}
	if delta.IsZero() {
		return nil
	}
	if err := tx.AddBalance(ctx, tenantID, accountID, delta); err != nil {
		return fmt.Errorf("applying balance delta: %w", err)
	}
	return nil
}
