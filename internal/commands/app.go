package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/books/internal/accounts"
	"github.com/cleared-dev/books/internal/config"
	"github.com/cleared-dev/books/internal/journal"
	"github.com/cleared-dev/books/internal/logging"
	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/statements"
	"github.com/cleared-dev/books/internal/store"
	"github.com/cleared-dev/books/internal/store/memory"
	"github.com/cleared-dev/books/internal/store/sqlstore"
)

// cliActor is recorded as created_by on postings made from the command line.
var cliActor = uuid.NewSHA1(uuid.NameSpaceURL, []byte("books-cli"))

const dateFormat = "2006-01-02"

// app is the wired set of services one command invocation works with.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      store.Store
	accounts   *accounts.Service
	engine     *journal.Engine
	statements *statements.Builder
	tenantID   uuid.UUID
}

// openApp loads the configuration and connects to the store.
func openApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, opts.tenant)
}

func newApp(cfg *config.Config, tenantFlag string) (*app, error) {
	tenantID, err := resolveTenant(tenantFlag, cfg.Business.TenantID)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	svc := accounts.NewService(st, logger)
	engine := journal.NewEngine(st, svc, journal.Options{
		Bindings: cfg.Ledger.Bindings(),
		Retry: journal.RetryConfig{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
		},
		Logger: logger,
	})

	return &app{
		cfg:        cfg,
		logger:     logger.With(zap.String("tenant_id", tenantID.String())),
		store:      st,
		accounts:   svc,
		engine:     engine,
		statements: statements.NewBuilder(st, logger),
		tenantID:   tenantID,
	}, nil
}

func openStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	var st store.Store
	switch cfg.Database.Driver {
	case config.DriverMemory:
		st = memory.New()
	default:
		sq, err := sqlstore.Open(sqlstore.Config{
			Driver:       cfg.Database.Driver,
			DSN:          cfg.Database.DSN,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			LogLevel:     cfg.Log.Level,
		}, logger)
		if err != nil {
			return nil, err
		}
		st = sq
	}
	if err := st.Migrate(context.Background()); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	return st, nil
}

func resolveTenant(flag, configured string) (uuid.UUID, error) {
	s := flag
	if s == "" {
		s = configured
	}
	if s == "" {
		return uuid.Nil, errors.New("no tenant: pass --tenant or set business.tenant_id")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, model.NewValidationError("tenant", "%q is not a uuid", s)
	}
	return id, nil
}

// Close releases the store and flushes the logger.
func (a *app) Close() error {
	_ = a.logger.Sync()
	return a.store.Close()
}

// accountByNumber looks up an account of the current tenant.
func (a *app) accountByNumber(ctx context.Context, number string) (*model.Account, error) {
	return a.accounts.GetByNumber(ctx, a.tenantID, number)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, model.NewValidationError("date", "%q is not YYYY-MM-DD", s)
	}
	return t, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, model.NewValidationError(field, "%q is not a number", s)
	}
	return d, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
