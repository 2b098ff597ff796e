// Package config loads books.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/books/internal/accounts"
	"github.com/cleared-dev/books/internal/journal"
	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/tax"
)

// Environment variables that override the file.
const (
	EnvDatabaseDriver = "BOOKS_DATABASE_DRIVER"
	EnvDatabaseDSN    = "BOOKS_DATABASE_DSN"
	EnvLogLevel       = "BOOKS_LOG_LEVEL"
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the top-level books.yaml configuration.
type Config struct {
	Business BusinessConfig `yaml:"business"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Retry    RetryConfig    `yaml:"retry"`
}

// BusinessConfig identifies the business whose books these are.
type BusinessConfig struct {
	Name     string `yaml:"name"`
	TaxID    string `yaml:"tax_id,omitempty"`   // Israeli company or dealer number
	TenantID string `yaml:"tenant_id,omitempty"` // default for --tenant
}

// DatabaseConfig selects the store.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn,omitempty"`
	MaxOpenConns int    `yaml:"max_open_conns,omitempty"`
}

// LogConfig controls zap output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
	Output string `yaml:"output"` // stderr, stdout or a file path
}

// LedgerConfig controls the chart template, VAT, and role bindings.
type LedgerConfig struct {
	Template       string            `yaml:"template"`
	VATRate        string            `yaml:"vat_rate"` // percent, e.g. "17"
	Roles          map[string]string `yaml:"roles"`
	PaymentMethods map[string]string `yaml:"payment_methods"`
}

// RetryConfig bounds retries of postings that hit a concurrent writer.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
}

// Load reads a books.yaml file from disk. Keys missing from the file keep
// their defaults, and environment overrides are applied last.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new business.
func Default(businessName string) *Config {
	b := journal.DefaultBindings()
	roles := make(map[string]string, len(b.Roles))
	for role, number := range b.Roles {
		roles[string(role)] = number
	}
	methods := make(map[string]string, len(b.PaymentMethods))
	for method, number := range b.PaymentMethods {
		methods[string(method)] = number
	}

	return &Config{
		Business: BusinessConfig{
			Name: businessName,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "books.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Ledger: LedgerConfig{
			Template:       accounts.DefaultTemplate,
			VATRate:        tax.DefaultVATRate.String(),
			Roles:          roles,
			PaymentMethods: methods,
		},
		Retry: RetryConfig{
			MaxAttempts:     journal.DefaultRetry.MaxAttempts,
			InitialInterval: journal.DefaultRetry.InitialInterval,
		},
	}
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDatabaseDriver); ok && v != "" {
		c.Database.Driver = v
	}
	if v, ok := lookup(EnvDatabaseDSN); ok && v != "" {
		c.Database.DSN = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
}

// Validate checks the whole configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, model.NewValidationError(field, format, args...))
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Database.DSN == "" {
			add("database.dsn", "required for driver %s", c.Database.Driver)
		}
	default:
		add("database.driver", "unknown driver %q", c.Database.Driver)
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		add("log.format", "must be json or console, got %q", c.Log.Format)
	}

	if c.Ledger.Template == "" {
		add("ledger.template", "is required")
	}
	if _, err := c.Ledger.Rate(); err != nil {
		errs = append(errs, err)
	}
	for _, role := range journal.RequiredRoles {
		if c.Ledger.Roles[string(role)] == "" {
			add("ledger.roles", "no account bound for %s", role)
		}
	}

	if c.Retry.MaxAttempts < 1 {
		add("retry.max_attempts", "must be at least 1")
	}
	if c.Retry.InitialInterval < 0 {
		add("retry.initial_interval", "must not be negative")
	}

	if c.Business.TaxID != "" && !tax.ValidateIsraeliTaxID(c.Business.TaxID) {
		add("business.tax_id", "%q fails the check digit", c.Business.TaxID)
	}
	return errors.Join(errs...)
}

// Rate parses the VAT rate.
func (l LedgerConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(l.VATRate)
	if err != nil {
		return decimal.Zero, model.NewValidationError("ledger.vat_rate", "%q is not a number", l.VATRate)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, model.NewValidationError("ledger.vat_rate", "%s is out of range", rate)
	}
	return rate, nil
}

// Bindings converts role and payment-method bindings for the posting engine.
func (l LedgerConfig) Bindings() journal.Bindings {
	b := journal.Bindings{
		Roles:          make(map[journal.Role]string, len(l.Roles)),
		PaymentMethods: make(map[journal.PaymentMethod]string, len(l.PaymentMethods)),
	}
	for role, number := range l.Roles {
		b.Roles[journal.Role(role)] = number
	}
	for method, number := range l.PaymentMethods {
		b.PaymentMethods[journal.PaymentMethod(method)] = number
	}
	return b
}
