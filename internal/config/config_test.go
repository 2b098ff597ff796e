package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/books/internal/journal"
	"github.com/cleared-dev/books/internal/model"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Test Biz")
	cfg.Business.TaxID = "123456782"
	cfg.Database = DatabaseConfig{Driver: DriverPostgres, DSN: "postgres://localhost/books", MaxOpenConns: 8}
	cfg.Retry.InitialInterval = 50 * time.Millisecond

	path := filepath.Join(t.TempDir(), "books.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("My Company")

	assert.Equal(t, "My Company", cfg.Business.Name)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "books.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "il_small_business", cfg.Ledger.Template)
	assert.Equal(t, "17", cfg.Ledger.VATRate)
	assert.Equal(t, "1200", cfg.Ledger.Roles["accounts_receivable"])
	assert.Equal(t, "1110", cfg.Ledger.PaymentMethods["bank_transfer"])
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	require.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.yaml")
	content := `business:
  name: Shop
database:
  driver: memory
ledger:
  vat_rate: "18"
  roles:
    sales_revenue: "4200"
retry:
  initial_interval: 5ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "4200", cfg.Ledger.Roles["sales_revenue"])
	assert.Equal(t, "1200", cfg.Ledger.Roles["accounts_receivable"], "unlisted roles keep defaults")
	assert.Equal(t, 5*time.Millisecond, cfg.Retry.InitialInterval)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)

	rate, err := cfg.Ledger.Rate()
	require.NoError(t, err)
	assert.Equal(t, "18", rate.String())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.yaml")
	require.NoError(t, Save(path, Default("Shop")))

	t.Setenv(EnvDatabaseDSN, "/tmp/other.db")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad rate", func(c *Config) { c.Ledger.VATRate = "seventeen" }, "ledger.vat_rate"},
		{"negative rate", func(c *Config) { c.Ledger.VATRate = "-1" }, "ledger.vat_rate"},
		{"unbound role", func(c *Config) { delete(c.Ledger.Roles, "inventory") }, "ledger.roles"},
		{"no attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"bad tax id", func(c *Config) { c.Business.TaxID = "123456789" }, "business.tax_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("x")
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrValidation)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	memory := Default("x")
	memory.Database = DatabaseConfig{Driver: DriverMemory}
	assert.NoError(t, memory.Validate())
}

func TestBindings(t *testing.T) {
	b := Default("x").Ledger.Bindings()
	assert.Equal(t, journal.DefaultBindings(), b)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.yaml")
	require.NoError(t, Save(path, Default("Test Biz")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "business:")
	assert.Contains(t, content, "name: Test Biz")
	assert.Contains(t, content, "driver: sqlite")
	assert.Contains(t, content, "template: il_small_business")
	assert.Contains(t, content, "accounts_receivable: \"1200\"")
	assert.Contains(t, content, "initial_interval: 20ms")
}
