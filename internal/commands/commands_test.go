package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/books/internal/accounts"
	"github.com/cleared-dev/books/internal/commands"
	"github.com/cleared-dev/books/internal/config"
	"github.com/cleared-dev/books/internal/importer"
	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/statements"
)

func runBooks(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// newBooks initializes a sqlite-backed business in a temp dir and returns a
// runner bound to its config.
func newBooks(t *testing.T) (dir string, run func(args ...string) (string, error)) {
	t.Helper()
	t.Setenv(config.EnvLogLevel, "error")
	dir = t.TempDir()
	cfgPath := filepath.Join(dir, "books.yaml")

	_, err := runBooks(t, "init", "--config", cfgPath, "--name", "Test Biz")
	require.NoError(t, err)

	return dir, func(args ...string) (string, error) {
		return runBooks(t, append(args, "--config", cfgPath)...)
	}
}

func mustRun(t *testing.T, run func(args ...string) (string, error), args ...string) string {
	t.Helper()
	out, err := run(args...)
	require.NoError(t, err, out)
	return out
}

func TestInit_CreatesConfigAndChart(t *testing.T) {
	t.Setenv(config.EnvLogLevel, "error")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "books.yaml")

	out, err := runBooks(t, "init", "--config", cfgPath, "--name", "My Company")
	require.NoError(t, err)

	template, _ := accounts.DefaultChart(accounts.DefaultTemplate)
	assert.Contains(t, out, "with 28 accounts from il_small_business")
	assert.Len(t, template, 28)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "My Company", cfg.Business.Name)
	assert.Equal(t, filepath.Join(dir, "books.db"), cfg.Database.DSN)
	_, err = uuid.Parse(cfg.Business.TenantID)
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "books.db"))
	assert.NoError(t, err)
}

func TestInit_ExplicitTenant(t *testing.T) {
	t.Setenv(config.EnvLogLevel, "error")
	cfgPath := filepath.Join(t.TempDir(), "books.yaml")
	tenant := uuid.NewString()

	out, err := runBooks(t, "init", "--config", cfgPath, "--name", "Biz", "--tenant", tenant)
	require.NoError(t, err)
	assert.Contains(t, out, tenant)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, tenant, cfg.Business.TenantID)
}

func TestInit_RequiresName(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "books.yaml")
	_, err := runBooks(t, "init", "--config", cfgPath)
	require.Error(t, err, "init without --name should fail")
}

func TestInit_SecondTenantSharesDatabase(t *testing.T) {
	_, run := newBooks(t)

	_, err := run("init")
	assert.Error(t, err, "the configured tenant already has a chart")

	other := uuid.NewString()
	mustRun(t, run, "init", "--tenant", other)
	mustRun(t, run, "post", "sale", "--subtotal", "100", "--date", "2025-01-15", "--tenant", other)

	out := mustRun(t, run, "accounts", "list")
	assert.Contains(t, out, "0.00")
	assert.NotContains(t, out, "117.00", "the default tenant does not see the other tenant's sale")
}

func TestAccounts_TreeAndList(t *testing.T) {
	_, run := newBooks(t)

	out := mustRun(t, run, "accounts", "tree")
	assert.Contains(t, out, "1000 Current Assets")
	assert.Contains(t, out, "  1100 Cash")

	out = mustRun(t, run, "accounts", "tree", "--parent", "5000")
	assert.Contains(t, out, "5000 Cost of Sales")
	assert.Contains(t, out, "  5100 Cost of Goods Sold")
	assert.NotContains(t, out, "1100")

	out = mustRun(t, run, "accounts", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 29, "header plus every account")
	assert.True(t, strings.HasPrefix(lines[1], "1000"))
}

func TestAccounts_AddAndDeactivate(t *testing.T) {
	_, run := newBooks(t)

	out := mustRun(t, run, "accounts", "add", "1150", "Petty Cash", "--type", "asset", "--parent", "1000")
	assert.Contains(t, out, "Added 1150 Petty Cash (asset, level 2)")

	_, err := run("accounts", "add", "1150", "Again", "--type", "asset")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = run("accounts", "add", "12", "Short", "--type", "asset")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = run("accounts", "add", "9000", "Orphan", "--type", "expense", "--parent", "8888")
	assert.ErrorIs(t, err, model.ErrNotFound)

	mustRun(t, run, "accounts", "deactivate", "1150")
	out = mustRun(t, run, "accounts", "list")
	assert.Regexp(t, `1150\s+Petty Cash\s+asset\s+2\s+0\.00\s+false`, out)
}

func TestAccounts_Export(t *testing.T) {
	dir, run := newBooks(t)
	path := filepath.Join(dir, "chart.csv")

	mustRun(t, run, "accounts", "export", "--output", path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	exported, err := accounts.ReadAccounts(f)
	require.NoError(t, err)

	template, _ := accounts.DefaultChart(accounts.DefaultTemplate)
	assert.Equal(t, template, exported)
}

func TestPost_SaleReceiptAndReports(t *testing.T) {
	_, run := newBooks(t)

	out := mustRun(t, run, "post", "sale", "--subtotal", "1000", "--cost", "100", "--cost", "50",
		"--date", "2025-01-15", "--description", "Invoice 1001")
	assert.Contains(t, out, "Posted SAL-2025-01-000001 (7 postings, 1320.00)")
	assert.Contains(t, out, "2200 VAT Payable")

	out = mustRun(t, run, "post", "receipt", "--amount", "1170", "--date", "2025-01-20")
	assert.Contains(t, out, "Posted RCV-2025-01-000008 (2 postings, 1170.00)")
	assert.Contains(t, out, "1110 Bank")

	out = mustRun(t, run, "post", "purchase", "--subtotal", "400", "--tax", "68", "--date", "2025-01-21")
	assert.Contains(t, out, "Posted PUR-2025-01-000010 (3 postings, 468.00)")

	out = mustRun(t, run, "post", "payment", "--amount", "468", "--method", "cash", "--date", "2025-01-22")
	assert.Contains(t, out, "Posted PAY-2025-01-000013")

	out = mustRun(t, run, "post", "adjust", "--value", "-20", "--date", "2025-01-31")
	assert.Contains(t, out, "Posted ADJ-2025-01-000015 (2 postings, 20.00)")

	out = mustRun(t, run, "report", "trial-balance", "--as-of", "2025-01-31")
	assert.Contains(t, out, "Trial balance as of 2025-01-31")
	assert.Contains(t, out, "Balanced: true")

	out = mustRun(t, run, "report", "balance-sheet", "--as-of", "2025-01-31")
	assert.Contains(t, out, "Balanced: true")
	assert.Contains(t, out, statements.CurrentEarningsName)

	out = mustRun(t, run, "report", "income-statement", "--from", "2025-01-01", "--to", "2025-01-31")
	assert.Regexp(t, `Net income\s+830\.00`, out)

	out = mustRun(t, run, "report", "income-statement", "--from", "2025-02-01", "--to", "2025-02-28")
	assert.Regexp(t, `Net income\s+0\.00`, out)

	out = mustRun(t, run, "report", "entries", "--account", "1200")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "sequence,transaction_number"))
	assert.Contains(t, lines[1], "SAL-2025-01-000001")
	assert.Contains(t, lines[2], "RCV-2025-01-000008")
}

func TestPost_Reverse(t *testing.T) {
	_, run := newBooks(t)

	mustRun(t, run, "post", "sale", "--subtotal", "200", "--date", "2025-03-01")
	out := mustRun(t, run, "post", "reverse", "SAL-2025-03-000001", "--date", "2025-03-05")
	assert.Contains(t, out, "Posted REV-2025-03-000004 (3 postings, 234.00)")

	_, err := run("post", "reverse", "SAL-2025-03-000001")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = run("post", "reverse", "SAL-2025-03-000099")
	assert.ErrorIs(t, err, model.ErrNotFound)

	out = mustRun(t, run, "report", "trial-balance")
	assert.NotContains(t, out, "234.00")
}

func TestPost_Invalid(t *testing.T) {
	_, run := newBooks(t)

	tests := []struct {
		name string
		args []string
	}{
		{"negative subtotal", []string{"post", "sale", "--subtotal", "-5"}},
		{"too precise", []string{"post", "sale", "--subtotal", "10.001", "--tax", "0"}},
		{"bad date", []string{"post", "sale", "--subtotal", "10", "--date", "15/01/2025"}},
		{"bad document", []string{"post", "purchase", "--subtotal", "10", "--doc", "x"}},
		{"unknown method", []string{"post", "receipt", "--amount", "10", "--method", "barter"}},
		{"zero adjustment", []string{"post", "adjust", "--value", "0"}},
		{"reverse garbage", []string{"post", "reverse", "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(tt.args...)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}

	out := mustRun(t, run, "report", "entries")
	assert.Equal(t, 1, strings.Count(out, "\n"), "nothing was posted")
}

func TestImport(t *testing.T) {
	dir, run := newBooks(t)
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))
	csv := importer.EventsHeader + `
purchase,2025-01-03,,PO 7,2000,340,,,,
sale,2025-01-15,,Invoice 1001,1000,170,,,,100;50
receipt,2025-01-20,,,,,1170,bank_transfer,,
`
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "january.csv"), []byte(csv), 0o644))

	out := mustRun(t, run, "import", importDir)
	assert.Contains(t, out, "january.csv: 3 transactions")

	_, err := os.Stat(filepath.Join(importDir, "processed", "january.csv"))
	assert.NoError(t, err)

	out = mustRun(t, run, "import", importDir)
	assert.Contains(t, out, "No CSV files")

	_, err = run("import", importDir, "--format", "chase")
	assert.Error(t, err)
}

func TestTax(t *testing.T) {
	out, err := runBooks(t, "tax", "check-id", "12-345-678/2")
	require.NoError(t, err)
	assert.Contains(t, out, "123456782 is valid")

	_, err = runBooks(t, "tax", "check-id", "123456789")
	assert.Error(t, err)

	out, err = runBooks(t, "tax", "vat", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "VAT:   17.00")
	assert.Contains(t, out, "Total: 117.00")

	out, err = runBooks(t, "tax", "vat", "100", "--rate", "18")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 118.00")
}

func TestMissingTenant(t *testing.T) {
	t.Setenv(config.EnvLogLevel, "error")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "books.yaml")
	cfg := config.Default("No Tenant")
	cfg.Database.DSN = filepath.Join(dir, "books.db")
	require.NoError(t, config.Save(cfgPath, cfg))

	_, err := runBooks(t, "accounts", "list", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tenant")

	_, err = runBooks(t, "accounts", "list", "--config", cfgPath, "--tenant", "not-a-uuid")
	assert.ErrorIs(t, err, model.ErrValidation)
}
