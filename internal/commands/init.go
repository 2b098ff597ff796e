package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/books/internal/accounts"
	"github.com/cleared-dev/books/internal/config"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var name string
	var template string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and seed a tenant's chart of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOrCreateConfig(opts, name)
			if err != nil {
				return err
			}
			if template != "" {
				cfg.Ledger.Template = template
			}
			return runInit(cmd, cfg, opts.tenant)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required when creating a new config)")
	cmd.Flags().StringVar(&template, "template", "", "chart template name or CSV path (defaults to ledger.template)")

	return cmd
}

// loadOrCreateConfig loads the config file, writing a default one with a
// fresh tenant id when it does not exist yet.
func loadOrCreateConfig(opts *rootOptions, name string) (*config.Config, error) {
	_, err := os.Stat(opts.configPath)
	switch {
	case err == nil:
		return config.Load(opts.configPath)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("checking config: %w", err)
	}

	if name == "" {
		return nil, errors.New("--name is required when creating a new config")
	}

	cfg := config.Default(name)
	cfg.Database.DSN = filepath.Join(filepath.Dir(opts.configPath), "books.db")
	if opts.tenant != "" {
		cfg.Business.TenantID = opts.tenant
	} else {
		cfg.Business.TenantID = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := config.Save(opts.configPath, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

func runInit(cmd *cobra.Command, cfg *config.Config, tenantFlag string) error {
	a, err := newApp(cfg, tenantFlag)
	if err != nil {
		return err
	}
	defer a.Close()

	template, err := accounts.LoadTemplate(cfg.Ledger.Template)
	if err != nil {
		return err
	}

	n, err := a.accounts.InitializeTenant(context.Background(), a.tenantID, template)
	if err != nil {
		return fmt.Errorf("initializing tenant: %w", err)
	}

	a.logger.Info("tenant initialized", zap.String("template", cfg.Ledger.Template), zap.Int("accounts", n))
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized tenant %s with %d accounts from %s\n", a.tenantID, n, cfg.Ledger.Template)
	return nil
}
