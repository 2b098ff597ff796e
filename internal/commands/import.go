package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/books/internal/importer"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import [directory]",
		Short: "Post every events CSV in a directory and move it to processed/",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "import"
			if len(args) > 0 {
				dir = args[0]
			}

			parser := importer.DefaultRegistry().Get(format)
			if parser == nil {
				return fmt.Errorf("unknown import format %q", format)
			}

			files, err := importer.Scan(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintf(out, "No CSV files in %s\n", dir)
				return nil
			}

			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			for _, f := range files {
				posted, err := importer.ImportFile(ctx, parser, a.engine, a.tenantID, cliActor, f.Path)
				if err != nil {
					return fmt.Errorf("importing %s after %d transactions: %w", f.Name, len(posted), err)
				}
				if err := importer.MarkProcessed(dir, f.Name); err != nil {
					return err
				}
				a.logger.Info("file imported", zap.String("file", f.Name), zap.Int("transactions", len(posted)))
				fmt.Fprintf(out, "%s: %d transactions\n", f.Name, len(posted))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "events", "input format")
	return cmd
}
