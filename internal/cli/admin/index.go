package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/shiftlog/internal/cli"
	"github.com/cloo-solutions/shiftlog/internal/config"
	"github.com/spf13/cobra"
)

// IndexCmd returns the index command group
func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the vector index",
	}

	ensureCmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create the collection if needed and check its dimension",
		RunE:  runIndexEnsure,
	}
	ensureCmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations")

	cmd.AddCommand(cli.WithOutput(ensureCmd, "IndexStatus"))
	return cmd
}

type indexStatus struct {
	Collection   string `json:"collection"`
	Backend      string `json:"backend"`
	Ready        bool   `json:"ready"`
	HasDocuments bool   `json:"has_documents"`
}

func runIndexEnsure(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.Debug)

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	a, err := newApp(ctx, cfg, logger, appOptions{Migrate: !noMigrate})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.index.EnsureReady(ctx); err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), indexStatus{
		Collection:   a.index.Collection(),
		Backend:      cfg.VectorBackend,
		Ready:        a.index.Ready(),
		HasDocuments: a.index.HasDocuments(),
	})
}
