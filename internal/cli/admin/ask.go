package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/shiftlog/internal/cli"
	"github.com/cloo-solutions/shiftlog/internal/config"
	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/spf13/cobra"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	return cli.WithOutput(&cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed shift logs",
		Args:  cobra.ExactArgs(1),
		RunE:  runAsk,
	}, "Answer")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	question := strings.TrimSpace(args[0])
	if question == "" {
		return domain.ErrEmptyQuestion
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.Debug)

	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	a.ensureIndex(ctx)
	return writeJSON(cmd.OutOrStdout(), a.answers.Answer(ctx, question))
}
