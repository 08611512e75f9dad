package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oenoai/ragcrawl/internal/app"
)

// newPurgeCmd creates the 'purge' subcommand: a retention-only sweep that
// removes the tenant's records older than the configured window without
// crawling anything.
func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete records older than the retention window",
		RunE:  runPurgeCommand,
	}
}

func runPurgeCommand(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.VectorStore.RetentionHours <= 0 {
		return fmt.Errorf("vectorstore.retention_hours must be > 0 to purge")
	}

	store, closeStore, err := app.NewStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer closeStore()

	cutoff := time.Now().Add(-time.Duration(cfg.VectorStore.RetentionHours) * time.Hour)
	purged, err := store.PurgeOlderThan(ctx, cfg.Tenant.ID, cutoff)
	if err != nil {
		return fmt.Errorf("purge records: %w", err)
	}
	logger.Info("purge complete",
		zap.String("tenant", cfg.Tenant.ID),
		zap.Time("cutoff", cutoff),
		zap.Int64("records_purged", purged),
	)
	return nil
}
