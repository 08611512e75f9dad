package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oenoai/ragcrawl/internal/api"
	"github.com/oenoai/ragcrawl/internal/app"
)

// newCrawlCmd creates the 'crawl' subcommand, which executes one full
// ingestion run: fetch, extract, chunk, classify, upsert, purge.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run one ingestion pass over the configured site",
		Long: `Crawls the configured start URLs up to the depth limit, extracts and
chunks page text, classifies each chunk, and upserts the kept chunks into
the vector record store. With vectorstore.dry_run the chunks are written to
the output directory instead.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer a.Close(context.Background())

	var opsServer *api.Server
	var srv *http.Server
	if cfg.Server.Enabled {
		opsServer = api.NewServer(a.Registry, logger.Named("api"))
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           opsServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("ops server started", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("ops server shutdown error", zap.Error(err))
			}
		}()
	}

	summary, err := a.Pipeline.Run(ctx)
	if opsServer != nil {
		opsServer.RecordRun(summary)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run ingestion: %w", err)
	}
	return nil
}
