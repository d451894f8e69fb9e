package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/velmart/catalog-search/internal/config"
	esengine "github.com/velmart/catalog-search/internal/engine/elasticsearch"
	"github.com/velmart/catalog-search/internal/repository/postgres"
	"github.com/velmart/catalog-search/internal/service"
	"github.com/velmart/catalog-search/pkg/database"
	"github.com/velmart/catalog-search/pkg/logger"
)

// Operator tool: rebuilds the search index as a fresh generation and swaps
// the alias. Exits non-zero when the rebuild fails, so it is safe to run
// from cron or CI.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("catalog-reindex", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	eng, err := esengine.New(esengine.Config{
		URL:            cfg.ElasticsearchURL,
		Alias:          cfg.ElasticsearchAlias,
		Prefix:         cfg.ElasticsearchPrefix,
		RequestTimeout: cfg.ElasticsearchTimeout,
	}, log)
	if err != nil {
		log.Error("failed to create elasticsearch engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	reindexer := service.NewReindexer(
		postgres.NewDocumentAssembler(pool),
		eng,
		service.ReindexerConfig{
			BatchSize: cfg.ReindexBatchSize,
			Keep:      cfg.ReindexKeep,
			GCEvery:   cfg.ReindexGCEvery,
		},
		log,
	)

	report, err := reindexer.Run(ctx)
	if err != nil {
		log.Error("reindex failed",
			slog.String("state", report.State),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	log.Info("reindex complete",
		slog.String("generation", report.Generation),
		slog.Int("total", report.Total),
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration),
	)
}
