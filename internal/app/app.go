package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velmart/catalog-search/internal/availability"
	"github.com/velmart/catalog-search/internal/config"
	esengine "github.com/velmart/catalog-search/internal/engine/elasticsearch"
	"github.com/velmart/catalog-search/internal/event"
	handler "github.com/velmart/catalog-search/internal/handler/http"
	"github.com/velmart/catalog-search/internal/repository/postgres"
	"github.com/velmart/catalog-search/internal/service"
	"github.com/velmart/catalog-search/pkg/database"
	"github.com/velmart/catalog-search/pkg/health"
	pkgkafka "github.com/velmart/catalog-search/pkg/kafka"
	"github.com/velmart/catalog-search/pkg/tracing"
)

// App wires together all dependencies and runs the catalog search service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	consumer        *pkgkafka.Consumer
	httpServer      *http.Server
	shutdownTracing func(context.Context) error
}

// NewApp creates the application with all dependencies wired.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	shutdownTracing, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  "catalog-search",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTELEndpoint,
		SampleRate:   cfg.OTELSampleRate,
		Enabled:      cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	eng, err := esengine.New(esengine.Config{
		URL:            cfg.ElasticsearchURL,
		Alias:          cfg.ElasticsearchAlias,
		Prefix:         cfg.ElasticsearchPrefix,
		RequestTimeout: cfg.ElasticsearchTimeout,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init elasticsearch engine: %w", err)
	}
	logger.Info("elasticsearch engine initialized",
		slog.String("url", cfg.ElasticsearchURL),
		slog.String("alias", cfg.ElasticsearchAlias),
	)

	probe := availability.NewProbe(eng, logger)
	fallback := postgres.NewFallbackSearch(pool)
	assembler := postgres.NewDocumentAssembler(pool)

	orchestrator := service.NewSearchOrchestrator(probe, eng, fallback, logger)
	reindexer := service.NewReindexer(assembler, eng, service.ReindexerConfig{
		BatchSize: cfg.ReindexBatchSize,
		Keep:      cfg.ReindexKeep,
		GCEvery:   cfg.ReindexGCEvery,
	}, logger)

	// Incremental index updates from product events.
	var consumer *pkgkafka.Consumer
	if cfg.KafkaEnabled {
		productHandler := event.NewProductHandler(assembler, eng, logger)
		consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaGroupID,
			Topic:    cfg.KafkaTopic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, productHandler.Handle, logger)
		logger.Info("kafka consumer initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", cfg.KafkaTopic),
		)
	}

	healthHandler := health.NewHandler()
	healthHandler.Register("elasticsearch", eng.Ping)
	healthHandler.Register("postgres", pool.Ping)
	if cfg.KafkaEnabled {
		healthHandler.Register("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
	}

	searchHandler := handler.NewSearchHandler(orchestrator, logger)
	adminHandler := handler.NewAdminHandler(eng, reindexer, logger)
	router := handler.NewRouter(searchHandler, adminHandler, healthHandler, cfg.RequestTimeout, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		consumer:        consumer,
		httpServer:      httpServer,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Run starts the HTTP server and the Kafka consumer, blocking until the
// context is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	if err := a.shutdownTracing(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
