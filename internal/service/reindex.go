package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/velmart/catalog-search/internal/domain"
	"github.com/velmart/catalog-search/internal/engine"
)

// Reindex states, in the order a successful run passes through them.
const (
	StateInit          = "init"
	StateCreatingIndex = "creating_index"
	StateBulkLoading   = "bulk_loading"
	StateSwappingAlias = "swapping_alias"
	StateCleaningUp    = "cleaning_up"
	StateDone          = "done"
	StateFailed        = "failed"
)

// DocumentSource supplies index documents in stable windows.
type DocumentSource interface {
	CountProducts(ctx context.Context) (int, error)
	AssembleBatch(ctx context.Context, offset, limit int) ([]domain.ProductDocument, error)
}

// ReindexReport summarizes one run for logs, the admin endpoint, and the
// operator CLI.
type ReindexReport struct {
	Generation string        `json:"generation"`
	State      string        `json:"state"`
	Total      int           `json:"total"`
	Indexed    int           `json:"indexed"`
	Failed     int           `json:"failed"`
	Batches    int           `json:"batches"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// Reindexer rebuilds the primary engine's dataset as a fresh generation and
// cuts the stable alias over to it. Search traffic keeps hitting the old
// generation until the swap, so a failed run changes nothing visible.
type Reindexer struct {
	source    DocumentSource
	manager   engine.IndexManager
	batchSize int
	keep      int
	gcEvery   int
	logger    *slog.Logger
}

// ReindexerConfig bounds a run. Keep is the number of newest generations the
// cleanup phase retains; GCEvery is the number of batches between forced
// memory releases (0 disables them).
type ReindexerConfig struct {
	BatchSize int
	Keep      int
	GCEvery   int
}

// NewReindexer creates a reindexer over the given document source and index
// manager.
func NewReindexer(source DocumentSource, manager engine.IndexManager, cfg ReindexerConfig, log *slog.Logger) *Reindexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Keep <= 0 {
		cfg.Keep = 2
	}
	return &Reindexer{
		source:    source,
		manager:   manager,
		batchSize: cfg.BatchSize,
		keep:      cfg.Keep,
		gcEvery:   cfg.GCEvery,
		logger:    log,
	}
}

// Run executes one full reindex. The returned report is non-nil even on
// failure; its State tells how far the run got. A partially built generation
// is deleted before returning an error.
func (r *Reindexer) Run(ctx context.Context) (*ReindexReport, error) {
	report := &ReindexReport{State: StateInit, StartedAt: time.Now()}
	defer func() {
		report.FinishedAt = time.Now()
		report.Duration = report.FinishedAt.Sub(report.StartedAt)
	}()

	total, err := r.source.CountProducts(ctx)
	if err != nil {
		return r.fail(report, fmt.Errorf("count products: %w", err))
	}
	report.Total = total

	report.State = StateCreatingIndex
	generation := r.manager.GenerationName()
	report.Generation = generation
	if err := r.manager.CreateGeneration(ctx, generation); err != nil {
		return r.fail(report, err)
	}
	r.logger.Info("reindex started",
		slog.String("generation", generation),
		slog.Int("total", total),
		slog.Int("batch_size", r.batchSize),
	)

	report.State = StateBulkLoading
	if err := r.bulkLoad(ctx, generation, report); err != nil {
		r.deletePartial(ctx, generation)
		return r.fail(report, err)
	}

	report.State = StateSwappingAlias
	if err := r.manager.SwapAlias(ctx, generation); err != nil {
		r.deletePartial(ctx, generation)
		return r.fail(report, err)
	}

	report.State = StateCleaningUp
	r.cleanup(ctx)

	report.State = StateDone
	reindexRunsTotal.WithLabelValues("success").Inc()
	r.logger.Info("reindex finished",
		slog.String("generation", generation),
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", report.Failed),
		slog.Duration("elapsed", time.Since(report.StartedAt)),
	)
	return report, nil
}

// bulkLoad streams the whole catalog into the generation in fixed windows.
// Per-document rejections accumulate in the report; only infrastructure
// failures abort the run.
func (r *Reindexer) bulkLoad(ctx context.Context, generation string, report *ReindexReport) error {
	for offset := 0; ; offset += r.batchSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("bulk load interrupted: %w", err)
		}

		docs, err := r.source.AssembleBatch(ctx, offset, r.batchSize)
		if err != nil {
			return fmt.Errorf("assemble batch at offset %d: %w", offset, err)
		}
		if len(docs) == 0 {
			return nil
		}

		failed, err := r.manager.BulkIndex(ctx, generation, docs)
		if err != nil {
			return fmt.Errorf("bulk index at offset %d: %w", offset, err)
		}

		report.Batches++
		report.Indexed += len(docs) - failed
		report.Failed += failed
		reindexDocuments.WithLabelValues("indexed").Add(float64(len(docs) - failed))
		if failed > 0 {
			reindexDocuments.WithLabelValues("rejected").Add(float64(failed))
		}

		// Documents in a batch hold a lot of assembled text; releasing it
		// between windows keeps the resident set flat on large catalogs.
		if r.gcEvery > 0 && report.Batches%r.gcEvery == 0 {
			runtime.GC()
		}

		if len(docs) < r.batchSize {
			return nil
		}
	}
}

// cleanup deletes old generations beyond the retention count. The aliased
// generation is never deleted regardless of age, and individual delete
// failures only log.
func (r *Reindexer) cleanup(ctx context.Context) {
	generations, err := r.manager.ListGenerations(ctx)
	if err != nil {
		r.logger.Warn("cleanup: listing generations failed", slog.String("error", err.Error()))
		return
	}
	if len(generations) <= r.keep {
		return
	}

	holders, err := r.manager.AliasedGenerations(ctx)
	if err != nil {
		r.logger.Warn("cleanup: resolving alias failed", slog.String("error", err.Error()))
		return
	}
	aliased := make(map[string]bool, len(holders))
	for _, name := range holders {
		aliased[name] = true
	}

	// Generations sort oldest first; everything before the retention window
	// is a candidate.
	for _, gen := range generations[:len(generations)-r.keep] {
		if aliased[gen.Name] {
			continue
		}
		if err := r.manager.DeleteGeneration(ctx, gen.Name); err != nil {
			r.logger.Warn("cleanup: delete failed",
				slog.String("generation", gen.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		r.logger.Info("old generation removed", slog.String("generation", gen.Name))
	}
}

// deletePartial removes a generation that never went live.
func (r *Reindexer) deletePartial(ctx context.Context, generation string) {
	if err := r.manager.DeleteGeneration(ctx, generation); err != nil {
		r.logger.Warn("deleting partial generation failed",
			slog.String("generation", generation),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Reindexer) fail(report *ReindexReport, err error) (*ReindexReport, error) {
	report.State = StateFailed
	report.Error = err.Error()
	reindexRunsTotal.WithLabelValues("failure").Inc()
	r.logger.Error("reindex failed",
		slog.String("generation", report.Generation),
		slog.String("error", err.Error()),
	)
	return report, err
}
