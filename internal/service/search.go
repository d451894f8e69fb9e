package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/velmart/catalog-search/internal/domain"
	"github.com/velmart/catalog-search/internal/engine"
	"github.com/velmart/catalog-search/pkg/logger"
)

// Route names recorded in result diagnostics.
const (
	routeSearch  = "search"
	routeListing = "listing"
)

// AvailabilityChecker answers whether the primary engine should be attempted
// right now. Verdicts may be cached.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context) bool
}

// SearchOrchestrator decides which search path serves a request. It never
// returns an error: a request that survives parsing always produces a
// result, in the worst case a terminal unavailable one.
type SearchOrchestrator struct {
	probe    AvailabilityChecker
	primary  engine.Searcher
	fallback engine.Searcher
	logger   *slog.Logger
}

// NewSearchOrchestrator wires the two search paths behind the probe.
func NewSearchOrchestrator(probe AvailabilityChecker, primary, fallback engine.Searcher, log *slog.Logger) *SearchOrchestrator {
	return &SearchOrchestrator{
		probe:    probe,
		primary:  primary,
		fallback: fallback,
		logger:   log,
	}
}

// Search clamps the request and routes it. Empty queries are catalog
// listings and go straight to the relational path; everything else tries the
// primary engine when the probe allows it, falling back on any error without
// retrying.
func (o *SearchOrchestrator) Search(ctx context.Context, req *domain.SearchRequest) *domain.SearchResult {
	req.Clamp()

	requestID := logger.CorrelationIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := logger.WithContext(ctx, o.logger)
	start := time.Now()

	diag := domain.Diagnostics{RequestID: requestID}

	if strings.TrimSpace(req.Query) == "" {
		diag.Route = routeListing
		result, err := o.fallback.Search(ctx, req)
		if err != nil {
			log.Error("catalog listing failed", slog.String("error", err.Error()))
			diag.Error = err.Error()
			return o.finish(unavailableResult(req, diag), start)
		}
		result.Diagnostics = diag
		return o.finish(result, start)
	}

	diag.Route = routeSearch

	if o.probe.IsAvailable(ctx) {
		probeVerdictsTotal.WithLabelValues("true").Inc()
		diag.PrimaryAttempted = true

		result, err := o.primary.Search(ctx, req)
		if err == nil {
			result.Diagnostics = diag
			return o.finish(result, start)
		}
		log.Warn("primary search failed, falling back",
			slog.String("query", req.Query),
			slog.String("error", err.Error()),
		)
		diag.Error = err.Error()
	} else {
		probeVerdictsTotal.WithLabelValues("false").Inc()
	}

	result, err := o.fallback.Search(ctx, req)
	if err != nil {
		log.Error("fallback search failed",
			slog.String("query", req.Query),
			slog.String("error", err.Error()),
		)
		if diag.Error != "" {
			diag.Error += "; "
		}
		diag.Error += err.Error()
		return o.finish(unavailableResult(req, diag), start)
	}
	result.UsedFallback = true
	result.Diagnostics = diag
	if diag.PrimaryAttempted {
		fallbacksTotal.Inc()
	}
	return o.finish(result, start)
}

func (o *SearchOrchestrator) finish(result *domain.SearchResult, start time.Time) *domain.SearchResult {
	searchesTotal.WithLabelValues(result.Diagnostics.Route, result.Source).Inc()
	searchDuration.WithLabelValues(result.Source).Observe(time.Since(start).Seconds())
	if result.Source == domain.SourceUnavailable {
		unavailableTotal.Inc()
	}
	o.logger.Debug("search served",
		slog.String("route", result.Diagnostics.Route),
		slog.String("source", result.Source),
		slog.Int("total", result.Total),
	)
	return result
}

// unavailableResult is the terminal degraded response: empty, clearly
// marked, never an error.
func unavailableResult(req *domain.SearchRequest, diag domain.Diagnostics) *domain.SearchResult {
	return &domain.SearchResult{
		Products:     []domain.ProductSummary{},
		Total:        0,
		Page:         req.Page,
		Limit:        req.Limit,
		Source:       domain.SourceUnavailable,
		UsedFallback: true,
		Diagnostics:  diag,
	}
}
