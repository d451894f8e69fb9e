package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/velmart/catalog-search/internal/domain"
	"github.com/velmart/catalog-search/pkg/httputil"
)

// Orchestrator routes a search request. Implementations never fail: the
// worst outcome is a result marked unavailable.
type Orchestrator interface {
	Search(ctx context.Context, req *domain.SearchRequest) *domain.SearchResult
}

// SearchHandler handles the public search endpoint.
type SearchHandler struct {
	orchestrator Orchestrator
	logger       *slog.Logger
}

// NewSearchHandler creates the search HTTP handler.
func NewSearchHandler(orchestrator Orchestrator, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{orchestrator: orchestrator, logger: logger}
}

// Search handles GET /api/v1/search. Parameters outside their valid ranges
// are clamped, never rejected; the only failure response is the terminal 503
// when every search path is down.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := &domain.SearchRequest{
		Query: strings.TrimSpace(q.Get("q")),
		Page:  atoiDefault(q.Get("page"), domain.MinPage),
		Limit: atoiDefault(q.Get("limit"), domain.DefaultLimit),
		Sort:  q.Get("sort"),
	}
	if v := q.Get("city_id"); v != "" {
		req.CityID = atoiDefault(v, 0)
	}
	req.UserID = q.Get("user_id")

	result := h.orchestrator.Search(r.Context(), req)

	if result.Source == domain.SourceUnavailable {
		resp := httputil.Fail("SERVICE_UNAVAILABLE", "search is temporarily unavailable", result)
		resp.RequestID = result.Diagnostics.RequestID
		httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	resp := httputil.OK(result)
	resp.RequestID = result.Diagnostics.RequestID
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// atoiDefault parses v, falling back on empty or malformed input. Range
// clamping happens downstream.
func atoiDefault(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
