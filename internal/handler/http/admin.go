package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/velmart/catalog-search/internal/domain"
	"github.com/velmart/catalog-search/internal/engine"
	"github.com/velmart/catalog-search/internal/service"
	apperrors "github.com/velmart/catalog-search/pkg/errors"
	"github.com/velmart/catalog-search/pkg/httputil"
	"github.com/velmart/catalog-search/pkg/validator"
)

// ReindexRunner executes one full rebuild of the index.
type ReindexRunner interface {
	Run(ctx context.Context) (*service.ReindexReport, error)
}

// AdminHandler handles the write-side endpoints: single-document upserts and
// deletes, and the full reindex trigger.
type AdminHandler struct {
	writer    engine.DocumentWriter
	reindexer ReindexRunner
	logger    *slog.Logger

	reindexing atomic.Bool
}

// NewAdminHandler creates the admin HTTP handler.
func NewAdminHandler(writer engine.DocumentWriter, reindexer ReindexRunner, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{writer: writer, reindexer: reindexer, logger: logger}
}

// IndexProductRequest is the JSON body for upserting one document.
type IndexProductRequest struct {
	ID          string             `json:"id" validate:"required"`
	ExternalID  string             `json:"external_id"`
	SKU         string             `json:"sku"`
	Name        string             `json:"name" validate:"required,min=1"`
	Description string             `json:"description"`
	BrandID     string             `json:"brand_id"`
	BrandName   string             `json:"brand_name"`
	SeriesID    string             `json:"series_id"`
	SeriesName  string             `json:"series_name"`
	CategoryIDs []string           `json:"category_ids"`
	Categories  []string           `json:"category_names"`
	ImageURLs   []string           `json:"image_urls"`
	Attributes  []domain.Attribute `json:"attributes"`
	Popularity  float64            `json:"popularity"`
}

// IndexProduct handles POST /api/v1/search/index.
func (h *AdminHandler) IndexProduct(w http.ResponseWriter, r *http.Request) {
	var req IndexProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid JSON body"), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	doc := domain.ProductDocument{
		ID:            req.ID,
		ExternalID:    req.ExternalID,
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		BrandID:       req.BrandID,
		BrandName:     req.BrandName,
		SeriesID:      req.SeriesID,
		SeriesName:    req.SeriesName,
		CategoryIDs:   req.CategoryIDs,
		CategoryNames: req.Categories,
		ImageURLs:     req.ImageURLs,
		Attributes:    req.Attributes,
		Popularity:    req.Popularity,
	}
	doc.Finalize()

	if err := h.writer.IndexDocument(r.Context(), &doc); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.OK(map[string]string{"id": doc.ID, "status": "indexed"}))
}

// DeleteProduct handles DELETE /api/v1/search/{id}.
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("id is required"), h.logger)
		return
	}

	if err := h.writer.DeleteDocument(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.OK(map[string]string{"id": id, "status": "deleted"}))
}

// Reindex handles POST /api/v1/search/reindex. The rebuild runs in the
// background; the response only acknowledges the start. A second trigger
// while one is running gets a 409.
func (h *AdminHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	if !h.reindexing.CompareAndSwap(false, true) {
		httputil.WriteJSON(w, http.StatusConflict,
			httputil.Fail("REINDEX_IN_PROGRESS", "a reindex is already running", nil))
		return
	}

	go func() {
		defer h.reindexing.Store(false)
		// Detached from the request: the rebuild outlives the HTTP call.
		if _, err := h.reindexer.Run(context.Background()); err != nil {
			h.logger.Error("triggered reindex failed", slog.String("error", err.Error()))
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, httputil.OK(map[string]string{"status": "started"}))
}
