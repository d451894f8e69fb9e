package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velmart/catalog-search/pkg/health"
	"github.com/velmart/catalog-search/pkg/httputil"
	"github.com/velmart/catalog-search/pkg/middleware"
)

// ContentTypeJSON rejects mutating requests without a JSON content type.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct != "" && !strings.HasPrefix(ct, "application/json") {
			httputil.WriteJSON(w, http.StatusUnsupportedMediaType,
				httputil.Fail("UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter creates a chi router with all catalog-search routes registered.
func NewRouter(
	searchHandler *SearchHandler,
	adminHandler *AdminHandler,
	healthHandler *health.Handler,
	requestTimeout time.Duration,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Tracing("catalog-search"))
	r.Use(middleware.PrometheusMetrics("catalog-search"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", searchHandler.Search)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/index", adminHandler.IndexProduct)
			r.Delete("/{id}", adminHandler.DeleteProduct)
			r.Post("/reindex", adminHandler.Reindex)
		})
	})

	return r
}
