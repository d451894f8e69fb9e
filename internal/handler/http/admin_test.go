package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmart/catalog-search/internal/domain"
	"github.com/velmart/catalog-search/internal/service"
)

type fakeWriter struct {
	mu      sync.Mutex
	indexed []*domain.ProductDocument
	deleted []string
	err     error
}

func (f *fakeWriter) IndexDocument(_ context.Context, doc *domain.ProductDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, doc)
	return nil
}

func (f *fakeWriter) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeReindexer struct {
	started chan struct{}
	release chan struct{}
	err     error
}

func newFakeReindexer() *fakeReindexer {
	return &fakeReindexer{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (f *fakeReindexer) Run(context.Context) (*service.ReindexReport, error) {
	f.started <- struct{}{}
	<-f.release
	if f.err != nil {
		return &service.ReindexReport{State: service.StateFailed}, f.err
	}
	return &service.ReindexReport{State: service.StateDone}, nil
}

func TestAdminHandler_IndexProduct(t *testing.T) {
	writer := &fakeWriter{}
	h := NewAdminHandler(writer, newFakeReindexer(), testLogger())

	body := `{"id":"p-1","name":"Кабель ВВГнг","external_id":"CB-100","image_urls":["https://cdn.example.com/1.jpg"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/index", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.IndexProduct(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, writer.indexed, 1)
	doc := writer.indexed[0]
	assert.Equal(t, "p-1", doc.ID)
	// Finalize ran before the write.
	assert.True(t, doc.HasImages)
	assert.NotEmpty(t, doc.Suggest)
	assert.Contains(t, doc.SearchText, "CB-100")
}

func TestAdminHandler_IndexProduct_MissingName(t *testing.T) {
	writer := &fakeWriter{}
	h := NewAdminHandler(writer, newFakeReindexer(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/index", strings.NewReader(`{"id":"p-1"}`))
	rec := httptest.NewRecorder()
	h.IndexProduct(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	assert.Empty(t, writer.indexed)
}

func TestAdminHandler_IndexProduct_InvalidJSON(t *testing.T) {
	h := NewAdminHandler(&fakeWriter{}, newFakeReindexer(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/index", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	h.IndexProduct(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminHandler_DeleteProduct(t *testing.T) {
	writer := &fakeWriter{}
	h := NewAdminHandler(writer, newFakeReindexer(), testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/search/p-1", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "p-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	h.DeleteProduct(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"p-1"}, writer.deleted)
}

func TestAdminHandler_DeleteProduct_WriterError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("engine down")}
	h := NewAdminHandler(writer, newFakeReindexer(), testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/search/p-1", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "p-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	h.DeleteProduct(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdminHandler_ReindexAcceptedAndSerialized(t *testing.T) {
	reindexer := newFakeReindexer()
	h := NewAdminHandler(&fakeWriter{}, reindexer, testLogger())

	rec := httptest.NewRecorder()
	h.Reindex(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search/reindex", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// Wait until the background run is actually started, then a second
	// trigger must be refused.
	<-reindexer.started
	rec2 := httptest.NewRecorder()
	h.Reindex(rec2, httptest.NewRequest(http.MethodPost, "/api/v1/search/reindex", nil))
	assert.Equal(t, http.StatusConflict, rec2.Code)
	resp := decodeEnvelope(t, rec2)
	assert.Equal(t, "REINDEX_IN_PROGRESS", resp.ErrorCode)

	close(reindexer.release)
}
