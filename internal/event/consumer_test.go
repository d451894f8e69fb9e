package event

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmart/catalog-search/internal/domain"
	apperrors "github.com/velmart/catalog-search/pkg/errors"
	"github.com/velmart/catalog-search/pkg/kafka"
)

type fakeAssembler struct {
	doc   *domain.ProductDocument
	err   error
	calls int
}

func (f *fakeAssembler) AssembleByID(_ context.Context, _ string) (*domain.ProductDocument, error) {
	f.calls++
	return f.doc, f.err
}

type fakeWriter struct {
	indexed   []string
	deleted   []string
	indexErr  error
	deleteErr error
}

func (f *fakeWriter) IndexDocument(_ context.Context, doc *domain.ProductDocument) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.indexed = append(f.indexed, doc.ID)
	return nil
}

func (f *fakeWriter) DeleteDocument(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func event(eventType, id string) *kafka.Event {
	return &kafka.Event{EventType: eventType, AggregateID: id, AggregateType: "product"}
}

func newHandler(a *fakeAssembler, w *fakeWriter) *ProductHandler {
	return NewProductHandler(a, w, slog.New(slog.DiscardHandler))
}

func TestProductHandler_Created(t *testing.T) {
	assembler := &fakeAssembler{doc: &domain.ProductDocument{ID: "p-1", Name: "Кабель"}}
	writer := &fakeWriter{}
	h := newHandler(assembler, writer)

	err := h.Handle(context.Background(), event(TypeProductCreated, "p-1"))

	require.NoError(t, err)
	assert.Equal(t, 1, assembler.calls)
	assert.Equal(t, []string{"p-1"}, writer.indexed)
}

func TestProductHandler_Updated(t *testing.T) {
	assembler := &fakeAssembler{doc: &domain.ProductDocument{ID: "p-1", Name: "Кабель"}}
	writer := &fakeWriter{}
	h := newHandler(assembler, writer)

	err := h.Handle(context.Background(), event(TypeProductUpdated, "p-1"))

	require.NoError(t, err)
	assert.Equal(t, []string{"p-1"}, writer.indexed)
}

func TestProductHandler_Deleted(t *testing.T) {
	writer := &fakeWriter{}
	h := newHandler(&fakeAssembler{}, writer)

	err := h.Handle(context.Background(), event(TypeProductDeleted, "p-1"))

	require.NoError(t, err)
	assert.Equal(t, []string{"p-1"}, writer.deleted)
}

func TestProductHandler_ProductGoneBeforeAssembly(t *testing.T) {
	assembler := &fakeAssembler{err: apperrors.NotFound("product", "p-1")}
	writer := &fakeWriter{}
	h := newHandler(assembler, writer)

	err := h.Handle(context.Background(), event(TypeProductUpdated, "p-1"))

	require.NoError(t, err, "a vanished product is not a handler failure")
	assert.Empty(t, writer.indexed)
}

func TestProductHandler_AssembleErrorPropagates(t *testing.T) {
	assembler := &fakeAssembler{err: errors.New("db down")}
	h := newHandler(assembler, &fakeWriter{})

	err := h.Handle(context.Background(), event(TypeProductCreated, "p-1"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestProductHandler_IndexErrorPropagates(t *testing.T) {
	assembler := &fakeAssembler{doc: &domain.ProductDocument{ID: "p-1"}}
	writer := &fakeWriter{indexErr: errors.New("engine down")}
	h := newHandler(assembler, writer)

	err := h.Handle(context.Background(), event(TypeProductCreated, "p-1"))

	require.Error(t, err)
}

func TestProductHandler_UnknownTypeSkipped(t *testing.T) {
	assembler := &fakeAssembler{}
	writer := &fakeWriter{}
	h := newHandler(assembler, writer)

	err := h.Handle(context.Background(), event("product.archived", "p-1"))

	require.NoError(t, err)
	assert.Zero(t, assembler.calls)
	assert.Empty(t, writer.indexed)
	assert.Empty(t, writer.deleted)
}
