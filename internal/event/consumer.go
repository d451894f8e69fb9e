package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/velmart/catalog-search/internal/domain"
	"github.com/velmart/catalog-search/internal/engine"
	"github.com/velmart/catalog-search/internal/repository/postgres"
	"github.com/velmart/catalog-search/pkg/kafka"
)

// Product event types consumed from the catalog topic.
const (
	TypeProductCreated = "product.created"
	TypeProductUpdated = "product.updated"
	TypeProductDeleted = "product.deleted"
)

// Assembler builds one index document from the relational model.
type Assembler interface {
	AssembleByID(ctx context.Context, id string) (*domain.ProductDocument, error)
}

// ProductHandler applies incremental product changes to the live index
// between full reindexes. Deletes for unknown documents and events for
// products that vanished before assembly are treated as already applied.
type ProductHandler struct {
	assembler Assembler
	writer    engine.DocumentWriter
	logger    *slog.Logger
}

// NewProductHandler creates the handler wired to the assembler and the
// engine's single-document write path.
func NewProductHandler(assembler Assembler, writer engine.DocumentWriter, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{assembler: assembler, writer: writer, logger: logger}
}

// Handle dispatches one decoded event. Unknown event types are logged and
// skipped, not errors.
func (h *ProductHandler) Handle(ctx context.Context, event *kafka.Event) error {
	switch event.EventType {
	case TypeProductCreated, TypeProductUpdated:
		return h.upsert(ctx, event.AggregateID)
	case TypeProductDeleted:
		return h.delete(ctx, event.AggregateID)
	default:
		h.logger.Warn("unknown event type skipped",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
		)
		return nil
	}
}

func (h *ProductHandler) upsert(ctx context.Context, id string) error {
	doc, err := h.assembler.AssembleByID(ctx, id)
	if err != nil {
		if postgres.IsNotFound(err) {
			// Deleted between the event and now; the delete event will
			// follow, or already has.
			h.logger.Info("product gone before assembly", slog.String("id", id))
			return nil
		}
		return fmt.Errorf("assemble product %s: %w", id, err)
	}

	if err := h.writer.IndexDocument(ctx, doc); err != nil {
		return fmt.Errorf("index product %s: %w", id, err)
	}
	h.logger.Debug("product upserted in index", slog.String("id", id))
	return nil
}

func (h *ProductHandler) delete(ctx context.Context, id string) error {
	if err := h.writer.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete product %s from index: %w", id, err)
	}
	h.logger.Debug("product removed from index", slog.String("id", id))
	return nil
}
