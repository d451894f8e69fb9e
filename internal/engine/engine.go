package engine

import (
	"context"

	"github.com/velmart/catalog-search/internal/domain"
)

// Searcher is the query-side boundary of the primary search engine.
type Searcher interface {
	// Search executes a boosted multi-clause query. Transport errors and
	// timeouts surface as errors; the caller decides whether to fall back.
	Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error)
}

// DocumentWriter is the single-document write boundary, used for
// incremental updates through the stable alias.
type DocumentWriter interface {
	IndexDocument(ctx context.Context, doc *domain.ProductDocument) error
	DeleteDocument(ctx context.Context, id string) error
}

// IndexManager is the index/alias lifecycle boundary used by the reindexer.
// Generations are private until SwapAlias cuts traffic over to them.
type IndexManager interface {
	// GenerationName derives a fresh generation name whose suffix encodes
	// the creation instant, so lexical order is creation order.
	GenerationName() string

	CreateGeneration(ctx context.Context, name string) error

	// BulkIndex writes docs into the named generation. Per-document
	// rejections are counted and returned, not treated as request failure.
	BulkIndex(ctx context.Context, index string, docs []domain.ProductDocument) (failed int, err error)

	// SwapAlias atomically moves the stable alias onto newIndex, removing
	// it from every current holder in the same action set.
	SwapAlias(ctx context.Context, newIndex string) error

	ListGenerations(ctx context.Context) ([]domain.IndexGeneration, error)

	// AliasedGenerations returns the index names the stable alias resolves to.
	AliasedGenerations(ctx context.Context) ([]string, error)

	DeleteGeneration(ctx context.Context, name string) error
}
