package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/velmart/catalog-search/internal/domain"
	"github.com/velmart/catalog-search/pkg/database"
	apperrors "github.com/velmart/catalog-search/pkg/errors"
)

// DocumentAssembler builds denormalized index documents from the relational
// product model. One batch costs a fixed number of queries regardless of
// batch size: a base query plus one enrichment query per related table.
type DocumentAssembler struct {
	pool database.DBTX
}

// NewDocumentAssembler creates a PostgreSQL-backed assembler.
func NewDocumentAssembler(pool database.DBTX) *DocumentAssembler {
	return &DocumentAssembler{pool: pool}
}

const assemblerBaseQuery = `
	SELECT p.id, p.external_id, p.sku, p.name, p.description,
	       p.brand_id, b.name AS brand_name,
	       p.series_id, s.name AS series_name,
	       COALESCE(pp.score, 0) AS popularity,
	       p.created_at, p.updated_at
	FROM products p
	LEFT JOIN brands b ON b.id = p.brand_id
	LEFT JOIN series s ON s.id = p.series_id
	LEFT JOIN product_popularity pp ON pp.product_id = p.id`

// CountProducts returns the number of products eligible for indexing.
func (a *DocumentAssembler) CountProducts(ctx context.Context) (int, error) {
	var count int
	err := a.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// AssembleBatch returns finalized documents for one window of the product
// table, ordered by id so consecutive windows never overlap.
func (a *DocumentAssembler) AssembleBatch(ctx context.Context, offset, limit int) ([]domain.ProductDocument, error) {
	rows, err := a.pool.Query(ctx,
		assemblerBaseQuery+` ORDER BY p.id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("assemble batch: %w", err)
	}

	docs, err := scanBaseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("assemble batch: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	if err := a.enrich(ctx, docs); err != nil {
		return nil, fmt.Errorf("assemble batch: %w", err)
	}
	for i := range docs {
		docs[i].Finalize()
	}
	return docs, nil
}

// AssembleByID builds a single finalized document, used by the incremental
// event path. Returns a not-found error when the product does not exist.
func (a *DocumentAssembler) AssembleByID(ctx context.Context, id string) (*domain.ProductDocument, error) {
	rows, err := a.pool.Query(ctx, assemblerBaseQuery+` WHERE p.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("assemble product %s: %w", id, err)
	}

	docs, err := scanBaseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("assemble product %s: %w", id, err)
	}
	if len(docs) == 0 {
		return nil, apperrors.NotFound("product", id)
	}

	if err := a.enrich(ctx, docs); err != nil {
		return nil, fmt.Errorf("assemble product %s: %w", id, err)
	}
	docs[0].Finalize()
	return &docs[0], nil
}

func scanBaseRows(rows pgx.Rows) ([]domain.ProductDocument, error) {
	defer rows.Close()

	var docs []domain.ProductDocument
	for rows.Next() {
		var (
			d          domain.ProductDocument
			externalID *string
			sku        *string
			descr      *string
			brandID    *string
			brandName  *string
			seriesID   *string
			seriesName *string
		)
		if err := rows.Scan(
			&d.ID, &externalID, &sku, &d.Name, &descr,
			&brandID, &brandName, &seriesID, &seriesName,
			&d.Popularity, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		d.ExternalID = deref(externalID)
		d.SKU = deref(sku)
		d.Description = deref(descr)
		d.BrandID = deref(brandID)
		d.BrandName = deref(brandName)
		d.SeriesID = deref(seriesID)
		d.SeriesName = deref(seriesName)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// enrich attaches categories, images, attributes, and document counts to the
// batch with one ANY($1) query per table.
func (a *DocumentAssembler) enrich(ctx context.Context, docs []domain.ProductDocument) error {
	ids := make([]string, len(docs))
	index := make(map[string]*domain.ProductDocument, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
		index[docs[i].ID] = &docs[i]
	}

	if err := a.loadCategories(ctx, ids, index); err != nil {
		return err
	}
	if err := a.loadImages(ctx, ids, index); err != nil {
		return err
	}
	if err := a.loadAttributes(ctx, ids, index); err != nil {
		return err
	}
	return a.loadDocumentCounts(ctx, ids, index)
}

func (a *DocumentAssembler) loadCategories(ctx context.Context, ids []string, index map[string]*domain.ProductDocument) error {
	rows, err := a.pool.Query(ctx, `
		SELECT pc.product_id, c.id, c.name
		FROM product_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.product_id = ANY($1)
		ORDER BY pc.product_id, c.name`, ids)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID, categoryID, categoryName string
		if err := rows.Scan(&productID, &categoryID, &categoryName); err != nil {
			return fmt.Errorf("load categories: scan row: %w", err)
		}
		if d, ok := index[productID]; ok {
			d.CategoryIDs = append(d.CategoryIDs, categoryID)
			d.CategoryNames = append(d.CategoryNames, categoryName)
		}
	}
	return rows.Err()
}

func (a *DocumentAssembler) loadImages(ctx context.Context, ids []string, index map[string]*domain.ProductDocument) error {
	rows, err := a.pool.Query(ctx, `
		SELECT product_id, url
		FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY product_id, is_main DESC, position ASC`, ids)
	if err != nil {
		return fmt.Errorf("load images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID, url string
		if err := rows.Scan(&productID, &url); err != nil {
			return fmt.Errorf("load images: scan row: %w", err)
		}
		if d, ok := index[productID]; ok {
			d.ImageURLs = append(d.ImageURLs, url)
		}
	}
	return rows.Err()
}

func (a *DocumentAssembler) loadAttributes(ctx context.Context, ids []string, index map[string]*domain.ProductDocument) error {
	rows, err := a.pool.Query(ctx, `
		SELECT product_id, name, value, COALESCE(unit, '')
		FROM product_attributes
		WHERE product_id = ANY($1)
		ORDER BY product_id, name`, ids)
	if err != nil {
		return fmt.Errorf("load attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID string
			attr      domain.Attribute
		)
		if err := rows.Scan(&productID, &attr.Name, &attr.Value, &attr.Unit); err != nil {
			return fmt.Errorf("load attributes: scan row: %w", err)
		}
		if d, ok := index[productID]; ok {
			d.Attributes = append(d.Attributes, attr)
		}
	}
	return rows.Err()
}

func (a *DocumentAssembler) loadDocumentCounts(ctx context.Context, ids []string, index map[string]*domain.ProductDocument) error {
	rows, err := a.pool.Query(ctx, `
		SELECT product_id, doc_type, count(*)
		FROM product_documents
		WHERE product_id = ANY($1)
		GROUP BY product_id, doc_type`, ids)
	if err != nil {
		return fmt.Errorf("load document counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID, docType string
			count              int
		)
		if err := rows.Scan(&productID, &docType, &count); err != nil {
			return fmt.Errorf("load document counts: scan row: %w", err)
		}
		if d, ok := index[productID]; ok {
			if d.DocumentCounts == nil {
				d.DocumentCounts = make(map[string]int)
			}
			d.DocumentCounts[docType] = count
		}
	}
	return rows.Err()
}

// IsNotFound reports whether err marks a missing product.
func IsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
