package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/velmart/catalog-search/internal/domain"
	"github.com/velmart/catalog-search/internal/variants"
	"github.com/velmart/catalog-search/pkg/database"
)

// FallbackSearch is the relational search path used when the primary engine
// is unavailable or failing. It trades ranking quality for availability:
// plain pattern matching over query variants with a fixed-priority score
// ladder instead of full-text scoring.
type FallbackSearch struct {
	pool database.DBTX
}

// NewFallbackSearch creates a PostgreSQL-backed fallback search.
func NewFallbackSearch(pool database.DBTX) *FallbackSearch {
	return &FallbackSearch{pool: pool}
}

// likeEscaper neutralizes LIKE metacharacters in user input before it is
// embedded in a pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

const summaryColumns = `
		p.id, p.external_id, p.sku, p.name, p.description, b.name AS brand_name,
		(SELECT i.url FROM product_images i
		  WHERE i.product_id = p.id
		  ORDER BY i.is_main DESC, i.position ASC
		  LIMIT 1) AS image_url,
		COALESCE(pp.score, 0) AS popularity`

// Search executes a scored keyword search. The variant disjunction widens
// recall; the relevance ladder is evaluated against the original query only.
// Fetch and total count come from one statement (count(*) OVER()) so they can
// never disagree.
func (f *FallbackSearch) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	var (
		args       []any
		conditions []string
		scoreExpr  = "0::int AS relevance"
	)

	query := strings.TrimSpace(req.Query)
	if query != "" {
		for _, v := range variants.Generate(query) {
			exact := len(args) + 1
			args = append(args, v)
			prefix := len(args) + 1
			args = append(args, escapeLike(v)+"%")
			substr := len(args) + 1
			args = append(args, "%"+escapeLike(v)+"%")

			conditions = append(conditions, fmt.Sprintf(
				`(p.external_id = $%d OR p.sku = $%d OR p.external_id ILIKE $%d OR p.sku ILIKE $%d OR p.name ILIKE $%d OR p.description ILIKE $%d OR b.name ILIKE $%d)`,
				exact, exact, prefix, prefix, substr, substr, substr,
			))
		}

		exact := len(args) + 1
		args = append(args, query)
		prefix := len(args) + 1
		args = append(args, escapeLike(query)+"%")
		substr := len(args) + 1
		args = append(args, "%"+escapeLike(query)+"%")

		scoreExpr = fmt.Sprintf(`CASE
			WHEN p.external_id = $%[1]d THEN 1000
			WHEN p.sku = $%[1]d THEN 900
			WHEN p.external_id ILIKE $%[2]d THEN 100
			WHEN p.sku ILIKE $%[2]d THEN 90
			WHEN lower(p.name) = lower($%[1]d) THEN 80
			WHEN p.name ILIKE $%[2]d THEN 50
			WHEN p.name ILIKE $%[3]d THEN 30
			ELSE 1
		END AS relevance`, exact, prefix, substr)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " OR ")
	}

	limitArg := len(args) + 1
	args = append(args, req.Limit)
	offsetArg := len(args) + 1
	args = append(args, (req.Page-1)*req.Limit)

	sql := fmt.Sprintf(`
		SELECT %s,
		       %s,
		       count(*) OVER() AS total_count
		FROM products p
		LEFT JOIN brands b ON b.id = p.brand_id
		LEFT JOIN product_popularity pp ON pp.product_id = p.id
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		summaryColumns, scoreExpr, whereClause, orderClause(req.Sort), limitArg, offsetArg,
	)

	rows, err := f.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("fallback search: %w", err)
	}
	defer rows.Close()

	products := make([]domain.ProductSummary, 0, req.Limit)
	total := 0
	for rows.Next() {
		var (
			p           domain.ProductSummary
			externalID  *string
			sku         *string
			description *string
			brandName   *string
			imageURL    *string
			relevance   int
		)
		if err := rows.Scan(
			&p.ID, &externalID, &sku, &p.Name, &description, &brandName,
			&imageURL, &p.Popularity, &relevance, &total,
		); err != nil {
			return nil, fmt.Errorf("fallback search: scan row: %w", err)
		}
		p.ExternalID = deref(externalID)
		p.SKU = deref(sku)
		p.Description = deref(description)
		p.BrandName = deref(brandName)
		p.ImageURL = deref(imageURL)
		p.Score = float64(relevance)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fallback search: %w", err)
	}

	return &domain.SearchResult{
		Products: products,
		Total:    total,
		Page:     req.Page,
		Limit:    req.Limit,
		Source:   domain.SourceRelational,
	}, nil
}

// orderClause maps a sort option to SQL ordering. Relevance means the score
// ladder descending with name as tiebreak; explicit sorts override it.
func orderClause(sortBy string) string {
	switch sortBy {
	case domain.SortName:
		return "p.name ASC"
	case domain.SortExternalID:
		return "p.external_id ASC NULLS LAST"
	case domain.SortPopularity:
		return "popularity DESC, p.name ASC"
	default:
		return "relevance DESC, p.name ASC"
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
