package postgres

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmart/catalog-search/internal/domain"
	"github.com/velmart/catalog-search/internal/variants"
	"github.com/velmart/catalog-search/pkg/database"
)

// pgxmock requires the expected argument count to match the actual one even
// when no argument values are asserted, so expectations that don't care about
// values still need the right number of AnyArg placeholders: three pattern
// args per generated variant, three for the original query, plus limit and
// offset.
func anySearchArgs(query string) []any {
	n := 3*(len(variants.Generate(query))+1) + 2
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func fallbackRows() [][]any {
	return [][]any{
		{"p-1", strPtr("CB-100"), strPtr("SKU-100"), "Кабель ВВГнг 3x2.5", strPtr("Силовой кабель"), strPtr("Технокабель"), strPtr("https://cdn.example.com/p1.jpg"), 42.5, 1000, 2},
		{"p-2", strPtr("CB-200"), nil, "Кабель КГ 2x1.5", nil, nil, nil, 0.0, 30, 2},
	}
}

func strPtr(s string) *string { return &s }

func TestFallbackSearch_Search(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := mock.NewRows([]string{
		"id", "external_id", "sku", "name", "description", "brand_name",
		"image_url", "popularity", "relevance", "total_count",
	})
	for _, r := range fallbackRows() {
		rows.AddRow(r...)
	}

	mock.ExpectQuery(`count\(\*\) OVER\(\) AS total_count`).
		WithArgs(anySearchArgs("кабель")...).
		WillReturnRows(rows)

	repo := NewFallbackSearch(mock)
	req := &domain.SearchRequest{Query: "кабель", Page: 1, Limit: 20, Sort: domain.SortRelevance}
	result, err := repo.Search(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, domain.SourceRelational, result.Source)
	require.Len(t, result.Products, 2)

	first := result.Products[0]
	assert.Equal(t, "p-1", first.ID)
	assert.Equal(t, "CB-100", first.ExternalID)
	assert.Equal(t, "Технокабель", first.BrandName)
	assert.Equal(t, "https://cdn.example.com/p1.jpg", first.ImageURL)
	assert.Equal(t, float64(1000), first.Score)

	second := result.Products[1]
	assert.Empty(t, second.SKU)
	assert.Empty(t, second.BrandName)
	assert.Equal(t, float64(30), second.Score)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFallbackSearch_EmptyQueryListsAll(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := mock.NewRows([]string{
		"id", "external_id", "sku", "name", "description", "brand_name",
		"image_url", "popularity", "relevance", "total_count",
	}).AddRow("p-1", strPtr("CB-100"), strPtr("SKU-100"), "Кабель", nil, nil, nil, 0.0, 0, 531)

	// Listing mode has no WHERE clause and exactly two args: limit and offset.
	mock.ExpectQuery(`FROM products p`).
		WithArgs(10, 20).
		WillReturnRows(rows)

	repo := NewFallbackSearch(mock)
	req := &domain.SearchRequest{Query: "   ", Page: 3, Limit: 10, Sort: domain.SortRelevance}
	result, err := repo.Search(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 531, result.Total)
	assert.Equal(t, 3, result.Page)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFallbackSearch_NoMatches(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := mock.NewRows([]string{
		"id", "external_id", "sku", "name", "description", "brand_name",
		"image_url", "popularity", "relevance", "total_count",
	})
	mock.ExpectQuery(`FROM products p`).
		WithArgs(anySearchArgs("nonexistent")...).
		WillReturnRows(rows)

	repo := NewFallbackSearch(mock)
	req := &domain.SearchRequest{Query: "nonexistent", Page: 1, Limit: 20, Sort: domain.SortRelevance}
	result, err := repo.Search(context.Background(), req)

	require.NoError(t, err)
	assert.Empty(t, result.Products)
	assert.Zero(t, result.Total)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFallbackSearch_QueryError(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM products p`).
		WithArgs(anySearchArgs("кабель")...).
		WillReturnError(assert.AnError)

	repo := NewFallbackSearch(mock)
	req := &domain.SearchRequest{Query: "кабель", Page: 1, Limit: 20, Sort: domain.SortRelevance}
	_, err = repo.Search(context.Background(), req)

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		sort string
		want string
	}{
		{domain.SortRelevance, "relevance DESC, p.name ASC"},
		{domain.SortName, "p.name ASC"},
		{domain.SortExternalID, "p.external_id ASC NULLS LAST"},
		{domain.SortPopularity, "popularity DESC, p.name ASC"},
		{"bogus", "relevance DESC, p.name ASC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, orderClause(tt.sort), "sort %q", tt.sort)
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c\\d`, escapeLike(`c\d`))
	assert.Equal(t, "кабель", escapeLike("кабель"))
}
