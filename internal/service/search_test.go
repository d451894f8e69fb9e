package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmart/catalog-search/internal/domain"
)

type fakeProbe struct {
	available bool
	calls     int
}

func (f *fakeProbe) IsAvailable(context.Context) bool {
	f.calls++
	return f.available
}

type fakeSearcher struct {
	result *domain.SearchResult
	err    error
	calls  int
}

func (f *fakeSearcher) Search(_ context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.Page = req.Page
	res.Limit = req.Limit
	return &res, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func primaryResult() *domain.SearchResult {
	return &domain.SearchResult{
		Products: []domain.ProductSummary{{ID: "p-1", Name: "Кабель"}},
		Total:    1,
		Source:   domain.SourcePrimary,
	}
}

func relationalResult() *domain.SearchResult {
	return &domain.SearchResult{
		Products: []domain.ProductSummary{{ID: "p-2", Name: "Провод"}},
		Total:    1,
		Source:   domain.SourceRelational,
	}
}

func TestOrchestrator_PrimaryPath(t *testing.T) {
	probe := &fakeProbe{available: true}
	primary := &fakeSearcher{result: primaryResult()}
	fallback := &fakeSearcher{result: relationalResult()}
	o := NewSearchOrchestrator(probe, primary, fallback, discardLogger())

	result := o.Search(context.Background(), &domain.SearchRequest{Query: "кабель", Page: 1, Limit: 20})

	require.NotNil(t, result)
	assert.Equal(t, domain.SourcePrimary, result.Source)
	assert.False(t, result.UsedFallback)
	assert.True(t, result.Diagnostics.PrimaryAttempted)
	assert.Equal(t, "search", result.Diagnostics.Route)
	assert.NotEmpty(t, result.Diagnostics.RequestID)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, fallback.calls)
}

func TestOrchestrator_FallbackOnPrimaryError(t *testing.T) {
	probe := &fakeProbe{available: true}
	primary := &fakeSearcher{err: errors.New("connection refused")}
	fallback := &fakeSearcher{result: relationalResult()}
	o := NewSearchOrchestrator(probe, primary, fallback, discardLogger())

	result := o.Search(context.Background(), &domain.SearchRequest{Query: "кабель", Page: 1, Limit: 20})

	assert.Equal(t, domain.SourceRelational, result.Source)
	assert.True(t, result.UsedFallback)
	assert.True(t, result.Diagnostics.PrimaryAttempted)
	assert.Contains(t, result.Diagnostics.Error, "connection refused")
	assert.Equal(t, 1, primary.calls, "no retry against a failing primary")
	assert.Equal(t, 1, fallback.calls)
}

func TestOrchestrator_SkipsPrimaryWhenProbeSaysDown(t *testing.T) {
	probe := &fakeProbe{available: false}
	primary := &fakeSearcher{result: primaryResult()}
	fallback := &fakeSearcher{result: relationalResult()}
	o := NewSearchOrchestrator(probe, primary, fallback, discardLogger())

	result := o.Search(context.Background(), &domain.SearchRequest{Query: "кабель", Page: 1, Limit: 20})

	assert.Equal(t, domain.SourceRelational, result.Source)
	assert.True(t, result.UsedFallback)
	assert.False(t, result.Diagnostics.PrimaryAttempted)
	assert.Zero(t, primary.calls)
}

func TestOrchestrator_TerminalUnavailable(t *testing.T) {
	probe := &fakeProbe{available: true}
	primary := &fakeSearcher{err: errors.New("primary down")}
	fallback := &fakeSearcher{err: errors.New("db down")}
	o := NewSearchOrchestrator(probe, primary, fallback, discardLogger())

	result := o.Search(context.Background(), &domain.SearchRequest{Query: "кабель", Page: 2, Limit: 10})

	require.NotNil(t, result, "orchestrator must not return nil even when everything fails")
	assert.Equal(t, domain.SourceUnavailable, result.Source)
	assert.NotNil(t, result.Products)
	assert.Empty(t, result.Products)
	assert.Zero(t, result.Total)
	assert.Equal(t, 2, result.Page)
	assert.Contains(t, result.Diagnostics.Error, "primary down")
	assert.Contains(t, result.Diagnostics.Error, "db down")
}

func TestOrchestrator_EmptyQueryListsFromRelational(t *testing.T) {
	probe := &fakeProbe{available: true}
	primary := &fakeSearcher{result: primaryResult()}
	fallback := &fakeSearcher{result: relationalResult()}
	o := NewSearchOrchestrator(probe, primary, fallback, discardLogger())

	result := o.Search(context.Background(), &domain.SearchRequest{Query: "   ", Page: 1, Limit: 20})

	assert.Equal(t, domain.SourceRelational, result.Source)
	assert.Equal(t, "listing", result.Diagnostics.Route)
	assert.False(t, result.UsedFallback)
	assert.False(t, result.Diagnostics.PrimaryAttempted)
	assert.Zero(t, probe.calls, "listings never consult the probe")
	assert.Zero(t, primary.calls)
}

func TestOrchestrator_ClampsRequest(t *testing.T) {
	probe := &fakeProbe{available: true}
	primary := &fakeSearcher{result: primaryResult()}
	fallback := &fakeSearcher{result: relationalResult()}
	o := NewSearchOrchestrator(probe, primary, fallback, discardLogger())

	req := &domain.SearchRequest{Query: "кабель", Page: -3, Limit: 5000, Sort: "bogus"}
	result := o.Search(context.Background(), req)

	assert.Equal(t, 1, result.Page)
	assert.Equal(t, domain.MaxPageSize, result.Limit)
	assert.Equal(t, domain.SortRelevance, req.Sort)
}
