package elasticsearch

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmart/catalog-search/internal/domain"
)

// newTestEngine points an engine at a fake cluster. The product header is
// required or the client rejects every response.
func newTestEngine(t *testing.T, handler http.HandlerFunc) (*Engine, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	e, err := New(Config{
		URL:            srv.URL,
		Alias:          "catalog_products",
		Prefix:         "catalog_products_v",
		RequestTimeout: 2 * time.Second,
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return e, srv
}

func TestBuildSearchBody_BoostLadder(t *testing.T) {
	e := &Engine{alias: "catalog_products"}
	req := &domain.SearchRequest{Query: "ВА47-29", Page: 2, Limit: 10, Sort: domain.SortRelevance}

	body := e.buildSearchBody(req)

	assert.Equal(t, 10, body["from"])
	assert.Equal(t, 10, body["size"])
	assert.Equal(t, scoreFloor, body["min_score"])

	boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
	should := boolQuery["should"].([]any)
	require.Len(t, should, 6)
	assert.Equal(t, 1, boolQuery["minimum_should_match"])

	term := should[0].(map[string]any)["term"].(map[string]any)["external_id"].(map[string]any)
	assert.Equal(t, 100, term["boost"])
	sku := should[1].(map[string]any)["term"].(map[string]any)["sku"].(map[string]any)
	assert.Equal(t, 90, sku["boost"])
	prefix := should[2].(map[string]any)["prefix"].(map[string]any)["external_id"].(map[string]any)
	assert.Equal(t, 50, prefix["boost"])
	phrase := should[3].(map[string]any)["match_phrase"].(map[string]any)["name"].(map[string]any)
	assert.Equal(t, 30, phrase["boost"])
	assert.Equal(t, 1, phrase["slop"])
	fuzzy := should[4].(map[string]any)["match"].(map[string]any)["name"].(map[string]any)
	assert.Equal(t, "AUTO", fuzzy["fuzziness"])
	assert.Equal(t, 10, fuzzy["boost"])
	brand := should[5].(map[string]any)["match"].(map[string]any)["brand_name"].(map[string]any)
	assert.Equal(t, 5, brand["boost"])

	highlight := body["highlight"].(map[string]any)["fields"].(map[string]any)
	assert.Contains(t, highlight, "name")
	assert.Contains(t, highlight, "external_id")
	assert.Contains(t, highlight, "sku")
}

func TestBuildSearchBody_EmptyQueryListsAll(t *testing.T) {
	e := &Engine{alias: "catalog_products"}
	req := &domain.SearchRequest{Query: "  ", Page: 1, Limit: 20, Sort: domain.SortRelevance}

	body := e.buildSearchBody(req)

	_, isMatchAll := body["query"].(map[string]any)["match_all"]
	assert.True(t, isMatchAll)
	assert.NotContains(t, body, "min_score")
	assert.NotContains(t, body, "highlight")
}

func TestBuildSearchBody_NormalizesCyrillicKha(t *testing.T) {
	e := &Engine{alias: "catalog_products"}
	// The х here is Cyrillic; dimension codes are typed both ways.
	req := &domain.SearchRequest{Query: "3х2.5", Page: 1, Limit: 20}

	body := e.buildSearchBody(req)

	should := body["query"].(map[string]any)["bool"].(map[string]any)["should"].([]any)
	term := should[0].(map[string]any)["term"].(map[string]any)["external_id"].(map[string]any)
	assert.Equal(t, "3x2.5", term["value"])
}

func TestBuildSort(t *testing.T) {
	relevance := buildSort(domain.SortRelevance, true)
	require.Len(t, relevance, 2)
	assert.Equal(t, map[string]any{"_score": "desc"}, relevance[0])
	assert.Equal(t, map[string]any{"id": "asc"}, relevance[1])

	listing := buildSort(domain.SortRelevance, false)
	require.Len(t, listing, 1)
	assert.Equal(t, map[string]any{"name.keyword": "asc"}, listing[0])

	popularity := buildSort(domain.SortPopularity, true)
	assert.Equal(t, map[string]any{"popularity": "desc"}, popularity[0])
}

func TestSearch_DecodesHitsAndHighlight(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/catalog_products/_search", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hits": map[string]any{
				"total": map[string]any{"value": 2},
				"hits": []any{
					map[string]any{
						"_score": 42.5,
						"_source": map[string]any{
							"id": "p-1", "name": "Кабель ВВГнг", "external_id": "CB-100",
							"image_urls": []string{"https://cdn.example.com/1.jpg"},
						},
						"highlight": map[string]any{"name": []string{"<em>Кабель</em> ВВГнг"}},
					},
					map[string]any{
						"_score":  3.1,
						"_source": map[string]any{"id": "p-2", "name": "Провод"},
					},
				},
			},
		})
	})

	result, err := e.Search(t.Context(), &domain.SearchRequest{Query: "кабель", Page: 1, Limit: 20})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, domain.SourcePrimary, result.Source)
	require.Len(t, result.Products, 2)
	assert.Equal(t, 42.5, result.Products[0].Score)
	assert.Equal(t, "https://cdn.example.com/1.jpg", result.Products[0].ImageURL)
	assert.Equal(t, "<em>Кабель</em> ВВГнг", result.Products[0].Highlight["name"])
	assert.Nil(t, result.Products[1].Highlight)
}

func TestSearch_ErrorResponse(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":  map[string]any{"type": "search_phase_execution_exception", "reason": "all shards failed"},
			"status": 503,
		})
	})

	_, err := e.Search(t.Context(), &domain.SearchRequest{Query: "кабель", Page: 1, Limit: 20})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all shards failed")
}

func TestClusterHealth(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "yellow"})
	})

	status, err := e.ClusterHealth(t.Context())

	require.NoError(t, err)
	assert.Equal(t, "yellow", status)
}

func TestGenerationName_LexicalOrderIsChronological(t *testing.T) {
	e := &Engine{prefix: "catalog_products_v"}

	e.now = func() time.Time { return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) }
	first := e.GenerationName()
	assert.Equal(t, "catalog_products_v_20250310080000", first)

	e.now = func() time.Time { return time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC) }
	second := e.GenerationName()
	assert.Less(t, first, second)
}

func TestSwapAlias_AtomicActions(t *testing.T) {
	var actionsBody map[string]any
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/_alias/catalog_products":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"catalog_products_v_20250101000000": map[string]any{},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/_aliases":
			data, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(data, &actionsBody))
			_ = json.NewEncoder(w).Encode(map[string]any{"acknowledged": true})
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})

	err := e.SwapAlias(t.Context(), "catalog_products_v_20250310080000")

	require.NoError(t, err)
	actions := actionsBody["actions"].([]any)
	require.Len(t, actions, 2, "remove and add travel in one atomic request")
	remove := actions[0].(map[string]any)["remove"].(map[string]any)
	assert.Equal(t, "catalog_products_v_20250101000000", remove["index"])
	add := actions[1].(map[string]any)["add"].(map[string]any)
	assert.Equal(t, "catalog_products_v_20250310080000", add["index"])
	assert.Equal(t, "catalog_products", add["alias"])
}

func TestBulkIndex_CountsRejections(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "_bulk")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": true,
			"items": []any{
				map[string]any{"index": map[string]any{"_id": "p-1", "status": 201}},
				map[string]any{"index": map[string]any{
					"_id": "p-2", "status": 400,
					"error": map[string]any{"type": "mapper_parsing_exception", "reason": "bad field"},
				}},
			},
		})
	})

	failed, err := e.BulkIndex(t.Context(), "catalog_products_v_20250310080000", []domain.ProductDocument{
		{ID: "p-1", Name: "Кабель"},
		{ID: "p-2", Name: "Провод"},
	})

	require.NoError(t, err, "per-document rejections are not a request failure")
	assert.Equal(t, 1, failed)
}

func TestBulkIndex_EmptyBatch(t *testing.T) {
	e := &Engine{}
	failed, err := e.BulkIndex(t.Context(), "any", nil)
	require.NoError(t, err)
	assert.Zero(t, failed)
}
