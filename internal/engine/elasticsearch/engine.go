package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/velmart/catalog-search/internal/domain"
)

// scoreFloor excludes near-zero-relevance hits that only the fuzzy clause
// produced.
const scoreFloor = 1.0

// Config holds the engine connection settings. Alias is the stable name
// search traffic resolves; Prefix namespaces the versioned generations
// underneath it.
type Config struct {
	URL            string
	Alias          string
	Prefix         string
	RequestTimeout time.Duration
}

// Engine is the Elasticsearch-backed primary search engine. One Engine is
// constructed per process and shared by reference; its lifetime is owned by
// the composition root.
type Engine struct {
	client  *elasticsearch.Client
	alias   string
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score     float64                `json:"_score"`
			Source    domain.ProductDocument `json:"_source"`
			Highlight map[string][]string    `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an engine around the given Elasticsearch URL.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Engine{
		client:  client,
		alias:   cfg.Alias,
		prefix:  cfg.Prefix,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Ping checks that the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// ClusterHealth returns the cluster status string (green/yellow/red).
func (e *Engine) ClusterHealth(ctx context.Context) (string, error) {
	res, err := e.client.Cluster.Health(e.client.Cluster.Health.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("elasticsearch health: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return "", fmt.Errorf("elasticsearch health: unexpected status %s", res.Status())
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		return "", fmt.Errorf("elasticsearch health: decode response: %w", err)
	}
	return health.Status, nil
}

// normalizeQuery replaces the Cyrillic letter х with the Latin x so that
// dimension codes like "3х2.5" match however they were typed.
func normalizeQuery(q string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case 'х':
			return 'x'
		case 'Х':
			return 'X'
		}
		return r
	}, q)
}

// Search executes the boosted multi-clause query against the stable alias.
// The call is bounded by the configured request timeout; on timeout the
// in-flight request is abandoned and the error surfaces to the caller.
func (e *Engine) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body := e.buildSearchBody(req)
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.alias),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, decodeError(res.Body, res.Status(), "elasticsearch search")
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	products := make([]domain.ProductSummary, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		summary := hit.Source.Summary()
		summary.Score = hit.Score
		if len(hit.Highlight) > 0 {
			summary.Highlight = make(map[string]string, len(hit.Highlight))
			for field, fragments := range hit.Highlight {
				if len(fragments) > 0 {
					summary.Highlight[field] = fragments[0]
				}
			}
		}
		products = append(products, summary)
	}

	return &domain.SearchResult{
		Products: products,
		Total:    esResp.Hits.Total.Value,
		Page:     req.Page,
		Limit:    req.Limit,
		Source:   domain.SourcePrimary,
	}, nil
}

// buildSearchBody constructs the query DSL for a clamped request.
func (e *Engine) buildSearchBody(req *domain.SearchRequest) map[string]any {
	body := map[string]any{
		"from":             (req.Page - 1) * req.Limit,
		"size":             req.Limit,
		"track_total_hits": true,
	}

	query := normalizeQuery(strings.TrimSpace(req.Query))
	if query == "" {
		body["query"] = map[string]any{"match_all": map[string]any{}}
		body["sort"] = buildSort(req.Sort, false)
		return body
	}

	should := []any{
		map[string]any{"term": map[string]any{
			"external_id": map[string]any{"value": query, "boost": 100},
		}},
		map[string]any{"term": map[string]any{
			"sku": map[string]any{"value": query, "boost": 90},
		}},
		map[string]any{"prefix": map[string]any{
			"external_id": map[string]any{"value": query, "boost": 50},
		}},
		map[string]any{"match_phrase": map[string]any{
			"name": map[string]any{"query": query, "slop": 1, "boost": 30},
		}},
		map[string]any{"match": map[string]any{
			"name": map[string]any{"query": query, "fuzziness": "AUTO", "boost": 10},
		}},
		map[string]any{"match": map[string]any{
			"brand_name": map[string]any{"query": query, "boost": 5},
		}},
	}

	body["query"] = map[string]any{
		"bool": map[string]any{
			"should":               should,
			"minimum_should_match": 1,
		},
	}
	body["min_score"] = scoreFloor
	body["highlight"] = map[string]any{
		"fields": map[string]any{
			"name":        map[string]any{"number_of_fragments": 0},
			"external_id": map[string]any{"number_of_fragments": 0},
			"sku":         map[string]any{"number_of_fragments": 0},
		},
	}
	body["sort"] = buildSort(req.Sort, true)

	return body
}

// buildSort returns the sort clause. While searching, relevance means score
// descending with the document id as a stable tiebreak; explicit sorts
// override scoring entirely.
func buildSort(sortBy string, searching bool) []any {
	switch sortBy {
	case domain.SortName:
		return []any{map[string]any{"name.keyword": "asc"}}
	case domain.SortExternalID:
		return []any{map[string]any{"external_id": "asc"}}
	case domain.SortPopularity:
		return []any{map[string]any{"popularity": "desc"}}
	default:
		if searching {
			return []any{
				map[string]any{"_score": "desc"},
				map[string]any{"id": "asc"},
			}
		}
		return []any{map[string]any{"name.keyword": "asc"}}
	}
}

// IndexDocument upserts one document through the stable alias, used by the
// incremental event path.
func (e *Engine) IndexDocument(ctx context.Context, doc *domain.ProductDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal document: %w", err)
	}

	res, err := e.client.Index(
		e.alias,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(doc.ID),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return decodeError(res.Body, res.Status(), "elasticsearch index")
	}

	e.logger.Debug("indexed document", "id", doc.ID, "name", doc.Name)
	return nil
}

// DeleteDocument removes a document by id through the stable alias. A 404 is
// not an error.
func (e *Engine) DeleteDocument(ctx context.Context, id string) error {
	res, err := e.client.Delete(
		e.alias,
		id,
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != 404 {
		return decodeError(res.Body, res.Status(), "elasticsearch delete")
	}

	e.logger.Debug("deleted document", "id", id)
	return nil
}

func decodeError(body io.Reader, status, op string) error {
	var errResp esErrorResponse
	if decErr := json.NewDecoder(body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, status)
}
