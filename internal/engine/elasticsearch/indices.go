package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/velmart/catalog-search/internal/domain"
)

// generationTimeFormat is the timestamp suffix of generation names. Lexical
// order of the names is creation order.
const generationTimeFormat = "20060102150405"

// GenerationName derives a fresh private index name under the configured
// prefix. The generation stays invisible to search traffic until SwapAlias.
func (e *Engine) GenerationName() string {
	return fmt.Sprintf("%s_%s", e.prefix, e.now().UTC().Format(generationTimeFormat))
}

// CreateGeneration creates a new index with the product mapping.
func (e *Engine) CreateGeneration(ctx context.Context, name string) error {
	res, err := e.client.Indices.Create(
		name,
		e.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return decodeError(res.Body, res.Status(), "create index "+name)
	}

	e.logger.Info("index generation created", slog.String("index", name))
	return nil
}

// DeleteGeneration removes an index. A 404 is treated as success.
func (e *Engine) DeleteGeneration(ctx context.Context, name string) error {
	res, err := e.client.Indices.Delete(
		[]string{name},
		e.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != 404 {
		return decodeError(res.Body, res.Status(), "delete index "+name)
	}

	e.logger.Info("index generation deleted", slog.String("index", name))
	return nil
}

// ListGenerations returns every index under the generation prefix, oldest
// first. Creation time is parsed from the name suffix.
func (e *Engine) ListGenerations(ctx context.Context) ([]domain.IndexGeneration, error) {
	res, err := e.client.Indices.Get(
		[]string{e.prefix + "_*"},
		e.client.Indices.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		if res.StatusCode == 404 {
			return nil, nil
		}
		return nil, decodeError(res.Body, res.Status(), "list indices")
	}

	var indices map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&indices); err != nil {
		return nil, fmt.Errorf("list indices: decode response: %w", err)
	}

	generations := make([]domain.IndexGeneration, 0, len(indices))
	for name := range indices {
		gen := domain.IndexGeneration{Name: name}
		if suffix, ok := strings.CutPrefix(name, e.prefix+"_"); ok {
			if t, err := time.Parse(generationTimeFormat, suffix); err == nil {
				gen.CreatedAt = t
			}
		}
		generations = append(generations, gen)
	}
	sort.Slice(generations, func(i, j int) bool {
		return generations[i].Name < generations[j].Name
	})
	return generations, nil
}

// AliasedGenerations returns the index names the stable alias currently
// resolves to. An unassigned alias yields an empty list.
func (e *Engine) AliasedGenerations(ctx context.Context) ([]string, error) {
	res, err := e.client.Indices.GetAlias(
		e.client.Indices.GetAlias.WithName(e.alias),
		e.client.Indices.GetAlias.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("get alias %s: %w", e.alias, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		if res.StatusCode == 404 {
			return nil, nil
		}
		return nil, decodeError(res.Body, res.Status(), "get alias "+e.alias)
	}

	var holders map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&holders); err != nil {
		return nil, fmt.Errorf("get alias %s: decode response: %w", e.alias, err)
	}

	names := make([]string, 0, len(holders))
	for name := range holders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// SwapAlias cuts search traffic over to newIndex. The removal from every
// current holder and the addition of the new one happen in a single actions
// request, so the alias never resolves to zero or to both generations. When
// the atomic request fails, a plain alias-add is attempted before giving up;
// that accepts a brief multi-alias window over an outage.
func (e *Engine) SwapAlias(ctx context.Context, newIndex string) error {
	current, err := e.AliasedGenerations(ctx)
	if err != nil {
		return fmt.Errorf("swap alias: %w", err)
	}

	actions := make([]any, 0, len(current)+1)
	for _, holder := range current {
		actions = append(actions, map[string]any{
			"remove": map[string]any{"index": holder, "alias": e.alias},
		})
	}
	actions = append(actions, map[string]any{
		"add": map[string]any{"index": newIndex, "alias": e.alias},
	})

	body, err := json.Marshal(map[string]any{"actions": actions})
	if err != nil {
		return fmt.Errorf("swap alias: marshal actions: %w", err)
	}

	res, err := e.client.Indices.UpdateAliases(
		strings.NewReader(string(body)),
		e.client.Indices.UpdateAliases.WithContext(ctx),
	)
	if err == nil {
		defer func() { _ = res.Body.Close() }()
		if !res.IsError() {
			e.logger.Info("alias swapped",
				slog.String("alias", e.alias),
				slog.String("index", newIndex),
				slog.Any("previous", current),
			)
			return nil
		}
		err = decodeError(res.Body, res.Status(), "update aliases")
	}

	e.logger.Warn("atomic alias swap failed, trying plain alias add",
		slog.String("error", err.Error()),
	)
	return e.putAlias(ctx, newIndex)
}

// putAlias is the non-atomic fallback for SwapAlias.
func (e *Engine) putAlias(ctx context.Context, index string) error {
	res, err := e.client.Indices.PutAlias(
		[]string{index},
		e.alias,
		e.client.Indices.PutAlias.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("put alias %s on %s: %w", e.alias, index, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return decodeError(res.Body, res.Status(), "put alias "+e.alias)
	}

	e.logger.Info("alias added without removal",
		slog.String("alias", e.alias),
		slog.String("index", index),
	)
	return nil
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// BulkIndex writes docs into the named generation with the bulk NDJSON API.
// Individual document rejections are logged and counted; only a failure of
// the request itself is an error.
func (e *Engine) BulkIndex(ctx context.Context, index string, docs []domain.ProductDocument) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	for i := range docs {
		action := map[string]any{
			"index": map[string]any{"_index": index, "_id": docs[i].ID},
		}
		if err := enc.Encode(action); err != nil {
			return 0, fmt.Errorf("bulk index: encode action: %w", err)
		}
		if err := enc.Encode(&docs[i]); err != nil {
			return 0, fmt.Errorf("bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		strings.NewReader(buf.String()),
		e.client.Bulk.WithIndex(index),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return 0, decodeError(res.Body, res.Status(), "bulk index")
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return 0, fmt.Errorf("bulk index: decode response: %w", err)
	}

	failed := 0
	if bulkResp.Errors {
		for _, item := range bulkResp.Items {
			if item.Index.Error.Type != "" {
				failed++
				e.logger.Warn("document rejected during bulk load",
					slog.String("id", item.Index.ID),
					slog.String("type", item.Index.Error.Type),
					slog.String("reason", item.Index.Error.Reason),
				)
			}
		}
	}
	return failed, nil
}
