package opensearch

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/turtacn/chemlite/internal/domain/compound"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/errors"
)

// searchQuery matches the query text against names, and exactly against
// identifiers, formulas and InChIKeys. Exact hits score higher.
func searchQuery(q string, limit int) map[string]any {
	exact := strings.TrimSpace(q)
	return map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{"term": map[string]any{"id": map[string]any{"value": exact, "boost": 10}}},
					map[string]any{"term": map[string]any{"inchikey": map[string]any{"value": strings.ToUpper(exact), "boost": 8}}},
					map[string]any{"term": map[string]any{"formula": map[string]any{"value": exact, "boost": 5}}},
					map[string]any{"term": map[string]any{"name.raw": map[string]any{"value": strings.ToLower(exact), "boost": 4}}},
					map[string]any{"match": map[string]any{"name": map[string]any{"query": q, "fuzziness": "AUTO"}}},
				},
				"minimum_should_match": 1,
			},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string           `json:"_id"`
			Score  float64          `json:"_score"`
			Source compoundDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search returns at most limit compounds ordered by relevance.
func (i *CompoundIndexer) Search(ctx context.Context, query string, limit int) ([]compound.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.InvalidParam("search query must not be empty")
	}
	if limit <= 0 {
		limit = 20
	}

	status, body, err := i.client.do(ctx, http.MethodPost, "/"+i.index+"/_search", searchQuery(query, limit))
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return []compound.SearchHit{}, nil
	}
	if status >= 300 {
		return nil, errorResponse(status, body, "search request failed")
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode search response")
	}
	hits := make([]compound.SearchHit, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		doc := h.Source
		if doc.ID == "" {
			doc.ID = h.ID
		}
		c, err := compound.New(doc.ID,
			compound.WithName(doc.Name),
			compound.WithFormula(doc.Formula),
			compound.WithSMILES(doc.SMILES),
			compound.WithInChI(doc.InChI),
			compound.WithInChIKey(doc.InChIKey))
		if err != nil {
			i.logger.Warn("skipping malformed hit", logging.String("id", h.ID), logging.Err(err))
			continue
		}
		hits = append(hits, compound.SearchHit{Compound: c, Score: h.Score})
	}
	i.logger.Debug("compound search", logging.String("query", query), logging.Int("hits", len(hits)))
	return hits, nil
}
