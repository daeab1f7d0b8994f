package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/turtacn/chemlite/internal/domain/compound"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/errors"
)

// DefaultIndex is used when the search config names no index.
const DefaultIndex = "chemlite-compounds"

// compoundMapping analyses names as text and keeps identifiers exact. The
// formula is also kept as a keyword so "C6H12O6" matches whole.
var compoundMapping = map[string]any{
	"settings": map[string]any{
		"number_of_shards":   1,
		"number_of_replicas": 0,
	},
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":       map[string]any{"type": "keyword"},
			"name":     map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword", "normalizer": "lowercase"}}},
			"formula":  map[string]any{"type": "keyword"},
			"smiles":   map[string]any{"type": "keyword", "index": false},
			"inchi":    map[string]any{"type": "keyword", "index": false},
			"inchikey": map[string]any{"type": "keyword"},
		},
	},
}

// compoundDocument is the indexed source of one compound.
type compoundDocument struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Formula  string `json:"formula,omitempty"`
	SMILES   string `json:"smiles,omitempty"`
	InChI    string `json:"inchi,omitempty"`
	InChIKey string `json:"inchikey,omitempty"`
}

func documentFor(c *compound.Compound) compoundDocument {
	return compoundDocument{
		ID:       c.ID(),
		Name:     c.Name(),
		Formula:  c.Formula(),
		SMILES:   c.SMILES(),
		InChI:    c.InChI(),
		InChIKey: c.InChIKey(),
	}
}

// CompoundIndexer implements compound.Searcher on one index.
type CompoundIndexer struct {
	client  *Client
	index   string
	refresh string
	logger  logging.Logger
}

var _ compound.Searcher = (*CompoundIndexer)(nil)

// NewCompoundIndexer binds the indexer to index. Writes use refresh=false
// unless WithRefresh is applied.
func NewCompoundIndexer(client *Client, index string, logger logging.Logger) *CompoundIndexer {
	if index == "" {
		index = DefaultIndex
	}
	return &CompoundIndexer{client: client, index: index, refresh: "false", logger: logger}
}

// WithRefresh sets the refresh policy of bulk writes ("true", "false" or
// "wait_for").
func (i *CompoundIndexer) WithRefresh(policy string) *CompoundIndexer {
	i.refresh = policy
	return i
}

// EnsureIndex creates the index with its mapping when missing.
func (i *CompoundIndexer) EnsureIndex(ctx context.Context) error {
	status, _, err := i.client.do(ctx, http.MethodHead, "/"+i.index, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return errorResponse(status, nil, "failed to check index")
	}

	status, body, err := i.client.do(ctx, http.MethodPut, "/"+i.index, compoundMapping)
	if err != nil {
		return err
	}
	if status >= 300 {
		// Another replica may have won the race.
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return errorResponse(status, body, "failed to create index")
	}
	i.logger.Info("index created", logging.String("index", i.index))
	return nil
}

// Index upserts compounds by id in one bulk request.
func (i *CompoundIndexer) Index(ctx context.Context, compounds ...*compound.Compound) error {
	if len(compounds) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, c := range compounds {
		if c == nil {
			continue
		}
		meta := map[string]any{"index": map[string]any{"_index": i.index, "_id": c.ID()}}
		if err := enc.Encode(meta); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode bulk action")
		}
		if err := enc.Encode(documentFor(c)); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode compound")
		}
	}
	return i.bulk(ctx, buf.Bytes(), len(compounds))
}

// Remove deletes compounds by id. Unknown ids are ignored.
func (i *CompoundIndexer) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, id := range ids {
		meta := map[string]any{"delete": map[string]any{"_index": i.index, "_id": id}}
		if err := enc.Encode(meta); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode bulk action")
		}
	}
	return i.bulk(ctx, buf.Bytes(), len(ids))
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

func (i *CompoundIndexer) bulk(ctx context.Context, body []byte, count int) error {
	path := "/_bulk?" + url.Values{"refresh": {i.refresh}}.Encode()
	status, resp, err := i.client.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if status >= 300 {
		return errorResponse(status, resp, "bulk request failed")
	}

	var br bulkResponse
	if err := json.Unmarshal(resp, &br); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode bulk response")
	}
	if !br.Errors {
		i.logger.Debug("bulk applied", logging.String("index", i.index), logging.Int("count", count))
		return nil
	}

	var failed []string
	for _, item := range br.Items {
		for action, res := range item {
			// Deleting an absent document is not a failure.
			if action == "delete" && res.Status == http.StatusNotFound {
				continue
			}
			if res.Error != nil {
				failed = append(failed, res.ID+": "+res.Error.Type)
			}
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeExternalService, "bulk request partially failed").
		WithDetail(strings.Join(failed, "; "))
}
