package opensearch

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/chemlite/pkg/errors"
)

func TestSearch_ParsesHits(t *testing.T) {
	fc := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		w.Write([]byte(`{"hits":{"hits":[
			{"_id":"glc","_score":12.5,"_source":{"id":"glc","name":"glucose","formula":"C6H12O6"}},
			{"_id":"g6p","_score":3.1,"_source":{"name":"glucose 6-phosphate"}}]}}`))
	})

	hits, err := fc.indexer(t).Search(context.Background(), "glucose", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "glc", hits[0].Compound.ID())
	assert.Equal(t, "C6H12O6", hits[0].Compound.Formula())
	assert.Equal(t, 12.5, hits[0].Score)
	assert.Equal(t, "g6p", hits[1].Compound.ID())

	req := fc.last()
	assert.Equal(t, "/"+DefaultIndex+"/_search", req.Path)
	var q map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &q))
	assert.Equal(t, float64(5), q["size"])
}

func TestSearch_MissingIndexIsEmpty(t *testing.T) {
	fc := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"index_not_found_exception","reason":"no such index"}}`))
	})
	hits, err := fc.indexer(t).Search(context.Background(), "atp", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_RejectsBlankQuery(t *testing.T) {
	fc := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		t.Fatal("no request expected")
	})
	_, err := fc.indexer(t).Search(context.Background(), "  ", 10)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSearchQuery_Shape(t *testing.T) {
	q := searchQuery(" lctonwcanyupml-uhfffaoysa-m ", 7)
	assert.Equal(t, 7, q["size"])
	should := q["query"].(map[string]any)["bool"].(map[string]any)["should"].([]any)
	require.Len(t, should, 5)
	term := should[1].(map[string]any)["term"].(map[string]any)["inchikey"].(map[string]any)
	assert.Equal(t, "LCTONWCANYUPML-UHFFFAOYSA-M", term["value"])
}
