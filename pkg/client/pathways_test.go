package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/chemlite/pkg/types/chem"
)

type recorded struct {
	method string
	path   string
	query  map[string][]string
	body   []byte
}

// envelopeServer answers every request with data wrapped in the API
// envelope and records what it received.
func envelopeServer(t *testing.T, status int, data interface{}) (*PathwaysClient, *recorded) {
	t.Helper()
	rec := &recorded{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.Query()
		rec.body, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
	})
	return c.Pathways(), rec
}

func samplePathway() *chem.PathwayDTO {
	return &chem.PathwayDTO{
		ID:   "glycolysis",
		Name: "Glycolysis",
		Reactions: []chem.ReactionDTO{{
			ID:        "hk",
			Reactants: map[string]float64{"glc": 1, "atp": 1},
			Products:  map[string]float64{"g6p": 1, "adp": 1},
		}},
		Compounds: []chem.CompoundDTO{{ID: "adp"}, {ID: "atp"}, {ID: "g6p"}, {ID: "glc"}},
		Version:   1,
	}
}

func TestPathways_Create(t *testing.T) {
	p, rec := envelopeServer(t, http.StatusCreated, samplePathway())

	out, err := p.Create(context.Background(), samplePathway())
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/v1/pathways", rec.path)
	assert.Equal(t, "glycolysis", out.ID)
	assert.Len(t, out.Reactions, 1)

	var sent chem.PathwayDTO
	require.NoError(t, json.Unmarshal(rec.body, &sent))
	assert.Equal(t, "Glycolysis", sent.Name)
}

func TestPathways_CreateNil(t *testing.T) {
	c, _ := NewClient("http://localhost")
	_, err := c.Pathways().Create(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPathways_Get(t *testing.T) {
	p, rec := envelopeServer(t, http.StatusOK, samplePathway())

	out, err := p.Get(context.Background(), "glycolysis")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/pathways/glycolysis", rec.path)
	assert.Equal(t, 1, out.Version)
}

func TestPathways_Render(t *testing.T) {
	var accept, format string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		format = r.URL.Query().Get("format")
		w.Write([]byte("hk: atp + glc --> adp + g6p\n"))
	})

	text, err := c.Pathways().Render(context.Background(), "glycolysis")
	require.NoError(t, err)
	assert.Equal(t, "text", format)
	assert.Equal(t, "text/plain", accept)
	assert.Equal(t, "hk: atp + glc --> adp + g6p\n", text)
}

func TestPathways_List(t *testing.T) {
	var query map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{"success":true,"data":[{"id":"a","reaction_count":2,"compound_count":3,"version":1}],` +
			`"pagination":{"page":2,"page_size":10,"total":11}}`))
	})

	page, err := c.Pathways().List(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, query["page"])
	assert.Equal(t, []string{"10"}, query["page_size"])
	require.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Items[0].ReactionCount)
	assert.Equal(t, int64(11), page.Total)
	assert.Equal(t, 2, page.Page)
}

func TestPathways_ListDefaults(t *testing.T) {
	p, rec := envelopeServer(t, http.StatusOK, []chem.PathwaySummary{})

	page, err := p.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, rec.query)
	assert.Empty(t, page.Items)
}

func TestPathways_Delete(t *testing.T) {
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Pathways().Delete(context.Background(), "glycolysis"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/api/v1/pathways/glycolysis", path)
}

func TestPathways_ReactionEdits(t *testing.T) {
	ctx := context.Background()
	req := &chem.ReactionRequest{Reaction: chem.ReactionDTO{
		ID:        "pgi",
		Reactants: map[string]float64{"g6p": 1},
		Products:  map[string]float64{"f6p": 1},
	}}

	p, rec := envelopeServer(t, http.StatusCreated, samplePathway())
	_, err := p.AddReaction(ctx, "glycolysis", req)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/v1/pathways/glycolysis/reactions", rec.path)

	_, err = p.ReplaceReaction(ctx, "glycolysis", req)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/api/v1/pathways/glycolysis/reactions/pgi", rec.path)

	_, err = p.DeleteReaction(ctx, "glycolysis", "pgi", true)
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, rec.method)
	assert.Equal(t, []string{"true"}, rec.query["prune"])

	_, err = p.DeleteReaction(ctx, "glycolysis", "pgi", false)
	require.NoError(t, err)
	assert.NotContains(t, rec.query, "prune")
}

func TestPathways_ReplaceReactionNeedsID(t *testing.T) {
	c, _ := NewClient("http://localhost")
	_, err := c.Pathways().ReplaceReaction(context.Background(), "glycolysis", &chem.ReactionRequest{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPathways_ScaleAndRename(t *testing.T) {
	ctx := context.Background()
	p, rec := envelopeServer(t, http.StatusOK, samplePathway())

	_, err := p.Scale(ctx, "glycolysis", "hk", 2)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/pathways/glycolysis/reactions/hk/scale", rec.path)
	assert.JSONEq(t, `{"factor":2}`, string(rec.body))

	_, err = p.Rename(ctx, "glycolysis", "glc", "glucose")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/pathways/glycolysis/compounds/rename", rec.path)
	assert.JSONEq(t, `{"old_id":"glc","new_id":"glucose"}`, string(rec.body))
}

func TestPathways_NetAndPseudo(t *testing.T) {
	ctx := context.Background()
	net := chem.NetDTO{Equation: "glc --> g6p"}
	p, rec := envelopeServer(t, http.StatusOK, net)

	out, err := p.Net(ctx, "glycolysis", "hk", "pgi")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/pathways/glycolysis/net", rec.path)
	assert.Equal(t, []string{"hk", "pgi"}, rec.query["rxn"])
	assert.Equal(t, "glc --> g6p", out.Equation)

	_, err = p.Pseudo(ctx, "glycolysis")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/pathways/glycolysis/pseudo", rec.path)
	assert.Empty(t, rec.query)
}

func TestPathways_Matrix(t *testing.T) {
	m := chem.MatrixDTO{Species: []string{"a", "b"}, Reactions: []string{"r1"}, Values: [][]float64{{-1}, {1}}}
	p, rec := envelopeServer(t, http.StatusOK, m)

	out, err := p.Matrix(context.Background(), "glycolysis")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/pathways/glycolysis/matrix", rec.path)
	assert.Equal(t, m, *out)
}

func TestPathways_SMILES(t *testing.T) {
	p, rec := envelopeServer(t, http.StatusOK, map[string]string{"reaction": "hk", "smiles": "C>>O"})

	s, err := p.SMILES(context.Background(), "glycolysis", "hk")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/pathways/glycolysis/reactions/hk/smiles", rec.path)
	assert.Equal(t, "C>>O", s)
}

func TestPathways_Trace(t *testing.T) {
	ctx := context.Background()
	p, rec := envelopeServer(t, http.StatusOK, []string{"hk", "pgi"})

	ids, err := p.Trace(ctx, "glycolysis", "glc", TraceOptions{Depth: 4})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/pathways/glycolysis/compounds/glc/trace", rec.path)
	assert.Equal(t, []string{"down"}, rec.query["direction"])
	assert.Equal(t, []string{"4"}, rec.query["depth"])
	assert.Equal(t, []string{"hk", "pgi"}, ids)

	_, err = p.Trace(ctx, "glycolysis", "g6p", TraceOptions{Upstream: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"up"}, rec.query["direction"])
	assert.NotContains(t, rec.query, "depth")
}

func TestPathways_Snapshots(t *testing.T) {
	ctx := context.Background()
	info := chem.SnapshotInfo{PathwayID: "glycolysis", Version: 3, Key: "pathways/glycolysis/v3.json", Size: 512}

	p, rec := envelopeServer(t, http.StatusCreated, info)
	out, err := p.Snapshot(ctx, "glycolysis")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, 3, out.Version)

	p, rec = envelopeServer(t, http.StatusOK, []chem.SnapshotInfo{info})
	list, err := p.Snapshots(ctx, "glycolysis")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/v1/pathways/glycolysis/snapshots", rec.path)
	assert.Len(t, list, 1)
}

func TestPathways_SearchCompounds(t *testing.T) {
	hits := []chem.CompoundHit{{Compound: chem.CompoundDTO{ID: "glc", Name: "glucose"}, Score: 1.5}}
	p, rec := envelopeServer(t, http.StatusOK, hits)

	out, err := p.SearchCompounds(context.Background(), "gluc", 5)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/compounds/search", rec.path)
	assert.Equal(t, []string{"gluc"}, rec.query["q"])
	assert.Equal(t, []string{"5"}, rec.query["limit"])
	assert.Equal(t, hits, out)
}

func TestPathways_PathEscaping(t *testing.T) {
	p, rec := envelopeServer(t, http.StatusOK, samplePathway())

	_, err := p.Get(context.Background(), "a b")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/pathways/a b", rec.path)
}

func TestPathways_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":{"code":"CHEM_004","message":"pathway not found"}}`))
	})

	_, err := c.Pathways().Get(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}
