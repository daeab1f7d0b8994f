package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/turtacn/chemlite/pkg/types/chem"
)

const apiPrefix = "/api/v1"

// PathwaysClient calls the /pathways and /compounds endpoints.
type PathwaysClient struct {
	client *Client
}

// PathwayPage is one page of List results.
type PathwayPage struct {
	Items    []chem.PathwaySummary
	Page     int
	PageSize int
	Total    int64
}

// TraceOptions selects the direction and depth of a compound trace. Depth
// zero lets the server pick its default.
type TraceOptions struct {
	Upstream bool
	Depth    int
}

func pathwayPath(id string, parts ...string) string {
	p := apiPrefix + "/pathways/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// Create stores a new pathway document and returns it with its version.
func (p *PathwaysClient) Create(ctx context.Context, doc *chem.PathwayDTO) (*chem.PathwayDTO, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: pathway document required", ErrInvalidConfig)
	}
	var out chem.PathwayDTO
	if _, err := p.client.do(ctx, http.MethodPost, apiPrefix+"/pathways", doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a pathway document.
func (p *PathwaysClient) Get(ctx context.Context, id string) (*chem.PathwayDTO, error) {
	var out chem.PathwayDTO
	if _, err := p.client.do(ctx, http.MethodGet, pathwayPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Render fetches the human-readable text form of a pathway.
func (p *PathwaysClient) Render(ctx context.Context, id string) (string, error) {
	raw, err := p.client.doRaw(ctx, http.MethodGet, pathwayPath(id)+"?format=text", nil, "text/plain")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// List returns one page of pathway summaries. Non-positive page or pageSize
// fall back to the server defaults.
func (p *PathwaysClient) List(ctx context.Context, page, pageSize int) (*PathwayPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	path := apiPrefix + "/pathways"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var items []chem.PathwaySummary
	pg, err := p.client.do(ctx, http.MethodGet, path, nil, &items)
	if err != nil {
		return nil, err
	}
	out := &PathwayPage{Items: items}
	if pg != nil {
		out.Page, out.PageSize, out.Total = pg.Page, pg.PageSize, pg.Total
	}
	return out, nil
}

// Delete removes a pathway.
func (p *PathwaysClient) Delete(ctx context.Context, id string) error {
	_, err := p.client.do(ctx, http.MethodDelete, pathwayPath(id), nil, nil)
	return err
}

// AddReaction appends a reaction, with any new compounds it needs.
func (p *PathwaysClient) AddReaction(ctx context.Context, id string, req *chem.ReactionRequest) (*chem.PathwayDTO, error) {
	var out chem.PathwayDTO
	if _, err := p.client.do(ctx, http.MethodPost, pathwayPath(id, "reactions"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReplaceReaction replaces the reaction whose identifier is req.Reaction.ID.
func (p *PathwaysClient) ReplaceReaction(ctx context.Context, id string, req *chem.ReactionRequest) (*chem.PathwayDTO, error) {
	if req == nil || req.Reaction.ID == "" {
		return nil, fmt.Errorf("%w: reaction id required", ErrInvalidConfig)
	}
	var out chem.PathwayDTO
	path := pathwayPath(id, "reactions", url.PathEscape(req.Reaction.ID))
	if _, err := p.client.do(ctx, http.MethodPut, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteReaction removes a reaction; prune also drops compounds no reaction
// uses anymore.
func (p *PathwaysClient) DeleteReaction(ctx context.Context, id, reactionID string, prune bool) (*chem.PathwayDTO, error) {
	path := pathwayPath(id, "reactions", url.PathEscape(reactionID))
	if prune {
		path += "?prune=true"
	}
	var out chem.PathwayDTO
	if _, err := p.client.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scale multiplies every coefficient of a reaction by factor.
func (p *PathwaysClient) Scale(ctx context.Context, id, reactionID string, factor float64) (*chem.PathwayDTO, error) {
	body := map[string]float64{"factor": factor}
	var out chem.PathwayDTO
	path := pathwayPath(id, "reactions", url.PathEscape(reactionID), "scale")
	if _, err := p.client.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rename renames a compound throughout the pathway.
func (p *PathwaysClient) Rename(ctx context.Context, id, oldID, newID string) (*chem.PathwayDTO, error) {
	body := chem.RenameCompoundRequest{OldID: oldID, NewID: newID}
	var out chem.PathwayDTO
	if _, err := p.client.do(ctx, http.MethodPost, pathwayPath(id, "compounds", "rename"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func reactionQuery(reactionIDs []string) string {
	if len(reactionIDs) == 0 {
		return ""
	}
	return "?" + url.Values{"rxn": reactionIDs}.Encode()
}

// Net sums the given reactions, or all of them when reactionIDs is empty.
func (p *PathwaysClient) Net(ctx context.Context, id string, reactionIDs ...string) (*chem.NetDTO, error) {
	var out chem.NetDTO
	if _, err := p.client.do(ctx, http.MethodGet, pathwayPath(id, "net")+reactionQuery(reactionIDs), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pseudo returns the boundary exchange of the given reactions, or of all of
// them when reactionIDs is empty.
func (p *PathwaysClient) Pseudo(ctx context.Context, id string, reactionIDs ...string) (*chem.BalanceDTO, error) {
	var out chem.BalanceDTO
	if _, err := p.client.do(ctx, http.MethodGet, pathwayPath(id, "pseudo")+reactionQuery(reactionIDs), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Matrix returns the stoichiometric matrix.
func (p *PathwaysClient) Matrix(ctx context.Context, id string) (*chem.MatrixDTO, error) {
	var out chem.MatrixDTO
	if _, err := p.client.do(ctx, http.MethodGet, pathwayPath(id, "matrix"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SMILES returns the reaction SMILES of one reaction.
func (p *PathwaysClient) SMILES(ctx context.Context, id, reactionID string) (string, error) {
	var out struct {
		SMILES string `json:"smiles"`
	}
	path := pathwayPath(id, "reactions", url.PathEscape(reactionID), "smiles")
	if _, err := p.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.SMILES, nil
}

// Trace lists the compounds reachable from compoundID in the pathway graph.
func (p *PathwaysClient) Trace(ctx context.Context, id, compoundID string, opts TraceOptions) ([]string, error) {
	q := url.Values{}
	if opts.Upstream {
		q.Set("direction", "up")
	} else {
		q.Set("direction", "down")
	}
	if opts.Depth > 0 {
		q.Set("depth", strconv.Itoa(opts.Depth))
	}
	var out []string
	path := pathwayPath(id, "compounds", url.PathEscape(compoundID), "trace") + "?" + q.Encode()
	if _, err := p.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot archives the current version of a pathway.
func (p *PathwaysClient) Snapshot(ctx context.Context, id string) (*chem.SnapshotInfo, error) {
	var out chem.SnapshotInfo
	if _, err := p.client.do(ctx, http.MethodPost, pathwayPath(id, "snapshots"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Snapshots lists the archived versions of a pathway.
func (p *PathwaysClient) Snapshots(ctx context.Context, id string) ([]chem.SnapshotInfo, error) {
	var out []chem.SnapshotInfo
	if _, err := p.client.do(ctx, http.MethodGet, pathwayPath(id, "snapshots"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchCompounds runs a full-text compound search. A zero limit uses the
// server default.
func (p *PathwaysClient) SearchCompounds(ctx context.Context, query string, limit int) ([]chem.CompoundHit, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []chem.CompoundHit
	if _, err := p.client.do(ctx, http.MethodGet, apiPrefix+"/compounds/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
