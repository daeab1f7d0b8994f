package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/chemlite/internal/domain/pathway"
	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
	"github.com/turtacn/chemlite/pkg/types/common"
)

// MemoryPathwayRepository is an in-memory pathway.Repository that stores
// documents, so loaded pathways never alias each other.
type MemoryPathwayRepository struct {
	mu    sync.Mutex
	docs  map[string]*chem.PathwayDTO
	Saves int
}

var _ pathway.Repository = (*MemoryPathwayRepository)(nil)

func NewMemoryPathwayRepository() *MemoryPathwayRepository {
	return &MemoryPathwayRepository{docs: make(map[string]*chem.PathwayDTO)}
}

func (r *MemoryPathwayRepository) Save(_ context.Context, p *pathway.Pathway) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, exists := r.docs[p.ID()]
	switch {
	case p.Version() == 0 && exists:
		return errors.Duplicate("pathway", p.ID())
	case p.Version() > 0 && (!exists || stored.Version != p.Version()):
		return errors.New(errors.ErrCodeVersionConflict, "pathway was modified concurrently").
			WithDetail("pathway_id=" + p.ID())
	}
	p.MarkPersisted(p.Version()+1, time.Now().UTC())
	r.docs[p.ID()] = p.ToDTO()
	r.Saves++
	return nil
}

func (r *MemoryPathwayRepository) FindByID(_ context.Context, id string) (*pathway.Pathway, error) {
	r.mu.Lock()
	doc, ok := r.docs[id]
	r.mu.Unlock()
	if !ok {
		return nil, errors.New(errors.ErrCodePathwayNotFound, "pathway not found").WithDetail("pathway_id=" + id)
	}
	return pathway.FromDTO(doc)
}

func (r *MemoryPathwayRepository) List(_ context.Context, page common.Pagination) ([]chem.PathwaySummary, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]chem.PathwaySummary, 0, page.PageSize)
	for i := page.Offset(); i < len(ids) && len(out) < page.PageSize; i++ {
		d := r.docs[ids[i]]
		out = append(out, chem.PathwaySummary{
			ID:            d.ID,
			Name:          d.Name,
			ReactionCount: len(d.Reactions),
			CompoundCount: len(d.Compounds),
			Version:       d.Version,
			UpdatedAt:     d.UpdatedAt,
		})
	}
	return out, int64(len(ids)), nil
}

func (r *MemoryPathwayRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return errors.New(errors.ErrCodePathwayNotFound, "pathway not found").WithDetail("pathway_id=" + id)
	}
	delete(r.docs, id)
	return nil
}

func (r *MemoryPathwayRepository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.docs[id]
	return ok, nil
}

// Put stores a document directly, bypassing version checks.
func (r *MemoryPathwayRepository) Put(doc *chem.PathwayDTO) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
}
