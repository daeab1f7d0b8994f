package compound

import (
	"context"
	"sort"

	"github.com/turtacn/chemlite/pkg/types/chem"
)

// Resolver supplies compounds for identifiers that a pathway cannot resolve
// from its own index. Missing identifiers are simply absent from the result;
// an error means the lookup itself failed.
type Resolver interface {
	Resolve(ctx context.Context, ids []string) (map[string]*Compound, error)
}

// Repository is the persistent compound catalogue shared by all pathways.
//
// Error codes:
//   - FindByID: ErrCodeCompoundNotFound when absent.
//   - Delete: ErrCodeCompoundNotFound when absent.
//   - all methods: ErrCodeDatabaseError on storage failures.
type Repository interface {
	Resolver
	Save(ctx context.Context, c *Compound) error
	SaveBatch(ctx context.Context, compounds []*Compound) error
	FindByID(ctx context.Context, id string) (*Compound, error)
	FindByIDs(ctx context.Context, ids []string) ([]*Compound, error)
	Delete(ctx context.Context, id string) error
}

// SearchHit is one full-text match returned by a Searcher.
type SearchHit struct {
	Compound *Compound
	Score    float64
}

// Searcher indexes compounds for lookup by name, formula or InChIKey.
type Searcher interface {
	Index(ctx context.Context, compounds ...*Compound) error
	Remove(ctx context.Context, ids ...string) error
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

// MapResolver resolves identifiers from an in-memory set.
type MapResolver map[string]*Compound

// NewMapResolver indexes compounds by identifier.
func NewMapResolver(compounds ...*Compound) MapResolver {
	m := make(MapResolver, len(compounds))
	for _, c := range compounds {
		m[c.ID()] = c
	}
	return m
}

// Resolve implements Resolver.
func (m MapResolver) Resolve(_ context.Context, ids []string) (map[string]*Compound, error) {
	out := make(map[string]*Compound, len(ids))
	for _, id := range ids {
		if c, ok := m[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

// CompleteDocument appends to doc.Compounds the species that its reactions
// reference but its compound list lacks, as far as r can resolve them.
// Resolved compounds are appended in identifier order; unresolved species
// are left for the caller to report.
func CompleteDocument(ctx context.Context, r Resolver, doc *chem.PathwayDTO) error {
	if r == nil || doc == nil {
		return nil
	}
	known := make(map[string]struct{}, len(doc.Compounds))
	for _, c := range doc.Compounds {
		known[c.ID] = struct{}{}
	}
	var missing []string
	for _, rd := range doc.Reactions {
		for _, side := range []map[string]float64{rd.Reactants, rd.Products} {
			for sid := range side {
				if _, ok := known[sid]; !ok {
					known[sid] = struct{}{}
					missing = append(missing, sid)
				}
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	found, err := r.Resolve(ctx, missing)
	if err != nil {
		return err
	}
	for _, sid := range missing {
		if c, ok := found[sid]; ok {
			doc.Compounds = append(doc.Compounds, c.ToDTO())
		}
	}
	return nil
}
