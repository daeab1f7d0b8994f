package pathway

import (
	"context"

	"github.com/turtacn/chemlite/pkg/types/chem"
	"github.com/turtacn/chemlite/pkg/types/common"
)

// Repository persists pathways as whole documents.
//
// Save inserts when the pathway's version is 0 and otherwise updates only if
// the stored version still matches, failing with ErrCodeVersionConflict. On
// success the pathway is marked with the new version. FindByID and Delete fail
// with ErrCodePathwayNotFound for unknown identifiers.
type Repository interface {
	Save(ctx context.Context, p *Pathway) error
	FindByID(ctx context.Context, id string) (*Pathway, error)
	List(ctx context.Context, page common.Pagination) ([]chem.PathwaySummary, int64, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

// GraphProjection mirrors pathways into a graph store for traversal queries.
type GraphProjection interface {
	Project(ctx context.Context, p *Pathway) error
	Remove(ctx context.Context, pathwayID string) error
	Downstream(ctx context.Context, pathwayID, compoundID string, depth int) ([]string, error)
	Upstream(ctx context.Context, pathwayID, compoundID string, depth int) ([]string, error)
}
