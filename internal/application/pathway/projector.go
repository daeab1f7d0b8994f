package pathway

import (
	"context"

	"github.com/turtacn/chemlite/internal/domain/compound"
	domain "github.com/turtacn/chemlite/internal/domain/pathway"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/errors"
)

// Projector keeps the read-side projections (reaction graph, compound search
// index) in step with stored pathways. The worker drives it from bus events.
type Projector struct {
	repo     domain.Repository
	graph    domain.GraphProjection
	searcher compound.Searcher
	logger   logging.Logger
}

// NewProjector creates a Projector. graph and searcher may be nil.
func NewProjector(repo domain.Repository, graph domain.GraphProjection, searcher compound.Searcher, logger logging.Logger) *Projector {
	return &Projector{repo: repo, graph: graph, searcher: searcher, logger: logger}
}

// Handle applies one pathway event by type. Unknown types are ignored.
func (p *Projector) Handle(ctx context.Context, eventType, pathwayID string) error {
	switch eventType {
	case domain.EventPathwayDeleted:
		return p.Remove(ctx, pathwayID)
	case domain.EventPathwayCreated,
		domain.EventReactionAdded,
		domain.EventReactionDeleted,
		domain.EventReactionReplaced,
		domain.EventCompoundRenamed:
		return p.Refresh(ctx, pathwayID)
	default:
		p.logger.Debug("ignoring event", logging.String("event_type", eventType))
		return nil
	}
}

// Refresh re-projects the stored state of one pathway. A pathway deleted
// since the event was emitted is removed instead.
func (p *Projector) Refresh(ctx context.Context, pathwayID string) error {
	pw, err := p.repo.FindByID(ctx, pathwayID)
	if errors.IsNotFound(err) {
		return p.Remove(ctx, pathwayID)
	}
	if err != nil {
		return err
	}
	if p.graph != nil {
		if err := p.graph.Project(ctx, pw); err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "graph projection failed")
		}
	}
	if p.searcher != nil {
		if err := p.searcher.Index(ctx, pw.Compounds()...); err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "compound indexing failed")
		}
	}
	p.logger.Debug("pathway projected",
		logging.String("pathway_id", pathwayID),
		logging.Int("version", pw.Version()))
	return nil
}

// Remove drops a pathway from the graph. Indexed compounds stay searchable
// since the catalogue outlives any one pathway.
func (p *Projector) Remove(ctx context.Context, pathwayID string) error {
	if p.graph == nil {
		return nil
	}
	if err := p.graph.Remove(ctx, pathwayID); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "graph removal failed")
	}
	return nil
}
