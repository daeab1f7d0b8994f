// Package pathway provides the application service that every outer surface
// (HTTP, CLI, worker) uses to read and modify stored pathways.
//
// A write loads the pathway (cache first), applies one domain operation,
// saves it under an optimistic version check, invalidates the cache and
// publishes the drained domain events. Writers of one pathway are serialized
// in-process by a keyed mutex and, when a Locker is configured, across
// processes as well.
package pathway

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/chemlite/internal/domain/compound"
	domain "github.com/turtacn/chemlite/internal/domain/pathway"
	"github.com/turtacn/chemlite/internal/domain/reaction"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
	"github.com/turtacn/chemlite/pkg/types/common"
)

// Service defines the pathway application operations.
type Service interface {
	Create(ctx context.Context, doc *chem.PathwayDTO) (*chem.PathwayDTO, error)
	Get(ctx context.Context, id string) (*chem.PathwayDTO, error)
	Render(ctx context.Context, id string) (string, error)
	List(ctx context.Context, page common.Pagination) ([]chem.PathwaySummary, int64, error)
	Delete(ctx context.Context, id string) error

	AddReaction(ctx context.Context, id string, req *chem.ReactionRequest) (*chem.PathwayDTO, error)
	ReplaceReaction(ctx context.Context, id string, req *chem.ReactionRequest) (*chem.PathwayDTO, error)
	DeleteReaction(ctx context.Context, id, reactionID string, prune bool) (*chem.PathwayDTO, error)
	ScaleReaction(ctx context.Context, id, reactionID string, mult float64) (*chem.PathwayDTO, error)
	RenameCompound(ctx context.Context, id string, req *chem.RenameCompoundRequest) (*chem.PathwayDTO, error)

	NetReaction(ctx context.Context, id string, reactionIDs []string) (*chem.NetDTO, error)
	PseudoReaction(ctx context.Context, id string, reactionIDs []string) (*chem.BalanceDTO, error)
	Matrix(ctx context.Context, id string) (*chem.MatrixDTO, error)
	ReactionSMILES(ctx context.Context, id, reactionID string) (string, error)
	Trace(ctx context.Context, id, compoundID string, downstream bool, depth int) ([]string, error)

	Snapshot(ctx context.Context, id string) (*chem.SnapshotInfo, error)
	Snapshots(ctx context.Context, id string) ([]chem.SnapshotInfo, error)
	SearchCompounds(ctx context.Context, query string, limit int) ([]chem.CompoundHit, error)
}

// Option configures optional collaborators. A collaborator left unset is
// skipped.
type Option func(*serviceImpl)

func WithCache(c Cache) Option                  { return func(s *serviceImpl) { s.cache = c } }
func WithPublisher(p EventPublisher) Option     { return func(s *serviceImpl) { s.publisher = p } }
func WithCatalog(c compound.Repository) Option  { return func(s *serviceImpl) { s.catalog = c } }
func WithSearcher(sr compound.Searcher) Option  { return func(s *serviceImpl) { s.searcher = sr } }
func WithGraph(g domain.GraphProjection) Option { return func(s *serviceImpl) { s.graph = g } }
func WithSnapshots(st SnapshotStore) Option     { return func(s *serviceImpl) { s.snapshots = st } }
func WithLocker(l Locker) Option                { return func(s *serviceImpl) { s.locker = l } }
func WithMetrics(m Metrics) Option              { return func(s *serviceImpl) { s.metrics = m } }

type serviceImpl struct {
	repo   domain.Repository
	logger logging.Logger

	cache     Cache
	publisher EventPublisher
	catalog   compound.Repository
	searcher  compound.Searcher
	graph     domain.GraphProjection
	snapshots SnapshotStore
	locker    Locker
	metrics   Metrics

	keys  *keyedMutex
	loads singleflight.Group
}

// NewService creates the pathway application service.
func NewService(repo domain.Repository, logger logging.Logger, opts ...Option) Service {
	s := &serviceImpl{
		repo:    repo,
		logger:  logger,
		metrics: nopMetrics{},
		keys:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) Create(ctx context.Context, doc *chem.PathwayDTO) (out *chem.PathwayDTO, err error) {
	defer s.observe("create", time.Now(), &err)

	doc = normalizeDocument(doc)
	if doc != nil {
		if err := s.resolveDocument(ctx, doc); err != nil {
			return nil, err
		}
	}
	p, err := domain.FromDTO(doc)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, p.ID())
	if err != nil {
		return nil, err
	}
	defer unlock()

	exists, err := s.repo.Exists(ctx, p.ID())
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Duplicate("pathway", p.ID())
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.catalogue(ctx, p.Compounds())
	s.afterWrite(ctx, p, []common.DomainEvent{domain.NewPathwayCreatedEvent(p)})
	s.logger.Info("pathway created",
		logging.String("pathway_id", p.ID()),
		logging.Int("reactions", p.NumReactions()),
		logging.Int("compounds", p.NumCompounds()))
	return p.ToDTO(), nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (out *chem.PathwayDTO, err error) {
	defer s.observe("get", time.Now(), &err)
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.ToDTO(), nil
}

func (s *serviceImpl) Render(ctx context.Context, id string) (string, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

func (s *serviceImpl) List(ctx context.Context, page common.Pagination) ([]chem.PathwaySummary, int64, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, errors.InvalidParam(err.Error())
	}
	return s.repo.List(ctx, page)
}

func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	defer s.observe("delete", time.Now(), &err)

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	events := []common.DomainEvent{domain.NewPathwayDeletedEvent(id)}
	if s.publisher != nil {
		s.publish(ctx, events)
	} else if s.graph != nil {
		if err := s.graph.Remove(ctx, id); err != nil {
			s.logger.Warn("graph removal failed", logging.String("pathway_id", id), logging.Err(err))
		}
	}
	s.logger.Info("pathway deleted", logging.String("pathway_id", id))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Edits
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) AddReaction(ctx context.Context, id string, req *chem.ReactionRequest) (*chem.PathwayDTO, error) {
	rxn, supplied, err := decodeReactionRequest(req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, "add_reaction", id, func(p *domain.Pathway) error {
		extra, err := s.resolveMissing(ctx, p, rxn, supplied)
		if err != nil {
			return err
		}
		return p.AddReaction(rxn, append(supplied, extra...)...)
	}, supplied...)
}

func (s *serviceImpl) ReplaceReaction(ctx context.Context, id string, req *chem.ReactionRequest) (*chem.PathwayDTO, error) {
	rxn, supplied, err := decodeReactionRequest(req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, "replace_reaction", id, func(p *domain.Pathway) error {
		extra, err := s.resolveMissing(ctx, p, rxn, supplied)
		if err != nil {
			return err
		}
		return p.ReplaceReaction(rxn, append(supplied, extra...)...)
	}, supplied...)
}

func (s *serviceImpl) DeleteReaction(ctx context.Context, id, reactionID string, prune bool) (*chem.PathwayDTO, error) {
	return s.mutate(ctx, "delete_reaction", id, func(p *domain.Pathway) error {
		if err := p.DeleteReaction(reactionID); err != nil {
			return err
		}
		if prune {
			if removed := p.PruneCompounds(); len(removed) > 0 {
				s.logger.Debug("pruned compounds", logging.String("pathway_id", id), logging.Strings("compounds", removed))
			}
		}
		return nil
	})
}

func (s *serviceImpl) ScaleReaction(ctx context.Context, id, reactionID string, mult float64) (*chem.PathwayDTO, error) {
	return s.mutate(ctx, "scale_reaction", id, func(p *domain.Pathway) error {
		return p.ScaleReaction(reactionID, mult)
	})
}

func (s *serviceImpl) RenameCompound(ctx context.Context, id string, req *chem.RenameCompoundRequest) (*chem.PathwayDTO, error) {
	if req == nil {
		return nil, errors.InvalidParam("rename request is required")
	}
	return s.mutate(ctx, "rename_compound", id, func(p *domain.Pathway) error {
		return p.RenameCompound(req.OldID, req.NewID)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Derived views
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) NetReaction(ctx context.Context, id string, reactionIDs []string) (out *chem.NetDTO, err error) {
	defer s.observe("net_reaction", time.Now(), &err)
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	net, err := p.NetReaction(reactionIDs...)
	if err != nil {
		return nil, err
	}
	return &chem.NetDTO{Reaction: net.ToDTO(), Equation: net.Equation()}, nil
}

func (s *serviceImpl) PseudoReaction(ctx context.Context, id string, reactionIDs []string) (out *chem.BalanceDTO, err error) {
	defer s.observe("pseudo_reaction", time.Now(), &err)
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := p.PseudoReaction(reactionIDs...)
	if err != nil {
		return nil, err
	}
	dto := b.ToDTO()
	return &dto, nil
}

func (s *serviceImpl) Matrix(ctx context.Context, id string) (*chem.MatrixDTO, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := p.StoichiometricMatrix().ToDTO()
	return &dto, nil
}

func (s *serviceImpl) ReactionSMILES(ctx context.Context, id, reactionID string) (string, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	return p.ReactionSMILES(reactionID)
}

func (s *serviceImpl) Trace(ctx context.Context, id, compoundID string, downstream bool, depth int) ([]string, error) {
	if s.graph == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "graph projection is not configured")
	}
	if depth <= 0 {
		depth = 1
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := p.Compound(compoundID); !ok {
		return nil, errors.Unresolved("compound", compoundID)
	}
	if downstream {
		return s.graph.Downstream(ctx, id, compoundID, depth)
	}
	return s.graph.Upstream(ctx, id, compoundID, depth)
}

// ─────────────────────────────────────────────────────────────────────────────
// Snapshots and search
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) Snapshot(ctx context.Context, id string) (out *chem.SnapshotInfo, err error) {
	defer s.observe("snapshot", time.Now(), &err)
	if s.snapshots == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "snapshot storage is not configured")
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	info, err := s.snapshots.Put(ctx, p.ToDTO())
	if err != nil {
		return nil, err
	}
	s.logger.Info("snapshot stored", logging.String("pathway_id", id), logging.String("key", info.Key))
	return info, nil
}

func (s *serviceImpl) Snapshots(ctx context.Context, id string) ([]chem.SnapshotInfo, error) {
	if s.snapshots == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "snapshot storage is not configured")
	}
	return s.snapshots.List(ctx, id)
}

func (s *serviceImpl) SearchCompounds(ctx context.Context, query string, limit int) ([]chem.CompoundHit, error) {
	if s.searcher == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "compound search is not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.InvalidParam("search query must not be empty")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	hits, err := s.searcher.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]chem.CompoundHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, chem.CompoundHit{Compound: h.Compound.ToDTO(), Score: h.Score})
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Internals
// ─────────────────────────────────────────────────────────────────────────────

// mutate applies fn to the stored pathway under its lock and saves it.
// supplied compounds are added to the catalogue only once the save succeeds.
func (s *serviceImpl) mutate(ctx context.Context, op, id string, fn func(*domain.Pathway) error, supplied ...*compound.Compound) (out *chem.PathwayDTO, err error) {
	defer s.observe(op, time.Now(), &err)

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	events := p.PullEvents()
	if err := s.repo.Save(ctx, p); err != nil {
		s.invalidate(ctx, id)
		return nil, err
	}
	s.catalogue(ctx, supplied)
	s.afterWrite(ctx, p, events)
	s.logger.Debug("pathway updated",
		logging.String("op", op),
		logging.String("pathway_id", id),
		logging.Int("version", p.Version()))
	return p.ToDTO(), nil
}

func (s *serviceImpl) afterWrite(ctx context.Context, p *domain.Pathway, events []common.DomainEvent) {
	s.invalidate(ctx, p.ID())
	s.metrics.ObservePathwaySize(p.NumReactions(), p.NumCompounds())
	if s.publisher != nil {
		s.publish(ctx, events)
		return
	}
	// Without a bus the projections are refreshed inline.
	if s.graph != nil {
		if err := s.graph.Project(ctx, p); err != nil {
			s.logger.Warn("graph projection failed", logging.String("pathway_id", p.ID()), logging.Err(err))
		}
	}
	if s.searcher != nil {
		if err := s.searcher.Index(ctx, p.Compounds()...); err != nil {
			s.logger.Warn("compound indexing failed", logging.String("pathway_id", p.ID()), logging.Err(err))
		}
	}
}

func (s *serviceImpl) publish(ctx context.Context, events []common.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := s.publisher.PublishEvents(ctx, events...); err != nil {
		s.logger.Error("failed to publish pathway events",
			logging.String("pathway_id", events[0].AggregateID()),
			logging.Int("events", len(events)),
			logging.Err(err))
	}
}

// load reads through the cache. Concurrent loads of one id share a single
// repository round trip; every caller gets its own Pathway.
func (s *serviceImpl) load(ctx context.Context, id string) (*domain.Pathway, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.InvalidParam("pathway identifier must not be empty")
	}
	if s.cache != nil {
		doc, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("cache read failed", logging.String("pathway_id", id), logging.Err(err))
		}
		if doc != nil {
			s.metrics.ObserveCache(true)
			return domain.FromDTO(doc)
		}
		s.metrics.ObserveCache(false)
	}

	// The shared load outlives any one caller's cancellation.
	lctx := context.WithoutCancel(ctx)
	v, err, _ := s.loads.Do(id, func() (interface{}, error) {
		p, err := s.repo.FindByID(lctx, id)
		if err != nil {
			return nil, err
		}
		doc := p.ToDTO()
		if s.cache != nil {
			if err := s.cache.Set(lctx, doc); err != nil {
				s.logger.Warn("cache write failed", logging.String("pathway_id", id), logging.Err(err))
			}
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return domain.FromDTO(v.(*chem.PathwayDTO))
}

func (s *serviceImpl) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("cache invalidation failed", logging.String("pathway_id", id), logging.Err(err))
	}
}

func (s *serviceImpl) lock(ctx context.Context, id string) (func(), error) {
	release := s.keys.Lock(id)
	if s.locker == nil {
		return release, nil
	}
	unlock, err := s.locker.Lock(ctx, "pathway:"+id)
	if err != nil {
		release()
		return nil, err
	}
	return func() {
		unlock()
		release()
	}, nil
}

// resolveMissing asks the catalogue for species that neither the pathway nor
// the request can resolve.
func (s *serviceImpl) resolveMissing(ctx context.Context, p *domain.Pathway, rxn *reaction.Reaction, supplied []*compound.Compound) ([]*compound.Compound, error) {
	if s.catalog == nil {
		return nil, nil
	}
	offered := make(map[string]struct{}, len(supplied))
	for _, c := range supplied {
		offered[c.ID()] = struct{}{}
	}
	var missing []string
	for _, sid := range rxn.SpeciesIDs() {
		if _, ok := p.Compound(sid); ok {
			continue
		}
		if _, ok := offered[sid]; ok {
			continue
		}
		missing = append(missing, sid)
	}
	if len(missing) == 0 {
		return nil, nil
	}
	found, err := s.catalog.Resolve(ctx, missing)
	if err != nil {
		return nil, err
	}
	out := make([]*compound.Compound, 0, len(found))
	for _, sid := range missing {
		if c, ok := found[sid]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// resolveDocument completes a document's compound list from the catalogue.
func (s *serviceImpl) resolveDocument(ctx context.Context, doc *chem.PathwayDTO) error {
	if s.catalog == nil {
		return nil
	}
	return compound.CompleteDocument(ctx, s.catalog, doc)
}

func (s *serviceImpl) catalogue(ctx context.Context, compounds []*compound.Compound) {
	if s.catalog == nil || len(compounds) == 0 {
		return
	}
	if err := s.catalog.SaveBatch(ctx, compounds); err != nil {
		s.logger.Warn("compound catalogue update failed", logging.Int("compounds", len(compounds)), logging.Err(err))
	}
}

func (s *serviceImpl) observe(op string, start time.Time, err *error) {
	s.metrics.ObserveOperation(op, *err, time.Since(start))
}

func decodeReactionRequest(req *chem.ReactionRequest) (*reaction.Reaction, []*compound.Compound, error) {
	if req == nil {
		return nil, nil, errors.InvalidParam("reaction request is required")
	}
	rxn, err := reaction.FromDTO(req.Reaction)
	if err != nil {
		return nil, nil, err
	}
	supplied := make([]*compound.Compound, 0, len(req.Compounds))
	for _, cd := range req.Compounds {
		c, err := compound.FromDTO(cd)
		if err != nil {
			return nil, nil, err
		}
		supplied = append(supplied, c)
	}
	return rxn, supplied, nil
}

// normalizeDocument returns a copy with version and timestamps cleared so a
// created pathway always starts at version 1.
func normalizeDocument(doc *chem.PathwayDTO) *chem.PathwayDTO {
	if doc == nil {
		return nil
	}
	cp := *doc
	cp.Compounds = append([]chem.CompoundDTO(nil), doc.Compounds...)
	cp.Version = 0
	cp.CreatedAt = time.Time{}
	cp.UpdatedAt = time.Time{}
	return &cp
}
