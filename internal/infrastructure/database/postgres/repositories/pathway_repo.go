package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	domain "github.com/turtacn/chemlite/internal/domain/pathway"
	"github.com/turtacn/chemlite/internal/infrastructure/database/postgres"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
	"github.com/turtacn/chemlite/pkg/types/common"
)

const (
	insertPathwaySQL = `
		INSERT INTO pathways (id, name, document, reaction_count, compound_count, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7)`

	updatePathwaySQL = `
		UPDATE pathways
		SET name = $2, document = $3, reaction_count = $4, compound_count = $5,
			version = version + 1, updated_at = $6
		WHERE id = $1 AND version = $7`

	selectPathwaySQL = `
		SELECT document, version, created_at, updated_at
		FROM pathways WHERE id = $1`

	listPathwaysSQL = `
		SELECT id, name, reaction_count, compound_count, version, updated_at
		FROM pathways ORDER BY id LIMIT $1 OFFSET $2`

	countPathwaysSQL = `SELECT COUNT(*) FROM pathways`
	deletePathwaySQL = `DELETE FROM pathways WHERE id = $1`
	pathwayExistsSQL = `SELECT EXISTS(SELECT 1 FROM pathways WHERE id = $1)`
)

// PathwayRepository stores each pathway as one JSONB document with its
// version and counters in plain columns.
type PathwayRepository struct {
	conn   *postgres.Connection
	logger logging.Logger
	now    func() time.Time
}

var _ domain.Repository = (*PathwayRepository)(nil)

func NewPathwayRepository(conn *postgres.Connection, log logging.Logger) *PathwayRepository {
	return &PathwayRepository{conn: conn, logger: log, now: func() time.Time { return time.Now().UTC() }}
}

func (r *PathwayRepository) executor() queryExecutor {
	return r.conn.DB()
}

// Save inserts a new pathway or updates a loaded one under optimistic
// versioning.
func (r *PathwayRepository) Save(ctx context.Context, p *domain.Pathway) error {
	doc, err := json.Marshal(p.ToDTO())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode pathway document")
	}
	now := r.now()

	if p.Version() == 0 {
		created := p.CreatedAt()
		if created.IsZero() {
			created = now
		}
		_, err := r.executor().ExecContext(ctx, insertPathwaySQL,
			p.ID(), p.Name(), doc, p.NumReactions(), p.NumCompounds(), created, now)
		if isUniqueViolation(err) {
			return errors.Duplicate("pathway", p.ID())
		}
		if err != nil {
			r.logger.Error("failed to insert pathway", logging.String("pathway_id", p.ID()), logging.Err(err))
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert pathway")
		}
		p.MarkPersisted(1, now)
		return nil
	}

	res, err := r.executor().ExecContext(ctx, updatePathwaySQL,
		p.ID(), p.Name(), doc, p.NumReactions(), p.NumCompounds(), now, p.Version())
	if err != nil {
		r.logger.Error("failed to update pathway", logging.String("pathway_id", p.ID()), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update pathway")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read affected rows")
	}
	if n == 0 {
		exists, err := r.Exists(ctx, p.ID())
		if err != nil {
			return err
		}
		if !exists {
			return pathwayNotFound(p.ID())
		}
		return errors.New(errors.ErrCodeVersionConflict, "pathway was modified concurrently").
			WithDetail("pathway_id=" + p.ID())
	}
	p.MarkPersisted(p.Version()+1, now)
	return nil
}

func (r *PathwayRepository) FindByID(ctx context.Context, id string) (*domain.Pathway, error) {
	var (
		raw       []byte
		version   int
		createdAt time.Time
		updatedAt time.Time
	)
	err := r.executor().QueryRowContext(ctx, selectPathwaySQL, id).Scan(&raw, &version, &createdAt, &updatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pathwayNotFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load pathway")
	}

	var doc chem.PathwayDTO
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentInvalid, "stored pathway document is corrupt").
			WithDetail("pathway_id=" + id)
	}
	doc.Version = version
	doc.CreatedAt = createdAt
	doc.UpdatedAt = updatedAt
	return domain.FromDTO(&doc)
}

// List returns summaries ordered by id together with the total row count.
func (r *PathwayRepository) List(ctx context.Context, page common.Pagination) ([]chem.PathwaySummary, int64, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.executor().QueryRowContext(ctx, countPathwaysSQL).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count pathways")
	}

	rows, err := r.executor().QueryContext(ctx, listPathwaysSQL, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list pathways")
	}
	defer rows.Close()

	out := make([]chem.PathwaySummary, 0, page.PageSize)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan pathway summary")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate pathways")
	}
	return out, total, nil
}

func (r *PathwayRepository) Delete(ctx context.Context, id string) error {
	res, err := r.executor().ExecContext(ctx, deletePathwaySQL, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete pathway")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read affected rows")
	}
	if n == 0 {
		return pathwayNotFound(id)
	}
	return nil
}

func (r *PathwayRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.executor().QueryRowContext(ctx, pathwayExistsSQL, id).Scan(&exists); err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check pathway existence")
	}
	return exists, nil
}

func scanSummary(s scanner) (chem.PathwaySummary, error) {
	var sum chem.PathwaySummary
	err := s.Scan(&sum.ID, &sum.Name, &sum.ReactionCount, &sum.CompoundCount, &sum.Version, &sum.UpdatedAt)
	return sum, err
}

func pathwayNotFound(id string) error {
	return errors.New(errors.ErrCodePathwayNotFound, "pathway not found").WithDetail("pathway_id=" + id)
}
