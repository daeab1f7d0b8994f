package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/chemlite/internal/domain/compound"
	"github.com/turtacn/chemlite/internal/infrastructure/database/postgres"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
	"github.com/turtacn/chemlite/pkg/types/common"
)

const (
	upsertCompoundSQL = `
		INSERT INTO compounds (id, name, formula, smiles, inchi, inchikey, infos, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, formula = EXCLUDED.formula, smiles = EXCLUDED.smiles,
			inchi = EXCLUDED.inchi, inchikey = EXCLUDED.inchikey, infos = EXCLUDED.infos,
			updated_at = EXCLUDED.updated_at`

	selectCompoundColumns = `SELECT id, name, formula, smiles, inchi, inchikey, infos FROM compounds`
	deleteCompoundSQL     = `DELETE FROM compounds WHERE id = $1`
)

// CompoundRepository is the shared compound catalogue. Saves are upserts:
// the latest annotation of an identifier wins.
type CompoundRepository struct {
	conn   *postgres.Connection
	logger logging.Logger
	now    func() time.Time
}

var _ compound.Repository = (*CompoundRepository)(nil)

func NewCompoundRepository(conn *postgres.Connection, log logging.Logger) *CompoundRepository {
	return &CompoundRepository{conn: conn, logger: log, now: func() time.Time { return time.Now().UTC() }}
}

func (r *CompoundRepository) Save(ctx context.Context, c *compound.Compound) error {
	return r.upsert(ctx, r.conn.DB(), c)
}

// SaveBatch upserts all compounds in one transaction.
func (r *CompoundRepository) SaveBatch(ctx context.Context, compounds []*compound.Compound) error {
	if len(compounds) == 0 {
		return nil
	}
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		for _, c := range compounds {
			if err := r.upsert(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Debug("compound batch saved", logging.Int("count", len(compounds)))
	return nil
}

func (r *CompoundRepository) upsert(ctx context.Context, q queryExecutor, c *compound.Compound) error {
	infos, err := encodeInfos(c.Infos())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode compound infos").
			WithDetail("compound_id=" + c.ID())
	}
	_, err = q.ExecContext(ctx, upsertCompoundSQL,
		c.ID(), c.Name(), c.Formula(), c.SMILES(), c.InChI(), c.InChIKey(), infos, r.now())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save compound").
			WithDetail("compound_id=" + c.ID())
	}
	return nil
}

func (r *CompoundRepository) FindByID(ctx context.Context, id string) (*compound.Compound, error) {
	row := r.conn.DB().QueryRowContext(ctx, selectCompoundColumns+` WHERE id = $1`, id)
	c, err := scanCompound(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, compoundNotFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load compound")
	}
	return c, nil
}

// FindByIDs returns the compounds that exist, ordered by id. Unknown ids are
// skipped.
func (r *CompoundRepository) FindByIDs(ctx context.Context, ids []string) ([]*compound.Compound, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := selectCompoundColumns + ` WHERE id IN (` + strings.Join(placeholders, ", ") + `) ORDER BY id`

	rows, err := r.conn.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load compounds")
	}
	defer rows.Close()

	out := make([]*compound.Compound, 0, len(ids))
	for rows.Next() {
		c, err := scanCompound(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan compound")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate compounds")
	}
	return out, nil
}

// Resolve implements compound.Resolver over FindByIDs.
func (r *CompoundRepository) Resolve(ctx context.Context, ids []string) (map[string]*compound.Compound, error) {
	found, err := r.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*compound.Compound, len(found))
	for _, c := range found {
		out[c.ID()] = c
	}
	return out, nil
}

func (r *CompoundRepository) Delete(ctx context.Context, id string) error {
	res, err := r.conn.DB().ExecContext(ctx, deleteCompoundSQL, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete compound")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read affected rows")
	}
	if n == 0 {
		return compoundNotFound(id)
	}
	return nil
}

func scanCompound(s scanner) (*compound.Compound, error) {
	var dto chem.CompoundDTO
	var infos []byte
	if err := s.Scan(&dto.ID, &dto.Name, &dto.Formula, &dto.SMILES, &dto.InChI, &dto.InChIKey, &infos); err != nil {
		return nil, err
	}
	if len(infos) > 0 {
		if err := json.Unmarshal(infos, &dto.Infos); err != nil {
			return nil, err
		}
	}
	return compound.FromDTO(dto)
}

// encodeInfos renders the infos column. An empty bag is stored as {}.
func encodeInfos(m common.Metadata) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func compoundNotFound(id string) error {
	return errors.New(errors.ErrCodeCompoundNotFound, "compound not found").WithDetail("compound_id=" + id)
}
