//go:build integration

package repositories_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/chemlite/internal/config"
	"github.com/turtacn/chemlite/internal/domain/compound"
	domain "github.com/turtacn/chemlite/internal/domain/pathway"
	"github.com/turtacn/chemlite/internal/domain/reaction"
	"github.com/turtacn/chemlite/internal/infrastructure/database/postgres"
	"github.com/turtacn/chemlite/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/common"
)

// startPostgres launches a PostgreSQL 16 container with the schema applied.
func startPostgres(t *testing.T) *postgres.Connection {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "chemlite_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.PostgresConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "test",
		Password: "test",
		DBName:   "chemlite_test",
		SSLMode:  "disable",
	}
	log := logging.NewNopLogger()
	require.NoError(t, postgres.Migrate(postgres.BuildDSN(cfg), log), fmt.Sprintf("migrate %s", host))

	conn, err := postgres.NewConnection(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestPathwayRepository_Lifecycle(t *testing.T) {
	conn := startPostgres(t)
	repo := repositories.NewPathwayRepository(conn, logging.NewNopLogger())
	ctx := context.Background()

	p := domain.MustNew("glycolysis")
	p.SetName("upper glycolysis")
	hk := reaction.MustNew("hk")
	hk.SetReactants(map[string]float64{"glc": 1, "atp": 1})
	hk.SetProducts(map[string]float64{"g6p": 1, "adp": 1})
	require.NoError(t, p.AddReaction(hk,
		compound.MustNew("glc"), compound.MustNew("atp"), compound.MustNew("g6p"), compound.MustNew("adp")))
	require.NoError(t, repo.Save(ctx, p))
	assert.Equal(t, 1, p.Version())

	dup := domain.MustNew("glycolysis")
	err := repo.Save(ctx, dup)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeDuplicateIdentifier))

	loaded, err := repo.FindByID(ctx, "glycolysis")
	require.NoError(t, err)
	assert.Equal(t, "upper glycolysis", loaded.Name())
	assert.Equal(t, []string{"hk"}, loaded.ReactionIDs())

	stale, err := repo.FindByID(ctx, "glycolysis")
	require.NoError(t, err)

	require.NoError(t, loaded.ScaleReaction("hk", 2))
	require.NoError(t, repo.Save(ctx, loaded))
	assert.Equal(t, 2, loaded.Version())

	require.NoError(t, stale.ScaleReaction("hk", 3))
	err = repo.Save(ctx, stale)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeVersionConflict))

	items, total, err := repo.List(ctx, common.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].CompoundCount)

	require.NoError(t, repo.Delete(ctx, "glycolysis"))
	_, err = repo.FindByID(ctx, "glycolysis")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodePathwayNotFound))
}

func TestCompoundRepository_Upsert(t *testing.T) {
	conn := startPostgres(t)
	repo := repositories.NewCompoundRepository(conn, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, repo.SaveBatch(ctx, []*compound.Compound{
		compound.MustNew("glc", compound.WithName("glucose")),
		compound.MustNew("atp"),
	}))
	require.NoError(t, repo.Save(ctx, compound.MustNew("glc", compound.WithName("D-glucose"))))

	found, err := repo.Resolve(ctx, []string{"glc", "atp", "missing"})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, "D-glucose", found["glc"].Name())

	require.NoError(t, repo.Delete(ctx, "atp"))
	_, err = repo.FindByID(ctx, "atp")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeCompoundNotFound))
}
