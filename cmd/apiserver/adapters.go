package main

import (
	"context"
	"net/http"

	"github.com/turtacn/chemlite/internal/application/pathway"
	"github.com/turtacn/chemlite/internal/config"
	"github.com/turtacn/chemlite/internal/infrastructure/database/neo4j"
	neo4jrepo "github.com/turtacn/chemlite/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/chemlite/internal/infrastructure/database/postgres"
	pgrepo "github.com/turtacn/chemlite/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/chemlite/internal/infrastructure/database/redis"
	"github.com/turtacn/chemlite/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/chemlite/internal/infrastructure/search/opensearch"
	"github.com/turtacn/chemlite/internal/infrastructure/storage/minio"
	"github.com/turtacn/chemlite/internal/interfaces/http/handlers"
)

// backends owns every connection the API server opens. Optional back ends
// stay nil when disabled in config.
type backends struct {
	pg        *postgres.Connection
	redis     *redis.Client
	cache     *redis.PathwayCache
	locks     *redis.LockFactory
	producer  *kafka.Producer
	neo4j     *neo4j.Driver
	search    *opensearch.Client
	indexer   *opensearch.CompoundIndexer
	snapshots *minio.SnapshotStore
	minio     *minio.Client
	metrics   *prometheus.ChemMetrics
	scrape    http.Handler

	closers []func(ctx context.Context) error
}

func openBackends(ctx context.Context, cfg *config.Config, logger logging.Logger) (*backends, error) {
	b := &backends{}
	opened := false
	defer func() {
		if !opened {
			b.Close(context.Background(), logger)
		}
	}()

	var err error

	pgCfg := cfg.Database.Postgres
	if pgCfg.AutoMigrate {
		if err = postgres.Migrate(postgres.BuildDSN(pgCfg), logger.Named("migrate")); err != nil {
			return nil, err
		}
	}
	if b.pg, err = postgres.NewConnection(pgCfg, logger.Named("postgres")); err != nil {
		return nil, err
	}
	b.closers = append(b.closers, func(context.Context) error { return b.pg.Close() })

	if rc := cfg.Cache.Redis; rc.Enabled {
		if b.redis, err = redis.NewClient(&redis.RedisConfig{
			Addr:         rc.Addr,
			Password:     rc.Password,
			DB:           rc.DB,
			PoolSize:     rc.PoolSize,
			MinIdleConns: rc.MinIdleConns,
			DialTimeout:  rc.DialTimeout,
			ReadTimeout:  rc.ReadTimeout,
			WriteTimeout: rc.WriteTimeout,
		}, logger.Named("redis")); err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return b.redis.Close() })

		store := redis.NewRedisCache(b.redis, logger.Named("cache"), redis.WithPrefix(rc.KeyPrefix))
		b.cache = redis.NewPathwayCache(store, cfg.Chem.CacheTTL)
		if cfg.Chem.DistributedLock {
			b.locks = redis.NewLockFactory(b.redis, logger.Named("lock"), redis.WithLockTTL(cfg.Chem.LockTTL))
		}
	}

	if kc := cfg.Messaging.Kafka; kc.Enabled {
		if b.producer, err = kafka.NewProducer(kafka.ProducerConfigFrom(kc), logger.Named("kafka")); err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return b.producer.Close() })
	}

	if nc := cfg.Database.Neo4j; nc.Enabled {
		if b.neo4j, err = neo4j.NewDriver(nc, logger.Named("neo4j")); err != nil {
			return nil, err
		}
		b.closers = append(b.closers, b.neo4j.Close)
	}

	if oc := cfg.Search.OpenSearch; oc.Enabled {
		if b.search, err = opensearch.NewClient(oc, logger.Named("opensearch")); err != nil {
			return nil, err
		}
		b.indexer = opensearch.NewCompoundIndexer(b.search, oc.Index, logger.Named("indexer"))
		if err = b.indexer.EnsureIndex(ctx); err != nil {
			return nil, err
		}
	}

	if mc := cfg.Storage.MinIO; mc.Enabled {
		if b.minio, err = minio.NewClient(mc, logger.Named("minio")); err != nil {
			return nil, err
		}
		if err = b.minio.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		b.snapshots = minio.NewSnapshotStore(b.minio)
	}

	if pc := cfg.Monitoring.Prometheus; pc.Enabled {
		collector, cerr := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            pc.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger.Named("metrics"))
		if cerr != nil {
			return nil, cerr
		}
		b.metrics = prometheus.NewChemMetrics(collector)
		b.scrape = collector.Handler()
	}
	opened = true
	return b, nil
}

// serviceOptions turns whichever back ends are open into service options.
func (b *backends) serviceOptions(logger logging.Logger) []pathway.Option {
	opts := []pathway.Option{
		pathway.WithCatalog(pgrepo.NewCompoundRepository(b.pg, logger.Named("compounds"))),
	}
	if b.cache != nil {
		opts = append(opts, pathway.WithCache(b.cache))
	}
	if b.locks != nil {
		opts = append(opts, pathway.WithLocker(b.locks))
	}
	if b.producer != nil {
		opts = append(opts, pathway.WithPublisher(kafka.NewEventPublisher(b.producer, "chemlite-apiserver", logger.Named("events"))))
	}
	if b.neo4j != nil {
		opts = append(opts, pathway.WithGraph(neo4jrepo.NewPathwayGraphRepository(b.neo4j, logger.Named("graph"))))
	}
	if b.indexer != nil {
		opts = append(opts, pathway.WithSearcher(b.indexer))
	}
	if b.snapshots != nil {
		opts = append(opts, pathway.WithSnapshots(b.snapshots))
	}
	if b.metrics != nil {
		opts = append(opts, pathway.WithMetrics(b.metrics))
	}
	return opts
}

// checkers backs both /readyz and the gRPC health service.
func (b *backends) checkers() []handlers.HealthChecker {
	checks := []handlers.HealthChecker{handlers.NewChecker("postgres", b.pg.HealthCheck)}
	if b.redis != nil {
		checks = append(checks, handlers.NewChecker("redis", b.redis.Ping))
	}
	if b.neo4j != nil {
		checks = append(checks, handlers.NewChecker("neo4j", b.neo4j.HealthCheck))
	}
	if b.search != nil {
		checks = append(checks, handlers.NewChecker("opensearch", b.search.Ping))
	}
	if b.minio != nil {
		checks = append(checks, handlers.NewChecker("minio", b.minio.HealthCheck))
	}
	return checks
}

// Close releases back ends in reverse order of opening.
func (b *backends) Close(ctx context.Context, logger logging.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			logger.Warn("failed to close backend", logging.Err(err))
		}
	}
	b.closers = nil
}
