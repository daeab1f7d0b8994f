// Projection worker for chemlite. It consumes pathway events from Kafka and
// keeps the Neo4j reaction graph and the OpenSearch compound index in step
// with PostgreSQL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/chemlite/internal/application/pathway"
	"github.com/turtacn/chemlite/internal/config"
	"github.com/turtacn/chemlite/internal/domain/compound"
	domain "github.com/turtacn/chemlite/internal/domain/pathway"
	"github.com/turtacn/chemlite/internal/infrastructure/database/neo4j"
	neo4jrepo "github.com/turtacn/chemlite/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/chemlite/internal/infrastructure/database/postgres"
	pgrepo "github.com/turtacn/chemlite/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/chemlite/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/chemlite/internal/infrastructure/search/opensearch"
	httpserver "github.com/turtacn/chemlite/internal/interfaces/http"
	"github.com/turtacn/chemlite/internal/interfaces/http/handlers"
)

var Version = "dev"

const (
	defaultWorkerConfigPath = "configs/config.yaml"
	defaultHealthPort       = 8081
	drainTimeout            = 30 * time.Second
)

func main() {
	configPath := flag.String("config", defaultWorkerConfigPath, "path to configuration file")
	workerCount := flag.Int("workers", 0, "number of consumers in the group (default: chem.projection_workers)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port of the health and metrics endpoint")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	out := []string{"stdout"}
	if cfg.Log.Output != "" {
		out = []string{cfg.Log.Output}
	}
	logger, err := logging.NewLogger(logging.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format, OutputPaths: out})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer logger.Sync()

	workers := cfg.Chem.ProjectionWorkers
	if *workerCount > 0 {
		workers = *workerCount
	}
	if err := run(cfg, workers, *healthPort, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, workers, healthPort int, logger logging.Logger) error {
	if !cfg.Messaging.Kafka.Enabled {
		return errors.New("messaging.kafka.enabled is false; the worker has nothing to consume")
	}
	logger.Info("starting chemlite projection worker",
		logging.String("version", Version),
		logging.Int("workers", workers),
		logging.Strings("brokers", cfg.Messaging.Kafka.Brokers),
	)

	infra, err := initWorkerInfrastructure(cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close(logger)

	if cfg.Messaging.Kafka.AutoCreateTopics {
		if err := ensureTopics(cfg.Messaging.Kafka.Brokers, logger); err != nil {
			return err
		}
	}

	projector := pathway.NewProjector(infra.repo, infra.graph, infra.searcher, logger.Named("projector"))
	handler := kafka.EnvelopeHandler(meteredHandler{next: projector, metrics: infra.metrics}, logger.Named("events"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumers := make([]*kafka.Consumer, 0, workers)
	defer func() {
		for _, c := range consumers {
			if err := c.Close(); err != nil {
				logger.Warn("consumer close failed", logging.Err(err))
			}
		}
	}()
	for i := 0; i < workers; i++ {
		c, err := kafka.NewConsumer(kafka.ConsumerConfigFrom(cfg.Messaging.Kafka), logger.Named(fmt.Sprintf("consumer-%d", i)))
		if err != nil {
			return err
		}
		consumers = append(consumers, c)
		c.Subscribe(kafka.TopicPathwayChanged, handler)
		c.Subscribe(kafka.TopicCompoundRenamed, handler)
		if err := c.Start(ctx); err != nil {
			return err
		}
	}

	healthSrv := startHealthServer(cfg, healthPort, infra, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", logging.String("signal", sig.String()))
	case err := <-healthSrv.errCh:
		if err != nil {
			logger.Error("health server failed", logging.Err(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), drainTimeout)
	defer shutdownCancel()
	if err := healthSrv.srv.Stop(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", logging.Err(err))
	}

	var processed, failed int64
	for _, c := range consumers {
		processed += c.Processed()
		failed += c.Failed()
	}
	logger.Info("chemlite worker stopped",
		logging.Int64("processed", processed),
		logging.Int64("failed", failed))
	return nil
}

// meteredHandler records every projected event.
type meteredHandler struct {
	next    kafka.EventHandler
	metrics *prometheus.ChemMetrics
}

func (h meteredHandler) Handle(ctx context.Context, eventType, aggregateID string) error {
	err := h.next.Handle(ctx, eventType, aggregateID)
	if h.metrics != nil {
		h.metrics.ObserveEvent(eventType, err)
	}
	return err
}

// workerInfrastructure holds the clients the projector writes through.
// graph and searcher stay nil when their back end is disabled.
type workerInfrastructure struct {
	pg       *postgres.Connection
	neo4j    *neo4j.Driver
	search   *opensearch.Client
	repo     domain.Repository
	graph    domain.GraphProjection
	searcher compound.Searcher
	metrics  *prometheus.ChemMetrics
	collect  prometheus.MetricsCollector
}

func initWorkerInfrastructure(cfg *config.Config, logger logging.Logger) (*workerInfrastructure, error) {
	infra := &workerInfrastructure{}

	pg, err := postgres.NewConnection(cfg.Database.Postgres, logger.Named("postgres"))
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	infra.pg = pg
	infra.repo = pgrepo.NewPathwayRepository(pg, logger.Named("pathways"))

	if cfg.Database.Neo4j.Enabled {
		drv, err := neo4j.NewDriver(cfg.Database.Neo4j, logger.Named("neo4j"))
		if err != nil {
			infra.Close(logger)
			return nil, fmt.Errorf("neo4j: %w", err)
		}
		infra.neo4j = drv
		infra.graph = neo4jrepo.NewPathwayGraphRepository(drv, logger.Named("graph"))
	}

	if oc := cfg.Search.OpenSearch; oc.Enabled {
		cli, err := opensearch.NewClient(oc, logger.Named("opensearch"))
		if err != nil {
			infra.Close(logger)
			return nil, fmt.Errorf("opensearch: %w", err)
		}
		infra.search = cli
		indexer := opensearch.NewCompoundIndexer(cli, oc.Index, logger.Named("indexer"))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = indexer.EnsureIndex(ctx)
		cancel()
		if err != nil {
			infra.Close(logger)
			return nil, fmt.Errorf("opensearch index: %w", err)
		}
		infra.searcher = indexer
	}

	if pc := cfg.Monitoring.Prometheus; pc.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:       pc.Namespace,
			Subsystem:       "worker",
			EnableGoMetrics: true,
		}, logger.Named("metrics"))
		if err != nil {
			infra.Close(logger)
			return nil, err
		}
		infra.collect = collector
		infra.metrics = prometheus.NewChemMetrics(collector)
	}

	if infra.graph == nil && infra.searcher == nil {
		logger.Warn("neither neo4j nor opensearch is enabled; events will be consumed without effect")
	}
	logger.Info("worker infrastructure initialized")
	return infra, nil
}

func (w *workerInfrastructure) Close(logger logging.Logger) {
	if w.neo4j != nil {
		if err := w.neo4j.Close(context.Background()); err != nil {
			logger.Warn("neo4j close failed", logging.Err(err))
		}
	}
	if w.pg != nil {
		if err := w.pg.Close(); err != nil {
			logger.Warn("postgres close failed", logging.Err(err))
		}
	}
}

func (w *workerInfrastructure) checkers() []handlers.HealthChecker {
	checks := []handlers.HealthChecker{handlers.NewChecker("postgres", w.pg.HealthCheck)}
	if w.neo4j != nil {
		checks = append(checks, handlers.NewChecker("neo4j", w.neo4j.HealthCheck))
	}
	if w.search != nil {
		checks = append(checks, handlers.NewChecker("opensearch", w.search.Ping))
	}
	return checks
}

func ensureTopics(brokers []string, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(brokers, logger.Named("topics"))
	if err != nil {
		return err
	}
	defer tm.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return tm.EnsureTopics(ctx, kafka.DefaultTopics())
}

type healthServer struct {
	srv   *httpserver.Server
	errCh chan error
}

// startHealthServer exposes /healthz, /readyz and the metrics endpoint for
// the orchestrator.
func startHealthServer(cfg *config.Config, port int, infra *workerInfrastructure, logger logging.Logger) *healthServer {
	routerCfg := httpserver.RouterConfig{
		Mode:          "release",
		HealthHandler: handlers.NewHealthHandler(Version, infra.checkers()...),
		Logger:        logger.Named("health"),
	}
	if infra.collect != nil {
		routerCfg.MetricsHandler = infra.collect.Handler()
		routerCfg.MetricsPath = cfg.Monitoring.Prometheus.Path
	}

	hc := config.HTTPConfig{
		Host:            cfg.Server.HTTP.Host,
		Port:            port,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
	hs := &healthServer{
		srv:   httpserver.NewServer(hc, httpserver.NewRouter(routerCfg), logger.Named("health")),
		errCh: make(chan error, 1),
	}
	go func() { hs.errCh <- hs.srv.Start() }()
	return hs
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.LoadFromEnv()
	}
	return config.Load(config.WithConfigPath(path))
}
