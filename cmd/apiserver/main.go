// API server entry point for chemlite.
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
	pgrepo "github.com/turtacn/chemlite/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	grpcserver "github.com/turtacn/chemlite/internal/interfaces/grpc"
	httpserver "github.com/turtacn/chemlite/internal/interfaces/http"
	"github.com/turtacn/chemlite/internal/interfaces/http/handlers"
	"github.com/turtacn/chemlite/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	startupTimeout    = time.Minute
	shutdownTimeout   = 30 * time.Second
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	grpcPort := flag.Int("grpc-port", 0, "gRPC server port (overrides config)")
	flag.Parse()

	cfg, fromFile, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.HTTP.Port = *httpPort
	}
	if *grpcPort > 0 {
		cfg.Server.GRPC.Port = *grpcPort
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer logger.Sync()

	if err := run(cfg, fromFile, *configPath, logger); err != nil {
		logger.Error("apiserver exited with error", logging.Err(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, fromFile bool, configPath string, logger logging.Logger) error {
	logger.Info("starting chemlite API server",
		logging.String("version", Version),
		logging.String("commit", GitCommit),
		logging.String("http_addr", cfg.Server.HTTP.Addr()),
		logging.Bool("grpc_enabled", cfg.Server.GRPC.Enabled),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	b, err := openBackends(startCtx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer b.Close(context.Background(), logger)

	repo := pgrepo.NewPathwayRepository(b.pg, logger.Named("pathways"))
	svc := pathway.NewService(repo, logger.Named("service"), b.serviceOptions(logger)...)

	if fromFile && b.cache != nil {
		_, werr := config.Watch(configPath, func(next *config.Config) {
			flushed, err := b.cache.ApplyTTL(context.Background(), next.Chem.CacheTTL)
			if err != nil {
				logger.Warn("pathway cache flush failed", logging.Err(err))
			}
			logger.Info("configuration reloaded",
				logging.Duration("cache_ttl", next.Chem.CacheTTL), logging.Int64("flushed", flushed))
		}, func(err error) {
			logger.Warn("ignoring invalid configuration reload", logging.Err(err))
		})
		if werr != nil {
			logger.Warn("config watch disabled", logging.Err(werr))
		}
	}

	checks := b.checkers()
	routerCfg := httpserver.RouterConfig{
		Mode:           cfg.Server.HTTP.Mode,
		PathwayHandler: handlers.NewPathwayHandler(svc, logger.Named("http")),
		HealthHandler:  handlers.NewHealthHandler(Version, checks...),
		CORSOrigins:    cfg.Server.HTTP.CORSOrigins,
		MaxBodySize:    cfg.Server.HTTP.MaxBodySize,
		Logger:         logger.Named("http"),
	}
	if b.metrics != nil {
		routerCfg.Metrics = b.metrics
		routerCfg.MetricsHandler = b.scrape
		routerCfg.MetricsPath = cfg.Monitoring.Prometheus.Path
	}
	if rps := cfg.Server.HTTP.RateLimitRPS; rps > 0 {
		limiter := middleware.NewTokenBucketLimiter(rps, cfg.Server.HTTP.RateLimitBurst, time.Minute)
		defer limiter.Stop()
		routerCfg.RateLimiter = limiter
	}

	httpSrv := httpserver.NewServer(cfg.Server.HTTP, httpserver.NewRouter(routerCfg), logger.Named("http"))
	errCh := make(chan error, 2)
	go func() { errCh <- httpSrv.Start() }()

	var grpcSrv *grpcserver.Server
	if cfg.Server.GRPC.Enabled {
		grpcChecks := make([]grpcserver.Checker, 0, len(checks))
		for _, c := range checks {
			grpcChecks = append(grpcChecks, c)
		}
		grpcSrv, err = grpcserver.NewServer(cfg.Server.GRPC,
			grpcserver.WithLogger(logger.Named("grpc")),
			grpcserver.WithCheckers(grpcChecks...),
		)
		if err != nil {
			_ = httpSrv.Stop(context.Background())
			return err
		}
		go func() { errCh <- grpcSrv.Start() }()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", logging.String("signal", sig.String()))
	case runErr = <-errCh:
		if runErr != nil {
			logger.Error("server failed", logging.Err(runErr))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Stop(ctx); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}
	if grpcSrv != nil {
		if err := grpcSrv.Stop(ctx); err != nil {
			logger.Error("gRPC server shutdown error", logging.Err(err))
		}
	}
	logger.Info("servers stopped")
	return runErr
}

// loadConfig reads path when it exists and the environment otherwise.
func loadConfig(path string) (*config.Config, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, false, err
		}
		cfg, err := config.LoadFromEnv()
		return cfg, false, err
	}
	cfg, err := config.Load(config.WithConfigPath(path))
	return cfg, true, err
}

func newLogger(lc config.LogConfig) (logging.Logger, error) {
	out := []string{"stdout"}
	if lc.Output != "" {
		out = []string{lc.Output}
	}
	return logging.NewLogger(logging.LogConfig{
		Level:       lc.Level,
		Format:      lc.Format,
		OutputPaths: out,
	})
}
