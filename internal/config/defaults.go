package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultHTTPHost        = "0.0.0.0"
	DefaultHTTPPort        = 8080
	DefaultHTTPMode        = "release"
	DefaultMaxBodySize     = 8 << 20
	DefaultShutdownTimeout = 15 * time.Second
	DefaultGRPCPort        = 9090

	DefaultPostgresHost     = "localhost"
	DefaultPostgresPort     = 5432
	DefaultPostgresDBName   = "chemlite"
	DefaultPostgresMaxConns = 25

	DefaultNeo4jURI      = "bolt://localhost:7687"
	DefaultNeo4jDatabase = "neo4j"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "chemlite:"

	DefaultKafkaBroker        = "localhost:9092"
	DefaultKafkaConsumerGroup = "chemlite-projector"
	DefaultKafkaClientID      = "chemlite"

	DefaultOpenSearchAddress = "http://localhost:9200"
	DefaultOpenSearchIndex   = "chemlite-compounds"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "chemlite-snapshots"

	DefaultMetricsNamespace = "chemlite"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultCacheTTL          = 10 * time.Minute
	DefaultLockTTL           = 30 * time.Second
	DefaultProjectionWorkers = 4
)

// ApplyDefaults fills every zero-value field in cfg with its default. Fields
// already set are left unchanged so explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	h := &cfg.Server.HTTP
	if h.Host == "" {
		h.Host = DefaultHTTPHost
	}
	if h.Port == 0 {
		h.Port = DefaultHTTPPort
	}
	if h.Mode == "" {
		h.Mode = DefaultHTTPMode
	}
	if h.ReadTimeout == 0 {
		h.ReadTimeout = 30 * time.Second
	}
	if h.WriteTimeout == 0 {
		h.WriteTimeout = 30 * time.Second
	}
	if h.MaxBodySize == 0 {
		h.MaxBodySize = DefaultMaxBodySize
	}
	if h.ShutdownTimeout == 0 {
		h.ShutdownTimeout = DefaultShutdownTimeout
	}
	if h.RateLimitRPS > 0 && h.RateLimitBurst == 0 {
		h.RateLimitBurst = int(2 * h.RateLimitRPS)
		if h.RateLimitBurst < 1 {
			h.RateLimitBurst = 1
		}
	}
	if cfg.Server.GRPC.Host == "" {
		cfg.Server.GRPC.Host = DefaultHTTPHost
	}
	if cfg.Server.GRPC.Port == 0 {
		cfg.Server.GRPC.Port = DefaultGRPCPort
	}

	// ── Postgres ──────────────────────────────────────────────────────────────
	pg := &cfg.Database.Postgres
	if pg.Host == "" {
		pg.Host = DefaultPostgresHost
	}
	if pg.Port == 0 {
		pg.Port = DefaultPostgresPort
	}
	if pg.DBName == "" {
		pg.DBName = DefaultPostgresDBName
	}
	if pg.SSLMode == "" {
		pg.SSLMode = "disable"
	}
	if pg.MaxOpenConns == 0 {
		pg.MaxOpenConns = DefaultPostgresMaxConns
	}
	if pg.MaxIdleConns == 0 {
		pg.MaxIdleConns = pg.MaxOpenConns / 5
	}
	if pg.ConnMaxLifetime == 0 {
		pg.ConnMaxLifetime = time.Hour
	}
	if pg.ConnMaxIdleTime == 0 {
		pg.ConnMaxIdleTime = 10 * time.Minute
	}

	// ── Neo4j ─────────────────────────────────────────────────────────────────
	n4 := &cfg.Database.Neo4j
	if n4.URI == "" {
		n4.URI = DefaultNeo4jURI
	}
	if n4.Database == "" {
		n4.Database = DefaultNeo4jDatabase
	}
	if n4.MaxConnectionPoolSize == 0 {
		n4.MaxConnectionPoolSize = 50
	}
	if n4.ConnectionTimeout == 0 {
		n4.ConnectionTimeout = 10 * time.Second
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	rd := &cfg.Cache.Redis
	if rd.Addr == "" {
		rd.Addr = DefaultRedisAddr
	}
	if rd.KeyPrefix == "" {
		rd.KeyPrefix = DefaultRedisKeyPrefix
	}
	// DB 0 is both the default and a valid explicit value.

	// ── Kafka ─────────────────────────────────────────────────────────────────
	kf := &cfg.Messaging.Kafka
	if len(kf.Brokers) == 0 {
		kf.Brokers = []string{DefaultKafkaBroker}
	}
	if kf.ConsumerGroup == "" {
		kf.ConsumerGroup = DefaultKafkaConsumerGroup
	}
	if kf.ClientID == "" {
		kf.ClientID = DefaultKafkaClientID
	}
	if kf.BatchSize == 0 {
		kf.BatchSize = 100
	}
	if kf.BatchTimeout == 0 {
		kf.BatchTimeout = 100 * time.Millisecond
	}
	if kf.MaxRetries == 0 {
		kf.MaxRetries = 3
	}

	// ── OpenSearch ────────────────────────────────────────────────────────────
	osc := &cfg.Search.OpenSearch
	if len(osc.Addresses) == 0 {
		osc.Addresses = []string{DefaultOpenSearchAddress}
	}
	if osc.Index == "" {
		osc.Index = DefaultOpenSearchIndex
	}
	if osc.Timeout == 0 {
		osc.Timeout = 10 * time.Second
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	mn := &cfg.Storage.MinIO
	if mn.Endpoint == "" {
		mn.Endpoint = DefaultMinIOEndpoint
	}
	if mn.BucketName == "" {
		mn.BucketName = DefaultMinIOBucket
	}

	// ── Monitoring ────────────────────────────────────────────────────────────
	pm := &cfg.Monitoring.Prometheus
	if pm.Namespace == "" {
		pm.Namespace = DefaultMetricsNamespace
	}
	if pm.Path == "" {
		pm.Path = DefaultMetricsPath
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	// ── Chem ──────────────────────────────────────────────────────────────────
	if cfg.Chem.CacheTTL == 0 {
		cfg.Chem.CacheTTL = DefaultCacheTTL
	}
	if cfg.Chem.LockTTL == 0 {
		cfg.Chem.LockTTL = DefaultLockTTL
	}
	if cfg.Chem.ProjectionWorkers == 0 {
		cfg.Chem.ProjectionWorkers = DefaultProjectionWorkers
	}
}
