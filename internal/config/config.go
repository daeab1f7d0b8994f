// Package config defines the configuration tree of the chemlite services.
// Only plain data types and validation live in this file; loading is in
// loader.go and defaults in defaults.go.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Server
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig groups the listeners of cmd/apiserver.
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
}

// HTTPConfig holds the REST listener tunables.
type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// RateLimitRPS is the per-client request rate. Zero disables limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Addr returns host:port.
func (c HTTPConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// GRPCConfig holds the health/reflection listener.
type GRPCConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	EnableReflection bool   `mapstructure:"enable_reflection"`
}

// Addr returns host:port.
func (c GRPCConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// ─────────────────────────────────────────────────────────────────────────────
// Storage back ends
// ─────────────────────────────────────────────────────────────────────────────

// DatabaseConfig groups the relational store and the graph projection.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// Neo4jConfig holds the reaction-graph projection connection.
type Neo4jConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	Database              string        `mapstructure:"database"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
}

// CacheConfig groups cache back ends.
type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MessagingConfig groups message brokers.
type MessagingConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// KafkaConfig holds producer/consumer parameters.
type KafkaConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Brokers          []string      `mapstructure:"brokers"`
	ConsumerGroup    string        `mapstructure:"consumer_group"`
	ClientID         string        `mapstructure:"client_id"`
	BatchSize        int           `mapstructure:"batch_size"`
	BatchTimeout     time.Duration `mapstructure:"batch_timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	AutoCreateTopics bool          `mapstructure:"auto_create_topics"`
}

// SearchConfig groups search back ends.
type SearchConfig struct {
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
}

// OpenSearchConfig holds the compound index connection.
type OpenSearchConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Addresses          []string      `mapstructure:"addresses"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	Index              string        `mapstructure:"index"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// StorageConfig groups object stores.
type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio"`
}

// MinIOConfig holds the snapshot bucket parameters.
type MinIOConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Ambient
// ─────────────────────────────────────────────────────────────────────────────

// MonitoringConfig groups observability exporters.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig controls the /metrics endpoint.
type PrometheusConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
	Output string `mapstructure:"output"`
}

// ChemConfig tunes the pathway service.
type ChemConfig struct {
	// CacheTTL bounds how long a pathway document stays in Redis.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// DistributedLock serializes writers of a pathway across replicas.
	DistributedLock bool          `mapstructure:"distributed_lock"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	// ProjectionWorkers is the consumer concurrency of cmd/worker.
	ProjectionWorkers int `mapstructure:"projection_workers"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Messaging  MessagingConfig  `mapstructure:"messaging"`
	Search     SearchConfig     `mapstructure:"search"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Log        LogConfig        `mapstructure:"log"`
	Chem       ChemConfig       `mapstructure:"chem"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found. Disabled back ends are not checked.
func (c *Config) Validate() error {
	// Server
	if err := validPort("server.http.port", c.Server.HTTP.Port); err != nil {
		return err
	}
	switch c.Server.HTTP.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.http.mode %q is invalid; expected debug|release|test", c.Server.HTTP.Mode)
	}
	if c.Server.HTTP.RateLimitRPS < 0 {
		return fmt.Errorf("config: server.http.rate_limit_rps must be >= 0")
	}
	if c.Server.GRPC.Enabled {
		if err := validPort("server.grpc.port", c.Server.GRPC.Port); err != nil {
			return err
		}
		if c.Server.GRPC.Port == c.Server.HTTP.Port && c.Server.GRPC.Host == c.Server.HTTP.Host {
			return fmt.Errorf("config: server.grpc.port %d collides with server.http.port", c.Server.GRPC.Port)
		}
	}

	// Postgres
	pg := c.Database.Postgres
	if pg.Host == "" {
		return fmt.Errorf("config: database.postgres.host is required")
	}
	if err := validPort("database.postgres.port", pg.Port); err != nil {
		return err
	}
	if pg.User == "" {
		return fmt.Errorf("config: database.postgres.user is required")
	}
	if pg.DBName == "" {
		return fmt.Errorf("config: database.postgres.dbname is required")
	}
	if pg.MaxOpenConns < 1 {
		return fmt.Errorf("config: database.postgres.max_open_conns must be >= 1, got %d", pg.MaxOpenConns)
	}

	// Optional back ends
	if c.Database.Neo4j.Enabled && c.Database.Neo4j.URI == "" {
		return fmt.Errorf("config: database.neo4j.uri is required when neo4j is enabled")
	}
	if c.Cache.Redis.Enabled {
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("config: cache.redis.addr is required when redis is enabled")
		}
		if c.Cache.Redis.DB < 0 {
			return fmt.Errorf("config: cache.redis.db must be >= 0, got %d", c.Cache.Redis.DB)
		}
	}
	if c.Messaging.Kafka.Enabled {
		if len(c.Messaging.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: messaging.kafka.brokers must contain at least one broker address")
		}
		if c.Messaging.Kafka.ConsumerGroup == "" {
			return fmt.Errorf("config: messaging.kafka.consumer_group is required")
		}
	}
	if c.Search.OpenSearch.Enabled && len(c.Search.OpenSearch.Addresses) == 0 {
		return fmt.Errorf("config: search.opensearch.addresses must not be empty when opensearch is enabled")
	}
	if c.Storage.MinIO.Enabled {
		if c.Storage.MinIO.Endpoint == "" {
			return fmt.Errorf("config: storage.minio.endpoint is required when minio is enabled")
		}
		if c.Storage.MinIO.BucketName == "" {
			return fmt.Errorf("config: storage.minio.bucket_name is required when minio is enabled")
		}
	}
	if c.Chem.DistributedLock && !c.Cache.Redis.Enabled {
		return fmt.Errorf("config: chem.distributed_lock requires cache.redis.enabled")
	}
	if c.Chem.ProjectionWorkers < 1 {
		return fmt.Errorf("config: chem.projection_workers must be >= 1, got %d", c.Chem.ProjectionWorkers)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

func validPort(key string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("config: %s %d is out of range [1, 65535]", key, port)
	}
	return nil
}
