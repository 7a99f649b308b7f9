// Package config loads ivgraph's runtime configuration from environment
// variables, with an optional YAML file providing defaults that the
// environment can still override. Every variable is prefixed
// IVGRAPH_ and has a sane default, so LoadFromEnv can be called with
// nothing set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting the engine, translator and server need.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Query     QueryConfig     `yaml:"query"`
	Logging   LoggingConfig   `yaml:"logging"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// DatabaseConfig holds the connection settings for the relational
// host the translator's SQL runs against.
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"`
	PoolSize         int           `yaml:"pool_size"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds listen-address and metrics-port settings. They
// are loaded like every other setting, but no command in cmd/ivgraph
// starts a server or reads them.
type ServerConfig struct {
	ListenAddress string `yaml:"listen_address"`
	MetricsPort   int    `yaml:"metrics_port"`
}

// QueryConfig holds translation and execution limits.
type QueryConfig struct {
	DefaultK           int           `yaml:"default_k"`
	MaxK               int           `yaml:"max_k"`
	TraversalMaxHops   int64         `yaml:"traversal_max_hops"`
	EmbeddingDimension int           `yaml:"embedding_dimension"`
	DefaultSimilarity  string        `yaml:"default_similarity"`
	PlanCacheSize      int           `yaml:"plan_cache_size"`
	ExecutionTimeout   time.Duration `yaml:"execution_timeout"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// RetrievalConfig holds tuning for the hybrid-retrieval operators.
type RetrievalConfig struct {
	RRFDamping  int     `yaml:"rrf_damping"`
	PPRDamping  float64 `yaml:"ppr_damping"`
	PPREps      float64 `yaml:"ppr_eps"`
	PPRMaxIters int     `yaml:"ppr_max_iters"`
}

// Default returns a Config populated entirely with defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              "postgres://localhost:5432/ivgraph",
			PoolSize:         8,
			ConnectTimeout:   5 * time.Second,
			StatementTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			ListenAddress: "0.0.0.0:8080",
			MetricsPort:   9090,
		},
		Query: QueryConfig{
			DefaultK:           50,
			MaxK:               1000,
			TraversalMaxHops:   5,
			EmbeddingDimension: 768,
			DefaultSimilarity:  "cosine",
			PlanCacheSize:      512,
			ExecutionTimeout:   10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Development: false,
		},
		Retrieval: RetrievalConfig{
			RRFDamping:  60,
			PPRDamping:  0.85,
			PPREps:      1e-4,
			PPRMaxIters: 100,
		},
	}
}

// LoadFromFile reads a YAML config file and layers environment
// variables on top of it. A missing path is not an error — the
// caller gets defaults plus whatever the environment sets.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadFromEnv loads configuration from defaults plus environment
// variables only, skipping any YAML file.
func LoadFromEnv() *Config {
	cfg := Default()
	applyEnv(cfg)
	return cfg
}

func applyEnv(c *Config) {
	c.Database.DSN = getEnv("IVGRAPH_DB_DSN", c.Database.DSN)
	c.Database.PoolSize = getEnvInt("IVGRAPH_DB_POOL_SIZE", c.Database.PoolSize)
	c.Database.ConnectTimeout = getEnvDuration("IVGRAPH_DB_CONNECT_TIMEOUT", c.Database.ConnectTimeout)
	c.Database.StatementTimeout = getEnvDuration("IVGRAPH_DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.ListenAddress = getEnv("IVGRAPH_SERVER_LISTEN_ADDRESS", c.Server.ListenAddress)
	c.Server.MetricsPort = getEnvInt("IVGRAPH_SERVER_METRICS_PORT", c.Server.MetricsPort)

	c.Query.DefaultK = getEnvInt("IVGRAPH_QUERY_DEFAULT_K", c.Query.DefaultK)
	c.Query.MaxK = getEnvInt("IVGRAPH_QUERY_MAX_K", c.Query.MaxK)
	c.Query.TraversalMaxHops = int64(getEnvInt("IVGRAPH_QUERY_TRAVERSAL_MAX_HOPS", int(c.Query.TraversalMaxHops)))
	c.Query.EmbeddingDimension = getEnvInt("IVGRAPH_QUERY_EMBEDDING_DIMENSION", c.Query.EmbeddingDimension)
	c.Query.DefaultSimilarity = getEnv("IVGRAPH_QUERY_DEFAULT_SIMILARITY", c.Query.DefaultSimilarity)
	c.Query.PlanCacheSize = getEnvInt("IVGRAPH_QUERY_PLAN_CACHE_SIZE", c.Query.PlanCacheSize)
	c.Query.ExecutionTimeout = getEnvDuration("IVGRAPH_QUERY_EXECUTION_TIMEOUT", c.Query.ExecutionTimeout)

	c.Logging.Level = getEnv("IVGRAPH_LOG_LEVEL", c.Logging.Level)
	c.Logging.Development = getEnvBool("IVGRAPH_LOG_DEVELOPMENT", c.Logging.Development)

	c.Retrieval.RRFDamping = getEnvInt("IVGRAPH_RETRIEVAL_RRF_DAMPING", c.Retrieval.RRFDamping)
	c.Retrieval.PPRDamping = getEnvFloat("IVGRAPH_RETRIEVAL_PPR_DAMPING", c.Retrieval.PPRDamping)
	c.Retrieval.PPREps = getEnvFloat("IVGRAPH_RETRIEVAL_PPR_EPS", c.Retrieval.PPREps)
	c.Retrieval.PPRMaxIters = getEnvInt("IVGRAPH_RETRIEVAL_PPR_MAX_ITERS", c.Retrieval.PPRMaxIters)
}

// Validate checks the configuration for values that would break the
// translator or engine at runtime rather than at startup.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("config: database DSN must not be empty")
	}
	if c.Query.MaxK < c.Query.DefaultK {
		return fmt.Errorf("config: query.max_k (%d) is below query.default_k (%d)", c.Query.MaxK, c.Query.DefaultK)
	}
	if c.Query.TraversalMaxHops < 1 {
		return fmt.Errorf("config: query.traversal_max_hops must be >= 1, got %d", c.Query.TraversalMaxHops)
	}
	if c.Query.EmbeddingDimension <= 0 {
		return fmt.Errorf("config: query.embedding_dimension must be positive, got %d", c.Query.EmbeddingDimension)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
