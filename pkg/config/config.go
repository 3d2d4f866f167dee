// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// retrieval pipeline, corpus locations, snapshots and the supporting services
// (Server, Postgres, Kafka, Redis, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// RetrievalConfig controls query expansion, ranking and evaluation.
type RetrievalConfig struct {
	// ExpansionWidth is the number of co-occurring terms selected per seed
	// term. The seed usually selects itself, so 5 adds roughly four terms.
	ExpansionWidth int `yaml:"expansionWidth"`
	// Normalization is "global" (single Frobenius norm) or "cosine"
	// (per term pair).
	Normalization string  `yaml:"normalization"`
	Threshold     float64 `yaml:"threshold"`
	TopN          int     `yaml:"topN"`
	// Mode is "global" or "local" (expansion over pseudo-relevant documents).
	Mode    string `yaml:"mode"`
	Expand  bool   `yaml:"expand"`
	Workers int    `yaml:"workers"`
	Verbose bool   `yaml:"verbose"`
}

// CorpusConfig locates the raw corpus files for both retrieval contexts.
type CorpusConfig struct {
	ArticlesPath       string `yaml:"articlesPath"`
	PortfolioPath      string `yaml:"portfolioPath"`
	CranfieldDocs      string `yaml:"cranfieldDocs"`
	CranfieldQueries   string `yaml:"cranfieldQueries"`
	CranfieldRelevance string `yaml:"cranfieldRelevance"`
	// RelevanceOffset is added to zero-based document keys before they are
	// compared with ground-truth ids.
	RelevanceOffset int `yaml:"relevanceOffset"`
}

// SnapshotConfig controls where derived artifacts are cached between runs.
type SnapshotConfig struct {
	Dir string `yaml:"dir"`
	// Format is "json" or "cbor" (CBOR compressed with zstd).
	Format  string `yaml:"format"`
	Disable bool   `yaml:"disable"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	DefaultLimit    int           `yaml:"defaultLimit"`
	MaxResults      int           `yaml:"maxResults"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	Articles      string `yaml:"articles"`
	CorpusChanged string `yaml:"corpusChanged"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Variables from a .env file in the working directory are loaded
// first; variables already present in the environment win. The result is
// validated before it is returned.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	r := c.Retrieval
	if r.ExpansionWidth < 1 {
		return fmt.Errorf("retrieval.expansionWidth must be positive, got %d", r.ExpansionWidth)
	}
	if r.TopN < 1 {
		return fmt.Errorf("retrieval.topN must be positive, got %d", r.TopN)
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return fmt.Errorf("retrieval.threshold must be within [0,1], got %v", r.Threshold)
	}
	switch r.Normalization {
	case "global", "cosine":
	default:
		return fmt.Errorf("retrieval.normalization must be global or cosine, got %q", r.Normalization)
	}
	switch r.Mode {
	case "global", "local":
	default:
		return fmt.Errorf("retrieval.mode must be global or local, got %q", r.Mode)
	}
	switch c.Snapshot.Format {
	case "json", "cbor":
	default:
		return fmt.Errorf("snapshot.format must be json or cbor, got %q", c.Snapshot.Format)
	}
	return nil
}

// defaultConfig returns a Config reproducing the reference retrieval
// parameters and local development service addresses.
func defaultConfig() *Config {
	return &Config{
		Retrieval: RetrievalConfig{
			ExpansionWidth: 5,
			Normalization:  "global",
			Threshold:      0.2,
			TopN:           3,
			Mode:           "global",
			Expand:         true,
			Workers:        4,
		},
		Corpus: CorpusConfig{
			ArticlesPath:       "data/newsapi_articles.json",
			PortfolioPath:      "data/stock_portfolio.json",
			CranfieldDocs:      "data/cran.all.1400",
			CranfieldQueries:   "data/cran.qry",
			CranfieldRelevance: "data/cranqrel",
			RelevanceOffset:    1,
		},
		Snapshot: SnapshotConfig{
			Dir:    "data/snapshots",
			Format: "cbor",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			DefaultLimit:    3,
			MaxResults:      100,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "retrieval",
			User:            "retrieval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "retrieval-group",
			Topics: KafkaTopics{
				Articles:      "news-articles",
				CorpusChanged: "corpus-changed",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads VSR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VSR_RETRIEVAL_EXPANSION_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.ExpansionWidth = n
		}
	}
	if v := os.Getenv("VSR_RETRIEVAL_NORMALIZATION"); v != "" {
		cfg.Retrieval.Normalization = v
	}
	if v := os.Getenv("VSR_RETRIEVAL_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.Threshold = f
		}
	}
	if v := os.Getenv("VSR_RETRIEVAL_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.TopN = n
		}
	}
	if v := os.Getenv("VSR_RETRIEVAL_MODE"); v != "" {
		cfg.Retrieval.Mode = v
	}
	if v := os.Getenv("VSR_RETRIEVAL_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Retrieval.Verbose = b
		}
	}
	if v := os.Getenv("VSR_SNAPSHOT_DIR"); v != "" {
		cfg.Snapshot.Dir = v
	}
	if v := os.Getenv("VSR_SNAPSHOT_FORMAT"); v != "" {
		cfg.Snapshot.Format = v
	}
	if v := os.Getenv("VSR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VSR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("VSR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("VSR_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("VSR_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("VSR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("VSR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("VSR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("VSR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("VSR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VSR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
