package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/velmart/catalog-search/pkg/config"
	"github.com/velmart/catalog-search/pkg/database"
)

// Config holds all configuration for the catalog search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
	RequestTimeout  time.Duration `env:"SEARCH_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SEARCH_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Elasticsearch
	ElasticsearchURL     string        `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchAlias   string        `env:"ELASTICSEARCH_ALIAS" envDefault:"catalog_products"`
	ElasticsearchPrefix  string        `env:"ELASTICSEARCH_PREFIX" envDefault:"catalog_products_v"`
	ElasticsearchTimeout time.Duration `env:"ELASTICSEARCH_TIMEOUT" envDefault:"5s"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"catalog"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"catalog"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	PostgresMaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	PostgresMinConns int32  `env:"POSTGRES_MIN_CONNS" envDefault:"2"`

	// Reindexing
	ReindexBatchSize int `env:"REINDEX_BATCH_SIZE" envDefault:"500"`
	ReindexKeep      int `env:"REINDEX_KEEP_GENERATIONS" envDefault:"2"`
	ReindexGCEvery   int `env:"REINDEX_GC_EVERY_BATCHES" envDefault:"10"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_PRODUCT_TOPIC" envDefault:"catalog.products"`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"catalog-search"`
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog-search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.ElasticsearchAlias == c.ElasticsearchPrefix {
		return fmt.Errorf("alias %q must differ from the generation prefix", c.ElasticsearchAlias)
	}
	if c.ReindexBatchSize < 1 {
		return fmt.Errorf("invalid reindex batch size: %d", c.ReindexBatchSize)
	}
	if c.ReindexKeep < 1 {
		return fmt.Errorf("invalid reindex retention count: %d", c.ReindexKeep)
	}
	if c.OTELSampleRate < 0.0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Postgres assembles the pool configuration from the flat env fields.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		DBName:   c.PostgresDB,
		SSLMode:  c.PostgresSSLMode,
		MaxConns: c.PostgresMaxConns,
		MinConns: c.PostgresMinConns,
	}
}
