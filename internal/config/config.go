package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"corpusmap"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"corpusmap"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	EmbedModel    string `envconfig:"EMBED_MODEL" default:"gemini-embedding-001"`
	EmbedDim      int    `envconfig:"EMBED_DIM" default:"1536"`
	LabelModel    string `envconfig:"LABEL_MODEL" default:"gemini-1.5-flash"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	EnableAPI              bool `envconfig:"ENABLE_API" default:"true"`
	EnableEmbedWorker      bool `envconfig:"ENABLE_EMBED_WORKER" default:"true"`
	EnableProjectionWorker bool `envconfig:"ENABLE_PROJECTION_WORKER" default:"true"`

	EmbedWorkers      int `envconfig:"EMBED_WORKERS" default:"4"`
	ProjectionWorkers int `envconfig:"PROJECTION_WORKERS" default:"2"`
	ClaimBatchSize    int `envconfig:"CLAIM_BATCH_SIZE" default:"10"`
	WorkerIdleSeconds int `envconfig:"WORKER_IDLE_SECONDS" default:"2"`

	// Retry policy for transient enrichment failures. The ceiling is a
	// policy knob, not a derived value.
	EnrichMaxAttempts        int `envconfig:"ENRICH_MAX_ATTEMPTS" default:"5"`
	RetryBackoffSeconds      int `envconfig:"RETRY_BACKOFF_SECONDS" default:"30"`
	StaleThresholdSeconds    int `envconfig:"STALE_THRESHOLD_SECONDS" default:"300"`
	ReconcileIntervalSeconds int `envconfig:"RECONCILE_INTERVAL_SECONDS" default:"60"`

	ProjectionModelPath       string `envconfig:"PROJECTION_MODEL_PATH" default:"data/projection_model.json"`
	ModelCheckIntervalSeconds int    `envconfig:"MODEL_CHECK_INTERVAL_SECONDS" default:"60"`

	QueryTimeoutSeconds int `envconfig:"QUERY_TIMEOUT_SECONDS" default:"10"`
	MaxCap              int `envconfig:"MAX_CAP" default:"1000"`

	ServerPort   int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root.
	// Ignore errors, as env vars might be set in the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("%w: EMBED_DIM", ErrMissingRequired)
	}
	return nil
}
