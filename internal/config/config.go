package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "SHIFTLOG"

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// Vector index
	VectorBackend      string `envconfig:"VECTOR_BACKEND" default:"pgvector"`
	DatabaseURL        string `envconfig:"DATABASE_URL"`
	RedisAddr          string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword      string `envconfig:"REDIS_PASSWORD"`
	RedisDB            int    `envconfig:"REDIS_DB" default:"0"`
	CollectionName     string `envconfig:"COLLECTION_NAME" default:"building_logs"`
	EmbeddingDimension int    `envconfig:"EMBEDDING_DIMENSION" default:"768"`

	// Language models
	LLMProvider           string  `envconfig:"LLM_PROVIDER" default:"gemini"`
	GoogleAPIKey          string  `envconfig:"GOOGLE_API_KEY"`
	GoogleBackend         string  `envconfig:"GOOGLE_BACKEND" default:"gemini"`
	GoogleProject         string  `envconfig:"GOOGLE_PROJECT"`
	GoogleLocation        string  `envconfig:"GOOGLE_LOCATION" default:"us-central1"`
	OpenAIAPIKey          string  `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel        string  `envconfig:"EMBEDDING_MODEL"`
	GenerationModel       string  `envconfig:"GENERATION_MODEL"`
	GenerationTemperature float32 `envconfig:"GENERATION_TEMPERATURE" default:"0.1"`
	EmbedRatePerSec       float64 `envconfig:"EMBED_RATE_PER_SEC" default:"0"`
	EmbedBurst            int     `envconfig:"EMBED_BURST" default:"5"`

	// Original file storage
	StorageBackend     string `envconfig:"STORAGE_BACKEND" default:"local"`
	UploadDir          string `envconfig:"UPLOAD_DIR" default:"uploads"`
	S3Endpoint         string `envconfig:"S3_ENDPOINT"`
	S3AccessKey        string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey        string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket           string `envconfig:"S3_BUCKET" default:"shiftlog-files"`
	S3Region           string `envconfig:"S3_REGION" default:"us-east-1"`
	GCSBucket          string `envconfig:"GCS_BUCKET"`
	GCSCredentialsFile string `envconfig:"GCS_CREDENTIALS_FILE"`
	GCSEndpoint        string `envconfig:"GCS_ENDPOINT"`

	// Ingestion
	MaxUploadBytes int64         `envconfig:"MAX_UPLOAD_BYTES" default:"104857600"`
	MaxFiles       int           `envconfig:"MAX_FILES" default:"100"`
	CORSOrigins    []string      `envconfig:"CORS_ORIGINS" default:"*"`
	InboxDir       string        `envconfig:"INBOX_DIR" default:"inbox"`
	InboxInterval  time.Duration `envconfig:"INBOX_INTERVAL" default:"30s"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks the cross-field rules envconfig cannot express.
func (c *Config) Validate() error {
	switch strings.ToLower(c.VectorBackend) {
	case "pgvector":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%s_DATABASE_URL is required for the pgvector backend", EnvPrefix)
		}
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("%s_REDIS_ADDR is required for the redis backend", EnvPrefix)
		}
	default:
		return fmt.Errorf("unknown vector backend %q", c.VectorBackend)
	}

	switch strings.ToLower(c.StorageBackend) {
	case "local":
	case "s3":
		if !c.HasS3() {
			return fmt.Errorf("s3 storage requires %s_S3_ENDPOINT and credentials", EnvPrefix)
		}
	case "gcs":
		if !c.HasGCS() {
			return fmt.Errorf("gcs storage requires %s_GCS_BUCKET", EnvPrefix)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("%s_EMBEDDING_DIMENSION must be positive", EnvPrefix)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasGCS() bool {
	return c.GCSBucket != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasGoogleCredentials() bool {
	if c.GoogleBackend == "vertex" {
		return c.GoogleProject != ""
	}
	return c.GoogleAPIKey != ""
}

// HasLLMCredentials reports whether the selected provider can be constructed.
func (c *Config) HasLLMCredentials() bool {
	if c.LLMProvider == "openai" {
		return c.HasOpenAI()
	}
	return c.HasGoogleCredentials()
}
