package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for the tunable knobs. IndexMaxDocs of 0 means no cap.
const (
	DefaultTopK           = 5
	DefaultIndexBatchSize = 20000
	DefaultLLMTimeout     = 60 * time.Second
	DefaultEmbedTimeout   = 30 * time.Second
	DefaultServerAddr     = ":8000"
	DefaultHistoryCSV     = "chat_history.csv"
)

// Config holds all environment-sourced settings. EndpointURL and Token
// are required; everything else has a default or is optional.
type Config struct {
	ServerAddr string

	// Hosted inference endpoint (text generation).
	EndpointURL string
	Token       string

	// Embedding endpoint (feature extraction).
	EmbedURL string

	// Postgres connection.
	PGHost   string
	PGPort   int
	PGUser   string
	PGPass   string
	PGDBName string

	// Cold-storage mirroring. Empty bucket disables it.
	GCSBucket          string
	GCSCredentialsPath string

	TopK           int
	IndexBatchSize int
	// IndexMaxDocs caps how many documents an Index call will accept.
	// 0 disables the cap.
	IndexMaxDocs int

	HistoryCSV  string
	DataCSVPath string

	LLMTimeout   time.Duration
	EmbedTimeout time.Duration
}

// Load reads configuration from the environment. A missing inference
// endpoint URL, token or embedding URL is a hard error: the process must
// not serve traffic without them.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr:         envOr("SERVER_ADDR", DefaultServerAddr),
		EndpointURL:        os.Getenv("HUGGINGFACE_ENDPOINT_URL"),
		Token:              os.Getenv("HUGGINGFACE_TOKEN"),
		EmbedURL:           os.Getenv("EMBEDDING_ENDPOINT_URL"),
		PGHost:             envOr("PG_HOST", "localhost"),
		PGPort:             envInt("PG_PORT", 5432),
		PGUser:             os.Getenv("PG_USER"),
		PGPass:             os.Getenv("PG_PASS"),
		PGDBName:           os.Getenv("PG_DB_NAME"),
		GCSBucket:          os.Getenv("GCS_BUCKET_NAME"),
		GCSCredentialsPath: os.Getenv("GCS_CREDENTIALS_PATH"),
		TopK:               envInt("TOP_K", DefaultTopK),
		IndexBatchSize:     envInt("INDEX_BATCH_SIZE", DefaultIndexBatchSize),
		IndexMaxDocs:       envInt("INDEX_MAX_DOCS", 0),
		HistoryCSV:         envOr("CHAT_HISTORY_CSV", DefaultHistoryCSV),
		DataCSVPath:        os.Getenv("DATA_CSV_PATH"),
		LLMTimeout:         envDuration("LLM_TIMEOUT", DefaultLLMTimeout),
		EmbedTimeout:       envDuration("EMBED_TIMEOUT", DefaultEmbedTimeout),
	}

	if cfg.EndpointURL == "" {
		return nil, fmt.Errorf("HUGGINGFACE_ENDPOINT_URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("HUGGINGFACE_TOKEN is required")
	}
	if cfg.EmbedURL == "" {
		return nil, fmt.Errorf("EMBEDDING_ENDPOINT_URL is required")
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("TOP_K must be positive, got %d", cfg.TopK)
	}
	if cfg.IndexBatchSize <= 0 {
		return nil, fmt.Errorf("INDEX_BATCH_SIZE must be positive, got %d", cfg.IndexBatchSize)
	}

	return cfg, nil
}

// ConnString builds the Postgres connection string.
func (c *Config) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.PGHost, c.PGPort, c.PGUser, c.PGPass, c.PGDBName)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
