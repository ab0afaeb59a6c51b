package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// BackoffPolicy selects the delay strategy between retried API calls.
type BackoffPolicy string

const (
	BackoffFlat        BackoffPolicy = "flat"
	BackoffExponential BackoffPolicy = "exponential"
)

type Config struct {
	Port string

	// DeepSeek completion API
	DeepseekAPIKey string
	DeepseekAPIURL string
	DeepseekModel  string
	Temperature    float64
	MaxOutputTok   int

	// DeepL translation (optional)
	DeepLAPIKey   string
	DeepLAPIURL   string
	TranslateLang string
	Translate     bool

	// Server auth
	APIKey string

	// Retry behavior
	MaxRetries     int
	Backoff        BackoffPolicy
	RetryDelay     time.Duration
	RequestTimeout time.Duration
	RateLimitRPS   float64

	// Chunking
	MaxChunkTokens int
	SinglePassTok  int
	BoundaryWindow float64

	// Output
	OutputDir string

	// Worker pool (across documents, never within one)
	WorkerCount  int
	MaxQueueSize int

	// Upload limits (server mode)
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		DeepseekAPIKey: os.Getenv("DEEPSEEK_API_KEY"),
		DeepseekAPIURL: envOr("DEEPSEEK_API_URL", "https://api.deepseek.com/v1/chat/completions"),
		DeepseekModel:  envOr("DEEPSEEK_MODEL", "deepseek-chat"),
		Temperature:    envFloat("TEMPERATURE", 0.3),
		MaxOutputTok:   envInt("MAX_OUTPUT_TOKENS", 8192),

		DeepLAPIKey:   os.Getenv("DEEPL_API_KEY"),
		DeepLAPIURL:   envOr("DEEPL_API_URL", "https://api.deepl.com/v2/translate"),
		TranslateLang: envOr("TRANSLATE_LANG", "ZH-HANT"),
		Translate:     envBool("TRANSLATE", false),

		APIKey: os.Getenv("BOOKGEST_API_KEY"),

		MaxRetries:     envInt("MAX_RETRIES", 3),
		Backoff:        BackoffPolicy(envOr("BACKOFF_POLICY", string(BackoffExponential))),
		RetryDelay:     envDuration("RETRY_DELAY", 5*time.Second),
		RequestTimeout: envDuration("REQUEST_TIMEOUT", 120*time.Second),
		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 1),

		MaxChunkTokens: envInt("MAX_CHUNK_TOKENS", 25000),
		SinglePassTok:  envInt("SINGLE_PASS_TOKENS", 40000),
		BoundaryWindow: envFloat("BOUNDARY_WINDOW", 0.5),

		OutputDir: envOr("OUTPUT_DIR", "book_reports"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 50),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 104857600), // 100MB

		JobTTL: envDuration("JOB_TTL", 2*time.Hour),
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff != BackoffFlat && cfg.Backoff != BackoffExponential {
		cfg.Backoff = BackoffExponential
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.MaxChunkTokens <= 0 {
		cfg.MaxChunkTokens = 25000
	}
	if cfg.SinglePassTok <= 0 {
		cfg.SinglePassTok = 40000
	}
	if cfg.BoundaryWindow <= 0 || cfg.BoundaryWindow >= 1 {
		cfg.BoundaryWindow = 0.5
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 104857600
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 2 * time.Hour
	}

	return cfg
}

// Validate checks the credentials every analysis run needs.
// A missing completion credential is fatal at startup, never retried.
func (c Config) Validate() error {
	if c.DeepseekAPIKey == "" {
		return fmt.Errorf("DEEPSEEK_API_KEY is required")
	}
	if c.Translate && c.DeepLAPIKey == "" {
		return fmt.Errorf("DEEPL_API_KEY is required when TRANSLATE is enabled")
	}
	return nil
}

// ValidateServer additionally checks server-mode requirements.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("BOOKGEST_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
