package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
// Component limits and options live here explicitly instead of in ad-hoc
// global dictionaries; each constructor receives only the section it needs.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// HTTP server.
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	// Storage.
	StoragePath    string
	StorageBaseURL string

	// Pipeline.
	CreditsPerRequest int
	PipelineWorkers   int
	FetchTimeout      time.Duration

	// Conformance limits.
	MaxImageBytes     int
	MaxImageDimension int

	// Generation API.
	GenerationURL     string
	GenerationAPIKey  string
	GenerationTimeout time.Duration

	// Product matching.
	ProductMatchURL string

	// Mask generation.
	SegmentationURL     string
	SegmentationTimeout time.Duration
	MaskCacheTTL        time.Duration
	MaskCacheBackend    string // "memory" or "redis"
	RedisAddr           string
}

// Load reads configuration from the environment, consulting .env files when
// present, and applies defaults where needed.
func Load() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: os.Getenv("STORAGE_BASE_URL"),

		CreditsPerRequest: getEnvInt("CREDITS_PER_REQUEST", 1),
		PipelineWorkers:   getEnvInt("PIPELINE_WORKERS", 4),
		FetchTimeout:      time.Second * time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 30)),

		MaxImageBytes:     getEnvInt("MAX_IMAGE_BYTES", 4*1024*1024),
		MaxImageDimension: getEnvInt("MAX_IMAGE_DIMENSION", 4096),

		GenerationURL:     os.Getenv("GENERATION_API_URL"),
		GenerationAPIKey:  os.Getenv("GENERATION_API_KEY"),
		GenerationTimeout: time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 30)),

		ProductMatchURL: os.Getenv("PRODUCT_MATCH_API_URL"),

		SegmentationURL:     os.Getenv("SEGMENTATION_API_URL"),
		SegmentationTimeout: time.Second * time.Duration(getEnvInt("SEGMENTATION_TIMEOUT_SECONDS", 20)),
		MaskCacheTTL:        time.Minute * time.Duration(getEnvInt("MASK_CACHE_TTL_MINUTES", 60)),
		MaskCacheBackend:    getEnv("MASK_CACHE_BACKEND", "memory"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.GenerationURL == "" {
		return nil, fmt.Errorf("GENERATION_API_URL is required")
	}
	if cfg.PipelineWorkers <= 0 {
		cfg.PipelineWorkers = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
