package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth; empty disables the bearer check so the service can run
	// as a purely local tool.
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64
	MaxSources     int

	// Merge defaults
	DefaultKeepStyles bool
	DefaultKeepImages bool
	DefaultOutputName string

	// Preview memoization
	PreviewCacheSize int

	// Job state
	JobTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("WORDMERGE_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 32),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		MaxSources:     envInt("MAX_SOURCES", 32),

		DefaultKeepStyles: envBool("KEEP_STYLES_DEFAULT", true),
		DefaultKeepImages: envBool("KEEP_IMAGES_DEFAULT", true),
		DefaultOutputName: envOr("OUTPUT_NAME_DEFAULT", "merged_document.docx"),

		PreviewCacheSize: envInt("PREVIEW_CACHE_SIZE", 64),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 32
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = 32
	}
	if cfg.PreviewCacheSize <= 0 {
		cfg.PreviewCacheSize = 64
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.DefaultOutputName == "" {
		return fmt.Errorf("OUTPUT_NAME_DEFAULT must not be empty")
	}
	if !strings.EqualFold(filepath.Ext(c.DefaultOutputName), ".docx") {
		return fmt.Errorf("OUTPUT_NAME_DEFAULT must have a .docx extension, got %q", c.DefaultOutputName)
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
