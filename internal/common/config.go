package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/image-factory/constants"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Queue    QueueConfig
	Upload   UploadConfig
	Derive   DeriveConfig
}

// ServerConfig holds addresses for the API and worker processes.
type ServerConfig struct {
	APIAddr    string
	WorkerAddr string
	BaseURL    string
}

// DatabaseConfig holds job-record-store configuration.
// Driver selects the adapter: "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver          string
	DSN             string
	SQLitePath      string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// StorageConfig holds blob-store configuration.
type StorageConfig struct {
	Root    string
	BaseURL string
}

// QueueConfig holds push-transport configuration.
type QueueConfig struct {
	DeriveEndpoint     string
	DeadLetterEndpoint string
	MaxAttempts        int
	RetryBackoff       time.Duration
	PublishTimeout     time.Duration
}

// UploadConfig holds submission validation and admission policy values.
type UploadConfig struct {
	MaxFileSize         int64
	AllowedContentTypes map[string]struct{}
	StalePendingAfter   time.Duration
}

// DeriveConfig holds derivation-function configuration.
type DeriveConfig struct {
	ThumbnailSizes []int
	InferenceURL   string
	InferenceKey   string
	NumLabels      int
	Timeout        time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			APIAddr:    getEnv("API_ADDR", ":8080"),
			WorkerAddr: getEnv("WORKER_ADDR", ":8081"),
			BaseURL:    getEnv("BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			DSN:             getEnv("DB_URL", ""),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "./data/jobs.db"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Storage: StorageConfig{
			Root:    getEnv("STORAGE_ROOT", "./data/blobs"),
			BaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/blobs"),
		},
		Queue: QueueConfig{
			DeriveEndpoint:     getEnv("QUEUE_DERIVE_ENDPOINT", "http://localhost:8081/derive"),
			DeadLetterEndpoint: getEnv("QUEUE_DLQ_ENDPOINT", "http://localhost:8081/derive/dlq"),
			MaxAttempts:        getEnvAsInt("QUEUE_MAX_ATTEMPTS", 5),
			RetryBackoff:       getEnvAsDuration("QUEUE_RETRY_BACKOFF", 2*time.Second),
			PublishTimeout:     getEnvAsDuration("QUEUE_PUBLISH_TIMEOUT", 10*time.Second),
		},
		Upload: UploadConfig{
			MaxFileSize:         getEnvAsInt64("UPLOAD_MAX_FILE_SIZE", 5*1024*1024),
			AllowedContentTypes: getEnvAsContentTypes("UPLOAD_ALLOWED_CONTENT_TYPES"),
			StalePendingAfter:   getEnvAsDuration("UPLOAD_STALE_PENDING_AFTER", 15*time.Minute),
		},
		Derive: DeriveConfig{
			ThumbnailSizes: getEnvAsIntList("DERIVE_THUMBNAIL_SIZES", []int{64, 128, 256}),
			InferenceURL:   getEnv("DERIVE_INFERENCE_URL", ""),
			InferenceKey:   getEnv("DERIVE_INFERENCE_API_KEY", ""),
			NumLabels:      getEnvAsInt("DERIVE_NUM_LABELS", 5),
			Timeout:        getEnvAsDuration("DERIVE_TIMEOUT", 45*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsIntList(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return defaultValue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsContentTypes(key string) map[string]struct{} {
	value := os.Getenv(key)
	if value == "" {
		return constants.AllowedContentTypes
	}
	out := make(map[string]struct{})
	for _, part := range strings.Split(value, ",") {
		ct := constants.NormalizeContentType(part)
		if ct != "" {
			out[ct] = struct{}{}
		}
	}
	if len(out) == 0 {
		return constants.AllowedContentTypes
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres driver", ErrValidation)
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return NewAppError("CONFIG_ERROR", "DB_SQLITE_PATH is required for the sqlite driver", ErrValidation)
		}
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrValidation)
	}
	if c.Queue.DeriveEndpoint == "" {
		return NewAppError("CONFIG_ERROR", "QUEUE_DERIVE_ENDPOINT is required", ErrValidation)
	}
	if c.Queue.MaxAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "QUEUE_MAX_ATTEMPTS must be at least 1", ErrValidation)
	}
	if c.Upload.MaxFileSize <= 0 {
		return NewAppError("CONFIG_ERROR", "UPLOAD_MAX_FILE_SIZE must be positive", ErrValidation)
	}
	return nil
}
