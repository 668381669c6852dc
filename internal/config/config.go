package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

const (
	defaultHTTPPort        = "8080"
	defaultTemporalAddress = "localhost:7233"
	defaultTemporalNS      = "default"
	defaultTaskQueue       = "passport-lifecycle-task-queue"
	defaultMinioEndpoint   = "localhost:9000"
	defaultMinioBucket     = "application-documents"
	defaultLogLevel        = "info"
)

type Config struct {
	HTTPPort           string
	PostgresDSN        string
	TemporalAddress    string
	TemporalNamespace  string
	TemporalTaskQueue  string
	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioBucket        string
	MinioUseSSL        bool
	WorkflowIDPrefix   string
	AllowedUploadBytes int64
	LogLevel           string
	LogJSON            bool
}

func Load() (Config, error) {
	cfg := Config{
		HTTPPort:           getenv("HTTP_PORT", defaultHTTPPort),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		TemporalAddress:    getenv("TEMPORAL_ADDRESS", defaultTemporalAddress),
		TemporalNamespace:  getenv("TEMPORAL_NAMESPACE", defaultTemporalNS),
		TemporalTaskQueue:  getenv("TEMPORAL_TASK_QUEUE", defaultTaskQueue),
		MinioEndpoint:      getenv("MINIO_ENDPOINT", defaultMinioEndpoint),
		MinioAccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:        getenv("MINIO_BUCKET", defaultMinioBucket),
		MinioUseSSL:        getenvBool("MINIO_USE_SSL", false),
		WorkflowIDPrefix:   getenv("WORKFLOW_ID_PREFIX", "passport-lifecycle"),
		AllowedUploadBytes: int64(getenvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		LogLevel:           getenv("LOG_LEVEL", defaultLogLevel),
		LogJSON:            getenvBool("LOG_JSON", false),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate reports every problem at once rather than the first one.
func (c Config) validate() error {
	var result *multierror.Error
	if c.PostgresDSN == "" {
		result = multierror.Append(result, errors.New("POSTGRES_DSN is required"))
	}
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		result = multierror.Append(result, fmt.Errorf("HTTP_PORT %q is not a port number", c.HTTPPort))
	}
	if c.AllowedUploadBytes <= 0 {
		result = multierror.Append(result, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.AllowedUploadBytes))
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("LOG_LEVEL %q is not a log level", c.LogLevel))
	}
	if strings.TrimSpace(c.WorkflowIDPrefix) == "" {
		result = multierror.Append(result, errors.New("WORKFLOW_ID_PREFIX must not be blank"))
	}
	return result.ErrorOrNil()
}

func getenv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
