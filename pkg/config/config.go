package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/yourorg/pdf-service/pkg/utils"
	"gopkg.in/yaml.v3"
)

// ConfigSource looks up raw configuration values by key.
type ConfigSource interface {
	Get(key string) (string, bool)
}

// EnvConfigSource reads environment variables. Empty variables count as unset.
type EnvConfigSource struct{}

// Get retrieves an environment variable.
func (e *EnvConfigSource) Get(key string) (string, bool) {
	val := os.Getenv(key)
	return val, val != ""
}

// FileConfigSource serves values parsed from a JSON or YAML document.
type FileConfigSource struct {
	data map[string]interface{}
}

// NewMapConfigSource builds a FileConfigSource from already parsed values.
func NewMapConfigSource(data map[string]interface{}) *FileConfigSource {
	return &FileConfigSource{data: data}
}

// NewFileConfigSource reads a .json, .yaml or .yml file.
func NewFileConfigSource(filePath string) (*FileConfigSource, error) {
	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	data := make(map[string]interface{})
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(fileData, &data)
	case ".json":
		err = json.Unmarshal(fileData, &data)
	default:
		return nil, fmt.Errorf("unsupported config file format %q, use .json, .yaml, or .yml", filepath.Ext(filePath))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}
	return &FileConfigSource{data: data}, nil
}

// Get resolves key against the document. Keys are matched case-insensitively
// so a file may use pdf_ocr_language for PDF_OCR_LANGUAGE; a dotted key
// (blob.container) walks nested sections. Lists are joined with commas.
func (f *FileConfigSource) Get(key string) (string, bool) {
	var current interface{} = f.data
	for _, k := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		if current, ok = lookupFold(m, k); !ok {
			return "", false
		}
	}

	switch v := current.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case float64:
		// JSON numbers; 'f' keeps large integers out of exponent form
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case []interface{}:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = fmt.Sprint(item)
		}
		return strings.Join(items, ","), true
	default:
		return fmt.Sprint(v), true
	}
}

func lookupFold(m map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// DotEnvConfigSource serves KEY=value pairs read from a .env file without
// touching the process environment.
type DotEnvConfigSource struct {
	values map[string]string
}

// NewDotEnvConfigSource parses the .env file at path.
func NewDotEnvConfigSource(path string) (*DotEnvConfigSource, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return &DotEnvConfigSource{values: values}, nil
}

// Get retrieves a value; empty values count as unset, as in the environment.
func (d *DotEnvConfigSource) Get(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok && v != ""
}

// CompositeConfigSource checks multiple config sources in order.
type CompositeConfigSource struct {
	sources []ConfigSource
}

// NewCompositeConfigSource returns a source that consults sources in order.
func NewCompositeConfigSource(sources ...ConfigSource) *CompositeConfigSource {
	return &CompositeConfigSource{sources: sources}
}

// Get retrieves a value from the first source that has it.
func (c *CompositeConfigSource) Get(key string) (string, bool) {
	for _, source := range c.sources {
		if val, ok := source.Get(key); ok {
			return val, true
		}
	}
	return "", false
}

// Config holds application configuration.
type Config struct {
	// Blob Storage configuration
	BlobStorageAccountName string
	BlobStorageAccountKey  string
	BlobContainer          string `validate:"required"`
	BlobAccessTier         string `validate:"oneof=Hot Cool Archive"`

	// Service Bus configuration
	ServiceBusNamespace string
	ServiceBusKeyName   string
	ServiceBusKeyValue  string
	ServiceBusQueue     string
	ServiceBusTopic     string

	// Database configuration; empty DSN keeps artifact records in memory
	DatabaseDSN          string
	DatabaseMaxOpenConns int `validate:"gte=1"`

	// HTTP Server configuration
	HTTPPort           int   `validate:"gte=1,lte=65535"`
	HTTPReadTimeout    int   // seconds
	HTTPWriteTimeout   int   // seconds
	HTTPIdleTimeout    int   // seconds
	HTTPMaxBodyBytes   int64 `validate:"gte=1"`
	RateLimitPerSecond int   `validate:"gte=0"` // 0 disables rate limiting
	CORSAllowedOrigins []string
	SlowRequestMs      int64

	// Logging configuration
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	// Application configuration
	AppName     string
	AppVersion  string
	Environment string // dev, staging, prod

	// Auth and telemetry
	JWTSecret       string
	NewRelicLicense string
	SlackWebhookURL string

	// Retry configuration
	RetryMaxAttempts  int `validate:"gte=1"`
	RetryInitialDelay int // milliseconds
	RetryMaxDelay     int // milliseconds

	// PDF processing configuration
	OwnerPasswordSuffix  string `validate:"required"`
	MaxConcurrentJobs    int    `validate:"gte=1"`
	ConversionWorkers    int    `validate:"gte=1"`
	OperationTimeoutSec  int    `validate:"gte=0"` // 0 means no per-operation timeout
	OCRLanguage          string `validate:"required"`
	TessdataPrefix       string
	ImageJPEGQuality     int    `validate:"gte=1,lte=100"`
	RasterSpillThreshold int64  `validate:"gte=0"` // bytes; 0 never spills
	TempDir              string
}

var validate = validator.New()

// Validate checks the loaded values against their constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Retry returns the backoff policy used for infrastructure I/O.
func (c *Config) Retry() utils.RetryConfig {
	return utils.RetryConfig{
		MaxAttempts:  c.RetryMaxAttempts,
		InitialDelay: time.Duration(c.RetryInitialDelay) * time.Millisecond,
		MaxDelay:     time.Duration(c.RetryMaxDelay) * time.Millisecond,
		Multiplier:   2.0,
	}
}

// OperationTimeout returns the per-operation deadline, or zero when disabled.
func (c *Config) OperationTimeout() time.Duration {
	return time.Duration(c.OperationTimeoutSec) * time.Second
}

// loader reads typed values from a source and collects malformed ones.
type loader struct {
	source ConfigSource
	errs   []error
}

func (l *loader) str(key, def string) string {
	if v, ok := l.source.Get(key); ok {
		return v
	}
	return def
}

func (l *loader) integer(key string, def int) int {
	v, ok := l.source.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (l *loader) integer64(key string, def int64) int64 {
	v, ok := l.source.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (l *loader) list(key, def string) []string {
	var out []string
	for _, item := range strings.Split(l.str(key, def), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// LoadConfig loads configuration from source, applying defaults for missing
// keys. Malformed numbers and values failing validation are reported together.
func LoadConfig(source ConfigSource) (*Config, error) {
	l := &loader{source: source}
	cfg := &Config{
		BlobStorageAccountName: l.str("BLOB_STORAGE_ACCOUNT_NAME", ""),
		BlobStorageAccountKey:  l.str("BLOB_STORAGE_ACCOUNT_KEY", ""),
		BlobContainer:          l.str("BLOB_CONTAINER", "pdf-artifacts"),
		BlobAccessTier:         l.str("BLOB_ACCESS_TIER", "Hot"),

		ServiceBusNamespace: l.str("SERVICE_BUS_NAMESPACE", ""),
		ServiceBusKeyName:   l.str("SERVICE_BUS_KEY_NAME", ""),
		ServiceBusKeyValue:  l.str("SERVICE_BUS_KEY_VALUE", ""),
		ServiceBusQueue:     l.str("SERVICE_BUS_QUEUE", "pdf-artifacts"),
		ServiceBusTopic:     l.str("SERVICE_BUS_TOPIC", ""),

		DatabaseDSN:          l.str("DATABASE_DSN", ""),
		DatabaseMaxOpenConns: l.integer("DATABASE_MAX_OPEN_CONNS", 10),

		HTTPPort:           l.integer("HTTP_PORT", 8080),
		HTTPReadTimeout:    l.integer("HTTP_READ_TIMEOUT", 60),
		HTTPWriteTimeout:   l.integer("HTTP_WRITE_TIMEOUT", 120),
		HTTPIdleTimeout:    l.integer("HTTP_IDLE_TIMEOUT", 120),
		HTTPMaxBodyBytes:   l.integer64("HTTP_MAX_BODY_BYTES", 100<<20),
		RateLimitPerSecond: l.integer("RATE_LIMIT_PER_SECOND", 20),
		CORSAllowedOrigins: l.list("CORS_ALLOWED_ORIGINS", "*"),
		SlowRequestMs:      l.integer64("SLOW_REQUEST_MS", 10000),

		LogLevel:  l.str("LOG_LEVEL", "info"),
		LogFormat: l.str("LOG_FORMAT", "json"),

		AppName:     l.str("APP_NAME", "pdf-service"),
		AppVersion:  l.str("APP_VERSION", "1.0.0"),
		Environment: l.str("ENVIRONMENT", "dev"),

		JWTSecret:       l.str("JWT_SECRET", ""),
		NewRelicLicense: l.str("NEW_RELIC_LICENSE_KEY", ""),
		SlackWebhookURL: l.str("SLACK_WEBHOOK_URL", ""),

		RetryMaxAttempts:  l.integer("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: l.integer("RETRY_INITIAL_DELAY", 100),
		RetryMaxDelay:     l.integer("RETRY_MAX_DELAY", 5000),

		OwnerPasswordSuffix:  l.str("PDF_OWNER_PASSWORD_SUFFIX", "_owner"),
		MaxConcurrentJobs:    l.integer("PDF_MAX_CONCURRENT_JOBS", 4),
		ConversionWorkers:    l.integer("PDF_CONVERSION_WORKERS", 4),
		OperationTimeoutSec:  l.integer("PDF_OPERATION_TIMEOUT", 300),
		OCRLanguage:          l.str("PDF_OCR_LANGUAGE", "eng"),
		TessdataPrefix:       l.str("TESSDATA_PREFIX", ""),
		ImageJPEGQuality:     l.integer("PDF_IMAGE_JPEG_QUALITY", 85),
		RasterSpillThreshold: l.integer64("PDF_RASTER_SPILL_BYTES", 32<<20),
		TempDir:              l.str("PDF_TEMP_DIR", os.TempDir()),
	}

	if err := errors.Join(l.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromEnv loads configuration from environment variables.
func LoadConfigFromEnv() (*Config, error) {
	return LoadConfig(&EnvConfigSource{})
}

// Load reads the environment, then dotEnvFile when it exists, then
// configFile when set, the first source holding a key winning.
func Load(configFile, dotEnvFile string) (*Config, error) {
	sources := []ConfigSource{&EnvConfigSource{}}
	if dotEnvFile != "" {
		if _, err := os.Stat(dotEnvFile); err == nil {
			dotEnv, err := NewDotEnvConfigSource(dotEnvFile)
			if err != nil {
				return nil, err
			}
			sources = append(sources, dotEnv)
		}
	}
	if configFile != "" {
		file, err := NewFileConfigSource(configFile)
		if err != nil {
			return nil, err
		}
		sources = append(sources, file)
	}
	return LoadConfig(NewCompositeConfigSource(sources...))
}

// LoadConfigFromFile loads configuration from a JSON or YAML file.
// Environment variables override file values.
func LoadConfigFromFile(filePath string) (*Config, error) {
	fileSource, err := NewFileConfigSource(filePath)
	if err != nil {
		return nil, err
	}
	return LoadConfig(NewCompositeConfigSource(&EnvConfigSource{}, fileSource))
}
