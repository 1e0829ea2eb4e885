// Package config handles application configuration loading from YAML and environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "returnsdesk/internal/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Auth holds the user directory and login throttling
	Auth AuthConfig `json:"auth" yaml:"auth"`

	// Catalog holds the picklists offered by the create form
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`

	// Uploads configures the image store
	Uploads UploadsConfig `json:"uploads" yaml:"uploads"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port            string        `json:"port" yaml:"port"`
	SessionSecret   string        `json:"session_secret" yaml:"session_secret"`
	Debug           bool          `json:"debug" yaml:"debug"`
	LogLevel        string        `json:"log_level" yaml:"log_level"`
	CORSOrigins     []string      `json:"cors_origins" yaml:"cors_origins"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`       // Maximum number of open connections to the database
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`       // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"` // Maximum amount of time a connection may be reused
}

// UserEntry is one account in the static user directory.
// Exactly one of Password or PasswordHash should be set; PasswordHash wins when both are.
type UserEntry struct {
	Username     string `json:"username" yaml:"username"`
	Password     string `json:"-" yaml:"password,omitempty"`
	PasswordHash string `json:"-" yaml:"password_hash,omitempty"`
	Role         string `json:"role" yaml:"role"`
}

// AuthConfig represents authentication-related configuration
type AuthConfig struct {
	Users []UserEntry `json:"users" yaml:"users"`
	// LoginRateLimit uses the limiter formatted-rate syntax, e.g. "30-M"
	LoginRateLimit string `json:"login_rate_limit" yaml:"login_rate_limit"`
}

// CatalogConfig lists the platform and reason choices rendered in the form
type CatalogConfig struct {
	Platforms []string `json:"platforms" yaml:"platforms"`
	Reasons   []string `json:"reasons" yaml:"reasons"`
}

// UploadsConfig configures where return images go
type UploadsConfig struct {
	Backend           string      `json:"backend" yaml:"backend"` // "local" or "minio"
	Dir               string      `json:"dir" yaml:"dir"`
	MaxBytes          int64       `json:"max_bytes" yaml:"max_bytes"`
	AllowedExtensions []string    `json:"allowed_extensions" yaml:"allowed_extensions"`
	VerifyContent     bool        `json:"verify_content" yaml:"verify_content"`
	UniqueNames       bool        `json:"unique_names" yaml:"unique_names"`
	Minio             MinioConfig `json:"minio" yaml:"minio"`
}

// MinioConfig holds S3-compatible object store settings
type MinioConfig struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"-" yaml:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // e.g. "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "returnsdesk"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"` // Export spans through the auto-instrumentation SDK
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
}

// UseMinio reports whether images go to the object store
func (c *Config) UseMinio() bool {
	return strings.EqualFold(c.Uploads.Backend, UploadBackendMinio)
}

// IsAllowedExtension checks a lower-case extension without the dot against the allowlist
func (c *Config) IsAllowedExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range c.Uploads.AllowedExtensions {
		if strings.ToLower(strings.TrimPrefix(allowed, ".")) == ext {
			return true
		}
	}
	return false
}

// NewConfig loads .env files, then the YAML file, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	loadDotEnv()

	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.overrideFromEnv()
	config.applyDefaults()

	return config, nil
}

// loadDotEnv populates the process environment from .env files without overriding
// variables that are already set.
func loadDotEnv() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnvWithPrefix(c, "")
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			envVal := os.Getenv(envKey)
			if envVal == "" {
				continue
			}
			if field.Type() == reflect.TypeOf(time.Duration(0)) {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
				continue
			}
			if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
				field.SetInt(intVal)
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				// Only string slices (CORS_ORIGINS, CATALOG_PLATFORMS...)
				if field.Type().Elem().Kind() == reflect.String {
					parts := strings.Split(envVal, ",")
					for i := range parts {
						parts[i] = strings.TrimSpace(parts[i])
					}
					field.Set(reflect.ValueOf(parts))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), envKey)
			}
		}
	}
}

// applyDefaults fills every unset key so an empty config still runs with the stock catalog and users
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.SessionSecret == "" {
		c.Server.SessionSecret = DefaultSessionSecret
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = ServerShutdownTimeout
	}
	if c.Database.URL == "" {
		c.Database.URL = DefaultDatabaseURL
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = DatabaseConnMaxLifetime
	}
	if len(c.Auth.Users) == 0 {
		c.Auth.Users = DefaultUsers()
	}
	if c.Auth.LoginRateLimit == "" {
		c.Auth.LoginRateLimit = DefaultLoginRateLimit
	}
	if len(c.Catalog.Platforms) == 0 {
		c.Catalog.Platforms = append([]string(nil), DefaultPlatforms...)
	}
	if len(c.Catalog.Reasons) == 0 {
		c.Catalog.Reasons = append([]string(nil), DefaultReasons...)
	}
	if c.Uploads.Backend == "" {
		c.Uploads.Backend = UploadBackendLocal
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = DefaultUploadDir
	}
	if c.Uploads.MaxBytes <= 0 {
		c.Uploads.MaxBytes = DefaultMaxUploadBytes
	}
	if len(c.Uploads.AllowedExtensions) == 0 {
		c.Uploads.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	}
	if c.Uploads.Minio.Bucket == "" {
		c.Uploads.Minio.Bucket = DefaultMinioBucket
	}
	if c.OpenTelemetry.ServiceName == "" {
		c.OpenTelemetry.ServiceName = "returnsdesk"
	}
	if c.OpenTelemetry.Protocol == "" {
		c.OpenTelemetry.Protocol = "grpc"
	}
	if c.OpenTelemetry.SamplingRate <= 0 {
		c.OpenTelemetry.SamplingRate = 1.0
	}
}

// DefaultUsers returns the two stock accounts
func DefaultUsers() []UserEntry {
	return []UserEntry{
		{Username: "customer_service", Password: "cs123", Role: "customer_service"},
		{Username: "warehouse", Password: "wh123", Role: "warehouse"},
	}
}

// loadConfigWithOverrides loads the config file named by RETURNS_CONFIG_FILE or ./config.yaml.
// A missing default file yields an empty config; a missing explicit file is an error.
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv("RETURNS_CONFIG_FILE"); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile("config.yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
