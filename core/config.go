package core

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the storefront.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// WithConfigFile is an ordinary option: the file is applied at its position
// in the option list, so options before it can be overridden by the file
// and options after it win over the file.
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithPort(8080),
//	    WithBackendURL("https://api.example.com"),
//	    WithSessionProvider("redis"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	Name    string `json:"name" yaml:"name" env:"STOREFRONT_NAME" default:"minimall-storefront"`
	Port    int    `json:"port" yaml:"port" env:"STOREFRONT_PORT,PORT" default:"8080"`
	Address string `json:"address" yaml:"address" env:"STOREFRONT_ADDRESS"`

	HTTP        HTTPConfig        `json:"http" yaml:"http"`
	Backend     BackendConfig     `json:"backend" yaml:"backend"`
	Session     SessionConfig     `json:"session" yaml:"session"`
	Telemetry   TelemetryConfig   `json:"telemetry" yaml:"telemetry"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
	Development DevelopmentConfig `json:"development" yaml:"development"`
}

// HTTPConfig contains HTTP server configuration including timeouts, limits, and CORS settings.
type HTTPConfig struct {
	ReadTimeout       time.Duration `json:"read_timeout" yaml:"read_timeout" env:"STOREFRONT_HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout      time.Duration `json:"write_timeout" yaml:"write_timeout" env:"STOREFRONT_HTTP_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout       time.Duration `json:"idle_timeout" yaml:"idle_timeout" env:"STOREFRONT_HTTP_IDLE_TIMEOUT" default:"120s"`
	MaxHeaderBytes    int           `json:"max_header_bytes" yaml:"max_header_bytes" default:"1048576"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"STOREFRONT_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	EnableHealthCheck bool          `json:"enable_health_check" yaml:"enable_health_check" default:"true"`
	HealthCheckPath   string        `json:"health_check_path" yaml:"health_check_path" default:"/healthz"`
	CORS              CORSConfig    `json:"cors" yaml:"cors"`
}

// CORSConfig contains Cross-Origin Resource Sharing (CORS) configuration.
// Supports wildcard domains (e.g., *.example.com) and wildcard ports (e.g., http://localhost:*).
type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled" env:"STOREFRONT_CORS_ENABLED" default:"false"`
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins" env:"STOREFRONT_CORS_ORIGINS"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods" default:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers" default:"Content-Type"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials" env:"STOREFRONT_CORS_CREDENTIALS" default:"false"`
	MaxAge           int      `json:"max_age" yaml:"max_age" default:"86400"`
}

// BackendConfig describes the remote commerce API. There is exactly one base
// URL; every endpoint path is joined onto it.
type BackendConfig struct {
	BaseURL         string        `json:"base_url" yaml:"base_url" env:"STOREFRONT_BACKEND_URL" default:"https://minimallbackend.onrender.com"`
	Timeout         time.Duration `json:"timeout" yaml:"timeout" env:"STOREFRONT_BACKEND_TIMEOUT" default:"30s"`
	BulkConcurrency int           `json:"bulk_concurrency" yaml:"bulk_concurrency" env:"STOREFRONT_BULK_CONCURRENCY" default:"1"`
}

// SessionConfig controls where per-visitor state lives.
// Provider "memory" keeps sessions in process; "redis" shares them across replicas.
type SessionConfig struct {
	Provider     string        `json:"provider" yaml:"provider" env:"STOREFRONT_SESSION_PROVIDER" default:"memory"`
	RedisURL     string        `json:"redis_url" yaml:"redis_url" env:"STOREFRONT_REDIS_URL,REDIS_URL"`
	Namespace    string        `json:"namespace" yaml:"namespace" default:"minimall:session"`
	CookieName   string        `json:"cookie_name" yaml:"cookie_name" env:"STOREFRONT_SESSION_COOKIE" default:"minimall_session"`
	TTL          time.Duration `json:"ttl" yaml:"ttl" env:"STOREFRONT_SESSION_TTL" default:"24h"`
	SecureCookie bool          `json:"secure_cookie" yaml:"secure_cookie" env:"STOREFRONT_SESSION_SECURE" default:"false"`
}

// TelemetryConfig contains observability configuration for metrics and distributed tracing.
// Telemetry is only initialized when Enabled=true. The endpoint is an OTLP gRPC receiver.
type TelemetryConfig struct {
	Enabled        bool    `json:"enabled" yaml:"enabled" env:"STOREFRONT_TELEMETRY_ENABLED" default:"false"`
	Endpoint       string  `json:"endpoint" yaml:"endpoint" env:"STOREFRONT_TELEMETRY_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName    string  `json:"service_name" yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	MetricsEnabled bool    `json:"metrics_enabled" yaml:"metrics_enabled" default:"true"`
	TracingEnabled bool    `json:"tracing_enabled" yaml:"tracing_enabled" default:"true"`
	SamplingRate   float64 `json:"sampling_rate" yaml:"sampling_rate" env:"STOREFRONT_TELEMETRY_SAMPLING_RATE" default:"1.0"`
	Insecure       bool    `json:"insecure" yaml:"insecure" default:"true"`
}

// LoggingConfig contains logging configuration.
// Supports structured (JSON) and human-readable (text) formats.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"STOREFRONT_LOG_LEVEL" default:"info"`
	Format string `json:"format" yaml:"format" env:"STOREFRONT_LOG_FORMAT" default:"json"`
	Output string `json:"output" yaml:"output" env:"STOREFRONT_LOG_OUTPUT" default:"stdout"`
}

// DevelopmentConfig contains settings for local development.
// WARNING: Never enable development mode in production!
type DevelopmentConfig struct {
	Enabled    bool `json:"enabled" yaml:"enabled" env:"STOREFRONT_DEV_MODE" default:"false"`
	PrettyLogs bool `json:"pretty_logs" yaml:"pretty_logs" default:"false"`
}

// Option is a functional option for configuring the storefront.
// Options are applied in order and can return an error if the configuration is invalid.
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults.
// The defaults are adjusted based on the detected environment:
//   - Kubernetes: 0.0.0.0 binding, JSON logging
//   - Local: localhost binding, text logging, development mode
func DefaultConfig() *Config {
	cfg := &Config{
		Name: "minimall-storefront",
		Port: 8080,
		HTTP: HTTPConfig{
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
			ShutdownTimeout:   10 * time.Second,
			EnableHealthCheck: true,
			HealthCheckPath:   "/healthz",
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type"},
				MaxAge:         86400,
			},
		},
		Backend: BackendConfig{
			BaseURL:         DefaultBackendURL,
			Timeout:         30 * time.Second,
			BulkConcurrency: 1,
		},
		Session: SessionConfig{
			Provider:   SessionProviderMemory,
			Namespace:  "minimall:session",
			CookieName: "minimall_session",
			TTL:        24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled: true,
			TracingEnabled: true,
			SamplingRate:   1.0,
			Insecure:       true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}

	cfg.DetectEnvironment()

	return cfg
}

// DetectEnvironment adjusts defaults for the detected runtime.
// Kubernetes is recognised by KUBERNETES_SERVICE_HOST.
func (c *Config) DetectEnvironment() {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		c.Address = "0.0.0.0"
		c.Logging.Format = "json"
		c.Session.SecureCookie = true
		return
	}

	c.Address = "localhost"
	c.Session.RedisURL = "redis://localhost:6379"
	if os.Getenv(EnvDevMode) == "" {
		c.Development.Enabled = true
		c.Development.PrettyLogs = true
		c.Logging.Format = "text"
	}
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables take precedence over defaults but are overridden by functional options.
//
// Variable naming convention:
//   - Storefront-specific: STOREFRONT_<SETTING>
//   - Standard variables: PORT, REDIS_URL, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_SERVICE_NAME
//
// Returns an error if a numeric or duration variable cannot be parsed.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("STOREFRONT_NAME"); v != "" {
		c.Name = v
	}
	if v := firstEnv("STOREFRONT_PORT", EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", v, ErrInvalidConfiguration)
		}
		c.Port = port
	}
	if v := os.Getenv("STOREFRONT_ADDRESS"); v != "" {
		c.Address = v
	}

	// HTTP settings
	if err := envDuration("STOREFRONT_HTTP_READ_TIMEOUT", &c.HTTP.ReadTimeout); err != nil {
		return err
	}
	if err := envDuration("STOREFRONT_HTTP_WRITE_TIMEOUT", &c.HTTP.WriteTimeout); err != nil {
		return err
	}
	if err := envDuration("STOREFRONT_HTTP_IDLE_TIMEOUT", &c.HTTP.IdleTimeout); err != nil {
		return err
	}
	if err := envDuration("STOREFRONT_HTTP_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout); err != nil {
		return err
	}

	// CORS settings
	if v := os.Getenv("STOREFRONT_CORS_ENABLED"); v != "" {
		c.HTTP.CORS.Enabled = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_CORS_ORIGINS"); v != "" {
		c.HTTP.CORS.AllowedOrigins = parseStringList(v)
	}
	if v := os.Getenv("STOREFRONT_CORS_CREDENTIALS"); v != "" {
		c.HTTP.CORS.AllowCredentials = parseBool(v)
	}

	// Backend settings
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.BaseURL = v
	}
	if err := envDuration("STOREFRONT_BACKEND_TIMEOUT", &c.Backend.Timeout); err != nil {
		return err
	}
	if v := os.Getenv("STOREFRONT_BULK_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid bulk concurrency %q: %w", v, ErrInvalidConfiguration)
		}
		c.Backend.BulkConcurrency = n
	}

	// Session settings
	if v := os.Getenv("STOREFRONT_SESSION_PROVIDER"); v != "" {
		c.Session.Provider = v
	}
	if v := firstEnv("STOREFRONT_REDIS_URL", EnvRedisURL); v != "" {
		c.Session.RedisURL = v
	}
	if v := os.Getenv("STOREFRONT_SESSION_COOKIE"); v != "" {
		c.Session.CookieName = v
	}
	if err := envDuration("STOREFRONT_SESSION_TTL", &c.Session.TTL); err != nil {
		return err
	}
	if v := os.Getenv("STOREFRONT_SESSION_SECURE"); v != "" {
		c.Session.SecureCookie = parseBool(v)
	}

	// Telemetry settings
	if v := os.Getenv("STOREFRONT_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := firstEnv("STOREFRONT_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true // an endpoint implies export
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}
	if v := os.Getenv("STOREFRONT_TELEMETRY_SAMPLING_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid sampling rate %q: %w", v, ErrInvalidConfiguration)
		}
		c.Telemetry.SamplingRate = rate
	}

	// Logging settings
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STOREFRONT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("STOREFRONT_LOG_OUTPUT"); v != "" {
		c.Logging.Output = v
	}

	if v := os.Getenv(EnvDevMode); v != "" {
		c.Development.Enabled = parseBool(v)
		if c.Development.Enabled {
			c.Development.PrettyLogs = true
			c.Logging.Format = "text"
		}
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file.
// File settings override environment variables but are overridden by functional options.
//
// Example YAML:
//
//	port: 9000
//	backend:
//	  base_url: https://api.example.com
//	session:
//	  provider: redis
//	  redis_url: redis://cache:6379/2
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)

	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}

	data, err := os.ReadFile(cleanPath) // nosec G304 -- operator-supplied path
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %v: %w", err, ErrInvalidConfiguration)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %v: %w", err, ErrInvalidConfiguration)
		}
	}

	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
// This method is called automatically by NewConfig().
//
// Validation rules:
//   - Port must be between 1 and 65535
//   - Backend base URL must be an absolute http(s) URL
//   - Session provider must be memory or redis; redis needs a URL
//   - Telemetry endpoint is required when telemetry is enabled outside development
//   - Bulk concurrency must be at least 1
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("invalid port: %d", c.Port),
			Err:     ErrInvalidConfiguration,
		}
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if c.Backend.BaseURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("backend base URL must be an absolute http(s) URL, got %q", c.Backend.BaseURL),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Backend.BulkConcurrency < 1 {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("bulk concurrency must be at least 1, got %d", c.Backend.BulkConcurrency),
			Err:     ErrInvalidConfiguration,
		}
	}

	switch c.Session.Provider {
	case SessionProviderMemory:
	case SessionProviderRedis:
		if c.Session.RedisURL == "" {
			return &FrameworkError{
				Op:      "Config.Validate",
				Kind:    "config",
				Message: "redis URL is required for the redis session provider",
				Err:     ErrMissingConfiguration,
			}
		}
	default:
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("unknown session provider %q", c.Session.Provider),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Session.CookieName == "" {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "session cookie name is required",
			Err:     ErrMissingConfiguration,
		}
	}

	// Development mode falls back to stdout spans when no collector is configured.
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" && !c.Development.Enabled {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "telemetry endpoint is required when telemetry is enabled",
			Err:     ErrMissingConfiguration,
		}
	}

	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// Helper functions

// parseStringList splits a comma-separated string into a slice of strings.
// Whitespace is trimmed from each element, and empty strings are filtered out.
// Example: "a, b, c" -> ["a", "b", "c"]
func parseStringList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseBool converts a string to a boolean value.
// Accepts: "true", "1", "yes", "on" (case-insensitive) as true.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %q: %w", key, v, ErrInvalidConfiguration)
	}
	*dst = d
	return nil
}

// Functional Options

// WithName sets the service name used in logs and telemetry.
func WithName(name string) Option {
	return func(c *Config) error {
		c.Name = name
		return nil
	}
}

// WithPort sets the HTTP server port.
// Returns an error if the port is outside 1-65535.
func WithPort(port int) Option {
	return func(c *Config) error {
		if port < 1 || port > 65535 {
			return &FrameworkError{
				Op:      "WithPort",
				Kind:    "config",
				Message: fmt.Sprintf("invalid port: %d", port),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Port = port
		return nil
	}
}

// WithAddress sets the bind address for the HTTP server.
// Use "0.0.0.0" inside containers.
func WithAddress(address string) Option {
	return func(c *Config) error {
		c.Address = address
		return nil
	}
}

// WithBackendURL sets the single base URL of the commerce API.
func WithBackendURL(baseURL string) Option {
	return func(c *Config) error {
		c.Backend.BaseURL = strings.TrimRight(baseURL, "/")
		return nil
	}
}

// WithBackendTimeout bounds every outgoing backend request.
func WithBackendTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("backend timeout must be positive: %w", ErrInvalidConfiguration)
		}
		c.Backend.Timeout = d
		return nil
	}
}

// WithBulkConcurrency sets how many add-to-cart calls a bulk add may run at once.
// 1 keeps the calls strictly sequential.
func WithBulkConcurrency(n int) Option {
	return func(c *Config) error {
		c.Backend.BulkConcurrency = n
		return nil
	}
}

// WithSessionProvider selects "memory" or "redis" session storage.
func WithSessionProvider(provider string) Option {
	return func(c *Config) error {
		c.Session.Provider = provider
		return nil
	}
}

// WithRedisURL sets the Redis connection URL for session storage and
// switches the session provider to redis.
// Format: redis://[user:password@]host:port/db
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.Session.RedisURL = url
		if url != "" {
			c.Session.Provider = SessionProviderRedis
		}
		return nil
	}
}

// WithSessionTTL sets how long an idle session survives.
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *Config) error {
		c.Session.TTL = ttl
		return nil
	}
}

// WithSecureCookie marks the session cookie Secure (HTTPS only).
func WithSecureCookie(secure bool) Option {
	return func(c *Config) error {
		c.Session.SecureCookie = secure
		return nil
	}
}

// WithCORS enables CORS with specific allowed origins.
// Supports "*", "*.example.com" and "http://localhost:*" patterns.
func WithCORS(origins []string, credentials bool) Option {
	return func(c *Config) error {
		c.HTTP.CORS.Enabled = true
		c.HTTP.CORS.AllowedOrigins = origins
		c.HTTP.CORS.AllowCredentials = credentials
		return nil
	}
}

// WithTelemetry enables telemetry with the specified OTLP endpoint.
// Examples:
//   - "localhost:4317" (local collector)
//   - "otel-collector:4317" (Kubernetes)
func WithTelemetry(enabled bool, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = enabled
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}

// WithLogLevel sets the minimum logging level: error, warn, info or debug.
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogFormat sets the logging output format: "json" or "text".
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		if format != "json" && format != "text" {
			return fmt.Errorf("unsupported log format %q: %w", format, ErrInvalidConfiguration)
		}
		c.Logging.Format = format
		return nil
	}
}

// WithDevelopmentMode toggles development defaults (text logs, stdout spans).
func WithDevelopmentMode(enabled bool) Option {
	return func(c *Config) error {
		c.Development.Enabled = enabled
		c.Development.PrettyLogs = enabled
		if enabled {
			c.Logging.Format = "text"
		}
		return nil
	}
}

// WithConfigFile layers a JSON or YAML file on top of the environment.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		return c.LoadFromFile(path)
	}
}

// NewConfig creates a new configuration with the provided options.
// Configuration is applied in the following order:
//  1. Default values from DefaultConfig()
//  2. Environment variables via LoadFromEnv()
//  3. Functional options (highest priority)
//  4. Validation via Validate()
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
