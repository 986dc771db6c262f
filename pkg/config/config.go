package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/gatehouse/pkg/cache"
	"github.com/platinummonkey/gatehouse/pkg/licensing"
	"github.com/platinummonkey/gatehouse/pkg/storage/postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// PostgreSQL configuration
	Postgres postgres.Config

	// Redis configuration
	Redis cache.Config

	// Auth configuration
	Auth AuthConfig

	// Licensing provider configuration
	Licensing licensing.HTTPProviderConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig holds token issuing and permission chain settings.
type AuthConfig struct {
	// SigningKey signs issued access tokens.
	SigningKey string

	// TokenTTL is the lifetime of an issued token.
	TokenTTL time.Duration

	// ChainModules is the ordered permission module list.
	ChainModules []string

	// RegistryDir holds the webservice descriptor YAML files.
	RegistryDir string

	// WatchRegistry reloads descriptors on file changes.
	WatchRegistry bool

	// ServiceTokens maps service IDs to their shared secrets,
	// parsed from "id:secret,id:secret".
	ServiceTokens map[string]string

	// SweepSchedule is the cron schedule for the revocation sweep.
	SweepSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Postgres:      loadPostgresConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		Licensing:     loadLicensingConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("GATEHOUSE_HOST", "0.0.0.0"),
		Port:            getEnv("GATEHOUSE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("GATEHOUSE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("GATEHOUSE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("GATEHOUSE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("GATEHOUSE_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// loadPostgresConfig loads PostgreSQL configuration from environment
func loadPostgresConfig() postgres.Config {
	return postgres.Config{
		URL:            getEnv("GATEHOUSE_POSTGRES_URL", ""),
		MaxConns:       getEnvInt("GATEHOUSE_POSTGRES_MAX_CONNS", 25),
		MinConns:       getEnvInt("GATEHOUSE_POSTGRES_MIN_CONNS", 5),
		ConnectTimeout: getEnvDuration("GATEHOUSE_POSTGRES_TIMEOUT", 5*time.Second),
	}
}

// loadRedisConfig loads Redis configuration from environment
func loadRedisConfig() cache.Config {
	return cache.Config{
		URL:      getEnv("GATEHOUSE_REDIS_URL", "redis://localhost:6379/0"),
		Password: getEnv("GATEHOUSE_REDIS_PASSWORD", ""),
		DB:       getEnvInt("GATEHOUSE_REDIS_DB", -1),
	}
}

// loadAuthConfig loads auth configuration from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		SigningKey:    getEnv("GATEHOUSE_SIGNING_KEY", ""),
		TokenTTL:      getEnvDuration("GATEHOUSE_TOKEN_TTL", 12*time.Hour),
		ChainModules:  splitList(getEnv("GATEHOUSE_CHAIN_MODULES", "anonymous,internal_service,connected,role,organization_role,license")),
		RegistryDir:   getEnv("GATEHOUSE_REGISTRY_DIR", "registry"),
		WatchRegistry: getEnvBool("GATEHOUSE_REGISTRY_WATCH", false),
		ServiceTokens: parseServiceTokens(getEnv("GATEHOUSE_SERVICE_TOKENS", "")),
		SweepSchedule: getEnv("GATEHOUSE_SWEEP_SCHEDULE", "0 * * * *"),
	}
}

// loadLicensingConfig loads license provider configuration from environment
func loadLicensingConfig() licensing.HTTPProviderConfig {
	return licensing.HTTPProviderConfig{
		BaseURL: getEnv("GATEHOUSE_LICENSE_PROVIDER_URL", ""),
		Token:   getEnv("GATEHOUSE_LICENSE_PROVIDER_TOKEN", ""),
		Timeout: getEnvDuration("GATEHOUSE_LICENSE_PROVIDER_TIMEOUT", 10*time.Second),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       getEnv("GATEHOUSE_LOG_LEVEL", "info"),
		MetricsEnabled: getEnvBool("GATEHOUSE_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Postgres.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("token signing key is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if len(c.Auth.ChainModules) == 0 {
		return fmt.Errorf("at least one chain module is required")
	}
	if c.Auth.RegistryDir == "" {
		return fmt.Errorf("registry directory is required")
	}
	return nil
}

// parseServiceTokens parses "id:secret,id:secret" pairs. Malformed
// entries are skipped.
func parseServiceTokens(value string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, secret, ok := strings.Cut(pair, ":")
		if !ok || id == "" || secret == "" {
			continue
		}
		tokens[id] = secret
	}
	return tokens
}

// splitList splits a comma-separated list, trimming whitespace
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
