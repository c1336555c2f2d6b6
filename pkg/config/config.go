package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/examaid-app/examaid-engine/pkg/models"
)

// Config holds all configuration for examaid-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Identity gateway configuration
	Identity IdentityConfig `yaml:"identity"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional draft cache)
	Redis RedisConfig `yaml:"redis"`

	// Photo-note capture configuration
	Photo PhotoConfig `yaml:"photo"`
}

// IdentityConfig holds configuration for the external identity gateway.
type IdentityConfig struct {
	// BaseURL is the identity gateway's REST API base URL.
	BaseURL string `yaml:"base_url" env:"IDENTITY_BASE_URL" env-default:"https://api.examaid.app/identity"`

	// APIKey authenticates this engine to the gateway.
	APIKey string `yaml:"-" env:"IDENTITY_API_KEY"` // Secret - not in YAML

	// TimeoutSeconds bounds each gateway call.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"IDENTITY_TIMEOUT_SECONDS" env-default:"30"`

	// EnableVerification controls whether session JWTs are validated.
	// Set to false for local development without the gateway.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:"https://auth.examaid.app=https://auth.examaid.app/.well-known/jwks.json"`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"examaid"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"examaid_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis configuration. Redis is optional; when Host is
// empty drafts are kept in process memory only.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// PhotoConfig holds photo-note capture settings.
type PhotoConfig struct {
	// Subjects is the selectable subject vocabulary. Falls back to the
	// app's default list when empty.
	Subjects []string `yaml:"subjects" env:"PHOTO_SUBJECTS" env-separator:","`

	// ArchiveGraceSeconds is how long the archive keeps its upstream
	// subscription alive after the last watcher detaches.
	ArchiveGraceSeconds int `yaml:"archive_grace_seconds" env:"PHOTO_ARCHIVE_GRACE_SECONDS" env-default:"5"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	cfg.applyDefaults()
	cfg.Identity.JWKSEndpoints = parseJWKSEndpoints(cfg.Identity.JWKSEndpointsStr)

	return cfg, nil
}

// LoadFromEnv reads configuration from environment variables only, without
// requiring a config.yaml. Used by tests and containerized deployments.
func LoadFromEnv(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.applyDefaults()
	cfg.Identity.JWKSEndpoints = parseJWKSEndpoints(cfg.Identity.JWKSEndpointsStr)

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Photo.Subjects) == 0 {
		c.Photo.Subjects = append([]string(nil), models.DefaultSubjects...)
	}
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.Split(pair, "=")
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
