// Package config loads FrameStore runtime configuration from the environment,
// an optional .env file and an optional YAML overlay.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSupabase = "supabase"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `env:"FRAMESTORE_ADDR,default=:8080" yaml:"addr"`
	ReadTimeout     time.Duration `env:"FRAMESTORE_READ_TIMEOUT,default=15s" yaml:"read_timeout"`
	WriteTimeout    time.Duration `env:"FRAMESTORE_WRITE_TIMEOUT,default=15s" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `env:"FRAMESTORE_SHUTDOWN_TIMEOUT,default=10s" yaml:"shutdown_timeout"`
	AuditLog        string        `env:"FRAMESTORE_AUDIT_LOG" yaml:"audit_log"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string `env:"FRAMESTORE_STORAGE,default=memory" yaml:"backend"`
}

// DatabaseConfig configures the Postgres backend.
type DatabaseConfig struct {
	DSN             string        `env:"DATABASE_URL" yaml:"dsn"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS,default=10" yaml:"max_open_conns"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS,default=5" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME,default=30m" yaml:"conn_max_lifetime"`
	MigrateOnStart  bool          `env:"DATABASE_MIGRATE,default=false" yaml:"migrate_on_start"`
}

// SupabaseConfig configures the Supabase REST backend.
type SupabaseConfig struct {
	URL            string        `env:"SUPABASE_URL" yaml:"url"`
	ServiceRoleKey string        `env:"SUPABASE_SERVICE_ROLE_KEY" yaml:"service_role_key"`
	Timeout        time.Duration `env:"SUPABASE_TIMEOUT,default=30s" yaml:"timeout"`
	MaxRetries     int           `env:"SUPABASE_MAX_RETRIES,default=3" yaml:"max_retries"`
}

// RedisConfig enables the frame read cache when Addr is set.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" yaml:"addr"`
	Password string        `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int           `env:"REDIS_DB,default=0" yaml:"db"`
	TTL      time.Duration `env:"REDIS_CACHE_TTL,default=5m" yaml:"ttl"`
}

// AuthConfig controls session token issuance.
type AuthConfig struct {
	JWTSecret string        `env:"FRAMESTORE_JWT_SECRET" yaml:"jwt_secret"`
	Issuer    string        `env:"FRAMESTORE_JWT_ISSUER,default=framestore" yaml:"issuer"`
	TokenTTL  time.Duration `env:"FRAMESTORE_TOKEN_TTL,default=24h" yaml:"token_ttl"`
}

// LoggingConfig mirrors logger.LoggingConfig.
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL,default=info" yaml:"level"`
	Format     string `env:"LOG_FORMAT,default=json" yaml:"format"`
	Output     string `env:"LOG_OUTPUT,default=stdout" yaml:"output"`
	FilePrefix string `env:"LOG_FILE_PREFIX,default=framestore" yaml:"file_prefix"`
}

// RateLimitConfig bounds request rates per caller.
type RateLimitConfig struct {
	Enabled           bool    `env:"RATE_LIMIT_ENABLED,default=true" yaml:"enabled"`
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS,default=20" yaml:"requests_per_second"`
	Burst             int     `env:"RATE_LIMIT_BURST,default=40" yaml:"burst"`
}

// CORSConfig lists allowed browser origins, comma separated.
type CORSConfig struct {
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS,default=*" yaml:"allowed_origins"`
}

// Origins splits AllowedOrigins.
func (c CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// EmbedConfig controls generated embed snippets.
type EmbedConfig struct {
	BaseURL string `env:"FRAMESTORE_PUBLIC_URL,default=http://localhost:8080" yaml:"base_url"`
}

// SchedulerConfig controls the scheduled publishing worker.
type SchedulerConfig struct {
	Enabled bool   `env:"SCHEDULER_ENABLED,default=true" yaml:"enabled"`
	Spec    string `env:"SCHEDULER_SPEC,default=@every 1m" yaml:"spec"`
}

// Config is the complete runtime configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Supabase  SupabaseConfig  `yaml:"supabase"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Embed     EmbedConfig     `yaml:"embed"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ConfigFileEnv names the variable pointing at an optional YAML overlay.
const ConfigFileEnv = "FRAMESTORE_CONFIG"

// Load reads .env (if present), decodes the environment and applies the YAML
// file named by FRAMESTORE_CONFIG. Values in the file win over the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	var problems []string

	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.DSN == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres backend")
		}
	case StorageSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceRoleKey == "" {
			problems = append(problems, "SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage backend %q", c.Storage.Backend))
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		problems = append(problems, "FRAMESTORE_JWT_SECRET must be at least 32 bytes")
	}
	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, "FRAMESTORE_TOKEN_TTL must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		problems = append(problems, "rate limit requires positive RATE_LIMIT_RPS and RATE_LIMIT_BURST")
	}
	if c.Scheduler.Enabled && strings.TrimSpace(c.Scheduler.Spec) == "" {
		problems = append(problems, "SCHEDULER_SPEC is required when the scheduler is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
