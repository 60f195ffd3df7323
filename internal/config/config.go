// Package config builds the explicit configuration struct passed to the
// application at startup. All environment access happens here, once.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the blog service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Audit     AuditConfig     `yaml:"audit"`
}

type ServerConfig struct {
	Addr         string        `env:"SERVER_ADDR,default=:8080" yaml:"addr"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT,default=30s" yaml:"read_timeout"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT,default=30s" yaml:"write_timeout"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT,default=120s" yaml:"idle_timeout"`
}

type DatabaseConfig struct {
	// DSN is the postgres connection string. Empty selects the in-memory store.
	DSN          string `env:"DATABASE_URL" yaml:"dsn"`
	MaxOpenConns int    `env:"DATABASE_MAX_OPEN_CONNS,default=10" yaml:"max_open_conns"`
	MaxIdleConns int    `env:"DATABASE_MAX_IDLE_CONNS,default=10" yaml:"max_idle_conns"`
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET" yaml:"jwt_secret"`
	TokenTTL   time.Duration `env:"TOKEN_TTL,default=3h" yaml:"token_ttl"`
	BcryptCost int           `env:"BCRYPT_COST,default=12" yaml:"bcrypt_cost"`
}

type RedisConfig struct {
	// Addr enables the token denylist when set; empty disables revocation.
	Addr     string `env:"REDIS_ADDR" yaml:"addr"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `env:"REDIS_DB,default=0" yaml:"db"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=*" yaml:"allowed_origins"`
}

type RateLimitConfig struct {
	AuthRequestsPerSecond int `env:"AUTH_RATE_LIMIT_RPS,default=5" yaml:"auth_requests_per_second"`
	AuthBurst             int `env:"AUTH_RATE_LIMIT_BURST,default=10" yaml:"auth_burst"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL,default=info" yaml:"level"`
	Format string `env:"LOG_FORMAT,default=text" yaml:"format"`
}

type AuditConfig struct {
	File       string `env:"AUDIT_LOG_FILE" yaml:"file"`
	MaxEntries int    `env:"AUDIT_MAX_ENTRIES,default=200" yaml:"max_entries"`
}

// Load decodes configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromPath decodes the environment, then applies YAML overrides from path.
func LoadFromPath(path string) (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config from env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that would otherwise surface as runtime faults.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost %d out of range", c.Auth.BcryptCost)
	}
	return nil
}
