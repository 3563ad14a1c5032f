// Package config loads gatehouse settings from the environment.
//
// Sources, highest priority first:
//  1. process environment;
//  2. the file named by ENV_FILE, or ./.env.local (joho/godotenv never overrides set variables);
//  3. env-default tags.
package config

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	BackendMemory = "memory"
	BackendRedis  = "redis"

	// MinSecretLength is the shortest SESSION_SECRET accepted in production
	MinSecretLength = 32

	defaultEnvFile  = ".env.local"
	derivedKeyLabel = "gatehouse/session-key/v1:"
)

type Config struct {
	Env             string        `env:"APP_ENV" env-default:"development"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	HTTP            HTTPConfig
	Admin           AdminConfig
	Session         SessionConfig
	RateLimit       RateLimitConfig
	Redis           RedisConfig
	Events          EventsConfig
	CORS            CORSConfig
}

type HTTPConfig struct {
	Host string `env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `env:"HTTP_PORT" env-default:"9000"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// AdminConfig is the single administrator account
type AdminConfig struct {
	Email        string `env:"ADMIN_EMAIL"`
	Password     string `env:"ADMIN_PASSWORD"`
	PasswordHash string `env:"ADMIN_PASSWORD_HASH"`
}

type SessionConfig struct {
	Secret string `env:"SESSION_SECRET"`
	Issuer string `env:"SESSION_ISSUER" env-default:"gatehouse"`
}

type RateLimitConfig struct {
	MaxAttempts   int           `env:"RATE_LIMIT_MAX_ATTEMPTS"   env-default:"5"`
	Window        time.Duration `env:"RATE_LIMIT_WINDOW"         env-default:"15m"`
	Backend       string        `env:"RATE_LIMIT_BACKEND"        env-default:"memory"`
	SweepInterval time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL" env-default:"1m"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

type EventsConfig struct {
	Backend string `env:"EVENTS_BACKEND" env-default:"memory"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// MustLoad panics if the configuration cannot be loaded
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.CORS.AllowedOrigins = compact(cfg.CORS.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadEnvFile() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = defaultEnvFile
	}

	err := godotenv.Load(path)
	if err == nil || (errors.Is(err, os.ErrNotExist) && os.Getenv("ENV_FILE") == "") {
		return nil
	}
	return fmt.Errorf("failed to load env file %q: %w", path, err)
}

func (c *Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if strings.TrimSpace(c.Admin.Email) == "" {
		return errors.New("ADMIN_EMAIL is required")
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}

	if c.IsProduction() {
		if c.Session.Secret == "" {
			return errors.New("SESSION_SECRET is required in production")
		}
		if len(c.Session.Secret) < MinSecretLength {
			return fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSecretLength)
		}
	}

	if c.RateLimit.MaxAttempts < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX_ATTEMPTS must be positive, got %d", c.RateLimit.MaxAttempts)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimit.Window)
	}
	if c.RateLimit.SweepInterval <= 0 {
		return fmt.Errorf("RATE_LIMIT_SWEEP_INTERVAL must be positive, got %s", c.RateLimit.SweepInterval)
	}

	if err := checkBackend("RATE_LIMIT_BACKEND", c.RateLimit.Backend); err != nil {
		return err
	}
	if err := checkBackend("EVENTS_BACKEND", c.Events.Backend); err != nil {
		return err
	}
	if c.UsesRedis() && c.Redis.URL == "" {
		return errors.New("REDIS_URL is required when a redis backend is selected")
	}

	return nil
}

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

func (c *Config) UsesRedis() bool {
	return c.RateLimit.Backend == BackendRedis || c.Events.Backend == BackendRedis
}

// SecretDerived reports whether the signing key falls back to one derived from the admin password
func (c *Config) SecretDerived() bool { return c.Session.Secret == "" }

// SigningKey returns SESSION_SECRET, or outside production a key derived from the admin password
func (c *Config) SigningKey() []byte {
	if c.Session.Secret != "" {
		return []byte(c.Session.Secret)
	}
	sum := sha256.Sum256([]byte(derivedKeyLabel + c.Admin.Password + c.Admin.PasswordHash))
	return sum[:]
}

func checkBackend(name, value string) error {
	switch value {
	case BackendMemory, BackendRedis:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", name, BackendMemory, BackendRedis, value)
	}
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
