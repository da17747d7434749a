package devserver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/notees/backend"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every variable read by LoadConfig.
const EnvPrefix = "NOTEES_DEV_"

// DevJWTSecret is the signing key used when none is configured. It is public
// and only fit for local development.
const DevJWTSecret = "super-secret-jwt-token-with-at-least-32-characters-long"

// Config controls the dev server. Fields map to NOTEES_DEV_* variables;
// backend settings use NOTEES_DEV_BACKEND_*.
type Config struct {
	Addr      string         `yaml:"addr" env:"ADDR"`
	AnonKey   string         `yaml:"anon_key" env:"ANON_KEY"`
	Bucket    string         `yaml:"bucket" env:"BUCKET"`
	Table     string         `yaml:"table" env:"TABLE"`
	RedisAddr string         `yaml:"redis_addr" env:"REDIS_ADDR"`
	Memory    bool           `yaml:"memory" env:"MEMORY"`
	Backend   backend.Config `yaml:"backend" envPrefix:"BACKEND_"`
}

func DefaultConfig() Config {
	b := backend.DefaultConfig()
	b.JWTSecret = DevJWTSecret
	return Config{
		Addr:      "127.0.0.1:54321",
		AnonKey:   "notees-dev-anon-key",
		Bucket:    "post-media",
		Table:     "posts",
		RedisAddr: "127.0.0.1:6379",
		Backend:   b,
	}
}

// LoadConfig applies NOTEES_DEV_* variables over DefaultConfig and validates
// the result.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.AnonKey == "" {
		return errors.New("devserver: anon key must not be empty")
	}
	if c.Bucket == "" || strings.ContainsAny(c.Bucket, "/:") {
		return fmt.Errorf("devserver: invalid bucket %q", c.Bucket)
	}
	if c.Table == "" || strings.ContainsAny(c.Table, "/?") {
		return fmt.Errorf("devserver: invalid table %q", c.Table)
	}
	if !c.Memory && c.RedisAddr == "" {
		return errors.New("devserver: redis address required unless running in memory")
	}
	return c.Backend.Validate()
}
