package notees

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/notees/guard"
	"github.com/MrEthical07/notees/supabase"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "NOTEES_"

// Config holds everything the app needs. It is read once at startup and
// treated as immutable afterwards.
type Config struct {
	Supabase supabase.Config `yaml:"supabase" envPrefix:"SUPABASE_"`
	Routes   guard.Routes    `yaml:"routes" envPrefix:"ROUTES_"`

	// LookupTimeout bounds the persisted-session lookup at startup.
	LookupTimeout time.Duration `yaml:"lookup_timeout" env:"LOOKUP_TIMEOUT"`
	// CredentialsFile is where the session is persisted between runs. Empty
	// means the per-user config directory.
	CredentialsFile string `yaml:"credentials_file" env:"CREDENTIALS_FILE"`

	Log LogConfig `yaml:"log" envPrefix:"LOG_"`
}

type LogConfig struct {
	// Level is a zap level name: debug, info, warn or error.
	Level       string `yaml:"level" env:"LEVEL"`
	Development bool   `yaml:"development" env:"DEVELOPMENT"`
}

// DefaultConfig returns a config with every optional field set. Supabase URL
// and anon key still have to be provided.
func DefaultConfig() Config {
	return Config{
		Supabase:      supabase.DefaultConfig(),
		Routes:        guard.DefaultRoutes(),
		LookupTimeout: 10 * time.Second,
		Log:           LogConfig{Level: "info"},
	}
}

// Validate checks the parts of the config the App itself consumes. The
// Supabase section is checked by [NewSupabaseApp] and [LoadConfig].
func (c Config) Validate() error {
	if err := c.Routes.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("%w: lookup timeout must be > 0", ErrInvalidConfig)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig starts from DefaultConfig, overlays the YAML file at path when
// path is not empty, then NOTEES_* environment variables, and validates the
// result including the Supabase section.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.Supabase.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// NewLogger builds a zap logger for c: the production config, or the
// development one when Development is set.
func NewLogger(c LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level: %v", ErrInvalidConfig, err)
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
