package supabase

import (
	"fmt"
	"net/url"
	"time"
)

// Config names the project and its resources. URL and AnonKey are required.
type Config struct {
	URL     string `yaml:"url" env:"URL"`
	AnonKey string `yaml:"anon_key" env:"ANON_KEY"`
	Bucket  string `yaml:"bucket" env:"BUCKET"`
	Table   string `yaml:"table" env:"TABLE"`

	// AutoRefresh starts background token refresh in New.
	AutoRefresh bool `yaml:"auto_refresh" env:"AUTO_REFRESH"`
	// RefreshMargin is how long before expiry a token is refreshed.
	RefreshMargin time.Duration `yaml:"refresh_margin" env:"REFRESH_MARGIN"`
	// RefreshInterval is how often the auto refresh loop checks expiry.
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"REFRESH_INTERVAL"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
}

func DefaultConfig() Config {
	return Config{
		Bucket:          "post-media",
		Table:           "posts",
		AutoRefresh:     true,
		RefreshMargin:   90 * time.Second,
		RefreshInterval: 30 * time.Second,
		RequestTimeout:  30 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.URL == "" || c.AnonKey == "" {
		return fmt.Errorf("%w: url and anon key are required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url %q is not an http(s) URL", ErrInvalidConfig, c.URL)
	}
	if c.Bucket == "" || c.Table == "" {
		return fmt.Errorf("%w: bucket and table must be set", ErrInvalidConfig)
	}
	if c.RefreshMargin < 0 || c.RefreshInterval < 0 || c.RequestTimeout < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if c.AutoRefresh && c.RefreshInterval == 0 {
		return fmt.Errorf("%w: auto refresh needs a refresh interval", ErrInvalidConfig)
	}
	return nil
}
