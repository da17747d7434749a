package backend

import (
	"errors"
	"time"

	"github.com/MrEthical07/notees/password"
)

// Config controls the backend. Zero durations and sizes are replaced by the
// defaults in New.
type Config struct {
	KeyPrefix      string          `yaml:"key_prefix" env:"KEY_PREFIX"`
	JWTSecret      string          `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer         string          `yaml:"issuer" env:"ISSUER"`
	AccessTTL      time.Duration   `yaml:"access_ttl" env:"ACCESS_TTL"`
	RefreshTTL     time.Duration   `yaml:"refresh_ttl" env:"REFRESH_TTL"`
	MaxObjectBytes int64           `yaml:"max_object_bytes" env:"MAX_OBJECT_BYTES"`
	Password       password.Config `yaml:"password" envPrefix:"PASSWORD_"`
	SignInLimit    SignInLimit     `yaml:"sign_in_limit" envPrefix:"SIGN_IN_LIMIT_"`
	Metrics        MetricsConfig   `yaml:"metrics" envPrefix:"METRICS_"`
}

// SignInLimit throttles failed password sign-ins. Once an email, or a client
// address with PerIP, collects MaxAttempts failures within Window, further
// attempts fail with ErrRateLimited until the window ends.
type SignInLimit struct {
	Enabled     bool          `yaml:"enabled" env:"ENABLED"`
	MaxAttempts int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	Window      time.Duration `yaml:"window" env:"WINDOW"`
	PerIP       bool          `yaml:"per_ip" env:"PER_IP"`
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled" env:"ENABLED"`
	EnableLatencyHistograms bool `yaml:"latency_histograms" env:"LATENCY_HISTOGRAMS"`
}

// DefaultConfig mirrors a hosted project's defaults: one hour access
// tokens and month-long refresh sessions.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:      "nt",
		Issuer:         "notees-dev",
		AccessTTL:      time.Hour,
		RefreshTTL:     30 * 24 * time.Hour,
		MaxObjectBytes: 50 << 20,
		Password:       password.DefaultConfig(),
		SignInLimit: SignInLimit{
			Enabled:     true,
			MaxAttempts: 10,
			Window:      5 * time.Minute,
			PerIP:       true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func (c Config) Validate() error {
	if c.KeyPrefix == "" {
		return errors.New("backend: key prefix must not be empty")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("backend: jwt secret must be at least 32 bytes")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("backend: token lifetimes must be positive")
	}
	if c.RefreshTTL < c.AccessTTL {
		return errors.New("backend: refresh TTL must not be shorter than access TTL")
	}
	if c.MaxObjectBytes <= 0 {
		return errors.New("backend: max object size must be positive")
	}
	if c.SignInLimit.Enabled && (c.SignInLimit.MaxAttempts <= 0 || c.SignInLimit.Window <= 0) {
		return errors.New("backend: sign in limit needs positive attempts and window")
	}
	return c.Password.Validate()
}
