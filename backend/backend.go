package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/notees/internal/rate"
	"github.com/MrEthical07/notees/internal/tokens"
	"github.com/MrEthical07/notees/password"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Option configures a [Backend].
type Option func(*Backend)

func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides the time source. Tests use it to expire sessions.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// Backend serves accounts, sessions, posts and media out of Redis. It is safe
// for concurrent use.
type Backend struct {
	rdb     redis.UniversalClient
	cfg     Config
	hasher  *password.Hasher
	tokens  *tokens.Manager
	metrics *Metrics
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
}

func New(rdb redis.UniversalClient, cfg Config, opts ...Option) (*Backend, error) {
	if rdb == nil {
		return nil, errors.New("backend: redis client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.New(cfg.Password)
	if err != nil {
		return nil, err
	}
	tm, err := tokens.NewManager(tokens.Config{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.AccessTTL,
		Issuer: cfg.Issuer,
		Leeway: 30 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	b := &Backend{
		rdb:     rdb,
		cfg:     cfg,
		hasher:  hasher,
		tokens:  tm,
		metrics: NewMetrics(cfg.Metrics),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	if cfg.SignInLimit.Enabled {
		b.limiter = rate.New(rdb, rate.Config{
			Prefix:      cfg.KeyPrefix,
			MaxAttempts: cfg.SignInLimit.MaxAttempts,
			Window:      cfg.SignInLimit.Window,
			PerIP:       cfg.SignInLimit.PerIP,
		})
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Metrics exposes the live counters, for request latency observation.
func (b *Backend) Metrics() *Metrics {
	return b.metrics
}

func (b *Backend) MetricsSnapshot() MetricsSnapshot {
	return b.metrics.Snapshot()
}

func (b *Backend) key(parts ...string) string {
	k := b.cfg.KeyPrefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}
