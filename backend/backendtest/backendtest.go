// Package backendtest builds a [backend.Backend] over an in-process
// miniredis for tests.
package backendtest

import (
	"strings"
	"testing"

	"github.com/MrEthical07/notees/backend"
	"github.com/MrEthical07/notees/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// Config returns a backend config with cheap password hashing.
func Config() backend.Config {
	cfg := backend.DefaultConfig()
	cfg.JWTSecret = strings.Repeat("k", 32)
	cfg.MaxObjectBytes = 1 << 20
	cfg.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	return cfg
}

// New starts miniredis and returns a backend on it. Both are closed when the
// test ends.
func New(t testing.TB, opts ...backend.Option) (*backend.Backend, *miniredis.Miniredis) {
	t.Helper()
	return NewWithConfig(t, Config(), opts...)
}

func NewWithConfig(t testing.TB, cfg backend.Config, opts ...backend.Option) (*backend.Backend, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	b, err := backend.New(rdb, cfg, opts...)
	if err != nil {
		t.Fatalf("backend.New failed: %v", err)
	}
	return b, mr
}
