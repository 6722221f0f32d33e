// Package config loads service configuration from ASSETLIST_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/star/assetlist/internal/api"
	"github.com/star/assetlist/internal/cache"
	"github.com/star/assetlist/internal/catalog"
	"github.com/star/assetlist/internal/session"
	"github.com/star/assetlist/internal/stream"
)

// Config is the full service configuration.
type Config struct {
	HTTP     HTTP
	Upstream Upstream
	Cache    Cache
	Session  Session
	Stream   Stream
	Log      Log
}

// HTTP configures the listener.
type HTTP struct {
	Addr       string `env:"ASSETLIST_HTTP_ADDR" envDefault:":8080"`
	TrustProxy bool   `env:"ASSETLIST_TRUST_PROXY" envDefault:"false"`
}

// Upstream configures the catalog source.
type Upstream struct {
	BaseURL       string        `env:"ASSETLIST_UPSTREAM_URL" envDefault:"https://backend.digantara.dev/v1"`
	Timeout       time.Duration `env:"ASSETLIST_UPSTREAM_TIMEOUT" envDefault:"30s"`
	MaxBodyBytes  int64         `env:"ASSETLIST_UPSTREAM_MAX_BODY_BYTES" envDefault:"52428800"`
	Retries       uint64        `env:"ASSETLIST_UPSTREAM_RETRIES" envDefault:"3"`
	RetryInterval time.Duration `env:"ASSETLIST_UPSTREAM_RETRY_INTERVAL" envDefault:"1s"`
}

// Cache configures the query cache.
type Cache struct {
	Size int           `env:"ASSETLIST_CACHE_SIZE" envDefault:"32"`
	TTL  time.Duration `env:"ASSETLIST_CACHE_TTL" envDefault:"5m"`
}

// Session configures UI session lifetime.
type Session struct {
	IdleTTL       time.Duration `env:"ASSETLIST_SESSION_TTL" envDefault:"30m"`
	MaxSessions   int           `env:"ASSETLIST_SESSION_MAX" envDefault:"1000"`
	SweepInterval time.Duration `env:"ASSETLIST_SESSION_SWEEP_INTERVAL" envDefault:"1m"`
}

// Stream configures the SSE endpoint.
type Stream struct {
	MaxConcurrentPerIP int           `env:"ASSETLIST_STREAM_MAX_PER_IP" envDefault:"10"`
	KeepaliveInterval  time.Duration `env:"ASSETLIST_STREAM_KEEPALIVE" envDefault:"30s"`
}

// Log configures the logger.
type Log struct {
	Level string `env:"ASSETLIST_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the components cannot run with.
func (c Config) Validate() error {
	var errs []error
	if !strings.HasPrefix(c.Upstream.BaseURL, "http://") && !strings.HasPrefix(c.Upstream.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("ASSETLIST_UPSTREAM_URL must be an http(s) URL, got %q", c.Upstream.BaseURL))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("ASSETLIST_UPSTREAM_TIMEOUT must be positive"))
	}
	if c.Upstream.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("ASSETLIST_UPSTREAM_MAX_BODY_BYTES must be positive"))
	}
	if c.Cache.Size < 1 {
		errs = append(errs, errors.New("ASSETLIST_CACHE_SIZE must be at least 1"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("ASSETLIST_CACHE_TTL must be positive"))
	}
	if c.Session.MaxSessions < 1 {
		errs = append(errs, errors.New("ASSETLIST_SESSION_MAX must be at least 1"))
	}
	if c.Stream.MaxConcurrentPerIP < 1 {
		errs = append(errs, errors.New("ASSETLIST_STREAM_MAX_PER_IP must be at least 1"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: want debug, info, warn or error", s)
	}
	return level, nil
}

// Fetcher returns the upstream fetcher configuration.
func (u Upstream) Fetcher() catalog.FetcherConfig {
	return catalog.FetcherConfig{
		BaseURL:       u.BaseURL,
		Timeout:       u.Timeout,
		MaxBodyBytes:  u.MaxBodyBytes,
		Retries:       u.Retries,
		RetryInterval: u.RetryInterval,
	}
}

// QueryCache returns the query cache configuration.
func (c Cache) QueryCache() cache.Config {
	return cache.Config{Size: c.Size, TTL: c.TTL}
}

// Manager returns the session manager configuration.
func (s Session) Manager() session.Config {
	return session.Config{
		IdleTTL:       s.IdleTTL,
		MaxSessions:   s.MaxSessions,
		SweepInterval: s.SweepInterval,
	}
}

// StreamHandler returns the stream handler configuration.
func (c Config) StreamHandler() stream.Config {
	return stream.Config{
		MaxConcurrentPerIP: c.Stream.MaxConcurrentPerIP,
		KeepaliveInterval:  c.Stream.KeepaliveInterval,
		TrustProxy:         c.HTTP.TrustProxy,
	}
}

// Server returns the HTTP server configuration.
func (h HTTP) Server() api.Config {
	return api.Config{Addr: h.Addr, TrustProxy: h.TrustProxy}
}
