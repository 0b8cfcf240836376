package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Local-Concierge/agent/metrics"
)

const DefaultTTL = 5 * time.Minute

// Backend stores opaque values under content-addressed keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Flush(ctx context.Context) error
}

// ResultCache memoizes serialized tool results. It is advisory: backend
// failures are logged and read as misses.
type ResultCache struct {
	backend Backend
	ttl     time.Duration
	logger  zerolog.Logger
}

type Option func(*ResultCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *ResultCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *ResultCache) {
		c.logger = logger
	}
}

func New(backend Backend, opts ...Option) (*ResultCache, error) {
	if backend == nil {
		return nil, errors.New("cache backend is required")
	}
	c := &ResultCache{
		backend: backend,
		ttl:     DefaultTTL,
		logger:  log.Logger.With().Str("component", "cache").Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *ResultCache) Get(ctx context.Context, op string, params any) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	key, err := Key(op, params)
	if err != nil {
		c.logger.Warn().Err(err).Str("operation", op).Msg("cache key failed")
		return nil, false
	}

	value, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("operation", op).Msg("cache get failed")
		metrics.CacheLookups.WithLabelValues(op, "error").Inc()
		return nil, false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues(op, "miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues(op, "hit").Inc()
	c.logger.Debug().Str("operation", op).Str("key", shortKey(key)).Msg("cache hit")
	return value, true
}

func (c *ResultCache) Put(ctx context.Context, op string, params any, value []byte) {
	if c == nil {
		return
	}
	key, err := Key(op, params)
	if err != nil {
		c.logger.Warn().Err(err).Str("operation", op).Msg("cache key failed")
		return
	}
	if err := c.backend.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("operation", op).Msg("cache set failed")
	}
}

func (c *ResultCache) Flush(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.backend.Flush(ctx)
}

func shortKey(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 && len(key) > i+13 {
		return key[:i+13]
	}
	return key
}
