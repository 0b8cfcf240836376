package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const DefaultMaxBytes = 64 << 20

type RistrettoConfig struct {
	MaxBytes    int64 `split_words:"true" default:"67108864"`
	NumCounters int64 `split_words:"true" default:"100000"`
}

// Ristretto is an in-process Backend with cost-based admission. Unlike
// Memory it may refuse a Set under contention and evicts by access
// frequency, not by expiry order.
type Ristretto struct {
	cache *ristretto.Cache[string, []byte]
}

var _ Backend = (*Ristretto)(nil)

func NewRistretto(cfg RistrettoConfig) (*Ristretto, error) {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = 100_000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &Ristretto{cache: c}, nil
}

func (r *Ristretto) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := r.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (r *Ristretto) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := append([]byte(nil), value...)
	if !r.cache.SetWithTTL(key, v, int64(len(key)+len(v)), ttl) {
		return errors.New("ristretto rejected entry")
	}
	r.cache.Wait()
	return nil
}

func (r *Ristretto) Flush(context.Context) error {
	r.cache.Clear()
	return nil
}

func (r *Ristretto) Close() error {
	r.cache.Close()
	return nil
}
