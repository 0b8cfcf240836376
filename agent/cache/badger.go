package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type BadgerConfig struct {
	Path     string `split_words:"true"`
	InMemory bool   `split_words:"true" default:"false"`
}

// Badger keeps cached results on local disk so they survive restarts.
type Badger struct {
	db     *badger.DB
	prefix []byte
}

var _ Backend = (*Badger)(nil)

func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Path != "":
		opts = badger.DefaultOptions(cfg.Path)
	default:
		return nil, errors.New("badger path is required unless in-memory")
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db, prefix: []byte(defaultRedisPrefix)}, nil
}

func (b *Badger) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get: %w", err)
	}
	return value, true, nil
}

func (b *Badger) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(b.key(key), append([]byte(nil), value...))
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

func (b *Badger) Flush(context.Context) error {
	if err := b.db.DropPrefix(b.prefix); err != nil {
		return fmt.Errorf("badger flush: %w", err)
	}
	return nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func (b *Badger) key(key string) []byte {
	return append(append([]byte(nil), b.prefix...), key...)
}
