package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"github.com/tanpawarit/Chative-Local-Concierge/agent/agents/orchestrator"
	cachex "github.com/tanpawarit/Chative-Local-Concierge/agent/cache"
	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/llm"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/review"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/server"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/store"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/tool"
	configx "github.com/tanpawarit/Chative-Local-Concierge/pkg/config"
	elasticx "github.com/tanpawarit/Chative-Local-Concierge/pkg/elastic"
	postgresx "github.com/tanpawarit/Chative-Local-Concierge/pkg/postgres"
	qstashx "github.com/tanpawarit/Chative-Local-Concierge/pkg/qstash"
	redisx "github.com/tanpawarit/Chative-Local-Concierge/pkg/redis"
)

const (
	backendMemory    = "memory"
	backendPostgres  = "postgres"
	backendElastic   = "elastic"
	backendRedis     = "redis"
	backendUpstash   = "upstash"
	backendBadger    = "badger"
	backendRistretto = "ristretto"
	backendNone      = "none"
)

type AppConfig struct {
	StoreBackend  string        `split_words:"true" default:"memory"`
	SeedFile      string        `split_words:"true"`
	CacheBackend  string        `split_words:"true" default:"memory"`
	CacheTTL      time.Duration `split_words:"true" default:"5m"`
	CacheMaxBytes int           `split_words:"true" default:"67108864"`
	QueryTimeout  time.Duration `split_words:"true" default:"5s"`
	WorkerPool    int           `split_words:"true" default:"8"`
	NotifyShares  bool          `split_words:"true" default:"false"`
}

// app holds the wired collaborators and the cleanup for everything it opened.
type app struct {
	cfg          AppConfig
	store        store.RecordStore
	db           *bun.DB
	cache        *cachex.ResultCache
	memoryCache  *cachex.Memory
	registry     *tool.Registry
	orchestrator *orchestrator.Orchestrator
	reviews      *review.Service
	notifier     contractx.ShareNotifier

	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildTools wires the store, cache and tool registry. The model is not needed.
func buildTools(ctx context.Context) (*app, error) {
	a := &app{cfg: *configx.MustNew[AppConfig]("APP")}

	if err := a.openStore(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.openCache(); err != nil {
		_ = a.Close()
		return nil, err
	}

	opts := []tool.Option{
		tool.WithQueryTimeout(a.cfg.QueryTimeout),
		tool.WithPoolSize(a.cfg.WorkerPool),
	}
	if a.cache != nil {
		opts = append(opts, tool.WithCache(a.cache))
	}
	registry, err := tool.NewRegistry(a.store, opts...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.registry = registry
	a.closers = append(a.closers, func() error { registry.Close(); return nil })
	return a, nil
}

// buildApp wires everything the chat surfaces need, including the model.
func buildApp(ctx context.Context) (*app, error) {
	a, err := buildTools(ctx)
	if err != nil {
		return nil, err
	}

	converser, err := llm.New(ctx, *configx.MustNew[llm.Config]("LLM"))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build model converser: %w", err)
	}

	orch, err := orchestrator.New(converser, a.registry, *configx.MustNew[orchestrator.Config]("APP"))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.orchestrator = orch

	var repo review.Repository = review.NewMemory()
	if a.db != nil {
		if repo, err = review.NewBunRepository(a.db); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	if a.reviews, err = review.NewService(repo); err != nil {
		_ = a.Close()
		return nil, err
	}

	if a.cfg.NotifyShares {
		client, err := qstashx.NewClient(*configx.MustNew[qstashx.Config]("QSTASH"))
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("build qstash client: %w", err)
		}
		a.notifier = server.NewQStashNotifier(client)
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch backend := strings.ToLower(a.cfg.StoreBackend); backend {
	case backendMemory, "":
		if a.cfg.SeedFile == "" {
			log.Warn().Msg("memory store has no seed file, every search will be empty")
			a.store = store.NewMemory()
			return nil
		}
		mem, err := store.LoadJSONFile(a.cfg.SeedFile)
		if err != nil {
			return err
		}
		a.store = mem
	case backendPostgres:
		db, err := a.openPostgres(ctx)
		if err != nil {
			return err
		}
		st, err := store.NewPostgresStore(db)
		if err != nil {
			return err
		}
		a.store = st
	case backendElastic:
		cfg := configx.MustNew[elasticx.Config]("ELASTIC")
		es, err := elasticx.NewClient(*cfg)
		if err != nil {
			return err
		}
		if err := elasticx.Ping(ctx, es); err != nil {
			return err
		}
		st, err := store.NewElasticStore(es, cfg.Index)
		if err != nil {
			return err
		}
		a.store = st
	default:
		return fmt.Errorf("%w: unknown store backend %q", contractx.ErrValidation, backend)
	}
	log.Info().Str("backend", a.cfg.StoreBackend).Msg("record store ready")
	return nil
}

func (a *app) openPostgres(ctx context.Context) (*bun.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := postgresx.Open(ctx, *configx.MustNew[postgresx.Config]("POSTGRES"))
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	return db, nil
}

func (a *app) openCache() error {
	var backend cachex.Backend
	switch name := strings.ToLower(a.cfg.CacheBackend); name {
	case backendNone:
		return nil
	case backendMemory, "":
		a.memoryCache = cachex.NewMemory(cachex.WithMaxBytes(a.cfg.CacheMaxBytes))
		backend = a.memoryCache
	case backendRistretto:
		r, err := cachex.NewRistretto(cachex.RistrettoConfig{MaxBytes: int64(a.cfg.CacheMaxBytes)})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, r.Close)
		backend = r
	case backendRedis:
		cfg := configx.MustNew[redisx.Config]("REDIS")
		client, err := redisx.NewClient(*cfg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		r, err := cachex.NewRedis(client, cfg.KeyPrefix)
		if err != nil {
			return err
		}
		backend = r
	case backendUpstash:
		u, err := cachex.NewUpstash(*configx.MustNew[cachex.UpstashConfig]("UPSTASH"))
		if err != nil {
			return err
		}
		backend = u
	case backendBadger:
		b, err := cachex.OpenBadger(*configx.MustNew[cachex.BadgerConfig]("BADGER"))
		if err != nil {
			return err
		}
		a.closers = append(a.closers, b.Close)
		backend = b
	default:
		return fmt.Errorf("%w: unknown cache backend %q", contractx.ErrValidation, name)
	}

	c, err := cachex.New(backend, cachex.WithTTL(a.cfg.CacheTTL))
	if err != nil {
		return err
	}
	a.cache = c
	log.Info().Str("backend", a.cfg.CacheBackend).Dur("ttl", a.cfg.CacheTTL).Int("max_bytes", a.cfg.CacheMaxBytes).Msg("result cache ready")
	return nil
}

// runSweeper evicts expired in-process cache entries until ctx ends.
func (a *app) runSweeper(ctx context.Context) {
	if a.memoryCache != nil {
		go a.memoryCache.Run(ctx)
	}
}
