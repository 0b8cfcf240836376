package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	cachex "github.com/tanpawarit/Chative-Local-Concierge/agent/cache"
	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/metrics"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/ranking"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/store"
)

const (
	DefaultQueryTimeout = 5 * time.Second
	DefaultPoolSize     = 8
)

// Registry owns the tool catalog and dispatches invocations against the record store.
type Registry struct {
	tools  []*Tool
	byName map[string]*Tool

	cache        *cachex.ResultCache
	ranker       *ranking.Engine
	pool         *ants.Pool
	poolSize     int
	queryTimeout time.Duration
	logger       zerolog.Logger
	tracer       trace.Tracer
}

type Option func(*Registry)

// WithCache enables memoization; a nil cache disables it.
func WithCache(c *cachex.ResultCache) Option {
	return func(r *Registry) {
		r.cache = c
	}
}

func WithRanker(e *ranking.Engine) Option {
	return func(r *Registry) {
		if e != nil {
			r.ranker = e
		}
	}
}

func WithQueryTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.queryTimeout = d
		}
	}
}

func WithPoolSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.poolSize = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func NewRegistry(st store.RecordStore, opts ...Option) (*Registry, error) {
	if st == nil {
		return nil, errors.New("record store is required")
	}

	r := &Registry{
		poolSize:     DefaultPoolSize,
		queryTimeout: DefaultQueryTimeout,
		logger:       log.Logger.With().Str("component", "tool_registry").Logger(),
		tracer:       otel.Tracer("github.com/tanpawarit/Chative-Local-Concierge/agent/tool"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.ranker == nil {
		r.ranker = ranking.New()
	}

	tools := catalog(&handlers{store: st, ranker: r.ranker})
	r.byName = make(map[string]*Tool, len(tools))
	for _, t := range tools {
		if err := t.compile(); err != nil {
			return nil, err
		}
		r.byName[t.Def.Name] = t
	}
	r.tools = tools

	pool, err := ants.NewPool(r.poolSize)
	if err != nil {
		return nil, fmt.Errorf("create tool worker pool: %w", err)
	}
	r.pool = pool
	return r, nil
}

// Close releases the worker pool. Later ExecuteAll calls run inline.
func (r *Registry) Close() {
	r.pool.Release()
}

func (r *Registry) Catalog() []contractx.ToolDefinition {
	out := make([]contractx.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Def)
	}
	return out
}

func (r *Registry) Kind(name string) contractx.ToolKind {
	if t, ok := r.byName[name]; ok {
		return t.Kind
	}
	return contractx.ToolKindOther
}

// ExecuteAll runs one iteration's invocations concurrently. results[i] answers invs[i].
func (r *Registry) ExecuteAll(ctx context.Context, invs []contractx.ToolInvocation) []contractx.ToolResult {
	results := make([]contractx.ToolResult, len(invs))
	if len(invs) == 1 {
		results[0] = r.Execute(ctx, invs[0])
		return results
	}

	var wg sync.WaitGroup
	for i, inv := range invs {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = r.Execute(ctx, inv)
		}
		if err := r.pool.Submit(task); err != nil {
			r.logger.Warn().Err(err).Str("tool", inv.Name).Msg("worker pool rejected task, running inline")
			task()
		}
	}
	wg.Wait()
	return results
}

// Execute dispatches a single invocation. Failures come back as is-error results, never as panics or errors.
func (r *Registry) Execute(ctx context.Context, inv contractx.ToolInvocation) contractx.ToolResult {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "tool.execute", trace.WithAttributes(
		attribute.String("tool.name", inv.Name),
		attribute.String("tool.call_id", inv.ID),
	))
	defer span.End()

	res, count, cached := r.execute(ctx, inv)
	elapsed := time.Since(start)

	status := "ok"
	if res.IsError {
		status = "error"
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, contractx.Kind(res.Err))
	}
	span.SetAttributes(attribute.Bool("tool.cached", cached), attribute.Int("tool.result_count", count))

	metrics.ToolInvocations.WithLabelValues(inv.Name, status).Inc()
	metrics.ToolDuration.WithLabelValues(inv.Name).Observe(elapsed.Seconds())
	if !res.IsError && !cached {
		metrics.ToolResultCount.WithLabelValues(inv.Name).Observe(float64(count))
	}

	evt := r.logger.Debug()
	if res.IsError {
		evt = r.logger.Warn().Err(res.Err)
	}
	evt.Str("tool", inv.Name).
		Str("call_id", inv.ID).
		Bool("cached", cached).
		Int("results", count).
		Dur("elapsed", elapsed).
		Msg("tool executed")

	return res
}

func (r *Registry) execute(ctx context.Context, inv contractx.ToolInvocation) (contractx.ToolResult, int, bool) {
	if err := ctx.Err(); err != nil {
		return errorResult(inv, fmt.Errorf("%w: %v", contractx.ErrToolExecution, err)), 0, false
	}

	t, ok := r.byName[inv.Name]
	if !ok {
		return errorResult(inv, fmt.Errorf("%w: %s", contractx.ErrToolNotFound, inv.Name)), 0, false
	}

	args, err := decodeArgs(inv.Input)
	if err != nil {
		return errorResult(inv, err), 0, false
	}
	params, err := t.prepare(args)
	if err != nil {
		return errorResult(inv, err), 0, false
	}

	if t.Cacheable {
		if payload, hit := r.cache.Get(ctx, t.Def.Name, params); hit {
			return contractx.ToolResult{ToolUseID: inv.ID, Tool: inv.Name, Content: string(payload)}, 0, true
		}
	}

	qctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	value, count, err := t.handle(qctx, params)
	cancel()
	if err != nil {
		return errorResult(inv, classify(err)), 0, false
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return errorResult(inv, fmt.Errorf("%w: encode %s result: %v", contractx.ErrToolExecution, inv.Name, err)), 0, false
	}
	if t.Cacheable {
		r.cache.Put(ctx, t.Def.Name, params, payload)
	}
	return contractx.ToolResult{
		ToolUseID: inv.ID,
		Tool:      inv.Name,
		Content:   string(payload),
		Value:     value,
	}, count, false
}

func decodeArgs(input json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return args, nil
	}
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, fmt.Errorf("%w: tool input must be a JSON object: %v", contractx.ErrValidation, err)
	}
	return args, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w: store query timed out", contractx.ErrToolExecution, contractx.ErrBackendUnavailable)
	case errors.Is(err, contractx.ErrBackendUnavailable):
		return fmt.Errorf("%w: %w", contractx.ErrToolExecution, err)
	default:
		return fmt.Errorf("%w: %v", contractx.ErrToolExecution, err)
	}
}

func errorResult(inv contractx.ToolInvocation, err error) contractx.ToolResult {
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	return contractx.ToolResult{
		ToolUseID: inv.ID,
		Tool:      inv.Name,
		Content:   string(payload),
		IsError:   true,
		Err:       err,
	}
}
