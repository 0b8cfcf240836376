package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/metrics"
	nodex "github.com/tanpawarit/Chative-Local-Concierge/agent/nodes"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/prompt"
)

const (
	DefaultMaxIterations     = 5
	MinMaxIterations         = 3
	DefaultFallbackThreshold = 4
	DefaultModelTimeout      = 30 * time.Second
)

type Config struct {
	MaxIterations     int           `envconfig:"MAX_ITERATIONS" split_words:"true" default:"5"`
	FallbackThreshold int           `envconfig:"FALLBACK_THRESHOLD" split_words:"true" default:"4"`
	ModelTimeout      time.Duration `envconfig:"MODEL_TIMEOUT" split_words:"true" default:"30s"`
}

func (c Config) withDefaults() Config {
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.FallbackThreshold == 0 {
		c.FallbackThreshold = DefaultFallbackThreshold
	}
	if c.ModelTimeout <= 0 {
		c.ModelTimeout = DefaultModelTimeout
	}
	return c
}

func (c Config) Validate() error {
	if c.MaxIterations < MinMaxIterations || c.MaxIterations > DefaultMaxIterations {
		return fmt.Errorf("%w: max iterations must be between %d and %d, got %d",
			contractx.ErrValidation, MinMaxIterations, DefaultMaxIterations, c.MaxIterations)
	}
	if c.FallbackThreshold < 0 {
		return fmt.Errorf("%w: fallback threshold must not be negative", contractx.ErrValidation)
	}
	return nil
}

type Option func(*Orchestrator)

func WithPrompts(p prompt.PromptSet) Option {
	return func(o *Orchestrator) {
		o.prompts = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// Orchestrator answers one chat request by running the bounded tool-calling loop.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	prompts prompt.PromptSet
	loop    nodex.Loop
	logger  zerolog.Logger

	graphRunner compose.Runnable[contractx.ChatRequest, contractx.ChatResponse]

	now   func() time.Time
	newID func() string
}

func New(model contractx.Converser, tools contractx.ToolGateway, cfg Config, opts ...Option) (*Orchestrator, error) {
	if model == nil {
		return nil, errors.New("model converser is required")
	}
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		prompts: prompt.LoadPromptSet(),
		logger:  log.Logger.With().Str("component", "orchestrator").Logger(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if err := o.prompts.Validate(); err != nil {
		return nil, err
	}

	o.loop = nodex.Loop{
		Model:             model,
		Tools:             tools,
		System:            o.prompts.System,
		MaxIterations:     cfg.MaxIterations,
		FallbackThreshold: cfg.FallbackThreshold,
		ModelTimeout:      cfg.ModelTimeout,
		Logger:            o.logger,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

func (o *Orchestrator) HandleMessage(ctx context.Context, req contractx.ChatRequest) (contractx.ChatResponse, error) {
	start := o.now()
	out, err := o.graphRunner.Invoke(ctx, req)
	if err != nil {
		kind := contractx.Kind(err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if !errors.Is(err, contractx.ErrBackendUnavailable) {
				kind = "canceled"
			}
		}
		metrics.ConversationFaults.WithLabelValues(kind).Inc()
		o.logger.Warn().Err(err).Str("kind", kind).Msg("chat request failed")
		return contractx.ChatResponse{}, err
	}

	metrics.ConversationIterations.Observe(float64(out.Iterations))
	metrics.ConversationCompletions.WithLabelValues(string(out.Completion)).Inc()

	evt := o.logger.Info()
	if out.Degraded {
		evt = o.logger.Warn()
	}
	evt.Str("conversation_id", out.ConversationID).
		Int("iterations", out.Iterations).
		Str("completion", string(out.Completion)).
		Bool("shared", out.SharedRecord != nil).
		Dur("elapsed", o.now().Sub(start)).
		Msg("chat request completed")

	return out, nil
}
