package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/review"
)

const (
	DefaultServiceName = "Local Concierge API"
	DefaultMaxBody     = 1 << 20
)

type Config struct {
	Addr            string        `split_words:"true" default:":3000"`
	Version         string        `split_words:"true" default:"1.0.0"`
	ReadTimeout     time.Duration `split_words:"true" default:"30s"`
	WriteTimeout    time.Duration `split_words:"true" default:"90s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
	AdminToken      string        `split_words:"true"`
}

type ChatService interface {
	HandleMessage(ctx context.Context, req contractx.ChatRequest) (contractx.ChatResponse, error)
}

type ReviewService interface {
	Create(ctx context.Context, in review.CreateInput) (review.Review, error)
	ListByItem(ctx context.Context, itemID string) (review.ItemReviews, error)
}

type CacheFlusher interface {
	Flush(ctx context.Context) error
}

type Server struct {
	cfg      Config
	chat     ChatService
	reviews  ReviewService
	cache    CacheFlusher
	notifier contractx.ShareNotifier

	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Server)

func WithReviews(r ReviewService) Option {
	return func(s *Server) {
		s.reviews = r
	}
}

func WithCacheFlusher(c CacheFlusher) Option {
	return func(s *Server) {
		s.cache = c
	}
}

// WithShareNotifier forwards every shared record after the reply is written.
func WithShareNotifier(n contractx.ShareNotifier) Option {
	return func(s *Server) {
		s.notifier = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

func New(cfg Config, chat ChatService, opts ...Option) (*Server, error) {
	if chat == nil {
		return nil, errors.New("chat service is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":3000"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg:    cfg,
		chat:   chat,
		logger: log.Logger.With().Str("component", "http_server").Logger(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.reviews != nil {
		mux.HandleFunc("POST /reviews", s.handleCreateReview)
		mux.HandleFunc("GET /reviews/{itemID}", s.handleListReviews)
	}
	if s.cache != nil {
		mux.HandleFunc("POST /admin/cache/flush", s.requireAdmin(s.handleFlushCache))
	}
	return s.withRequestID(mux)
}

// Serve blocks until ctx ends, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("http server listening")

	serveDone := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("http server shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info().Msg("http server stopped")
	return nil
}

type requestIDKey struct{}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = s.newID()
		}
		w.Header().Set("X-Request-Id", id)

		start := s.now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		s.logger.Debug().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", s.now().Sub(start)).
			Msg("request served")
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.AdminToken {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{Kind: "unauthorized", Message: "admin token required"}})
			return
		}
		next(w, r)
	}
}
