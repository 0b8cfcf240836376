package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens = 1024
)

type Config struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.anthropic.com"`
	APIKey      string        `envconfig:"API_KEY" split_words:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"claude-sonnet-4-5-20250929"`
	MaxTokens   int           `envconfig:"MAX_TOKENS" split_words:"true" default:"1024"`
	Temperature *float64      `envconfig:"TEMPERATURE" split_words:"true"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

// Client wraps the SDK client with the configured model defaults.
type Client struct {
	cfg Config
	sdk anthropicsdk.Client
}

// NewClient builds an SDK client. SDK retries are off: a failed model call
// surfaces to the caller unchanged.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/") + "/"),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{cfg: cfg, sdk: anthropicsdk.NewClient(opts...)}, nil
}

func (c *Client) Model() string {
	return c.cfg.Model
}

// CreateMessage sends one non-streaming request. Model, max tokens and
// temperature fall back to the client config.
func (c *Client) CreateMessage(ctx context.Context, params anthropicsdk.MessageNewParams) (*anthropicsdk.Message, error) {
	if params.Model == "" {
		params.Model = anthropicsdk.Model(c.cfg.Model)
	}
	if params.MaxTokens <= 0 {
		params.MaxTokens = int64(c.cfg.MaxTokens)
	}
	if c.cfg.Temperature != nil && !params.Temperature.Valid() {
		params.Temperature = anthropicsdk.Float(*c.cfg.Temperature)
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: create message: %w", err)
	}
	return msg, nil
}

// Temporary reports rate limiting, overload and server-side failures.
func Temporary(err error) bool {
	var apiErr *anthropicsdk.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
}
