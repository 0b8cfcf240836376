package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	anthropicx "github.com/tanpawarit/Chative-Local-Concierge/pkg/anthropic"
	openrouterx "github.com/tanpawarit/Chative-Local-Concierge/pkg/openrouter"
)

const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

var defaultBaseURLs = map[string]string{
	ProviderAnthropic:  anthropicx.DefaultBaseURL,
	ProviderOpenRouter: openrouterx.DefaultBaseURL,
	ProviderOpenAI:     "https://api.openai.com/v1",
}

type Config struct {
	Provider    string        `envconfig:"PROVIDER" split_words:"true" default:"anthropic"`
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true"`
	APIKey      string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true"`
	MaxTokens   int           `envconfig:"MAX_TOKENS" split_words:"true" default:"1024"`
	Temperature float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL     string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName    string        `envconfig:"SITE_NAME" split_words:"true"`
}

func (c Config) provider() string {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	if p == "" {
		return ProviderAnthropic
	}
	return p
}

func (c Config) baseURL() string {
	if v := strings.TrimSpace(c.BaseURL); v != "" {
		return v
	}
	return defaultBaseURLs[c.provider()]
}

func (c Config) Validate() error {
	if _, ok := defaultBaseURLs[c.provider()]; !ok {
		return fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, c.Provider)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if c.provider() != ProviderAnthropic && strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model is required for provider %s", contractx.ErrValidation, c.provider())
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("%w: max tokens must not be negative", contractx.ErrValidation)
	}
	return nil
}

func (c Config) Anthropic() anthropicx.Config {
	temp := float64(c.Temperature)
	return anthropicx.Config{
		BaseURL:     c.baseURL(),
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       strings.TrimSpace(c.Model),
		MaxTokens:   c.MaxTokens,
		Temperature: &temp,
		Timeout:     c.Timeout,
	}
}

func (c Config) OpenRouter() openrouterx.Config {
	maxTokens := c.MaxTokens
	return openrouterx.Config{
		BaseURL:            c.baseURL(),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxTokens,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// New builds the converser for the configured provider.
func New(ctx context.Context, c Config) (contractx.Converser, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.provider() {
	case ProviderAnthropic:
		client, err := anthropicx.NewClient(c.Anthropic(), &http.Client{Timeout: c.Timeout})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
		}
		return NewAnthropicConverser(client), nil
	case ProviderOpenRouter:
		orCfg := c.OpenRouter()
		chatModel, err := orCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
		}
		return NewEinoConverser(chatModel, ProviderOpenRouter), nil
	default:
		client := openrouterx.NewClient(c.OpenRouter())
		if client == nil {
			return nil, fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
		}
		return NewOpenAIConverser(client, c.Model, WithMaxTokens(c.MaxTokens), WithTemperature(c.Temperature)), nil
	}
}
