package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxUpstashResponseBytes = 2 << 20

type UpstashConfig struct {
	URL       string        `envconfig:"URL" split_words:"true"`
	Token     string        `envconfig:"TOKEN" split_words:"true"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	KeyPrefix string        `split_words:"true" default:"concierge:cache:"`
}

type UpstashOption func(*Upstash)

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(u *Upstash) {
		if client != nil {
			u.httpClient = client
		}
	}
}

// Upstash talks to Upstash Redis over its REST command endpoint.
type Upstash struct {
	baseURL    string
	token      string
	prefix     string
	httpClient *http.Client
}

var _ Backend = (*Upstash)(nil)

type upstashResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewUpstash(cfg UpstashConfig, opts ...UpstashOption) (*Upstash, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	u := &Upstash{
		baseURL:    baseURL,
		token:      token,
		prefix:     prefix,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u, nil
}

func (u *Upstash) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := u.exec(ctx, []any{"GET", u.prefix + key})
	if err != nil {
		return nil, false, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, false, nil
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, false, fmt.Errorf("decode cached payload: %w", err)
	}
	return []byte(encoded), true, nil
}

func (u *Upstash) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := []any{"SET", u.prefix + key, string(value)}
	if ttl > 0 {
		cmd = append(cmd, "PX", ttl.Milliseconds())
	}
	_, err := u.exec(ctx, cmd)
	return err
}

func (u *Upstash) Flush(ctx context.Context) error {
	cursor := "0"
	for {
		resp, err := u.exec(ctx, []any{"SCAN", cursor, "MATCH", u.prefix + "*", "COUNT", 200})
		if err != nil {
			return err
		}

		var page []json.RawMessage
		if err := json.Unmarshal(resp.Result, &page); err != nil || len(page) != 2 {
			return fmt.Errorf("decode scan response: %s", string(resp.Result))
		}
		var keys []string
		if err := json.Unmarshal(page[0], &cursor); err != nil {
			return fmt.Errorf("decode scan cursor: %w", err)
		}
		if err := json.Unmarshal(page[1], &keys); err != nil {
			return fmt.Errorf("decode scan keys: %w", err)
		}

		if len(keys) > 0 {
			cmd := make([]any, 0, len(keys)+1)
			cmd = append(cmd, "DEL")
			for _, k := range keys {
				cmd = append(cmd, k)
			}
			if _, err := u.exec(ctx, cmd); err != nil {
				return err
			}
		}
		if cursor == "0" {
			return nil
		}
	}
}

func (u *Upstash) exec(ctx context.Context, command []any) (*upstashResponse, error) {
	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstashResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed upstashResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}
