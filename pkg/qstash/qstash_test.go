package qstash

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotRetries, gotForward string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRetries = r.Header.Get("Upstash-Retries")
		gotForward = r.Header.Get("Upstash-Forward-X-Conversation-Id")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"messageId":"msg_123"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{URL: srv.URL, Token: "tok", Destination: "https://hooks.example.com/shared", Retries: 2})
	require.NoError(t, err)

	out, err := c.Publish(context.Background(), map[string]string{"slug": "moments"}, map[string]string{"X-Conversation-Id": "c1"})
	require.NoError(t, err)

	assert.Equal(t, "msg_123", out.MessageID)
	assert.True(t, strings.HasPrefix(gotPath, "/v2/publish/https:"), gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "2", gotRetries)
	assert.Equal(t, "c1", gotForward)
	assert.Equal(t, "moments", gotBody["slug"])
}

func TestPublishErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	}))
	t.Cleanup(srv.Close)

	c := MustNew(Config{URL: srv.URL, Token: "bad", Destination: "https://hooks.example.com/shared"})
	_, err := c.Publish(context.Background(), map[string]string{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{URL: "https://qstash.upstash.io", Destination: "https://x.example.com"})
	assert.Error(t, err, "token required")

	_, err = NewClient(Config{URL: "https://qstash.upstash.io", Token: "t", Destination: "not a url"})
	assert.Error(t, err, "destination must be absolute")
}
