package llm

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"anthropic default model", Config{APIKey: "k"}, true},
		{"openrouter needs model", Config{Provider: "openrouter", APIKey: "k"}, false},
		{"openrouter with model", Config{Provider: "OpenRouter", APIKey: "k", Model: "x-ai/grok-4.1-fast"}, true},
		{"unknown provider", Config{Provider: "bard", APIKey: "k"}, false},
		{"missing key", Config{Provider: "openai", Model: "gpt"}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("%s: error = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestConfigBaseURLDefaults(t *testing.T) {
	t.Parallel()

	if got := (Config{Provider: "openrouter"}).OpenRouter().BaseURL; got != "https://openrouter.ai/api/v1" {
		t.Fatalf("openrouter base url = %s", got)
	}
	if got := (Config{}).Anthropic().BaseURL; got != "https://api.anthropic.com" {
		t.Fatalf("anthropic base url = %s", got)
	}
	if got := (Config{Provider: "openai", BaseURL: "http://local/v1"}).OpenRouter().BaseURL; got != "http://local/v1" {
		t.Fatalf("override base url = %s", got)
	}
}
