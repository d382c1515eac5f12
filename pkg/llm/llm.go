// Package llm hides chat-completion providers behind a single prompt-in, text-out call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrMissingCredential means the provider has no API key; callers report it as a configuration error.
	ErrMissingCredential = errors.New("llm: missing api credential")
	// ErrEmptyResponse means the provider answered without any text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Prompt is a single system+user exchange.
type Prompt struct {
	System      string
	User        string
	Model       string
	Temperature float32
}

// Client sends one prompt and returns the model text. Implementations make exactly one
// upstream call per invocation and never retry.
type Client interface {
	Name() string
	Configured() bool
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Options configures provider construction.
type Options struct {
	Provider      string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	HTTPClient    *http.Client
}

// New builds the configured provider. A blank key is accepted; Complete then returns ErrMissingCredential.
func New(opts Options) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderOpenAI:
		return NewOpenAI(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.HTTPClient), nil
	case ProviderGemini:
		return NewGemini(opts.GeminiAPIKey, opts.HTTPClient), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", opts.Provider)
	}
}

// IsMissingCredential reports whether err stems from an absent API key.
func IsMissingCredential(err error) bool {
	return errors.Is(err, ErrMissingCredential)
}
