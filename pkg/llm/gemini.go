package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// Gemini calls the Gemini API through the genai SDK. The SDK client is created on first use.
type Gemini struct {
	apiKey     string
	httpClient *http.Client

	mu     sync.Mutex
	client *genai.Client
}

// NewGemini builds a Gemini provider. httpClient is optional.
func NewGemini(apiKey string, httpClient *http.Client) *Gemini {
	return &Gemini{apiKey: strings.TrimSpace(apiKey), httpClient: httpClient}
}

func (g *Gemini) Name() string {
	return ProviderGemini
}

// Configured reports whether an API key was supplied.
func (g *Gemini) Configured() bool {
	return g.apiKey != ""
}

// Complete sends the user text with the system prompt as a system instruction.
func (g *Gemini) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if g.apiKey == "" {
		return "", ErrMissingCredential
	}
	client, err := g.sdk(ctx)
	if err != nil {
		return "", err
	}

	temperature := prompt.Temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if prompt.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}}
	}

	resp, err := client.Models.GenerateContent(
		ctx,
		prompt.Model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt.User}}}},
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *Gemini) sdk(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     g.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	g.client = client
	return client, nil
}
