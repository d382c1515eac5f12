package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI calls the chat completions API.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI builds an OpenAI client. baseURL and httpClient are optional.
func NewOpenAI(apiKey, baseURL string, httpClient *http.Client) *OpenAI {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &OpenAI{}
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAI) Name() string {
	return ProviderOpenAI
}

// Configured reports whether an API key was supplied.
func (c *OpenAI) Configured() bool {
	return c.client != nil
}

// Complete sends the system and user messages as one chat completion.
func (c *OpenAI) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if c.client == nil {
		return "", ErrMissingCredential
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.User,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       prompt.Model,
		Messages:    messages,
		Temperature: prompt.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
