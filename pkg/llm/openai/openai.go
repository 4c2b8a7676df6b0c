// Package openai provides an OpenAI-compatible llm.Provider implementation.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o-mini"),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	reply, err := provider.Complete(ctx, []*llm.Message{
//	    llm.NewUserMessage("Hello!"),
//	})
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/entrhq/aegis/pkg/llm"
)

// DefaultBaseURL is the default OpenAI API base URL.
const DefaultBaseURL = "https://api.openai.com/v1"

// Provider implements llm.Provider for OpenAI-compatible APIs.
type Provider struct {
	client  openai.Client
	model   string
	baseURL string
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables using Azure OpenAI, local models, or other compatible
// services.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// If apiKey is empty, it reads OPENAI_API_KEY from the environment. If no
// base URL is set via WithBaseURL, OPENAI_BASE_URL is consulted before
// falling back to the public endpoint.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		model:   "gpt-4o-mini",
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}

	p.client = openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(p.baseURL),
	)
	return p, nil
}

// Complete sends messages to the chat completions endpoint and returns
// the assistant's full response.
func (p *Provider) Complete(ctx context.Context, messages []*llm.Message) (*llm.Message, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: convertMessages(messages),
	})
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	return &llm.Message{
		Role:    llm.RoleAssistant,
		Content: resp.Choices[0].Message.Content,
	}, nil
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the base URL being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

func convertMessages(messages []*llm.Message) []openai.ChatCompletionMessageParamUnion {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			converted = append(converted, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			converted = append(converted, openai.AssistantMessage(msg.Content))
		default:
			converted = append(converted, openai.UserMessage(msg.Content))
		}
	}
	return converted
}
