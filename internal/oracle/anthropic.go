package oracle

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 4096

// AnthropicClient implements Client against the Anthropic Messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

var _ Client = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client for the given model alias. The API key
// comes from the argument or, when empty, the ANTHROPIC_API_KEY environment
// variable; a missing key is a terminal configuration error.
func NewAnthropicClient(apiKey, modelAlias string) (*AnthropicClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{
		client:    &client,
		model:     ResolveModel(modelAlias),
		maxTokens: defaultMaxTokens,
	}, nil
}

// Model returns the resolved model identifier.
func (c *AnthropicClient) Model() string { return c.model }

// Invoke sends one prompt and returns the concatenated text blocks of the
// response. A response with no text maps to ErrEmptyResponse.
func (c *AnthropicClient) Invoke(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
