// Package llm wraps the text-model collaborators: the binary relevance
// classifier, the document generator, and the reply drafter. Every call is
// fallible and latency is measured in seconds; callers own the failure
// policy.
package llm

import (
	"context"
	"errors"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type Client struct {
	model llms.Model
}

// New builds the OpenAI-backed client. The API key comes from
// OPENAI_API_KEY; its absence is a startup-fatal configuration error.
func New(modelName string) (*Client, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, errors.New("llm: OPENAI_API_KEY is not set")
	}
	m, err := openai.New(openai.WithModel(modelName))
	if err != nil {
		return nil, err
	}
	return &Client{model: m}, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, c.model, prompt, llms.WithTemperature(0.2))
}
