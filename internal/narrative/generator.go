package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-haiku-4-5-20251001"

// Request is one rendered prompt.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// AnthropicGenerator calls the Messages API and collects the streamed text.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
}

func NewAnthropicGenerator(apiKey, modelID string, opts ...option.RequestOption) *AnthropicGenerator {
	if modelID == "" {
		modelID = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicGenerator{client: anthropic.NewClient(opts...), model: modelID}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	stream := g.client.Messages.NewStreaming(ctx, params)
	var b strings.Builder
	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				b.WriteString(delta.Delta.AsTextDelta().Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return "", fmt.Errorf("text service authentication failed, check ANTHROPIC_API_KEY: %w", err)
		}
		return "", fmt.Errorf("stream message: %w", err)
	}
	return b.String(), nil
}

// StaticGenerator answers every prompt from Fn, or with Text when Fn is nil.
// It backs dry runs and tests.
type StaticGenerator struct {
	Text string
	Fn   func(ctx context.Context, req Request) (string, error)
}

func (g StaticGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if g.Fn != nil {
		return g.Fn(ctx, req)
	}
	return g.Text, nil
}
