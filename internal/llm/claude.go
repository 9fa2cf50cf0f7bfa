package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var claudeModels = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
}

// ClaudeClient implements Client with the Anthropic Messages API.
type ClaudeClient struct {
	model  string
	client anthropic.Client
}

// NewClaudeClient accepts either a short alias ("haiku", "sonnet") or a full
// model ID.
func NewClaudeClient(apiKey, model, baseURL string) *ClaudeClient {
	modelID := claudeModels[model]
	if modelID == "" {
		modelID = model
	}
	if modelID == "" {
		modelID = claudeModels["haiku"]
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &ClaudeClient{model: modelID, client: anthropic.NewClient(opts...)}
}

func (c *ClaudeClient) Name() string { return "claude" }

func (c *ClaudeClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := startSpan(ctx, c.Name(), c.model)
	defer span.End()

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.TopP > 0 {
		params.TopP = anthropic.Float(req.TopP)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		err = fmt.Errorf("Claude API error: %w", err)
		recordError(span, err)
		return "", err
	}

	return extractClaudeText(message), nil
}

func extractClaudeText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}
