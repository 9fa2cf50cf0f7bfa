package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	openAIRequestTimeout = 120 * time.Second
)

// OpenAIClient implements Client with the OpenAI chat-completions API.
type OpenAIClient struct {
	model  string
	client *openai.Client
}

func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Timeout: openAIRequestTimeout}),
		option.WithMaxRetries(0),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	client := openai.NewClient(opts...)

	return &OpenAIClient{model: model, client: &client}
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := startSpan(ctx, c.Name(), c.model)
	defer span.End()

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			err = fmt.Errorf("OpenAI API request failed (status=%d): %s", apiErr.StatusCode, strings.TrimSpace(apiErr.Message))
		} else {
			err = fmt.Errorf("OpenAI API request failed: %w", err)
		}
		recordError(span, err)
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		err := fmt.Errorf("OpenAI API returned no choices")
		recordError(span, err)
		return "", err
	}

	return resp.Choices[0].Message.Content, nil
}
