package llm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/apresai/paperpod/internal/awsutil"
)

var novaModels = map[string]string{
	"nova-lite": "us.amazon.nova-2-lite-v1:0",
}

// NovaClient implements Client with the Bedrock Converse API.
type NovaClient struct {
	model  string
	client *bedrockruntime.Client
}

func NewNovaClient(ctx context.Context, model string) (*NovaClient, error) {
	cfg, err := awsutil.LoadConfig(ctx, "")
	if err != nil {
		return nil, err
	}

	modelID := novaModels[model]
	if modelID == "" {
		modelID = model
	}
	if modelID == "" {
		modelID = novaModels["nova-lite"]
	}

	return &NovaClient{
		model:  modelID,
		client: bedrockruntime.NewFromConfig(cfg),
	}, nil
}

func (c *NovaClient) Name() string { return "nova" }

func (c *NovaClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := startSpan(ctx, c.Name(), c.model)
	defer span.End()

	inference := &types.InferenceConfiguration{
		Temperature: aws.Float32(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(int32(req.MaxTokens))
	}
	if req.TopP > 0 {
		inference.TopP = aws.Float32(float32(req.TopP))
	}

	resp, err := c.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.model),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		},
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: req.User},
				},
			},
		},
		InferenceConfig: inference,
	})
	if err != nil {
		err = fmt.Errorf("Bedrock Converse error: %w", err)
		recordError(span, err)
		return "", err
	}

	return extractNovaText(resp), nil
}

func extractNovaText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			return tb.Value
		}
	}
	return ""
}
