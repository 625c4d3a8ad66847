package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

type ClaudeClient struct {
	client *anthropic.Client
	model  string
}

func NewClaudeClient(apiKey string, model string, baseURL string) *ClaudeClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}

	client := anthropic.NewClient(apiKey, opts...)

	return &ClaudeClient{
		client: client,
		model:  model,
	}
}

func (c *ClaudeClient) Describe(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	source := anthropic.NewMessageContentSource(
		anthropic.MessagesContentSourceTypeBase64,
		mimeType,
		base64.StdEncoding.EncodeToString(image),
	)
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewImageMessageContent(source),
					anthropic.NewTextMessageContent(prompt),
				},
			},
		},
		MaxTokens: 256,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Content) > 0 && resp.Content[0].Text != nil {
		return *resp.Content[0].Text, nil
	}
	return "", fmt.Errorf("no response content")
}
