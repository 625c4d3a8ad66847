package llm

import (
	"context"
	"testing"

	"github.com/agenthands/attendance/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVisionClient(t *testing.T) {
	ctx := context.Background()

	c, err := NewVisionClient(ctx, config.LLMConfig{Provider: "OpenAI", Model: "gpt-4o-mini", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = NewVisionClient(ctx, config.LLMConfig{Provider: "ollama", Model: "llava"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = NewVisionClient(ctx, config.LLMConfig{Provider: "claude", Model: "claude-3-5-haiku-latest", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &ClaudeClient{}, c)

	_, err = NewVisionClient(ctx, config.LLMConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
