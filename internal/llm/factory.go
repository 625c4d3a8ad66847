package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/agenthands/attendance/internal/config"
)

func NewVisionClient(ctx context.Context, cfg config.LLMConfig) (VisionClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		// Ollama serves an OpenAI-compatible API under /v1.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}

		log.Printf("[LLM] Using Ollama via OpenAI-compatible API at %s", baseURL)

		// Ollama ignores the key but the client requires one.
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}

		return NewOpenAIClient(apiKey, cfg.Model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
