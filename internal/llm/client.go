package llm

import (
	"context"
)

// VisionClient answers a prompt about a single image.
type VisionClient interface {
	Describe(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}
