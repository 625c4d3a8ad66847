package validation

import (
	"context"
	"fmt"

	"github.com/agenthands/attendance/internal/core/common"
	"github.com/agenthands/attendance/internal/core/imaging"
	"github.com/agenthands/attendance/internal/core/model"
	"github.com/agenthands/attendance/internal/llm"
)

// InkValidator accepts a signature whose feature grid carries a plausible
// amount of ink spread over several rows. Blank pads and filled-in
// rectangles are rejected.
type InkValidator struct {
	Width         int
	MinInk        float64
	MaxInk        float64
	MinStrokeRows int
}

var _ Validator = (*InkValidator)(nil)

func (v *InkValidator) Validate(ctx context.Context, sig model.Signature) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(sig.Features) == 0 {
		return false, nil
	}

	ratio := imaging.InkRatio(sig.Features)
	if ratio < v.MinInk || ratio > v.MaxInk {
		return false, nil
	}
	return imaging.InkRows(sig.Features, v.Width) >= v.MinStrokeRows, nil
}

const defaultModelPrompt = `You are reviewing an attendance sheet signature captured on a touch pad.
The image is a low resolution grayscale rendering of the captured strokes.
Decide whether it looks like a genuine handwritten signature rather than a blank pad, a scribble, a printed name or a filled shape.
Return a JSON object: {"is_valid": true|false, "reason": "short explanation"}`

type modelVerdict struct {
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason"`
}

// ModelValidator renders the feature grid to PNG and asks a vision model.
type ModelValidator struct {
	Client llm.VisionClient
	Width  int
	Height int
	Levels int
	Scale  int
	Prompt string
}

var _ Validator = (*ModelValidator)(nil)

func NewModelValidator(client llm.VisionClient, width, height, levels int) *ModelValidator {
	return &ModelValidator{
		Client: client,
		Width:  width,
		Height: height,
		Levels: levels,
		Scale:  4,
		Prompt: defaultModelPrompt,
	}
}

func (v *ModelValidator) Validate(ctx context.Context, sig model.Signature) (bool, error) {
	png, err := imaging.Render(sig.Features, v.Width, v.Height, v.Levels, v.Scale)
	if err != nil {
		return false, fmt.Errorf("failed to render signature %d: %w", sig.ID, err)
	}

	response, err := v.Client.Describe(ctx, v.Prompt, png, "image/png")
	if err != nil {
		return false, fmt.Errorf("failed to query vision model: %w", err)
	}

	result, err := common.ParseJSON[modelVerdict](response)
	if err != nil {
		return false, fmt.Errorf("failed to parse model verdict: %w", err)
	}

	return result.IsValid, nil
}
