package validation

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/agenthands/attendance/internal/core/model"
)

type MockValidator struct {
	Result bool
	Err    error
	Delay  time.Duration
	// Gate, when set, holds every call until it is closed.
	Gate  chan struct{}
	Calls atomic.Int32
}

func (m *MockValidator) Validate(ctx context.Context, sig model.Signature) (bool, error) {
	m.Calls.Add(1)
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return m.Result, m.Err
}

type MockVisionClient struct {
	Response string
	Err      error
	Prompt   string
	Image    []byte
	MimeType string
}

func (m *MockVisionClient) Describe(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	m.Prompt = prompt
	m.Image = image
	m.MimeType = mimeType
	return m.Response, m.Err
}
