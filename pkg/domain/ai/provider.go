package ai

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyCompletion is returned when a backend answers with blank text.
var ErrEmptyCompletion = errors.New("backend returned an empty completion")

// CompletionRequest represents a prompt to the generation backend.
type CompletionRequest struct {
	Prompt      string
	System      string
	Temperature float32
	MaxTokens   int
	// JSON asks backends that support it for a JSON-only answer.
	JSON bool
}

// CompletionResponse represents the backend's answer.
type CompletionResponse struct {
	Text  string
	Usage TokenUsage
	Model string
}

// TokenUsage tracks costs.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Provider is the interface for all generation backends.
type Provider interface {
	ID() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompleteText runs req against p and returns the trimmed text. A nil
// response or blank text is reported as ErrEmptyCompletion.
func CompleteText(ctx context.Context, p Provider, req CompletionRequest) (string, error) {
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
