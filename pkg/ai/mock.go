package ai

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/felixgeelhaar/critique/pkg/domain/ai"
)

// MockProvider answers deterministically without network access. It backs
// the "mock" provider name and offline demos.
type MockProvider struct {
	Model string
	// Response, when set, is returned verbatim for every request.
	Response string
	// Err, when set, fails every request.
	Err error

	calls atomic.Int64
}

func (p *MockProvider) ID() string {
	return "mock:" + p.Model
}

// Calls reports how many completions were requested.
func (p *MockProvider) Calls() int {
	return int(p.calls.Load())
}

func (p *MockProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	p.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}

	text := p.Response
	if text == "" {
		text = mockAnswer(req)
	}
	return &ai.CompletionResponse{
		Text:  text,
		Model: p.Model,
		Usage: ai.TokenUsage{InputTokens: len(req.Prompt) / 4, OutputTokens: len(text) / 4},
	}, nil
}

func mockAnswer(req ai.CompletionRequest) string {
	if req.JSON {
		return `{"themes":[{"name":"Feasibility","color":"yellow"},{"name":"User impact","color":"blue"}]}`
	}
	// Rewrite requests carry the points to transform after a "Points:" line.
	if i := strings.LastIndex(req.Prompt, "Points:\n"); i >= 0 {
		var out []string
		for _, line := range strings.Split(req.Prompt[i+len("Points:\n"):], "\n") {
			for _, p := range strings.Split(line, "**") {
				if p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "-")); p != "" {
					out = append(out, "(rewritten) "+p)
				}
			}
		}
		return strings.Join(out, " ** ")
	}

	var lines []string
	for _, line := range strings.Split(req.Prompt, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line != "" && !strings.HasSuffix(line, ":") {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "No decisions were provided to critique"
	}
	points := make([]string, 0, len(lines))
	for i, line := range lines {
		if i == 5 {
			break
		}
		points = append(points, fmt.Sprintf("Reconsider: %s", line))
	}
	return strings.Join(points, " ** ")
}
