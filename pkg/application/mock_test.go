package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/felixgeelhaar/critique/pkg/domain/ai"
	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedProvider answers with respond and records every request.
type scriptedProvider struct {
	mu      sync.Mutex
	calls   []ai.CompletionRequest
	respond func(ctx context.Context, req ai.CompletionRequest) (string, error)
}

func (p *scriptedProvider) ID() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()
	text, err := p.respond(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ai.CompletionResponse{Text: text}, nil
}

func (p *scriptedProvider) count(match func(ai.CompletionRequest) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if match(c) {
			n++
		}
	}
	return n
}

func isCritique(req ai.CompletionRequest) bool { return req.System == critiqueSystemPrompt }
func isVariant(req ai.CompletionRequest) bool  { return req.System == variantSystemPrompt }

// fakeBoard is an in-memory board.
type fakeBoard struct {
	mu        sync.Mutex
	challenge string
	decisions critique.PointSet
	themes    []critique.Theme
	readErr   error
	posted    []string
	postErr   error
}

func (b *fakeBoard) setDecisions(d ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decisions = d
}

func (b *fakeBoard) setThemes(t ...critique.Theme) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.themes = t
}

func (b *fakeBoard) DesignChallenge(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.challenge, b.readErr
}

func (b *fakeBoard) ConsensusPoints(ctx context.Context) (critique.PointSet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.decisions.Clone(), b.readErr
}

func (b *fakeBoard) CurrentThemes(ctx context.Context) ([]critique.Theme, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]critique.Theme(nil), b.themes...), nil
}

func (b *fakeBoard) CreateResponseArtifact(ctx context.Context, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.postErr != nil && strings.Contains(text, "fail") {
		return b.postErr
	}
	b.posted = append(b.posted, text)
	return nil
}

type persisted struct {
	points critique.PointSet
	tone   critique.Tone
	level  critique.SimplificationLevel
}

// fakeLog is an in-memory analysis log.
type fakeLog struct {
	mu      sync.Mutex
	records []persisted
	history []critique.PointSet
	err     error
}

func (l *fakeLog) Persist(ctx context.Context, points critique.PointSet, tone critique.Tone, level critique.SimplificationLevel) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.records = append(l.records, persisted{points: points, tone: tone, level: level})
	return nil
}

func (l *fakeLog) LoadAllHistoricalPointSets(ctx context.Context) ([]critique.PointSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.history, nil
}

func (l *fakeLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

var errBackend = errors.New("backend unavailable")
