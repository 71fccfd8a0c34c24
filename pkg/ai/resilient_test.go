package ai_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	infraAI "github.com/felixgeelhaar/critique/pkg/ai"
	"github.com/felixgeelhaar/critique/pkg/domain/ai"
)

type flakyProvider struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyProvider) ID() string { return "flaky" }

func (f *flakyProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.New("transient")
	}
	return &ai.CompletionResponse{Text: "ok"}, nil
}

type blockingProvider struct{}

func (blockingProvider) ID() string { return "blocking" }

func (blockingProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestResilientProvider_ID_Delegates(t *testing.T) {
	p := infraAI.NewResilientProvider(&infraAI.MockProvider{Model: "test-model"})
	if p.ID() != "mock:test-model" {
		t.Errorf("expected ID 'mock:test-model', got %q", p.ID())
	}
}

func TestResilientProvider_DefaultConfig(t *testing.T) {
	cfg := infraAI.DefaultResilienceConfig()
	if cfg.MaxRetries != 2 {
		t.Errorf("expected MaxRetries 2, got %d", cfg.MaxRetries)
	}
	if cfg.RetryDelay != time.Second {
		t.Errorf("expected RetryDelay 1s, got %v", cfg.RetryDelay)
	}
	if cfg.Timeout != 300*time.Second {
		t.Errorf("expected Timeout 300s, got %v", cfg.Timeout)
	}
}

func TestResilientProvider_ZeroConfigUsesDefaults(t *testing.T) {
	p := infraAI.NewResilientProviderWithConfig(&infraAI.MockProvider{Model: "test"}, infraAI.ResilienceConfig{})
	if p.Config() != infraAI.DefaultResilienceConfig() {
		t.Errorf("expected defaults, got %+v", p.Config())
	}
}

func TestResilientProvider_RetriesTransientFailure(t *testing.T) {
	inner := &flakyProvider{failures: 1}
	p := infraAI.NewResilientProviderWithConfig(inner, infraAI.ResilienceConfig{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		Timeout:    time.Second,
	})
	resp, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if inner.calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls.Load())
	}
}

func TestResilientProvider_Timeout(t *testing.T) {
	p := infraAI.NewResilientProviderWithConfig(blockingProvider{}, infraAI.ResilienceConfig{
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		Timeout:    20 * time.Millisecond,
	})
	start := time.Now()
	if _, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout was not enforced")
	}
}
