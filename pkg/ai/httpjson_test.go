package ai_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	infraAI "github.com/felixgeelhaar/critique/pkg/ai"
	"github.com/felixgeelhaar/critique/pkg/domain/ai"
)

func TestStatusError_CarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}` + strings.Repeat(" ", 4096)))
	}))
	defer server.Close()

	p := infraAI.NewGeminiProviderWithClient("gemini-pro", "wrong", server.URL, server.Client())
	_, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"})

	var statusErr *infraAI.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusUnauthorized || !statusErr.Unauthorized() {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
	if statusErr.Body != `{"error":"bad key"}` {
		t.Errorf("body = %q", statusErr.Body)
	}
	if !strings.Contains(err.Error(), "Gemini API returned status 401") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestGeminiProvider_MissingKeyIsUnauthorized(t *testing.T) {
	p := infraAI.NewGeminiProvider("gemini-pro", "")
	_, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"})
	var statusErr *infraAI.StatusError
	if !errors.As(err, &statusErr) || !statusErr.Unauthorized() {
		t.Fatalf("expected unauthorized StatusError, got %v", err)
	}
}

func TestGeminiProvider_BlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer server.Close()

	p := infraAI.NewGeminiProviderWithClient("gemini-pro", "k", server.URL, server.Client())
	_, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("expected block reason in error, got %v", err)
	}
}

func TestOllamaProvider_ErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model 'llama9' not found"}`))
	}))
	defer server.Close()

	p := infraAI.NewOllamaProviderWithClient("llama9", server.URL, server.Client())
	_, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected ollama error, got %v", err)
	}
}
