package ai

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/critique/pkg/domain/ai"
)

const (
	defaultOllamaModel = "llama3"
	defaultOllamaHost  = "http://localhost:11434"
)

type OllamaProvider struct {
	Model      string
	Host       string
	httpClient *http.Client
}

func NewOllamaProvider(model string) *OllamaProvider {
	return NewOllamaProviderWithClient(model, "", nil)
}

// NewOllamaProviderWithClient targets host (e.g. the value of OLLAMA_HOST).
func NewOllamaProviderWithClient(model, host string, client *http.Client) *OllamaProvider {
	if model == "" {
		model = defaultOllamaModel
	}
	if host == "" {
		host = defaultOllamaHost
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return &OllamaProvider{Model: model, Host: strings.TrimRight(host, "/"), httpClient: client}
}

func (p *OllamaProvider) ID() string {
	return "ollama:" + p.Model
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

var safeModelName = regexp.MustCompile(`^[a-zA-Z0-9:._/-]+$`)

func (p *OllamaProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if !safeModelName.MatchString(p.Model) {
		return nil, fmt.Errorf("invalid model name: %s", p.Model)
	}
	if req.Temperature < 0 {
		return nil, fmt.Errorf("invalid temperature")
	}

	oReq := ollamaRequest{
		Model:  p.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	}
	if req.JSON {
		oReq.Format = "json"
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		oReq.Options = &ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}

	var oResp ollamaResponse
	if err := postJSON(ctx, p.httpClient, "Ollama", p.Host+"/api/generate", nil, oReq, &oResp); err != nil {
		return nil, err
	}
	if oResp.Error != "" {
		return nil, fmt.Errorf("ollama: %s", oResp.Error)
	}

	usage := ai.TokenUsage{InputTokens: oResp.PromptEvalCount, OutputTokens: oResp.EvalCount}
	if usage.Total() == 0 {
		usage = ai.TokenUsage{InputTokens: len(req.Prompt) / 4, OutputTokens: len(oResp.Response) / 4}
	}

	return &ai.CompletionResponse{
		Text:  strings.TrimSpace(oResp.Response),
		Model: p.Model,
		Usage: usage,
	}, nil
}
