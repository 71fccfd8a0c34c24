package ai

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/critique/pkg/domain/ai"
	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o"

type OpenAIProvider struct {
	Model  string
	client *openai.Client
	hasKey bool
}

func NewOpenAIProvider(model string, apiKey string) *OpenAIProvider {
	return NewOpenAIProviderWithBaseURL(model, apiKey, "")
}

// NewOpenAIProviderWithBaseURL points the client at an OpenAI-compatible
// endpoint (proxies, local gateways, tests).
func NewOpenAIProviderWithBaseURL(model, apiKey, baseURL string) *OpenAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		Model:  model,
		client: openai.NewClientWithConfig(cfg),
		hasKey: apiKey != "",
	}
}

func (p *OpenAIProvider) ID() string {
	return "openai:" + p.Model
}

func (p *OpenAIProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if !p.hasKey {
		return nil, fmt.Errorf("OpenAI API key not provided (set OPENAI_API_KEY)")
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := openai.ChatCompletionRequest{
		Model:       p.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI API returned no choices")
	}

	return &ai.CompletionResponse{
		Text:  resp.Choices[0].Message.Content,
		Model: p.Model,
		Usage: ai.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
