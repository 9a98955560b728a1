package aiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultOpenAIModel = "gpt-4o"

type openAIAdapter struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

func newOpenAIAdapter(cfg adapterConfig) (adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("aiservice: openai adapter requires an api key")
	}
	base := cfg.Endpoint
	if base == "" {
		base = "https://api.openai.com/v1/chat/completions"
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAIAdapter{apiKey: cfg.APIKey, baseURL: base, model: model, http: &http.Client{Timeout: 60 * time.Second}}, nil
}

func (a *openAIAdapter) provider() Provider { return ProviderOpenAI }

func (a *openAIAdapter) capabilities() Capability {
	return CapTextOnly | CapToolUse | CapStructuredOutput
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (a *openAIAdapter) complete(ctx context.Context, req Request, model string) (Response, error) {
	if model == "" {
		model = a.model
	}
	msgs := make([]openAIMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openAIMessage{Role: string(m.Role), Content: m.Content})
	}
	body, err := json.Marshal(openAIRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Response{}, fmt.Errorf("aiservice: openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("aiservice: openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	start := time.Now()
	resp, err := a.http.Do(httpReq)
	if err != nil {
		return Response{}, providerTransientErr(ProviderOpenAI, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, providerTransientErr(ProviderOpenAI, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return Response{}, providerTransientErr(ProviderOpenAI, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Response{}, providerAuthErr(ProviderOpenAI, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}
	if resp.StatusCode == http.StatusBadRequest {
		return Response{}, providerMalformedErr(ProviderOpenAI, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, fmt.Errorf("aiservice: openai: decode response: %w", err)
	}
	if parsed.Error != nil {
		return Response{}, fmt.Errorf("aiservice: openai: %s: %s", parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("aiservice: openai: empty choices")
	}
	return Response{
		Text:     parsed.Choices[0].Message.Content,
		Provider: ProviderOpenAI,
		Model:    model,
		Latency:  time.Since(start),
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}
