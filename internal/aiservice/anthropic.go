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

const defaultAnthropicModel = "claude-sonnet-4-5"

type anthropicAdapter struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

func newAnthropicAdapter(cfg adapterConfig) (adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("aiservice: anthropic adapter requires an api key")
	}
	base := cfg.Endpoint
	if base == "" {
		base = "https://api.anthropic.com/v1/messages"
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &anthropicAdapter{apiKey: cfg.APIKey, baseURL: base, model: model, http: &http.Client{Timeout: 60 * time.Second}}, nil
}

func (a *anthropicAdapter) provider() Provider { return ProviderAnthropic }

func (a *anthropicAdapter) capabilities() Capability {
	return CapTextOnly | CapToolUse | CapStructuredOutput
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *anthropicAdapter) complete(ctx context.Context, req Request, model string) (Response, error) {
	if model == "" {
		model = a.model
	}
	var system string
	msgs := make([]anthropicMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = m.Content
			continue
		}
		msgs = append(msgs, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	body, err := json.Marshal(anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    msgs,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Response{}, fmt.Errorf("aiservice: anthropic: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("aiservice: anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := a.http.Do(httpReq)
	if err != nil {
		return Response{}, providerTransientErr(ProviderAnthropic, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, providerTransientErr(ProviderAnthropic, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return Response{}, providerTransientErr(ProviderAnthropic, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Response{}, providerAuthErr(ProviderAnthropic, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}
	if resp.StatusCode == http.StatusBadRequest {
		return Response{}, providerMalformedErr(ProviderAnthropic, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, fmt.Errorf("aiservice: anthropic: decode response: %w", err)
	}
	if parsed.Error != nil {
		return Response{}, fmt.Errorf("aiservice: anthropic: %s: %s", parsed.Error.Type, parsed.Error.Message)
	}
	var text string
	for _, c := range parsed.Content {
		if c.Type == "text" {
			text += c.Text
		}
	}
	return Response{
		Text:     text,
		Provider: ProviderAnthropic,
		Model:    model,
		Latency:  time.Since(start),
		Usage: Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
		},
	}, nil
}
