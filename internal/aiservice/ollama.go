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

const defaultOllamaModel = "llama3"

// ollamaAdapter talks to a local Ollama daemon, the only adapter that
// needs no credential: internal/config.ProviderConfig leaves its
// credential_ref empty for the ollama entry and relies on OLLAMA_HOST.
type ollamaAdapter struct {
	baseURL string
	model   string
	http    *http.Client
}

func newOllamaAdapter(cfg adapterConfig) (adapter, error) {
	base := cfg.Endpoint
	if base == "" {
		base = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	return &ollamaAdapter{baseURL: base, model: model, http: &http.Client{Timeout: 300 * time.Second}}, nil
}

func (a *ollamaAdapter) provider() Provider { return ProviderOllama }

func (a *ollamaAdapter) capabilities() Capability { return CapTextOnly | CapStreaming }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int   `json:"prompt_eval_count"`
	EvalCount       int   `json:"eval_count"`
	Done            bool  `json:"done"`
}

func (a *ollamaAdapter) complete(ctx context.Context, req Request, model string) (Response, error) {
	if model == "" {
		model = a.model
	}
	msgs := make([]ollamaMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}
	body, err := json.Marshal(ollamaRequest{
		Model:    model,
		Messages: msgs,
		Stream:   false,
		Options:  ollamaOptions{Temperature: req.Temperature},
	})
	if err != nil {
		return Response{}, fmt.Errorf("aiservice: ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("aiservice: ollama: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.http.Do(httpReq)
	if err != nil {
		return Response{}, providerTransientErr(ProviderOllama, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, providerTransientErr(ProviderOllama, err)
	}
	if resp.StatusCode >= 500 {
		return Response{}, providerTransientErr(ProviderOllama, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Response{}, providerAuthErr(ProviderOllama, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}
	if resp.StatusCode == http.StatusBadRequest {
		return Response{}, providerMalformedErr(ProviderOllama, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("aiservice: ollama: status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, fmt.Errorf("aiservice: ollama: decode response: %w", err)
	}
	return Response{
		Text:     parsed.Message.Content,
		Provider: ProviderOllama,
		Model:    model,
		Latency:  time.Since(start),
		Usage: Usage{
			PromptTokens:     parsed.PromptEvalCount,
			CompletionTokens: parsed.EvalCount,
		},
	}, nil
}
