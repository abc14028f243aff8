package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"applykit-backend/internal/llm"
	"applykit-backend/internal/shared/telemetry"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Transport posts chat completion requests to an OpenAI-compatible endpoint.
type Transport struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// Options configures a Transport.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewTransport constructs a transport with its own HTTP client.
func NewTransport(opts Options) (*Transport, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Transport{
		apiKey:   opts.APIKey,
		model:    opts.Model,
		endpoint: base + "/chat/completions",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []llm.Message   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type usageEnvelope struct {
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// Send posts req and returns the reply body and status untouched.
func (t *Transport) Send(ctx context.Context, req llm.Request) (llm.RawResponse, error) {
	body := chatRequest{
		Model:    t.model,
		Messages: req.Messages,
	}
	if !isGPT5(t.model) {
		temp := req.Temperature
		body.Temperature = &temp
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return llm.RawResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return llm.RawResponse{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return llm.RawResponse{}, fmt.Errorf("openai request timeout: %w", err)
		}
		return llm.RawResponse{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.RawResponse{}, fmt.Errorf("openai read body: %w", err)
	}

	logUsage(t.model, req.Label, resp.StatusCode, time.Since(start), respBody)
	return llm.RawResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}

func logUsage(model, label string, status int, elapsed time.Duration, body []byte) {
	fields := map[string]any{
		"model":       model,
		"call":        label,
		"status":      status,
		"duration_ms": elapsed.Milliseconds(),
	}
	var u usageEnvelope
	if err := json.Unmarshal(body, &u); err == nil && u.Usage != nil {
		fields["prompt_tokens"] = u.Usage.PromptTokens
		fields["completion_tokens"] = u.Usage.CompletionTokens
		fields["total_tokens"] = u.Usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

// gpt-5 family models reject explicit temperatures.
func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Transport = (*Transport)(nil)
