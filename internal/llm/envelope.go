package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotConfigured = errors.New("llm client not configured")
	ErrTransport     = errors.New("llm transport failure")
	// ErrHTTPFailure covers non-2xx replies and provider error objects.
	ErrHTTPFailure       = errors.New("llm http failure")
	ErrMalformedEnvelope = errors.New("llm response is not valid JSON")
	ErrEmptyChoices      = errors.New("llm response missing choices")
	ErrMissingContent    = errors.New("llm response missing content")
)

// HTTPError carries the provider status and message for ErrHTTPFailure.
type HTTPError struct {
	StatusCode int
	Message    string
	Type       string
}

func (e *HTTPError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("llm http status %d: %s (%s)", e.StatusCode, e.Message, e.Type)
	}
	return fmt.Sprintf("llm http status %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) Unwrap() error { return ErrHTTPFailure }

type envelope struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// ExtractContent validates a chat-completion reply and returns the first
// choice's message content. Each failure mode has its own sentinel.
func ExtractContent(raw RawResponse) (string, error) {
	var env envelope
	parseErr := json.Unmarshal(raw.Body, &env)

	if raw.StatusCode < 200 || raw.StatusCode > 299 {
		httpErr := &HTTPError{StatusCode: raw.StatusCode, Message: truncate(strings.TrimSpace(string(raw.Body)), 512)}
		if parseErr == nil && env.Error != nil {
			httpErr.Message = env.Error.Message
			httpErr.Type = env.Error.Type
		}
		return "", httpErr
	}
	if parseErr != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEnvelope, parseErr)
	}
	if env.Error != nil {
		return "", &HTTPError{StatusCode: raw.StatusCode, Message: env.Error.Message, Type: env.Error.Type}
	}
	if len(env.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	msg := env.Choices[0].Message
	if msg == nil || msg.Content == nil || strings.TrimSpace(*msg.Content) == "" {
		return "", ErrMissingContent
	}
	return *msg.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
