package llm

import (
	"context"
	"fmt"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System returns a system-role message.
func System(content string) Message { return Message{Role: "system", Content: content} }

// User returns a user-role message.
func User(content string) Message { return Message{Role: "user", Content: content} }

// Request describes one chat completion call.
type Request struct {
	Messages    []Message
	Temperature float32
	// JSON asks the provider for a JSON object response.
	JSON bool
	// Label names the call in logs, e.g. "resume" or "job_metadata".
	Label string
}

// RawResponse is the unparsed provider reply.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// Transport sends a request and returns the provider reply verbatim. It only
// errors when no reply was received.
type Transport interface {
	Send(ctx context.Context, req Request) (RawResponse, error)
}

// Completer returns the assistant text for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client validates transport replies into assistant content.
type Client struct {
	Transport Transport
}

// NewClient wraps a transport.
func NewClient(t Transport) *Client {
	return &Client{Transport: t}
}

// Complete sends req and extracts the first choice's content.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c == nil || c.Transport == nil {
		return "", ErrNotConfigured
	}
	raw, err := c.Transport.Send(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return ExtractContent(raw)
}

var _ Completer = (*Client)(nil)
