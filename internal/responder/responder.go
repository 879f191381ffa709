// Package responder talks to the external system that produces bot replies.
package responder

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
)

// ErrEmptyURL is returned when an HTTP responder is built without an endpoint
var ErrEmptyURL = errors.New("responder url is required")

// Reply is the responder's answer as received. Message is left undecoded because
// responders return a string, an object with a "message" field, or an array of such objects.
type Reply struct {
	Success bool            `json:"success"`
	Message json.RawMessage `json:"message,omitempty"`
}

// Responder produces a reply for one user message
type Responder interface {
	Respond(ctx context.Context, chatID, content string) (Reply, error)
}

// Request is the body posted to the responder webhook
type Request struct {
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

// HTTPClient posts messages to a responder webhook
type HTTPClient struct {
	client *http.Client
	url    string
	apiKey string
}

// NewHTTPClient creates a responder client for the given webhook
func NewHTTPClient(url, apiKey string, timeout time.Duration) (*HTTPClient, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
		url:    url,
		apiKey: apiKey,
	}, nil
}

// Respond sends the message to the webhook and decodes its {success, message} reply
func (c *HTTPClient) Respond(ctx context.Context, chatID, content string) (Reply, error) {
	body, err := json.Marshal(Request{ChatID: chatID, Content: content})
	if err != nil {
		return Reply{}, fmt.Errorf("marshal responder request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("create responder request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("responder request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Reply{}, fmt.Errorf("read responder response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Reply{}, fmt.Errorf("responder returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return Reply{}, fmt.Errorf("decode responder response: %w", err)
	}
	return reply, nil
}

// Echo answers every message with its own text. Used when no webhook is configured.
type Echo struct{}

// Respond implements Responder
func (Echo) Respond(_ context.Context, _ string, content string) (Reply, error) {
	msg, err := json.Marshal("You said: " + content)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Success: true, Message: msg}, nil
}
