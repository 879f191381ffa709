package gateway

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	// ApologyText is the reply shown when the responder produced nothing usable
	ApologyText = "Sorry, I encountered an error processing your message."
	// NoMessageText stands in for an array reply whose first element has no message
	NoMessageText = "No message received"
)

// ResponderResult is the responder's reply reduced to one shape
type ResponderResult struct {
	// Success is the responder's own success flag
	Success bool
	// Text is the reply to show, empty when the payload held none
	Text string
	// Diagnostic is the indented JSON of whatever payload came back, if any
	Diagnostic string
}

// OK reports whether the reply can be shown as the bot's answer
func (r ResponderResult) OK() bool {
	return r.Success && r.Text != ""
}

// Fallback is the in-band reply used when OK is false
func (r ResponderResult) Fallback() string {
	if r.Diagnostic != "" {
		return r.Diagnostic
	}
	return ApologyText
}

// NormalizeResponder reduces a raw message payload to text. The payload may be
// a string, an object with a "message" field, or an array of such objects.
func NormalizeResponder(success bool, raw json.RawMessage) ResponderResult {
	result := ResponderResult{Success: success}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil || isEmptyPayload(payload) {
		return result
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, bytes.TrimSpace(raw), "", "  "); err == nil {
		result.Diagnostic = indented.String()
	}

	switch v := payload.(type) {
	case string:
		result.Text = v
	case []any:
		result.Text = NoMessageText
		if len(v) > 0 {
			if obj, ok := v[0].(map[string]any); ok {
				if text := messageField(obj); text != "" {
					result.Text = text
				}
			}
		}
	case map[string]any:
		result.Text = messageField(v)
		if result.Text == "" {
			result.Text = result.Diagnostic
		}
	default:
		result.Text = result.Diagnostic
	}
	return result
}

func isEmptyPayload(v any) bool {
	switch p := v.(type) {
	case nil:
		return true
	case string:
		return p == ""
	}
	return false
}

// messageField returns obj["message"] as text; non-string values are rendered as JSON
func messageField(obj map[string]any) string {
	switch m := obj["message"].(type) {
	case nil:
		return ""
	case string:
		return m
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
}
