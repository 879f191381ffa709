package errors

import (
	"encoding/json"
	"fmt"
)

// Envelope is the JSON body of every error response: {"error":{code,message,details}}
type Envelope struct {
	Error *AppError `json:"error"`
}

// NewEnvelope wraps an AppError for rendering
func NewEnvelope(appErr *AppError) Envelope {
	return Envelope{Error: appErr}
}

// Decode rebuilds an AppError from an HTTP error response body.
// Bodies that are not an error envelope still yield an AppError carrying the status.
func Decode(statusCode int, body []byte) *AppError {
	var env Envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Code != "" {
		env.Error.StatusCode = statusCode
		return env.Error
	}

	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", statusCode)
	}
	return NewError(statusCode, CodeServerError, msg)
}
