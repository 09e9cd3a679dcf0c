// Package dto defines standardized request and response payloads.
package dto

import (
	"errors"
	"fmt"
)

// ErrUnrecognizedResponse is wrapped by adaptors when a provider response
// does not decode into any of the shapes they know about.
var ErrUnrecognizedResponse = errors.New("unrecognized response shape")

// APIError represents a non-success HTTP response from a provider.
type APIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Provider string `json:"provider"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Provider == "" {
		return fmt.Sprintf("%s (code=%d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (code=%d, provider=%s)", e.Message, e.Code, e.Provider)
}

// UnrecognizedResponse wraps ErrUnrecognizedResponse with a short preview of
// the offending body.
func UnrecognizedResponse(provider string, body []byte) error {
	preview := string(body)
	if len(preview) > 256 {
		preview = preview[:256] + "..."
	}
	return fmt.Errorf("%s: %w: %s", provider, ErrUnrecognizedResponse, preview)
}
