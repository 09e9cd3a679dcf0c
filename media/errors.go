package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/YspCoder/omnimedia/dto"
)

// ErrorType classifies failures surfaced by the client and poller.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeEncoding
	ErrorTypeNoArtifact
	ErrorTypeMissingResultLink
	ErrorTypeDownloadFailed
	ErrorTypeTransport
	ErrorTypeAPI
	ErrorTypeTimeout
	ErrorTypeCanceled
	ErrorTypeJobFailed
	ErrorTypeUnrecognizedResponse
	ErrorTypeInvalidInput
	ErrorTypeAuthentication
	ErrorTypeUnsupported
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeEncoding:
		return "EncodingError"
	case ErrorTypeNoArtifact:
		return "NoArtifactProduced"
	case ErrorTypeMissingResultLink:
		return "MissingResultLink"
	case ErrorTypeDownloadFailed:
		return "DownloadFailed"
	case ErrorTypeTransport:
		return "TransportError"
	case ErrorTypeAPI:
		return "APIError"
	case ErrorTypeTimeout:
		return "Timeout"
	case ErrorTypeCanceled:
		return "Canceled"
	case ErrorTypeJobFailed:
		return "JobFailed"
	case ErrorTypeUnrecognizedResponse:
		return "UnrecognizedResponseShape"
	case ErrorTypeInvalidInput:
		return "InvalidInput"
	case ErrorTypeAuthentication:
		return "Authentication"
	case ErrorTypeUnsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// MediaError is the error type returned by Client and Poller.
type MediaError struct {
	Type    ErrorType
	Message string
	// StatusCode is the HTTP status for APIError and DownloadFailed.
	StatusCode int
	Err        error
}

func (e *MediaError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// NewMediaError creates a MediaError.
func NewMediaError(errType ErrorType, message string, err error) *MediaError {
	return &MediaError{Type: errType, Message: message, Err: err}
}

// IsErrorType reports whether err is a MediaError of the given type.
func IsErrorType(err error, errType ErrorType) bool {
	var mediaErr *MediaError
	return errors.As(err, &mediaErr) && mediaErr.Type == errType
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var mediaErr *MediaError
	if errors.As(err, &mediaErr) && mediaErr.StatusCode != 0 {
		return mediaErr.StatusCode
	}
	var apiErr *dto.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// classify maps a relay or adaptor error onto a MediaError. Non-2xx responses
// take the fallback type, ErrorTypeAPI or ErrorTypeDownloadFailed.
func classify(err error, fallback ErrorType, message string) error {
	if err == nil {
		return nil
	}
	var mediaErr *MediaError
	if errors.As(err, &mediaErr) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return NewMediaError(ErrorTypeCanceled, message, err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewMediaError(ErrorTypeTimeout, message, err)
	case errors.Is(err, dto.ErrUnrecognizedResponse):
		return NewMediaError(ErrorTypeUnrecognizedResponse, message, err)
	}

	var apiErr *dto.APIError
	if errors.As(err, &apiErr) {
		return &MediaError{Type: fallback, Message: message, StatusCode: apiErr.Code, Err: err}
	}
	return NewMediaError(ErrorTypeTransport, message, err)
}
