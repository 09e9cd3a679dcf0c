// Package adapter defines provider-specific adaptors for unified DTOs.
package adapter

import (
	"context"
	"net/http"
	"time"

	"github.com/YspCoder/omnimedia/dto"
)

const (
	ModeText     = "text"
	ModeImage    = "image"
	ModeVideo    = "video"
	ModeTask     = "task"
	ModeDownload = "download"
)

// ProviderConfig holds configuration for a specific provider.
type ProviderConfig struct {
	Name       string
	APIKey     string
	BaseURL    string
	Model      string
	AuthHeader string
	AuthPrefix string
	Headers    map[string]string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Adaptor defines the interface for provider-specific conversions and routing.
type Adaptor interface {
	// GetRequestURL returns the provider endpoint for the given mode.
	GetRequestURL(mode string, config *ProviderConfig) (string, error)

	// SetupHeaders sets authentication and content headers for the request.
	SetupHeaders(req *http.Request, config *ProviderConfig, mode string) error

	// Image edit conversions.
	ConvertEditRequest(ctx context.Context, config *ProviderConfig, request *dto.EditRequest) ([]byte, error)
	ConvertEditResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.ImageArtifact, error)

	// Video job conversions.
	ConvertVideoRequest(ctx context.Context, config *ProviderConfig, request *dto.VideoRequest) ([]byte, error)
	ConvertVideoResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.VideoJob, error)
}

// TaskAdaptor is implemented by adaptors whose video jobs are asynchronous.
type TaskAdaptor interface {
	GetTaskStatusURL(taskID string, config *ProviderConfig) (string, error)
	ConvertTaskStatusResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.VideoJob, error)
}

// TaskRequestAdaptor lets an adaptor query task status with something other
// than a bodiless GET.
type TaskRequestAdaptor interface {
	PrepareTaskStatusRequest(ctx context.Context, config *ProviderConfig, taskID string) (string, []byte, error)
}

// DownloadAdaptor attaches provider credentials to a result URI.
type DownloadAdaptor interface {
	SignDownloadURL(uri string, config *ProviderConfig) (string, error)
}

// TextAdaptor defines optional single-turn text generation.
type TextAdaptor interface {
	ConvertTextRequest(ctx context.Context, config *ProviderConfig, request *dto.TextRequest) ([]byte, error)
	ConvertTextResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.TextResponse, error)
}
