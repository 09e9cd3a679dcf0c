// Package relay provides the unified request execution layer.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/YspCoder/omnimedia/adapter"
	"github.com/YspCoder/omnimedia/dto"
)

const defaultTimeout = 60 * time.Second

// Relay executes provider requests using a unified flow.
type Relay struct {
	Client *http.Client
	// MaxDownloadBytes caps artifact downloads. Zero means unlimited.
	MaxDownloadBytes int64
}

// Download is the raw body of a fetched artifact.
type Download struct {
	Data        []byte
	ContentType string
}

// NewRelay creates a relay with default settings.
func NewRelay() *Relay {
	return &Relay{}
}

// Edit executes a single-shot image edit request.
func (r *Relay) Edit(ctx context.Context, adp adapter.Adaptor, config *adapter.ProviderConfig, request *dto.EditRequest) (*dto.ImageArtifact, error) {
	if config == nil {
		return nil, fmt.Errorf("provider config is required")
	}
	if request == nil {
		return nil, fmt.Errorf("edit request is required")
	}

	body, err := adp.ConvertEditRequest(ctx, config, request)
	if err != nil {
		return nil, err
	}
	respBody, err := r.doRequest(ctx, adp, config, adapter.ModeImage, body)
	if err != nil {
		return nil, err
	}
	return adp.ConvertEditResponse(ctx, config, respBody)
}

// SubmitVideo creates a video-generation job and returns its initial handle.
func (r *Relay) SubmitVideo(ctx context.Context, adp adapter.Adaptor, config *adapter.ProviderConfig, request *dto.VideoRequest) (*dto.VideoJob, error) {
	if config == nil {
		return nil, fmt.Errorf("provider config is required")
	}
	if request == nil {
		return nil, fmt.Errorf("video request is required")
	}

	body, err := adp.ConvertVideoRequest(ctx, config, request)
	if err != nil {
		return nil, err
	}
	respBody, err := r.doRequest(ctx, adp, config, adapter.ModeVideo, body)
	if err != nil {
		return nil, err
	}
	return adp.ConvertVideoResponse(ctx, config, respBody)
}

// Text executes a single-turn text generation request.
func (r *Relay) Text(ctx context.Context, adp adapter.Adaptor, config *adapter.ProviderConfig, request *dto.TextRequest) (*dto.TextResponse, error) {
	if config == nil {
		return nil, fmt.Errorf("provider config is required")
	}
	textAdaptor, ok := adp.(adapter.TextAdaptor)
	if !ok {
		return nil, fmt.Errorf("text generation not supported by adaptor")
	}

	body, err := textAdaptor.ConvertTextRequest(ctx, config, request)
	if err != nil {
		return nil, err
	}
	respBody, err := r.doRequest(ctx, adp, config, adapter.ModeText, body)
	if err != nil {
		return nil, err
	}
	return textAdaptor.ConvertTextResponse(ctx, config, respBody)
}

// TaskStatus queries the current state of an asynchronous video job.
func (r *Relay) TaskStatus(ctx context.Context, adp adapter.Adaptor, config *adapter.ProviderConfig, taskID string) (*dto.VideoJob, error) {
	if config == nil {
		return nil, fmt.Errorf("provider config is required")
	}
	taskAdaptor, ok := adp.(adapter.TaskAdaptor)
	if !ok {
		return nil, fmt.Errorf("task status not supported by adaptor")
	}
	if taskID == "" {
		return nil, fmt.Errorf("task id is required")
	}

	url, err := taskAdaptor.GetTaskStatusURL(taskID, config)
	if err != nil {
		return nil, err
	}

	method := http.MethodGet
	var body []byte
	if requestAdaptor, ok := adp.(adapter.TaskRequestAdaptor); ok {
		m, b, err := requestAdaptor.PrepareTaskStatusRequest(ctx, config, taskID)
		if err != nil {
			return nil, err
		}
		method = m
		body = b
	}

	respBody, _, err := r.execute(ctx, adp, config, adapter.ModeTask, method, url, body)
	if err != nil {
		return nil, err
	}

	job, err := taskAdaptor.ConvertTaskStatusResponse(ctx, config, respBody)
	if err != nil {
		return nil, err
	}
	if job.ID == "" {
		job.ID = taskID
	}
	return job, nil
}

// Download fetches an artifact by URI, letting the adaptor attach credentials.
func (r *Relay) Download(ctx context.Context, adp adapter.Adaptor, config *adapter.ProviderConfig, uri string) (*Download, error) {
	if config == nil {
		return nil, fmt.Errorf("provider config is required")
	}
	if uri == "" {
		return nil, fmt.Errorf("download uri is required")
	}

	url := uri
	if downloadAdaptor, ok := adp.(adapter.DownloadAdaptor); ok {
		signed, err := downloadAdaptor.SignDownloadURL(uri, config)
		if err != nil {
			return nil, err
		}
		url = signed
	}

	data, contentType, err := r.execute(ctx, adp, config, adapter.ModeDownload, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return &Download{Data: data, ContentType: contentType}, nil
}

func (r *Relay) doRequest(ctx context.Context, adp adapter.Adaptor, config *adapter.ProviderConfig, mode string, body []byte) ([]byte, error) {
	url, err := adp.GetRequestURL(mode, config)
	if err != nil {
		return nil, err
	}
	respBody, _, err := r.execute(ctx, adp, config, mode, http.MethodPost, url, body)
	return respBody, err
}

func (r *Relay) execute(ctx context.Context, adp adapter.Adaptor, config *adapter.ProviderConfig, mode, method, url string, body []byte) ([]byte, string, error) {
	if url == "" {
		return nil, "", fmt.Errorf("request url is empty")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, "", err
	}

	if err := adp.SetupHeaders(req, config, mode); err != nil {
		return nil, "", err
	}
	if mode != adapter.ModeDownload {
		for key, value := range config.Headers {
			req.Header.Set(key, value)
		}
	}

	resp, err := r.httpClient(config).Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var src io.Reader = resp.Body
	if mode == adapter.ModeDownload && r.MaxDownloadBytes > 0 {
		src = io.LimitReader(resp.Body, r.MaxDownloadBytes+1)
	}
	respBody, err := io.ReadAll(src)
	if err != nil {
		return nil, "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := string(respBody)
		if message == "" || mode == adapter.ModeDownload {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, "", &dto.APIError{
			Code:     resp.StatusCode,
			Message:  message,
			Provider: config.Name,
		}
	}
	if mode == adapter.ModeDownload && r.MaxDownloadBytes > 0 && int64(len(respBody)) > r.MaxDownloadBytes {
		return nil, "", fmt.Errorf("download exceeds max size of %d bytes", r.MaxDownloadBytes)
	}
	return respBody, resp.Header.Get("Content-Type"), nil
}

// httpClient resolves the client for a request without mutating shared clients.
func (r *Relay) httpClient(config *adapter.ProviderConfig) *http.Client {
	client := config.HTTPClient
	if client == nil {
		client = r.Client
	}
	if client == nil {
		client = &http.Client{}
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = client.Timeout
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if client.Timeout == timeout {
		return client
	}
	copied := *client
	copied.Timeout = timeout
	return &copied
}
