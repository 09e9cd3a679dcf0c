// Package adapter provides Volcengine Jimeng adaptor implementation.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/YspCoder/omnimedia/dto"
)

const (
	jimengDefaultBaseURL = "https://visual.volcengineapi.com"
	jimengDefaultReqKey  = "jimeng_i2v_first_v30"
	jimengSuccessCode    = 10000
)

// JimengSubmitTaskRequest represents the request body for Jimeng task submission.
type JimengSubmitTaskRequest struct {
	ReqKey           string   `json:"req_key"`
	Prompt           string   `json:"prompt,omitempty"`
	BinaryDataBase64 []string `json:"binary_data_base64,omitempty"`
	ImageURLs        []string `json:"image_urls,omitempty"`
	Seed             int      `json:"seed,omitempty"`
	Frames           int      `json:"frames,omitempty"`
	AspectRatio      string   `json:"aspect_ratio,omitempty"`
}

// JimengSubmitTaskResponse represents the response body for Jimeng task submission.
type JimengSubmitTaskResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
	RequestID string `json:"request_id"`
}

// JimengGetResultRequest represents the request body for Jimeng task result query.
type JimengGetResultRequest struct {
	ReqKey  string `json:"req_key"`
	TaskID  string `json:"task_id"`
	ReqJSON string `json:"req_json,omitempty"`
}

// JimengGetResultResponse represents the response body for Jimeng task result query.
type JimengGetResultResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status         string `json:"status"`
		VideoURL       string `json:"video_url"`
		AIGCMetaTagged bool   `json:"aigc_meta_tagged"`
	} `json:"data"`
	RequestID string `json:"request_id"`
}

// JimengAdaptor converts requests and responses for Jimeng image-to-video APIs.
type JimengAdaptor struct {
	BaseURL string
}

// GetRequestURL returns the Jimeng endpoint for the given mode.
func (a *JimengAdaptor) GetRequestURL(mode string, config *ProviderConfig) (string, error) {
	base := resolveBaseURL(config, a.BaseURL, jimengDefaultBaseURL)

	switch mode {
	case ModeVideo:
		return base + "?Action=CVSync2AsyncSubmitTask&Version=2022-08-31", nil
	default:
		return "", fmt.Errorf("unsupported mode for jimeng: %s", mode)
	}
}

// SetupHeaders sets Jimeng headers.
func (a *JimengAdaptor) SetupHeaders(req *http.Request, config *ProviderConfig, mode string) error {
	if mode == ModeDownload {
		return nil
	}
	if config.APIKey != "" {
		// Volcengine signing is expected to happen in a gateway in front of the API.
		req.Header.Set("Authorization", "Bearer "+config.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")
	return nil
}

// ConvertEditRequest is not supported for Jimeng.
func (a *JimengAdaptor) ConvertEditRequest(ctx context.Context, config *ProviderConfig, request *dto.EditRequest) ([]byte, error) {
	return nil, fmt.Errorf("image edit not supported for jimeng")
}

// ConvertEditResponse is not supported for Jimeng.
func (a *JimengAdaptor) ConvertEditResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.ImageArtifact, error) {
	return nil, fmt.Errorf("image edit not supported for jimeng")
}

// ConvertVideoRequest converts a video request to a Jimeng task submission
// carrying the still image inline.
func (a *JimengAdaptor) ConvertVideoRequest(ctx context.Context, config *ProviderConfig, request *dto.VideoRequest) ([]byte, error) {
	if request == nil || request.Payload == nil {
		return nil, fmt.Errorf("video request payload is required")
	}

	payload := JimengSubmitTaskRequest{
		ReqKey:           jimengReqKey(config, request.Extra),
		Prompt:           request.Prompt,
		BinaryDataBase64: []string{request.Payload.Base64()},
		Seed:             request.Seed,
		AspectRatio:      request.AspectRatio,
	}
	if payload.Seed == 0 {
		payload.Seed = -1
	}
	if frames, ok := getIntExtra(request.Extra, "frames"); ok {
		payload.Frames = frames
	}

	if rawPayload := extractPayloadMap(request.Extra); rawPayload != nil {
		return marshalPayloadWithFallback(rawPayload, payload)
	}
	return json.Marshal(payload)
}

// ConvertVideoResponse converts a Jimeng submission response into a job handle.
func (a *JimengAdaptor) ConvertVideoResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.VideoJob, error) {
	var response JimengSubmitTaskResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}

	if response.Code != jimengSuccessCode {
		return nil, &dto.APIError{
			Code:     http.StatusBadRequest,
			Message:  response.Message,
			Provider: config.Name,
		}
	}
	if response.Data.TaskID == "" {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}

	return &dto.VideoJob{
		ID:        response.Data.TaskID,
		Status:    dto.JobStatusSubmitted,
		RequestID: response.RequestID,
	}, nil
}

// GetTaskStatusURL returns the task status endpoint for Jimeng.
func (a *JimengAdaptor) GetTaskStatusURL(taskID string, config *ProviderConfig) (string, error) {
	base := resolveBaseURL(config, a.BaseURL, jimengDefaultBaseURL)
	return base + "?Action=CVSync2AsyncGetResult&Version=2022-08-31", nil
}

// PrepareTaskStatusRequest creates a POST request for Jimeng task status.
func (a *JimengAdaptor) PrepareTaskStatusRequest(ctx context.Context, config *ProviderConfig, taskID string) (string, []byte, error) {
	payload := JimengGetResultRequest{
		ReqKey: jimengReqKey(config, nil),
		TaskID: taskID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	return http.MethodPost, body, nil
}

// ConvertTaskStatusResponse converts a Jimeng task status response into a job handle.
// The query body does not echo the task id; the relay fills it in.
func (a *JimengAdaptor) ConvertTaskStatusResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.VideoJob, error) {
	var response JimengGetResultResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}

	if response.Code != jimengSuccessCode {
		return nil, &dto.APIError{
			Code:     http.StatusBadRequest,
			Message:  response.Message,
			Provider: config.Name,
		}
	}

	job := &dto.VideoJob{RequestID: response.RequestID}
	switch response.Data.Status {
	case "in_queue":
		job.Status = dto.JobStatusSubmitted
	case "generating":
		job.Status = dto.JobStatusRunning
	case "done":
		job.Done = true
		job.Status = dto.JobStatusSucceeded
		job.ResultURI = response.Data.VideoURL
	case "not_found", "expired":
		job.Done = true
		job.Status = dto.JobStatusFailed
		job.Error = "task " + response.Data.Status
	default:
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
	return job, nil
}

func jimengReqKey(config *ProviderConfig, extra map[string]interface{}) string {
	if reqKey := getStringExtra(extra, "req_key"); reqKey != "" {
		return reqKey
	}
	if config.Model != "" {
		return config.Model
	}
	return jimengDefaultReqKey
}
