// Package adapter provides Alibaba DashScope adaptor implementation.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/YspCoder/omnimedia/dto"
)

const aliDefaultBaseURL = "https://dashscope.aliyuncs.com"

// DashScope multimodal generation request/response, used for image edits.
// Endpoint: /api/v1/services/aigc/multimodal-generation/generation
type aliMultimodalContent struct {
	Image string `json:"image,omitempty"`
	Text  string `json:"text,omitempty"`
}

type aliMultimodalMessage struct {
	Role    string                 `json:"role,omitempty"`
	Content []aliMultimodalContent `json:"content,omitempty"`
}

type AliMultimodalGenerationRequest struct {
	Model string `json:"model,omitempty"`
	Input struct {
		Messages []aliMultimodalMessage `json:"messages,omitempty"`
	} `json:"input,omitempty"`
	Parameters struct {
		NegativePrompt string `json:"negative_prompt,omitempty"`
		Watermark      bool   `json:"watermark,omitempty"`
	} `json:"parameters,omitempty"`
}

type AliMultimodalGenerationResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Output  struct {
		Choices []struct {
			FinishReason string               `json:"finish_reason,omitempty"`
			Message      aliMultimodalMessage `json:"message,omitempty"`
		} `json:"choices,omitempty"`
	} `json:"output,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// DashScope video-generation request.
// Endpoint: /api/v1/services/aigc/video-generation/video-synthesis
type AliVideoGenerationRequest struct {
	Model string `json:"model"`
	Input struct {
		Prompt         string `json:"prompt"`
		NegativePrompt string `json:"negative_prompt,omitempty"`
		ImgURL         string `json:"img_url,omitempty"`
	} `json:"input"`
}

// DashScope image2video (key-frame) request.
// Endpoint: /api/v1/services/aigc/image2video/video-synthesis
type AliImage2VideoRequest struct {
	Model string `json:"model"`
	Input struct {
		FirstFrameURL string `json:"first_frame_url"`
		LastFrameURL  string `json:"last_frame_url,omitempty"`
		Prompt        string `json:"prompt"`
	} `json:"input"`
}

// AliTaskResponse covers both the async submission and /api/v1/tasks/{id}.
type AliTaskResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Output    struct {
		TaskID     string `json:"task_id,omitempty"`
		TaskStatus string `json:"task_status,omitempty"`
		VideoURL   string `json:"video_url,omitempty"`
		Code       string `json:"code,omitempty"`
		Message    string `json:"message,omitempty"`
	} `json:"output,omitempty"`
}

// AliAdaptor converts requests and responses for DashScope APIs.
type AliAdaptor struct {
	BaseURL string
}

const (
	aliVideoEndpointImage2Video   = "/api/v1/services/aigc/image2video/video-synthesis"
	aliVideoEndpointVideoGenerate = "/api/v1/services/aigc/video-generation/video-synthesis"
)

// Key-frame models take the still image as first frame.
var aliVideoEndpointByModel = map[string]string{
	"wan2.2-kf2v-flash": aliVideoEndpointImage2Video,
	"wanx2.1-kf2v-plus": aliVideoEndpointImage2Video,
}

type aliImage2VideoPayload struct {
	AliImage2VideoRequest
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

type aliVideoPayload struct {
	AliVideoGenerationRequest
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

func aliVideoEndpointForModel(model string) string {
	if endpoint, ok := aliVideoEndpointByModel[model]; ok {
		return endpoint
	}
	return aliVideoEndpointVideoGenerate
}

// GetRequestURL returns the DashScope endpoint for the given mode.
func (a *AliAdaptor) GetRequestURL(mode string, config *ProviderConfig) (string, error) {
	base := resolveBaseURL(config, a.BaseURL, aliDefaultBaseURL)

	switch mode {
	case ModeText:
		return base + "/api/v1/services/aigc/text-generation/generation", nil
	case ModeVideo:
		return base + aliVideoEndpointForModel(config.Model), nil
	case ModeImage:
		return base + "/api/v1/services/aigc/multimodal-generation/generation", nil
	default:
		return "", fmt.Errorf("unsupported mode for dashscope: %s", mode)
	}
}

// SetupHeaders sets DashScope headers.
func (a *AliAdaptor) SetupHeaders(req *http.Request, config *ProviderConfig, mode string) error {
	if mode == ModeDownload {
		// Result URLs are pre-signed OSS links.
		return nil
	}
	if config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+config.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")
	if mode == ModeVideo {
		req.Header.Set("X-DashScope-Async", "enable")
	}
	return nil
}

// ConvertEditRequest converts an edit request into a multimodal generation
// message with the image as a data URL.
func (a *AliAdaptor) ConvertEditRequest(ctx context.Context, config *ProviderConfig, request *dto.EditRequest) ([]byte, error) {
	if request == nil || request.Payload == nil {
		return nil, fmt.Errorf("edit request payload is required")
	}
	payload := AliMultimodalGenerationRequest{Model: config.Model}
	payload.Input.Messages = []aliMultimodalMessage{{
		Role: "user",
		Content: []aliMultimodalContent{
			{Image: request.Payload.DataURL()},
			{Text: request.Instruction},
		},
	}}
	return json.Marshal(payload)
}

// ConvertEditResponse returns the first image URL in the first choice.
func (a *AliAdaptor) ConvertEditResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.ImageArtifact, error) {
	var response AliMultimodalGenerationResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
	if response.Code != "" {
		return nil, &dto.APIError{
			Code:     http.StatusBadRequest,
			Message:  response.Message,
			Provider: config.Name,
		}
	}

	artifact := &dto.ImageArtifact{}
	if len(response.Output.Choices) == 0 {
		return artifact, nil
	}
	for _, content := range response.Output.Choices[0].Message.Content {
		if content.Image != "" && artifact.URL == "" {
			artifact.URL = content.Image
		}
		if content.Text != "" && artifact.Text == "" {
			artifact.Text = content.Text
		}
	}
	return artifact, nil
}

// ConvertVideoRequest converts a video request to DashScope format.
func (a *AliAdaptor) ConvertVideoRequest(ctx context.Context, config *ProviderConfig, request *dto.VideoRequest) ([]byte, error) {
	if request == nil || request.Payload == nil {
		return nil, fmt.Errorf("video request payload is required")
	}

	params := map[string]interface{}{}
	if resolution := getStringExtra(request.Extra, "resolution"); resolution != "" {
		params["resolution"] = resolution
	}
	if promptExtend, ok := getBoolExtra(request.Extra, "prompt_extend"); ok {
		params["prompt_extend"] = promptExtend
	}
	if duration, ok := getIntExtra(request.Extra, "duration"); ok {
		params["duration"] = duration
	}
	if request.Seed != 0 {
		params["seed"] = request.Seed
	}
	payloadMap := extractPayloadMap(request.Extra)

	if aliVideoEndpointForModel(config.Model) == aliVideoEndpointImage2Video {
		fallback := aliImage2VideoPayload{
			AliImage2VideoRequest: AliImage2VideoRequest{Model: config.Model},
		}
		fallback.Input.FirstFrameURL = request.Payload.DataURL()
		fallback.Input.LastFrameURL = getStringExtra(request.Extra, "last_frame_url")
		fallback.Input.Prompt = request.Prompt
		if len(params) > 0 {
			fallback.Parameters = params
		}
		return marshalPayloadWithFallback(payloadMap, fallback)
	}

	fallback := aliVideoPayload{
		AliVideoGenerationRequest: AliVideoGenerationRequest{Model: config.Model},
	}
	fallback.Input.Prompt = request.Prompt
	fallback.Input.ImgURL = request.Payload.DataURL()
	fallback.Input.NegativePrompt = getStringExtra(request.Extra, "negative_prompt")
	if len(params) > 0 {
		fallback.Parameters = params
	}
	return marshalPayloadWithFallback(payloadMap, fallback)
}

// ConvertVideoResponse converts a DashScope async submission into a job handle.
func (a *AliAdaptor) ConvertVideoResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.VideoJob, error) {
	job, err := a.convertTask(config, body)
	if err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
	return job, nil
}

// GetTaskStatusURL returns the task status endpoint for DashScope.
func (a *AliAdaptor) GetTaskStatusURL(taskID string, config *ProviderConfig) (string, error) {
	base := resolveBaseURL(config, a.BaseURL, aliDefaultBaseURL)
	return base + "/api/v1/tasks/" + taskID, nil
}

// ConvertTaskStatusResponse converts a DashScope task status response into a job handle.
func (a *AliAdaptor) ConvertTaskStatusResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.VideoJob, error) {
	return a.convertTask(config, body)
}

func (a *AliAdaptor) convertTask(config *ProviderConfig, body []byte) (*dto.VideoJob, error) {
	var response AliTaskResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
	if response.Code != "" {
		return nil, &dto.APIError{
			Code:     http.StatusBadRequest,
			Message:  response.Message,
			Provider: config.Name,
		}
	}

	job := &dto.VideoJob{
		ID:        response.Output.TaskID,
		RequestID: response.RequestID,
	}
	switch strings.ToUpper(response.Output.TaskStatus) {
	case "PENDING":
		job.Status = dto.JobStatusSubmitted
	case "RUNNING":
		job.Status = dto.JobStatusRunning
	case "SUCCEEDED":
		job.Done = true
		job.Status = dto.JobStatusSucceeded
		job.ResultURI = response.Output.VideoURL
	case "FAILED", "CANCELED", "UNKNOWN":
		job.Done = true
		job.Status = dto.JobStatusFailed
		job.Error = response.Output.Message
		if job.Error == "" {
			job.Error = "task " + strings.ToLower(response.Output.TaskStatus)
		}
	default:
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
	return job, nil
}

// ConvertTextRequest converts a text request to DashScope format.
func (a *AliAdaptor) ConvertTextRequest(ctx context.Context, config *ProviderConfig, request *dto.TextRequest) ([]byte, error) {
	type aliTextMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	payload := struct {
		Model string `json:"model"`
		Input struct {
			Messages []aliTextMessage `json:"messages"`
		} `json:"input"`
		Parameters map[string]interface{} `json:"parameters,omitempty"`
	}{
		Model: config.Model,
	}
	if request.SystemPrompt != "" {
		payload.Input.Messages = append(payload.Input.Messages, aliTextMessage{Role: "system", Content: request.SystemPrompt})
	}
	payload.Input.Messages = append(payload.Input.Messages, aliTextMessage{Role: "user", Content: request.Prompt})

	params := map[string]interface{}{"result_format": "message"}
	if request.MaxTokens > 0 {
		params["max_tokens"] = request.MaxTokens
	}
	if request.Temperature > 0 {
		params["temperature"] = request.Temperature
	}
	payload.Parameters = params

	return json.Marshal(payload)
}

// ConvertTextResponse converts a DashScope text response to the standardized format.
func (a *AliAdaptor) ConvertTextResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.TextResponse, error) {
	var response struct {
		Output struct {
			Text    string `json:"text"`
			Choices []struct {
				FinishReason string `json:"finish_reason"`
				Message      struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"output"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
	if response.Code != "" {
		return nil, &dto.APIError{
			Code:     http.StatusBadRequest,
			Message:  response.Message,
			Provider: config.Name,
		}
	}

	switch {
	case len(response.Output.Choices) > 0:
		choice := response.Output.Choices[0]
		return &dto.TextResponse{Text: choice.Message.Content, FinishReason: choice.FinishReason}, nil
	case response.Output.Text != "":
		return &dto.TextResponse{Text: response.Output.Text}, nil
	default:
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
}
