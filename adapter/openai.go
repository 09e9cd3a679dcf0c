// Package adapter provides OpenAI adaptor implementation.
package adapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/YspCoder/omnimedia/dto"
)

const (
	openAIDefaultBaseURL = "https://api.openai.com/v1"
	// openAIEditBoundary is fixed so SetupHeaders can announce it before the
	// body is built.
	openAIEditBoundary = "omnimedia-edit-boundary-5f0c2a"
)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type openAIImageResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
	OutputFormat string `json:"output_format"`
}

// OpenAIAdaptor converts requests and responses to the OpenAI API format.
type OpenAIAdaptor struct {
	BaseURL string
}

// GetRequestURL returns the OpenAI endpoint for the given mode.
func (a *OpenAIAdaptor) GetRequestURL(mode string, config *ProviderConfig) (string, error) {
	return buildOpenAIRequestURL(resolveBaseURL(config, a.BaseURL, openAIDefaultBaseURL), mode)
}

// SetupHeaders sets OpenAI-specific headers.
func (a *OpenAIAdaptor) SetupHeaders(req *http.Request, config *ProviderConfig, mode string) error {
	if mode == ModeDownload {
		return nil
	}
	if config.AuthHeader != "" {
		req.Header.Set(config.AuthHeader, config.AuthPrefix+config.APIKey)
	} else if config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+config.APIKey)
	}
	if mode == ModeImage {
		req.Header.Set("Content-Type", "multipart/form-data; boundary="+openAIEditBoundary)
	} else {
		req.Header.Set("Content-Type", "application/json")
	}
	return nil
}

// ConvertEditRequest builds the multipart body for the image edits endpoint.
func (a *OpenAIAdaptor) ConvertEditRequest(ctx context.Context, config *ProviderConfig, request *dto.EditRequest) ([]byte, error) {
	if request == nil || request.Payload == nil {
		return nil, fmt.Errorf("edit request payload is required")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.SetBoundary(openAIEditBoundary); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"model":  config.Model,
		"prompt": request.Instruction,
		"n":      "1",
	}
	for _, key := range []string{"model", "prompt", "n"} {
		if err := writer.WriteField(key, fields[key]); err != nil {
			return nil, err
		}
	}

	name := request.Payload.Name
	if name == "" {
		name = "image"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
	header.Set("Content-Type", request.Payload.MIMEType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(request.Payload.Data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return body.Bytes(), nil
}

// ConvertEditResponse decodes the first returned image, inline or hosted.
// An empty data list yields an empty artifact.
func (a *OpenAIAdaptor) ConvertEditResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.ImageArtifact, error) {
	var response openAIImageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
	if len(response.Data) == 0 {
		return &dto.ImageArtifact{}, nil
	}

	first := response.Data[0]
	artifact := &dto.ImageArtifact{Text: first.RevisedPrompt}
	if first.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return nil, dto.UnrecognizedResponse(config.Name, body)
		}
		artifact.Data = data
		artifact.MIMEType = "image/" + defaultString(response.OutputFormat, "png")
		return artifact, nil
	}
	artifact.URL = first.URL
	return artifact, nil
}

// ConvertVideoRequest is not supported for OpenAI.
func (a *OpenAIAdaptor) ConvertVideoRequest(ctx context.Context, config *ProviderConfig, request *dto.VideoRequest) ([]byte, error) {
	return nil, fmt.Errorf("video generation not supported for openai")
}

// ConvertVideoResponse is not supported for OpenAI.
func (a *OpenAIAdaptor) ConvertVideoResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.VideoJob, error) {
	return nil, fmt.Errorf("video generation not supported for openai")
}

// ConvertTextRequest marshals a chat completion with an optional system message.
func (a *OpenAIAdaptor) ConvertTextRequest(ctx context.Context, config *ProviderConfig, request *dto.TextRequest) ([]byte, error) {
	payload := openAIChatRequest{
		Model:       config.Model,
		Temperature: request.Temperature,
		MaxTokens:   request.MaxTokens,
	}
	if request.SystemPrompt != "" {
		payload.Messages = append(payload.Messages, openAIMessage{Role: "system", Content: request.SystemPrompt})
	}
	payload.Messages = append(payload.Messages, openAIMessage{Role: "user", Content: request.Prompt})
	return json.Marshal(payload)
}

// ConvertTextResponse returns the first choice.
func (a *OpenAIAdaptor) ConvertTextResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.TextResponse, error) {
	var response openAIChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
	if len(response.Choices) == 0 || response.Choices[0].Message.Content == nil {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
	return &dto.TextResponse{
		Text:         *response.Choices[0].Message.Content,
		FinishReason: response.Choices[0].FinishReason,
	}, nil
}

func buildOpenAIRequestURL(base, mode string) (string, error) {
	suffix, err := openAISuffix(mode)
	if err != nil {
		return "", err
	}

	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return buildOpenAIRequestURLFallback(base, suffix), nil
	}

	path := strings.TrimRight(parsed.Path, "/")
	if strings.HasSuffix(path, suffix) {
		return parsed.String(), nil
	}

	path = trimOpenAISuffix(path)
	path = strings.TrimRight(path, "/") + suffix
	parsed.Path = path
	return parsed.String(), nil
}

func buildOpenAIRequestURLFallback(base, suffix string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, suffix) {
		return base
	}
	base = trimOpenAISuffix(base)
	return strings.TrimRight(base, "/") + suffix
}

func openAISuffix(mode string) (string, error) {
	switch mode {
	case ModeText:
		return "/chat/completions", nil
	case ModeImage:
		return "/images/edits", nil
	default:
		return "", fmt.Errorf("unsupported mode for openai: %s", mode)
	}
}

func trimOpenAISuffix(path string) string {
	for _, suffix := range []string{"/chat/completions", "/images/edits"} {
		if strings.HasSuffix(path, suffix) {
			return strings.TrimSuffix(path, suffix)
		}
	}
	return path
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
