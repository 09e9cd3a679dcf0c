// Package adapter provides Hugging Face Inference adaptor implementation.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/YspCoder/omnimedia/dto"
)

const huggingFaceDefaultBaseURL = "https://api-inference.huggingface.co/models"

type huggingFaceRequest struct {
	Inputs     string                 `json:"inputs"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Options    struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

type huggingFaceGenerated struct {
	GeneratedText *string `json:"generated_text"`
	Error         string  `json:"error"`
}

// HuggingFaceAdaptor converts text requests for the Hugging Face Inference API.
type HuggingFaceAdaptor struct {
	BaseURL string
}

// GetRequestURL returns the model inference endpoint.
func (a *HuggingFaceAdaptor) GetRequestURL(mode string, config *ProviderConfig) (string, error) {
	if mode != ModeText {
		return "", fmt.Errorf("unsupported mode for huggingface: %s", mode)
	}
	model, err := requireModel(config, mode)
	if err != nil {
		return "", err
	}
	return resolveBaseURL(config, a.BaseURL, huggingFaceDefaultBaseURL) + "/" + model, nil
}

// SetupHeaders sets Hugging Face headers. The token is optional on the public endpoint.
func (a *HuggingFaceAdaptor) SetupHeaders(req *http.Request, config *ProviderConfig, mode string) error {
	if config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+config.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")
	return nil
}

// ConvertEditRequest is not supported for Hugging Face.
func (a *HuggingFaceAdaptor) ConvertEditRequest(ctx context.Context, config *ProviderConfig, request *dto.EditRequest) ([]byte, error) {
	return nil, fmt.Errorf("image edit not supported for huggingface")
}

// ConvertEditResponse is not supported for Hugging Face.
func (a *HuggingFaceAdaptor) ConvertEditResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.ImageArtifact, error) {
	return nil, fmt.Errorf("image edit not supported for huggingface")
}

// ConvertVideoRequest is not supported for Hugging Face.
func (a *HuggingFaceAdaptor) ConvertVideoRequest(ctx context.Context, config *ProviderConfig, request *dto.VideoRequest) ([]byte, error) {
	return nil, fmt.Errorf("video generation not supported for huggingface")
}

// ConvertVideoResponse is not supported for Hugging Face.
func (a *HuggingFaceAdaptor) ConvertVideoResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.VideoJob, error) {
	return nil, fmt.Errorf("video generation not supported for huggingface")
}

// ConvertTextRequest marshals an inference request, waiting for cold models.
func (a *HuggingFaceAdaptor) ConvertTextRequest(ctx context.Context, config *ProviderConfig, request *dto.TextRequest) ([]byte, error) {
	inputs := request.Prompt
	if request.SystemPrompt != "" {
		inputs = request.SystemPrompt + "\n\n" + request.Prompt
	}
	payload := huggingFaceRequest{Inputs: inputs}
	payload.Options.WaitForModel = true

	params := map[string]interface{}{}
	if request.MaxTokens > 0 {
		params["max_new_tokens"] = request.MaxTokens
	}
	if request.Temperature > 0 {
		params["temperature"] = request.Temperature
	}
	if len(params) > 0 {
		payload.Parameters = params
	}
	return json.Marshal(payload)
}

// ConvertTextResponse parses the shapes text-generation models return:
// a bare string, a list of strings, a list of {generated_text} objects, or a
// single such object. Anything else is rejected.
func (a *HuggingFaceAdaptor) ConvertTextResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.TextResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, dto.UnrecognizedResponse(config.Name, body)
		}
		return &dto.TextResponse{Text: text}, nil

	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil || len(items) == 0 {
			return nil, dto.UnrecognizedResponse(config.Name, body)
		}
		if texts, ok := decodeStringList(items); ok {
			return &dto.TextResponse{Text: strings.Join(texts, "\n")}, nil
		}
		return a.convertGenerated(config, items[0], body)

	case '{':
		return a.convertGenerated(config, trimmed, body)

	default:
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
}

func (a *HuggingFaceAdaptor) convertGenerated(config *ProviderConfig, raw json.RawMessage, body []byte) (*dto.TextResponse, error) {
	var generated huggingFaceGenerated
	if err := json.Unmarshal(raw, &generated); err != nil {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
	if generated.Error != "" {
		return nil, &dto.APIError{
			Code:     http.StatusBadGateway,
			Message:  generated.Error,
			Provider: config.Name,
		}
	}
	if generated.GeneratedText == nil {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
	return &dto.TextResponse{Text: *generated.GeneratedText}, nil
}

func decodeStringList(items []json.RawMessage) ([]string, bool) {
	texts := make([]string, 0, len(items))
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err != nil {
			return nil, false
		}
		texts = append(texts, text)
	}
	return texts, true
}
