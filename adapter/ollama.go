// Package adapter provides Ollama adaptor implementation.
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

const ollamaDefaultBaseURL = "http://localhost:11434"

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	System  string                 `json:"system,omitempty"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateChunk struct {
	Response   *string `json:"response"`
	Done       bool    `json:"done"`
	DoneReason string  `json:"done_reason"`
	Error      string  `json:"error"`
}

// OllamaAdaptor converts text requests for a local Ollama server.
type OllamaAdaptor struct {
	BaseURL string
}

// GetRequestURL returns the Ollama generate endpoint.
func (a *OllamaAdaptor) GetRequestURL(mode string, config *ProviderConfig) (string, error) {
	if mode != ModeText {
		return "", fmt.Errorf("unsupported mode for ollama: %s", mode)
	}
	base := resolveBaseURL(config, a.BaseURL, ollamaDefaultBaseURL)
	if strings.HasSuffix(base, "/api/generate") {
		return base, nil
	}
	return base + "/api/generate", nil
}

// SetupHeaders sets Ollama-specific headers.
func (a *OllamaAdaptor) SetupHeaders(req *http.Request, config *ProviderConfig, mode string) error {
	req.Header.Set("Content-Type", "application/json")
	return nil
}

// ConvertEditRequest is not supported for Ollama.
func (a *OllamaAdaptor) ConvertEditRequest(ctx context.Context, config *ProviderConfig, request *dto.EditRequest) ([]byte, error) {
	return nil, fmt.Errorf("image edit not supported for ollama")
}

// ConvertEditResponse is not supported for Ollama.
func (a *OllamaAdaptor) ConvertEditResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.ImageArtifact, error) {
	return nil, fmt.Errorf("image edit not supported for ollama")
}

// ConvertVideoRequest is not supported for Ollama.
func (a *OllamaAdaptor) ConvertVideoRequest(ctx context.Context, config *ProviderConfig, request *dto.VideoRequest) ([]byte, error) {
	return nil, fmt.Errorf("video generation not supported for ollama")
}

// ConvertVideoResponse is not supported for Ollama.
func (a *OllamaAdaptor) ConvertVideoResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.VideoJob, error) {
	return nil, fmt.Errorf("video generation not supported for ollama")
}

// ConvertTextRequest asks for a single, non-streamed completion.
func (a *OllamaAdaptor) ConvertTextRequest(ctx context.Context, config *ProviderConfig, request *dto.TextRequest) ([]byte, error) {
	payload := ollamaGenerateRequest{
		Model:  config.Model,
		Prompt: request.Prompt,
		System: request.SystemPrompt,
	}
	options := map[string]interface{}{}
	if request.MaxTokens > 0 {
		options["num_predict"] = request.MaxTokens
	}
	if request.Temperature > 0 {
		options["temperature"] = request.Temperature
	}
	if len(options) > 0 {
		payload.Options = options
	}
	return json.Marshal(payload)
}

// ConvertTextResponse accepts a single object or newline-delimited chunks,
// concatenating them until done.
func (a *OllamaAdaptor) ConvertTextResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.TextResponse, error) {
	var full strings.Builder
	var reason string
	seen := false

	decoder := json.NewDecoder(bytes.NewReader(body))
	for decoder.More() {
		var chunk ollamaGenerateChunk
		if err := decoder.Decode(&chunk); err != nil {
			return nil, dto.UnrecognizedResponse(config.Name, body)
		}
		if chunk.Error != "" {
			return nil, &dto.APIError{Code: http.StatusBadGateway, Message: chunk.Error, Provider: config.Name}
		}
		if chunk.Response == nil {
			return nil, dto.UnrecognizedResponse(config.Name, body)
		}
		seen = true
		full.WriteString(*chunk.Response)
		if chunk.Done {
			reason = chunk.DoneReason
			break
		}
	}
	if !seen {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}

	return &dto.TextResponse{Text: full.String(), FinishReason: reason}, nil
}
