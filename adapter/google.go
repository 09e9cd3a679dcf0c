// Package adapter provides Google Gemini and Veo adaptor implementation.
package adapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/YspCoder/omnimedia/dto"
)

const googleDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Google Gemini REST API structures
type googleInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type googleGeminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *googleInlineData `json:"inlineData,omitempty"`
}

type googleGeminiContent struct {
	Role  string             `json:"role,omitempty"`
	Parts []googleGeminiPart `json:"parts"`
}

type googleGeminiGenerationConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	MaxOutputTokens    int      `json:"maxOutputTokens,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type googleGeminiRequest struct {
	Contents          []googleGeminiContent         `json:"contents"`
	SystemInstruction *googleGeminiContent          `json:"system_instruction,omitempty"`
	GenerationConfig  *googleGeminiGenerationConfig `json:"generationConfig,omitempty"`
}

type googleGeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []googleGeminiPart `json:"parts"`
			Role  string             `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// Veo long-running prediction structures.
type googleVeoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type googleVeoInstance struct {
	Prompt string          `json:"prompt"`
	Image  *googleVeoImage `json:"image,omitempty"`
}

type googleVeoParameters struct {
	SampleCount      int    `json:"sampleCount"`
	AspectRatio      string `json:"aspectRatio,omitempty"`
	Seed             int    `json:"seed,omitempty"`
	NegativePrompt   string `json:"negativePrompt,omitempty"`
	PersonGeneration string `json:"personGeneration,omitempty"`
}

type googleVeoRequest struct {
	Instances  []googleVeoInstance `json:"instances"`
	Parameters googleVeoParameters `json:"parameters"`
}

type googleOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response *struct {
		GenerateVideoResponse *struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
			RaiMediaFilteredReasons []string `json:"raiMediaFilteredReasons,omitempty"`
		} `json:"generateVideoResponse,omitempty"`
	} `json:"response,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GoogleAdaptor converts requests and responses for the Gemini and Veo APIs.
type GoogleAdaptor struct {
	BaseURL string
}

// GetRequestURL returns the Google endpoint for the given mode.
func (a *GoogleAdaptor) GetRequestURL(mode string, config *ProviderConfig) (string, error) {
	base := resolveBaseURL(config, a.BaseURL, googleDefaultBaseURL)
	model, err := requireModel(config, mode)
	if err != nil {
		return "", err
	}

	var action string
	switch mode {
	case ModeText, ModeImage:
		action = "generateContent"
	case ModeVideo:
		action = "predictLongRunning"
	default:
		return "", fmt.Errorf("unsupported mode for google: %s", mode)
	}

	// Format: models/{model}:{action}?key={api_key}
	return withAPIKey(fmt.Sprintf("%s/models/%s:%s", base, model, action), config.APIKey)
}

// SetupHeaders sets Google-specific headers.
func (a *GoogleAdaptor) SetupHeaders(req *http.Request, config *ProviderConfig, mode string) error {
	// API key travels in the URL for Gemini.
	if mode != ModeDownload {
		req.Header.Set("Content-Type", "application/json")
	}
	return nil
}

// ConvertEditRequest builds a generateContent request carrying the image and
// the instruction, asking for both image and text modalities.
func (a *GoogleAdaptor) ConvertEditRequest(ctx context.Context, config *ProviderConfig, request *dto.EditRequest) ([]byte, error) {
	if request == nil || request.Payload == nil {
		return nil, fmt.Errorf("edit request payload is required")
	}
	payload := googleGeminiRequest{
		Contents: []googleGeminiContent{{
			Parts: []googleGeminiPart{
				{InlineData: &googleInlineData{MimeType: request.Payload.MIMEType, Data: request.Payload.Base64()}},
				{Text: request.Instruction},
			},
		}},
		GenerationConfig: &googleGeminiGenerationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}
	return json.Marshal(payload)
}

// ConvertEditResponse returns the first inline image part of the first
// candidate. A response without one yields an empty artifact.
func (a *GoogleAdaptor) ConvertEditResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.ImageArtifact, error) {
	var gResp googleGeminiResponse
	if err := json.Unmarshal(body, &gResp); err != nil {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}

	artifact := &dto.ImageArtifact{}
	if len(gResp.Candidates) == 0 {
		return artifact, nil
	}
	for _, part := range gResp.Candidates[0].Content.Parts {
		if part.InlineData != nil && artifact.Data == nil {
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline image: %w", err)
			}
			artifact.Data = data
			artifact.MIMEType = part.InlineData.MimeType
			continue
		}
		if part.Text != "" && artifact.Text == "" {
			artifact.Text = part.Text
		}
	}
	return artifact, nil
}

// ConvertVideoRequest builds a Veo predictLongRunning request from a still
// image and a prompt.
func (a *GoogleAdaptor) ConvertVideoRequest(ctx context.Context, config *ProviderConfig, request *dto.VideoRequest) ([]byte, error) {
	if request == nil || request.Payload == nil {
		return nil, fmt.Errorf("video request payload is required")
	}

	sampleCount := request.NumberOfVideos
	if sampleCount == 0 {
		sampleCount = 1
	}
	payload := googleVeoRequest{
		Instances: []googleVeoInstance{{
			Prompt: request.Prompt,
			Image: &googleVeoImage{
				BytesBase64Encoded: request.Payload.Base64(),
				MimeType:           request.Payload.MIMEType,
			},
		}},
		Parameters: googleVeoParameters{
			SampleCount:      sampleCount,
			AspectRatio:      request.AspectRatio,
			Seed:             request.Seed,
			NegativePrompt:   getStringExtra(request.Extra, "negative_prompt"),
			PersonGeneration: getStringExtra(request.Extra, "person_generation"),
		},
	}

	if rawPayload := extractPayloadMap(request.Extra); rawPayload != nil {
		return marshalPayloadWithFallback(rawPayload, payload)
	}
	return json.Marshal(payload)
}

// ConvertVideoResponse converts the long-running operation into a job handle.
func (a *GoogleAdaptor) ConvertVideoResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.VideoJob, error) {
	return a.convertOperation(config, body)
}

// GetTaskStatusURL returns the operation resource URL. Operation names are
// relative to the API version root.
func (a *GoogleAdaptor) GetTaskStatusURL(taskID string, config *ProviderConfig) (string, error) {
	base := resolveBaseURL(config, a.BaseURL, googleDefaultBaseURL)
	return withAPIKey(base+"/"+strings.TrimLeft(taskID, "/"), config.APIKey)
}

// ConvertTaskStatusResponse converts a refreshed operation into a job handle.
func (a *GoogleAdaptor) ConvertTaskStatusResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.VideoJob, error) {
	return a.convertOperation(config, body)
}

// SignDownloadURL appends the API key to a generated video URI.
func (a *GoogleAdaptor) SignDownloadURL(uri string, config *ProviderConfig) (string, error) {
	return withAPIKey(uri, config.APIKey)
}

func (a *GoogleAdaptor) convertOperation(config *ProviderConfig, body []byte) (*dto.VideoJob, error) {
	var op googleOperation
	if err := json.Unmarshal(body, &op); err != nil || op.Name == "" {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}

	job := &dto.VideoJob{
		ID:     op.Name,
		Done:   op.Done,
		Status: dto.JobStatusRunning,
	}
	if !op.Done {
		return job, nil
	}

	job.Status = dto.JobStatusSucceeded
	if op.Error != nil {
		job.Status = dto.JobStatusFailed
		job.Error = op.Error.Message
		return job, nil
	}
	if op.Response != nil && op.Response.GenerateVideoResponse != nil {
		samples := op.Response.GenerateVideoResponse.GeneratedSamples
		if len(samples) > 0 {
			job.ResultURI = samples[0].Video.URI
		}
	}
	return job, nil
}

// ConvertTextRequest marshals a single-turn Gemini request.
func (a *GoogleAdaptor) ConvertTextRequest(ctx context.Context, config *ProviderConfig, request *dto.TextRequest) ([]byte, error) {
	payload := googleGeminiRequest{
		Contents: []googleGeminiContent{{
			Role:  "user",
			Parts: []googleGeminiPart{{Text: request.Prompt}},
		}},
		GenerationConfig: &googleGeminiGenerationConfig{
			Temperature:     request.Temperature,
			MaxOutputTokens: request.MaxTokens,
		},
	}
	if request.SystemPrompt != "" {
		payload.SystemInstruction = &googleGeminiContent{
			Parts: []googleGeminiPart{{Text: request.SystemPrompt}},
		}
	}
	return json.Marshal(payload)
}

// ConvertTextResponse joins the text parts of the first candidate.
func (a *GoogleAdaptor) ConvertTextResponse(ctx context.Context, config *ProviderConfig, body []byte) (*dto.TextResponse, error) {
	var gResp googleGeminiResponse
	if err := json.Unmarshal(body, &gResp); err != nil {
		return nil, dto.UnrecognizedResponse(config.Name, body)
	}
	if len(gResp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in google response")
	}

	candidate := gResp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	return &dto.TextResponse{
		Text:         text.String(),
		FinishReason: candidate.FinishReason,
	}, nil
}

func withAPIKey(rawURL, apiKey string) (string, error) {
	if apiKey == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
