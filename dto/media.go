// Package dto defines standardized request and response payloads.
package dto

import (
	"encoding/base64"
	"fmt"
)

// MediaType identifies the kind of media a request produces.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// MediaPayload is a binary blob plus its declared content type.
type MediaPayload struct {
	Name     string `json:"name,omitempty"`
	MIMEType string `json:"mime_type" validate:"required"`
	Data     []byte `json:"-" validate:"required,min=1"`
}

// Base64 returns the standard base64 transport encoding of the payload.
func (p *MediaPayload) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// DataURL returns the payload as a data: URL.
func (p *MediaPayload) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", p.MIMEType, p.Base64())
}

// EditRequest is the input to a single-shot image edit.
type EditRequest struct {
	Model       string        `json:"model,omitempty"`
	Payload     *MediaPayload `json:"payload" validate:"required"`
	Instruction string        `json:"instruction" validate:"required"`
}

// VideoRequest is the input to a video-generation job.
type VideoRequest struct {
	Model          string                 `json:"model,omitempty"`
	Payload        *MediaPayload          `json:"payload" validate:"required"`
	Prompt         string                 `json:"prompt" validate:"required"`
	NumberOfVideos int                    `json:"number_of_videos,omitempty" validate:"omitempty,eq=1"`
	AspectRatio    string                 `json:"aspect_ratio,omitempty"`
	Seed           int                    `json:"seed,omitempty"`
	Extra          map[string]interface{} `json:"extra,omitempty"`
}

// ImageArtifact is the result of an image edit. Exactly one of Data or URL is
// set: Data for inline results, URL for providers that host the output.
type ImageArtifact struct {
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"-"`
	URL      string `json:"url,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Inline reports whether the artifact carries its bytes.
func (a *ImageArtifact) Inline() bool {
	return a != nil && len(a.Data) > 0
}

// DataURL returns the inline image as a data: URL, or the hosted URL.
func (a *ImageArtifact) DataURL() string {
	if a == nil {
		return ""
	}
	if !a.Inline() {
		return a.URL
	}
	return fmt.Sprintf("data:%s;base64,%s", a.MIMEType, base64.StdEncoding.EncodeToString(a.Data))
}
