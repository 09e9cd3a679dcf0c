package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YspCoder/omnimedia/dto"
)

func TestOllamaRequestURL(t *testing.T) {
	a := &OllamaAdaptor{}

	url, err := a.GetRequestURL(ModeText, &ProviderConfig{})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/api/generate", url)

	url, err = a.GetRequestURL(ModeText, &ProviderConfig{BaseURL: "http://gpu-box:11434/api/generate"})
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434/api/generate", url)

	_, err = a.GetRequestURL(ModeImage, &ProviderConfig{})
	assert.Error(t, err)
}

func TestOllamaTextResponse(t *testing.T) {
	a := &OllamaAdaptor{}
	cfg := &ProviderConfig{Name: "ollama"}

	resp, err := a.ConvertTextResponse(context.Background(), cfg, []byte(`{"response":"whole answer","done":true,"done_reason":"stop"}`))
	require.NoError(t, err)
	assert.Equal(t, "whole answer", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)

	chunks := "{\"response\":\"Hel\",\"done\":false}\n{\"response\":\"lo\",\"done\":false}\n{\"response\":\"\",\"done\":true}\n"
	resp, err = a.ConvertTextResponse(context.Background(), cfg, []byte(chunks))
	require.NoError(t, err)
	assert.Equal(t, "Hello", resp.Text)

	_, err = a.ConvertTextResponse(context.Background(), cfg, []byte(`{"error":"model not found"}`))
	var apiErr *dto.APIError
	assert.True(t, errors.As(err, &apiErr))

	_, err = a.ConvertTextResponse(context.Background(), cfg, []byte(`{"models":[]}`))
	assert.True(t, errors.Is(err, dto.ErrUnrecognizedResponse))
}
