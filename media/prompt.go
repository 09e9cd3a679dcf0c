package media

import "fmt"

// ComposeVideoPrompt builds the prompt sent for a video of the given length.
func ComposeVideoPrompt(prompt string, seconds int, highQuality bool) (string, error) {
	if prompt == "" {
		return "", NewMediaError(ErrorTypeInvalidInput, "prompt is empty", nil)
	}
	if seconds < 2 || seconds > 15 {
		return "", NewMediaError(ErrorTypeInvalidInput, fmt.Sprintf("duration must be between 2 and 15 seconds, got %d", seconds), nil)
	}
	composed := fmt.Sprintf("A %d-second video of %s", seconds, prompt)
	if highQuality {
		composed += ". Make it highly detailed, cinematic, and photorealistic."
	}
	return composed, nil
}
