package dto

// TextRequest is a single-turn text generation request.
type TextRequest struct {
	Model        string  `json:"model,omitempty"`
	Prompt       string  `json:"prompt" validate:"required"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty" validate:"gte=0"`
	Temperature  float64 `json:"temperature,omitempty" validate:"gte=0,lte=2"`
}

// TextResponse is the generated text.
type TextResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
}
