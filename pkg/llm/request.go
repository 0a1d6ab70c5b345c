package llm

// ChatRequest represents a chat completion request (OpenAI-compatible).
type ChatRequest struct {
	Model    string    `json:"model"`    // Model name (e.g., "gpt-4o", "gpt-3.5-turbo")
	Messages []Message `json:"messages"` // Conversation history

	// Sampling parameters
	Temperature *float64 `json:"temperature,omitempty"` // Creativity (0.0-2.0)
	TopP        *float64 `json:"top_p,omitempty"`       // Nucleus sampling threshold
	MaxTokens   *int     `json:"max_tokens,omitempty"`  // Max tokens to generate

	Stream bool `json:"stream,omitempty"` // Whether to stream responses
}

// CompletionRequest represents a legacy text completion request.
type CompletionRequest struct {
	Model  string `json:"model"`  // Model name (e.g., "gpt-3.5-turbo-instruct")
	Prompt string `json:"prompt"` // The text to complete

	// Sampling parameters
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`

	Stream bool `json:"stream,omitempty"`
}
