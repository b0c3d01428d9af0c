package llm

// ChatRequest represents a provider-agnostic chat completion request.
// Each provider translates it into its own wire format.
type ChatRequest struct {
	// Model name (e.g., "gpt-4o-mini", "claude-3-5-haiku-latest", "llama3.2")
	Model string `json:"model"`

	// Conversation messages, oldest first. System prompts go in System.
	Messages []Message `json:"messages"`

	// System prompt (some providers handle this separately from messages)
	System string `json:"system,omitempty"`

	// Generation parameters (unified across providers)
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}
