package provider

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Ollama    = "ollama"
	Gemini    = "gemini"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Ollama, Gemini}
}

// NeedsAPIKey reports whether the provider requires credentials.
func NeedsAPIKey(providerType string) bool {
	return providerType != Ollama
}
