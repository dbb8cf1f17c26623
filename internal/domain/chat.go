package domain

// ChatMessage is the provider-agnostic chat message shape sent to remote
// LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResult is the outcome of routing a single chat request. It is produced
// once per request and never persisted.
type ChatResult struct {
	Text          string
	ProviderUsed  Provider
	ElapsedMillis int64
}
