// Package llm defines the provider-agnostic chat completion abstraction and its adapters.
package llm

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string
	Content string
}

// ChatRequest is the input for a non-streaming chat completion.
// Zero-valued Model, Temperature and MaxTokens fall back to provider defaults.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// ChatResponse is the output of a non-streaming chat completion.
type ChatResponse struct {
	Content    string
	StopReason string // "stop" | "length" | ...
	Tokens     int    // prompt + completion, when the provider reports it
}

// ModelMeta describes the model behind a provider.
type ModelMeta struct {
	ID        string
	Provider  string
	MaxTokens int // context window
}
