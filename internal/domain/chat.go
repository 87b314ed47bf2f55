package domain

import "context"

// Chat roles understood by OpenAI-compatible servers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is a past user question and the assistant's answer.
type Turn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// CompletionRequest is the input of a chat completion.
type CompletionRequest struct {
	Messages    []ChatMessage
	Temperature float32
}

// Completer generates an assistant reply.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Moderator classifies a user message with a safety model.
type Moderator interface {
	IsSafe(ctx context.Context, text string) (bool, error)
}
