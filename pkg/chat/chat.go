package chat

// LLM wire roles (OpenAI-compatible chat completion API).
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
	ChatRoleSystem    = "system"
)

// ChatMessage represents a single role-tagged message in a model
// conversation. This shape is shared by every agent in the game
// (narrator, NPC ensemble, chat assistant).
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatResponse is the full (non-streaming) reply from an LLM call.
type ChatResponse struct {
	Message string `json:"message,omitempty"`
}

// UserMessage wraps plain text as a single-message user conversation.
// The narrator and NPC agents are one-shot: each call carries its whole
// context in one user prompt.
func UserMessage(content string) []ChatMessage {
	return []ChatMessage{{Role: ChatRoleUser, Content: content}}
}
