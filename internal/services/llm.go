package services

import (
	"context"

	"github.com/hcx1999/AIgame/pkg/chat"
)

// StreamChunk is one fragment of a streaming chat reply. A terminal
// chunk has Done set; Err is populated when the stream broke mid-way.
type StreamChunk struct {
	Content string
	Done    bool
	Err     error
}

// LLMService defines the interface for interacting with the LLM API.
// The core only requires role-tagged history in and text out; it does
// not depend on any vendor protocol.
type LLMService interface {
	// Chat generates a full (non-streaming) chat response.
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// ChatStream generates a streaming chat response. The returned
	// channel is closed after the terminal chunk.
	ChatStream(ctx context.Context, messages []chat.ChatMessage) (<-chan StreamChunk, error)
}
