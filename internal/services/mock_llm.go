package services

import (
	"context"
	"sync"

	"github.com/hcx1999/AIgame/pkg/chat"
)

// MockLLM is a mock implementation of LLMService for testing.
type MockLLM struct {
	ChatFunc       func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
	ChatStreamFunc func(ctx context.Context, messages []chat.ChatMessage) (<-chan StreamChunk, error)

	// Track calls for testing
	ChatCalls       []ChatCall
	ChatStreamCalls []ChatCall

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	Messages []chat.ChatMessage
}

// NewMockLLM creates a new mock LLM service.
func NewMockLLM() *MockLLM {
	return &MockLLM{
		ChatCalls:       make([]ChatCall, 0),
		ChatStreamCalls: make([]ChatCall, 0),
	}
}

var _ LLMService = (*MockLLM)(nil)

// Chat mocks a non-streaming response.
func (m *MockLLM) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: messages})
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}
	return &chat.ChatResponse{Message: "Mock response"}, nil
}

// ChatStream mocks a streaming response. The default splits the Chat
// response into two fragments.
func (m *MockLLM) ChatStream(ctx context.Context, messages []chat.ChatMessage) (<-chan StreamChunk, error) {
	m.mu.Lock()
	m.ChatStreamCalls = append(m.ChatStreamCalls, ChatCall{Messages: messages})
	fn := m.ChatStreamFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}

	out := make(chan StreamChunk, 3)
	out <- StreamChunk{Content: "Mock "}
	out <- StreamChunk{Content: "response"}
	out <- StreamChunk{Done: true}
	close(out)
	return out, nil
}

// SetChatResponse sets up the mock to return fixed text on Chat.
func (m *MockLLM) SetChatResponse(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return &chat.ChatResponse{Message: message}, nil
	}
}

// SetChatError sets up the mock to return an error on Chat.
func (m *MockLLM) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// SetStreamFragments sets up the mock to stream the given fragments.
func (m *MockLLM) SetStreamFragments(fragments ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatStreamFunc = func(ctx context.Context, messages []chat.ChatMessage) (<-chan StreamChunk, error) {
		out := make(chan StreamChunk, len(fragments)+1)
		for _, f := range fragments {
			out <- StreamChunk{Content: f}
		}
		out <- StreamChunk{Done: true}
		close(out)
		return out, nil
	}
}

// GetChatCalls returns a copy of the Chat call log.
func (m *MockLLM) GetChatCalls() []ChatCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]ChatCall, len(m.ChatCalls))
	copy(calls, m.ChatCalls)
	return calls
}

// Reset clears all call tracking.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatCalls = make([]ChatCall, 0)
	m.ChatStreamCalls = make([]ChatCall, 0)
}
