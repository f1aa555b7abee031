package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hcx1999/AIgame/internal/services"
	"github.com/hcx1999/AIgame/internal/services/events"
	"github.com/hcx1999/AIgame/pkg/chat"
	"github.com/hcx1999/AIgame/pkg/prompts"
)

// SummaryMarker is the tag the assistant is instructed to emit when it
// has condensed the player's conversation into a world background.
const SummaryMarker = "【背景总结】"

// sentence terminators that close a background summary
var summaryTerminators = []string{"。", "！", "？"}

// Assistant maintains the chat-assistant conversation. It shares no
// state with the narrator; its only bridge to the story is the
// once-per-session background summary it forwards on capture.
//
// One exchange runs at a time: Send holds mu for the full exchange, so
// a call that arrives while a reply is still streaming waits its turn.
type Assistant struct {
	id           uuid.UUID
	llm          services.LLMService
	presenter    Presenter
	logger       *slog.Logger
	onBackground func(summary string)

	broadcaster *events.Broadcaster // optional

	mu              sync.Mutex
	messages        []chat.ChatMessage
	summaryCaptured bool
}

// NewAssistant creates a chat assistant session. onBackground receives
// the extracted background summary exactly once.
func NewAssistant(llm services.LLMService, presenter Presenter, onBackground func(string), logger *slog.Logger) *Assistant {
	return &Assistant{
		id:           uuid.New(),
		llm:          llm,
		presenter:    presenter,
		logger:       logger,
		onBackground: onBackground,
		messages: []chat.ChatMessage{
			{Role: chat.ChatRoleSystem, Content: prompts.AssistantSystemPrompt},
		},
	}
}

// WithBroadcaster attaches a session event broadcaster.
func (a *Assistant) WithBroadcaster(b *events.Broadcaster) *Assistant {
	a.broadcaster = b
	return a
}

// ID returns the assistant's own session ID (independent of the game).
func (a *Assistant) ID() uuid.UUID {
	return a.id
}

// Messages returns a copy of the conversation log. Blocks while an
// exchange is in flight.
func (a *Assistant) Messages() []chat.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]chat.ChatMessage, len(a.messages))
	copy(out, a.messages)
	return out
}

// SummaryCaptured reports whether the background summary already fired.
func (a *Assistant) SummaryCaptured() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summaryCaptured
}

// Send runs one exchange: append the user turn, stream the reply
// fragment by fragment to the presenter, watch the accumulated text for
// the background-summary marker, and append the full reply once the
// stream completes. On a transport failure the user sees a streamed
// apology and the assistant turn is not recorded.
//
// Concurrent calls are serialized; a second Send blocks until the
// previous exchange has finished streaming.
func (a *Assistant) Send(ctx context.Context, userInput string) error {
	if strings.TrimSpace(userInput) == "" {
		a.presenter.EmitChatFragment("请输入有效的内容。")
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.messages = append(a.messages, chat.ChatMessage{Role: chat.ChatRoleUser, Content: userInput})

	stream, err := a.llm.ChatStream(ctx, a.messages)
	if err != nil {
		a.fail(ctx, err)
		return err
	}

	var full strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			a.fail(ctx, chunk.Err)
			return chunk.Err
		}
		if chunk.Content != "" {
			full.WriteString(chunk.Content)
			a.presenter.EmitChatFragment(chunk.Content)
			a.publishChunk(ctx, chunk.Content, false)
			a.detectSummary(full.String())
		}
		if chunk.Done {
			break
		}
	}

	a.messages = append(a.messages, chat.ChatMessage{Role: chat.ChatRoleAssistant, Content: full.String()})
	a.publishChunk(ctx, "", true)
	return nil
}

// Reset clears the conversation back to the system prompt. The summary
// guard is per assistant lifetime and survives a reset.
func (a *Assistant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: prompts.AssistantSystemPrompt},
	}
}

// detectSummary fires the background bridge once the marker and a
// closing sentence terminator have both streamed in. Guarded so a
// repeated marker can never re-fire it.
func (a *Assistant) detectSummary(accumulated string) {
	if a.summaryCaptured {
		return
	}
	_, after, found := strings.Cut(accumulated, SummaryMarker)
	if !found {
		return
	}
	after = strings.TrimLeft(after, "：: ")

	end := -1
	for _, term := range summaryTerminators {
		if i := strings.Index(after, term); i >= 0 && (end < 0 || i < end) {
			end = i
		}
	}
	if end < 0 {
		return
	}

	summary := strings.TrimSpace(after[:end])
	if summary == "" {
		return
	}

	a.summaryCaptured = true
	a.logger.Info("Background summary captured", "assistant_id", a.id)
	if a.onBackground != nil {
		a.onBackground(summary)
	}
}

func (a *Assistant) fail(ctx context.Context, err error) {
	a.logger.Error("Chat stream failed", "error", err, "assistant_id", a.id)
	a.presenter.EmitChatFragment(fmt.Sprintf("抱歉，处理您的请求时出现错误: %v", err))
	a.publishChunk(ctx, "", true)
}

func (a *Assistant) publishChunk(ctx context.Context, content string, done bool) {
	if a.broadcaster == nil {
		return
	}
	if err := a.broadcaster.PublishChatChunk(ctx, a.id, content, done); err != nil {
		a.logger.Warn("Failed to broadcast chat chunk", "error", err)
	}
}
