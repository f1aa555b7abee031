package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hcx1999/AIgame/pkg/state"
	"github.com/hcx1999/AIgame/pkg/turn"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeBackgroundSet EventType = "session.background_set"
	EventTypeTurnCompleted EventType = "turn.completed"
	EventTypeNPCReactions  EventType = "npc.reactions"
	EventTypeChatChunk     EventType = "chat.chunk"
)

// Event is the wire shape published on the session channel.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// Broadcaster publishes session events to Redis Pub/Sub so external
// observers (spectator clients, analytics) can follow a game without
// touching the coordinator's state.
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster.
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishBackgroundSet announces that the session left AwaitingBackground.
func (b *Broadcaster) PublishBackgroundSet(ctx context.Context, sessionID uuid.UUID, background string) error {
	return b.publish(ctx, sessionID, Event{
		Type: EventTypeBackgroundSet,
		Data: map[string]any{"background": background},
	})
}

// PublishTurnCompleted publishes one narrator turn result.
func (b *Broadcaster) PublishTurnCompleted(ctx context.Context, sessionID uuid.UUID, result turn.TurnResult) error {
	data := map[string]any{
		"narrative": result.Narrative,
		"options":   result.Options,
	}
	if result.NewCharacter != nil {
		data["new_character"] = map[string]any{
			"name":        result.NewCharacter.Name,
			"description": result.NewCharacter.Description,
		}
	}
	return b.publish(ctx, sessionID, Event{
		Type: EventTypeTurnCompleted,
		Data: data,
	})
}

// PublishNPCReactions publishes the NPC events appended this cycle.
func (b *Broadcaster) PublishNPCReactions(ctx context.Context, sessionID uuid.UUID, reactions []state.Event) error {
	return b.publish(ctx, sessionID, Event{
		Type: EventTypeNPCReactions,
		Data: map[string]any{"reactions": reactions},
	})
}

// PublishChatChunk publishes one streamed assistant fragment.
func (b *Broadcaster) PublishChatChunk(ctx context.Context, sessionID uuid.UUID, content string, done bool) error {
	return b.publish(ctx, sessionID, Event{
		Type: EventTypeChatChunk,
		Data: map[string]any{
			"content": content,
			"done":    done,
		},
	})
}

// ChannelFor returns the pub/sub channel name for a session.
func ChannelFor(sessionID uuid.UUID) string {
	return fmt.Sprintf("game-events:%s", sessionID.String())
}

func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	event.SessionID = sessionID.String()
	channel := ChannelFor(sessionID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "channel", channel, "event_type", event.Type)
	return nil
}
