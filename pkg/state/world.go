package state

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Event roles as they appear in the world history. The narrator writes
// 系统 events, the player's choices become 玩家 events, and NPC speech is
// recorded under the character's own name.
const (
	RoleSystem = "系统"
	RolePlayer = "玩家"
)

// Event is one immutable entry in the world history.
type Event struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Character is a non-player character known to the narrator.
type Character struct {
	Traits string `json:"traits"` // personality / description used for roleplay
}

// WorldState is the single source of truth for one game session:
// the player-authored background, the character roster, and the
// append-only interaction history.
//
// WorldState is not safe for concurrent mutation. The narrator
// coordinator is its only writer; everything else reads a Snapshot.
type WorldState struct {
	ID         uuid.UUID            `json:"id"`
	Background string               `json:"background"`
	Characters map[string]Character `json:"characters"`
	History    []Event              `json:"history"`
}

// NewWorldState creates an empty world for a new session.
func NewWorldState() *WorldState {
	return &WorldState{
		ID:         uuid.New(),
		Characters: make(map[string]Character),
		History:    make([]Event, 0),
	}
}

// SetBackground overwrites the world premise. Blank input is ignored so
// a stray empty signal can never erase an established background.
func (ws *WorldState) SetBackground(background string) {
	if strings.TrimSpace(background) == "" {
		return
	}
	ws.Background = background
}

// MergeCharacters upserts characters by name.
func (ws *WorldState) MergeCharacters(characters map[string]Character) {
	if ws.Characters == nil {
		ws.Characters = make(map[string]Character)
	}
	for name, c := range characters {
		ws.Characters[name] = c
	}
}

// AppendHistory appends events in order. History is append-only for the
// session lifetime; there is no rollback.
func (ws *WorldState) AppendHistory(events ...Event) {
	ws.History = append(ws.History, events...)
}

// RenderHistoryText produces the human-readable transcript used as NPC
// interaction input. Narrator lines are rendered bare; everything else
// is rendered as an action line.
func (ws *WorldState) RenderHistoryText() string {
	var b strings.Builder
	for _, event := range ws.History {
		if event.Role == RoleSystem {
			b.WriteString(event.Content)
			b.WriteString("\n")
			continue
		}
		b.WriteString(fmt.Sprintf("%s 做了: %s\n", event.Role, strings.TrimSpace(event.Content)))
	}
	return b.String()
}

// Snapshot returns a deep copy for readers outside the coordinator
// goroutine (prompt formatter, NPC call site, session store).
func (ws *WorldState) Snapshot() *WorldState {
	characters := make(map[string]Character, len(ws.Characters))
	for name, c := range ws.Characters {
		characters[name] = c
	}
	history := make([]Event, len(ws.History))
	copy(history, ws.History)
	return &WorldState{
		ID:         ws.ID,
		Background: ws.Background,
		Characters: characters,
		History:    history,
	}
}
