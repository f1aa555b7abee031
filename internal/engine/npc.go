package engine

import (
	"context"
	"log/slog"

	"github.com/hcx1999/AIgame/internal/services"
	"github.com/hcx1999/AIgame/pkg/chat"
	"github.com/hcx1999/AIgame/pkg/prompts"
	"github.com/hcx1999/AIgame/pkg/state"
)

// Ensemble elicits one short in-character reaction per NPC for the
// latest story development. Each character's model call is independent;
// a failure on one is logged and skipped without affecting the others.
type Ensemble struct {
	llm    services.LLMService
	logger *slog.Logger
}

// NewEnsemble creates an NPC ensemble coordinator.
func NewEnsemble(llm services.LLMService, logger *slog.Logger) *Ensemble {
	return &Ensemble{
		llm:    llm,
		logger: logger,
	}
}

// Interact returns one reaction event per character that has both a
// name and non-empty traits. Malformed input yields an empty slice, not
// an error. Iteration follows Go map order, so NPC speaking order is
// not stable across runs.
func (e *Ensemble) Interact(ctx context.Context, characters map[string]state.Character, interaction string) []state.Event {
	if len(characters) == 0 || interaction == "" {
		e.logger.Warn("NPC interaction input malformed, skipping ensemble",
			"characters", len(characters),
			"has_interaction", interaction != "")
		return []state.Event{}
	}

	reactions := make([]state.Event, 0, len(characters))
	for name, character := range characters {
		if name == "" || character.Traits == "" {
			e.logger.Warn("Character entry incomplete, skipping", "name", name)
			continue
		}

		prompt := prompts.BuildNPCPrompt(interaction, name, character.Traits)
		resp, err := e.llm.Chat(ctx, chat.UserMessage(prompt))
		if err != nil {
			e.logger.Error("NPC reaction call failed, skipping character",
				"name", name, "error", err)
			continue
		}
		if resp == nil || resp.Message == "" {
			e.logger.Warn("NPC reaction empty, skipping character", "name", name)
			continue
		}

		reactions = append(reactions, state.Event{Role: name, Content: resp.Message})
	}
	return reactions
}
