package engine

import (
	"github.com/hcx1999/AIgame/pkg/state"
	"github.com/hcx1999/AIgame/pkg/turn"
)

// Presenter is the outbound boundary to the presentation layer. The
// engine only pushes; it never waits on a Presenter call, so
// implementations must return promptly (queue internally if needed).
type Presenter interface {
	// EmitTurn delivers one narrator turn: narrative, options, and an
	// optional new character.
	EmitTurn(result turn.TurnResult)

	// EmitNPCEvents delivers the NPC reactions for the current cycle.
	EmitNPCEvents(events []state.Event)

	// EmitChatFragment delivers one streamed chat-assistant fragment.
	EmitChatFragment(text string)

	// EmitIllustration delivers the path of a freshly generated scene
	// image. Advisory; may never be called if image generation is off.
	EmitIllustration(path string)
}
