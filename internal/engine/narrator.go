package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hcx1999/AIgame/internal/services"
	"github.com/hcx1999/AIgame/internal/services/events"
	"github.com/hcx1999/AIgame/internal/storage"
	"github.com/hcx1999/AIgame/pkg/chat"
	"github.com/hcx1999/AIgame/pkg/prompts"
	"github.com/hcx1999/AIgame/pkg/state"
	"github.com/hcx1999/AIgame/pkg/turn"
)

// Phase is the coordinator's position in the turn state machine.
type Phase int

const (
	PhaseAwaitingBackground Phase = iota
	PhaseGeneratingTurn
	PhaseAwaitingChoice
	PhaseResolvingNPCs
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingBackground:
		return "awaiting_background"
	case PhaseGeneratingTurn:
		return "generating_turn"
	case PhaseAwaitingChoice:
		return "awaiting_choice"
	case PhaseResolvingNPCs:
		return "resolving_npcs"
	default:
		return "unknown"
	}
}

// DefaultChoice substitutes for an empty player selection so the loop
// never stalls on a blank signal.
const DefaultChoice = "继续观察"

// Coordinator owns the world state and runs the narrative turn loop:
// build prompt, call the model, parse, emit, wait for the player, let
// the NPCs react, repeat. It is the world's only writer; NPC results
// are collected and applied from this goroutine only.
type Coordinator struct {
	world     *state.WorldState
	llm       services.LLMService
	ensemble  *Ensemble
	presenter Presenter
	logger    *slog.Logger

	// advisory collaborators, all optional
	images      services.ImageService
	store       *storage.SessionStore
	broadcaster *events.Broadcaster

	backgroundCh chan string
	choiceCh     chan string

	lastImagePath string

	mu    sync.Mutex
	phase Phase
}

// NewCoordinator creates a narrator coordinator for a fresh session.
func NewCoordinator(llm services.LLMService, ensemble *Ensemble, presenter Presenter, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		world:        state.NewWorldState(),
		llm:          llm,
		ensemble:     ensemble,
		presenter:    presenter,
		logger:       logger,
		backgroundCh: make(chan string, 1),
		choiceCh:     make(chan string, 1),
	}
}

// WithImages attaches an illustration generator.
func (c *Coordinator) WithImages(images services.ImageService) *Coordinator {
	c.images = images
	return c
}

// WithStore attaches a session snapshot store.
func (c *Coordinator) WithStore(store *storage.SessionStore) *Coordinator {
	c.store = store
	return c
}

// WithBroadcaster attaches a session event broadcaster.
func (c *Coordinator) WithBroadcaster(b *events.Broadcaster) *Coordinator {
	c.broadcaster = b
	return c
}

// World returns the coordinator-owned world state. Callers outside the
// coordinator goroutine must only use Snapshot on it.
func (c *Coordinator) World() *state.WorldState {
	return c.world
}

// Phase reports the current state-machine phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Coordinator) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// SubmitBackground delivers the initial background from the
// presentation layer. Only the first non-blank submission matters; if a
// previous submission is still pending the new one is dropped.
func (c *Coordinator) SubmitBackground(background string) {
	select {
	case c.backgroundCh <- background:
	default:
	}
}

// SubmitChoice delivers a player choice. If the coordinator is not at
// AwaitingChoice yet, one choice is held; further ones are dropped.
func (c *Coordinator) SubmitChoice(choice string) {
	select {
	case c.choiceCh <- choice:
	default:
	}
}

// Run executes the session loop until ctx is cancelled. It suspends
// first until a background arrives, then cycles GeneratingTurn →
// AwaitingChoice → ResolvingNPCs indefinitely. Failures inside one
// cycle are reported as a recoverable story beat, never a crash.
func (c *Coordinator) Run(ctx context.Context) error {
	if err := c.awaitBackground(ctx); err != nil {
		return err
	}

	c.presenter.EmitTurn(turn.TurnResult{Narrative: "开始游戏"})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := c.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("Turn cycle failed, recovering", "error", err, "session_id", c.world.ID)
			c.presenter.EmitTurn(turn.TurnResult{
				Narrative: fmt.Sprintf("游戏出现错误: %v", err),
				Options:   []string{"重新开始"},
				Quality:   turn.ParseFailed,
			})
		}
	}
}

func (c *Coordinator) awaitBackground(ctx context.Context) error {
	c.setPhase(PhaseAwaitingBackground)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case background := <-c.backgroundCh:
			if strings.TrimSpace(background) == "" {
				c.logger.Warn("Ignoring blank background submission")
				continue
			}
			c.world.SetBackground(background)
			c.logger.Info("Background set, story begins", "session_id", c.world.ID)
			if c.broadcaster != nil {
				if err := c.broadcaster.PublishBackgroundSet(ctx, c.world.ID, background); err != nil {
					c.logger.Warn("Failed to broadcast background", "error", err)
				}
			}
			return nil
		}
	}
}

// runCycle performs one full turn. Any error returned here is converted
// by Run into a recoverable error beat.
func (c *Coordinator) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("turn cycle panic: %v", r)
		}
	}()

	c.setPhase(PhaseGeneratingTurn)
	result := c.generateTurn(ctx)
	c.presenter.EmitTurn(result)
	if c.broadcaster != nil {
		if err := c.broadcaster.PublishTurnCompleted(ctx, c.world.ID, result); err != nil {
			c.logger.Warn("Failed to broadcast turn", "error", err)
		}
	}
	c.illustrate(ctx, result.Narrative)

	c.setPhase(PhaseAwaitingChoice)
	choice, err := c.awaitChoice(ctx)
	if err != nil {
		return err
	}

	// NPC input is built from the history as it stood before this
	// choice, plus the choice itself. The player event is appended
	// after the NPC calls so the collect-then-apply order holds.
	interaction := c.world.RenderHistoryText() + "玩家做了" + choice + "\n"

	c.setPhase(PhaseResolvingNPCs)
	snapshot := c.world.Snapshot()
	reactions := c.ensemble.Interact(ctx, snapshot.Characters, interaction)
	c.presenter.EmitNPCEvents(reactions)
	if c.broadcaster != nil {
		if err := c.broadcaster.PublishNPCReactions(ctx, c.world.ID, reactions); err != nil {
			c.logger.Warn("Failed to broadcast NPC reactions", "error", err)
		}
	}

	c.world.AppendHistory(state.Event{Role: state.RolePlayer, Content: "玩家选择" + choice})
	c.world.AppendHistory(reactions...)

	c.persist(ctx)
	return nil
}

// generateTurn builds the prompt, calls the model, and parses the
// response. A transport failure yields the fixed fallback beat so the
// game continues.
func (c *Coordinator) generateTurn(ctx context.Context) turn.TurnResult {
	prompt := prompts.BuildNarratorPrompt(c.world.Snapshot())
	resp, err := c.llm.Chat(ctx, chat.UserMessage(prompt))
	if err != nil || resp == nil {
		c.logger.Error("Narrator model call failed", "error", err, "session_id", c.world.ID)
		return turn.TurnResult{
			Narrative: "发生了意想不到的情况...",
			Options:   append([]string(nil), turn.DefaultOptions...),
			Quality:   turn.ParseFailed,
		}
	}
	return turn.Parse(resp.Message, c.world)
}

// awaitChoice suspends until the player picks an option. An empty
// selection falls back to the default action.
func (c *Coordinator) awaitChoice(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case choice := <-c.choiceCh:
		if strings.TrimSpace(choice) == "" {
			c.logger.Warn("Empty player choice, using default", "default", DefaultChoice)
			return DefaultChoice, nil
		}
		return choice, nil
	}
}

func (c *Coordinator) illustrate(ctx context.Context, narrative string) {
	if c.images == nil || narrative == "" {
		return
	}
	path := c.images.GenerateIllustration(ctx, narrative, c.lastImagePath)
	if path == "" {
		return
	}
	c.lastImagePath = path
	c.presenter.EmitIllustration(path)
}

func (c *Coordinator) persist(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveWorldState(ctx, c.world.Snapshot()); err != nil {
		c.logger.Warn("Failed to persist session snapshot", "error", err, "session_id", c.world.ID)
	}
}
