package turn

// Quality tags how much fallback was needed to produce a TurnResult, so
// callers can make deliberate degradation decisions instead of guessing.
type Quality int

const (
	// ParseOK means the strict narrative and options sections were found.
	ParseOK Quality = iota
	// ParseDegraded means at least one relaxed or positional fallback
	// layer was used. The result is usable but lower quality.
	ParseDegraded
	// ParseFailed means parsing aborted internally and the result is the
	// fixed recovery beat. Never fatal to the session.
	ParseFailed
)

// NewCharacter is a character declared by the narrator mid-story.
type NewCharacter struct {
	Name        string
	Description string
}

// TurnResult is the typed outcome of one narrator invocation: the story
// beat, 1–5 player options, and an optional new-character declaration.
// It is produced once per turn and consumed once by the presenter.
type TurnResult struct {
	Narrative    string
	Options      []string
	NewCharacter *NewCharacter
	Quality      Quality
}
