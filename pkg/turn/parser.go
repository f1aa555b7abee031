package turn

import (
	"regexp"
	"strings"

	"github.com/hcx1999/AIgame/pkg/state"
)

// The model is asked for a fixed format but is not guaranteed to follow
// it. Extraction is a layered fallback chain: strict pattern, relaxed
// pattern, positional heuristic, fixed default. Each layer is separable
// so it can be tested on its own.
var (
	newCharacterRe = regexp.MustCompile(`新角色[:：]\s*(\S+)\s+([^\n]+)`)

	narrativeRe    = regexp.MustCompile(`(?is)剧情[:：](.+?)选项[:：]`)
	altNarrativeRe = regexp.MustCompile(`(?:剧情|描述|叙述)[:：]?\s*([^\n]+(?:\n[^\n]+){0,4})`)

	optionsTailRe      = regexp.MustCompile(`(?is)选项[:：](.+)`)
	optionsBeforeChrRe = regexp.MustCompile(`(?is)选项[:：](.+?)新角色[:：]`)
	optionLineRe       = regexp.MustCompile(`(?m)^\s*(?:[-*]|\d+[.)]?)\s*(.+)$`)
)

const maxOptions = 5

// DefaultOptions is substituted when no options can be recovered from
// the model output at all.
var DefaultOptions = []string{"观察周围", "继续前进", "等待片刻"}

// recoveryResult is returned when parsing itself breaks. The turn loop
// keeps going either way.
func recoveryResult() TurnResult {
	return TurnResult{
		Narrative: "解析剧情时出现错误",
		Options:   []string{"重试", "继续"},
		Quality:   ParseFailed,
	}
}

// Parse extracts a TurnResult from raw model output and applies the
// required side effects to the world: a declared new character is
// registered before narrative extraction, and the chosen narrative is
// appended to history as a 系统 event. Parse never panics outward.
func Parse(raw string, ws *state.WorldState) (result TurnResult) {
	defer func() {
		if r := recover(); r != nil {
			result = recoveryResult()
		}
	}()

	result.NewCharacter = extractNewCharacter(raw, ws)

	narrative, strictNarrative := extractNarrative(raw)
	result.Narrative = narrative
	ws.AppendHistory(state.Event{Role: state.RoleSystem, Content: narrative})

	options, strictOptions := extractOptions(raw, result.NewCharacter != nil)
	result.Options = options

	switch {
	case strictNarrative && strictOptions:
		result.Quality = ParseOK
	default:
		result.Quality = ParseDegraded
	}
	return result
}

// extractNewCharacter scans for a 新角色 declaration and registers it
// into the roster immediately when found.
func extractNewCharacter(raw string, ws *state.WorldState) *NewCharacter {
	m := newCharacterRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	nc := &NewCharacter{
		Name:        strings.TrimSpace(m[1]),
		Description: strings.TrimSpace(m[2]),
	}
	ws.MergeCharacters(map[string]state.Character{
		nc.Name: {Traits: nc.Description},
	})
	return nc
}

// extractNarrative finds the story beat. Strict layer: the section
// between the 剧情 and 选项 markers. Relaxed layer: any narrative-marker
// line plus up to four following lines. Last resort: the first three
// lines of the raw text verbatim.
func extractNarrative(raw string) (string, bool) {
	if m := narrativeRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := altNarrativeRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), false
	}
	lines := strings.Split(raw, "\n")
	if len(lines) > 3 {
		lines = lines[:3]
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), false
}

// extractOptions finds the option list after the 选项 marker, bounded by
// the 新角色 block when the options come first. When no marked section
// yields options, the trailing non-empty lines of the whole response are
// used if there are 2–5 of them; otherwise the fixed defaults apply.
func extractOptions(raw string, hasNewCharacter bool) ([]string, bool) {
	section := ""
	if m := optionsTailRe.FindStringSubmatch(raw); m != nil {
		section = m[1]
	} else if hasNewCharacter {
		if m := optionsBeforeChrRe.FindStringSubmatch(raw); m != nil {
			section = m[1]
		}
	}

	var options []string
	if section != "" {
		for _, m := range optionLineRe.FindAllStringSubmatch(section, -1) {
			line := strings.TrimSpace(m[1])
			if line != "" {
				options = append(options, line)
			}
		}
	}
	if len(options) > 0 {
		return capOptions(options), true
	}

	if tail := trailingLines(raw, maxOptions); len(tail) >= 2 && len(tail) <= maxOptions {
		return tail, false
	}
	return append([]string(nil), DefaultOptions...), false
}

func capOptions(options []string) []string {
	if len(options) > maxOptions {
		return options[:maxOptions]
	}
	return options
}

// trailingLines returns the non-empty entries among the last n lines.
func trailingLines(raw string, n int) []string {
	lines := strings.Split(raw, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	var out []string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
