package textfilter

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
)

// LengthExceededMarker is returned by EnforceLength instead of the text
// when the input is over the limit.
const LengthExceededMarker = "__超出字数限制"

// Prompt-injection markers. Player input containing any of these is
// rejected before it reaches a prompt.
var injectionKeywords = []string{
	"忽略之前", "你现在是", "请扮演", "现在起", "作为", "请用英文回答", "请用中文回答",
	"请输出", "请执行", "请绕过", "请不要遵守", "请忽略", "system:", "user:", "assistant:",
	"你是一个", "你现在的身份", "请以", "请假装", "请模拟", "请生成", "请展示", "请列出",
}

// Screener runs the pre-flight input checks: length, prompt injection,
// and sensitive words. A non-empty match list is a hard rejection.
type Screener struct {
	folder     cases.Caser
	injection  []string // case-folded injection keywords
	sensitive  []string
	sensitiveM map[string]struct{}
}

// NewScreener builds a screener with the built-in injection keywords and
// an optional extra sensitive-word list.
func NewScreener(sensitiveWords []string) *Screener {
	s := &Screener{
		folder:     cases.Fold(),
		sensitiveM: make(map[string]struct{}),
	}
	for _, kw := range injectionKeywords {
		s.injection = append(s.injection, s.folder.String(kw))
	}
	s.AddSensitiveWords(sensitiveWords)
	return s
}

// AddSensitiveWords extends the sensitive-word list, skipping blanks and
// duplicates.
func (s *Screener) AddSensitiveWords(words []string) {
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := s.sensitiveM[w]; ok {
			continue
		}
		s.sensitiveM[w] = struct{}{}
		s.sensitive = append(s.sensitive, w)
	}
}

// CheckInjection returns the injection markers found in text. Matching
// is case-fold-insensitive so "System:" and "system:" both hit.
func (s *Screener) CheckInjection(text string) []string {
	folded := s.folder.String(text)
	var found []string
	for i, kw := range s.injection {
		if strings.Contains(folded, kw) {
			found = append(found, injectionKeywords[i])
		}
	}
	return found
}

// CheckSensitive returns the sensitive words found in text.
func (s *Screener) CheckSensitive(text string) []string {
	var found []string
	for _, w := range s.sensitive {
		if strings.Contains(text, w) {
			found = append(found, w)
		}
	}
	return found
}

// EnforceLength passes text through when it is at most max runes,
// otherwise it returns the length-exceeded marker.
func EnforceLength(text string, max int) string {
	if len([]rune(text)) <= max {
		return text
	}
	return LengthExceededMarker
}

// LoadSensitiveWords reads every .txt file in dir, one keyword per line.
// Trailing commas are stripped (the word lists ship in that shape).
// A missing directory yields an empty list, not an error.
func LoadSensitiveWords(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var words []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		for _, line := range strings.Split(string(data), "\n") {
			word := strings.TrimSuffix(strings.TrimSpace(line), ",")
			if word != "" {
				words = append(words, word)
			}
		}
	}
	return words, nil
}
