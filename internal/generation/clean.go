package generation

import (
	"regexp"
	"strings"
)

// DefaultTriggers mark the explanatory paragraph models tend to append after
// the résumé JSON.
var DefaultTriggers = []string{
	"this cv is tailored to",
	"this resume is tailored to",
	"this résumé is tailored to",
	"this cv has been tailored",
	"this resume has been tailored",
}

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

// Cleaner truncates text at the first blank-line-separated block containing
// a trigger phrase.
type Cleaner struct {
	Triggers []string
}

// NewCleaner lower-cases triggers and drops empty ones.
func NewCleaner(triggers []string) Cleaner {
	out := make([]string, 0, len(triggers))
	for _, t := range triggers {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return Cleaner{Triggers: out}
}

// Clean drops the first block holding a trigger and every block after it,
// then rejoins the rest with blank lines. Text without a trigger is returned
// unchanged.
func (c Cleaner) Clean(text string) string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	blocks := blankLine.Split(normalized, -1)
	cut := -1
	for i, b := range blocks {
		if c.matches(b) {
			cut = i
			break
		}
	}
	if cut < 0 {
		return text
	}
	kept := blocks[:cut]
	return strings.TrimRight(strings.Join(kept, "\n\n"), " \t\n")
}

// Removed reports how many bytes Clean would drop.
func (c Cleaner) Removed(text string) int {
	return len(text) - len(c.Clean(text))
}

func (c Cleaner) matches(block string) bool {
	lower := strings.ToLower(block)
	for _, t := range c.Triggers {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

var defaultCleaner = NewCleaner(DefaultTriggers)

// CleanResumeContent applies the default trigger set.
func CleanResumeContent(text string) string {
	return defaultCleaner.Clean(text)
}
