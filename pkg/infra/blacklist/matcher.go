package blacklist

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// matchPhrases returns every phrase that appears in text as a whole word,
// case-insensitively, in sorted order. Phrases are regex-quoted so stored
// punctuation never turns into a pattern.
func matchPhrases(text string, phrases []string) ([]string, error) {
	var matched []string
	for _, phrase := range phrases {
		pattern := fmt.Sprintf(`(?i)\b%s\b`, regexp.QuoteMeta(phrase))
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile phrase pattern %q: %w", phrase, err)
		}
		if re.MatchString(text) {
			matched = append(matched, phrase)
		}
	}
	sort.Strings(matched)
	return matched, nil
}

func normalizePhrase(phrase string) string {
	return strings.ToLower(strings.TrimSpace(phrase))
}
