package tags

import (
	"regexp"
	"strings"
)

// Max is the most tags a task may carry.
const Max = 10

var validTag = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Normalize trims, lowercases and deduplicates tag names, drops entries that
// are not [a-z0-9_-]+ and caps the result at Max, preserving first-occurrence
// order. Invalid entries are dropped silently. Normalizing an already
// normalized list returns it unchanged.
func Normalize(input []string) []string {
	seen := make(map[string]struct{}, len(input))
	result := make([]string, 0, len(input))
	for _, raw := range input {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if !validTag.MatchString(tag) {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
		if len(result) == Max {
			break
		}
	}
	return result
}

// Valid reports whether a single already-trimmed tag would survive Normalize.
func Valid(tag string) bool {
	return validTag.MatchString(strings.ToLower(strings.TrimSpace(tag)))
}
