package world

import (
	"regexp"
	"strings"
)

// Narrative entity references use the [key:display text] grammar. Keys are
// lower snake_case identifiers; display text is free prose shown to the
// player after stripping.
var (
	refPattern = regexp.MustCompile(`\[([a-z0-9_]+):([^\[\]]+)\]`)
	keyPattern = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// Ref is one parsed [key:display] reference.
type Ref struct {
	Key     string
	Display string
}

// ValidKey reports whether s is a legal entity key.
func ValidKey(s string) bool {
	return s != "" && keyPattern.MatchString(s)
}

// ParseRefs extracts every [key:display] reference from narrative text,
// in order of appearance.
func ParseRefs(text string) []Ref {
	matches := refPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]Ref, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, Ref{Key: m[1], Display: strings.TrimSpace(m[2])})
	}
	return refs
}

// StripRefs replaces every [key:display] reference with its display text.
func StripRefs(text string) string {
	return refPattern.ReplaceAllString(text, "$2")
}

// Slugify converts a display name to a legal snake_case key.
func Slugify(display string) string {
	var b strings.Builder
	prevUnderscore := true // suppress a leading underscore
	for _, r := range strings.ToLower(strings.TrimSpace(display)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
