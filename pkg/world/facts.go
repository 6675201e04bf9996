package world

import "strings"

// Fact categories form a closed set enforced by the store at commit time.
const (
	FactPersonal     = "personal"
	FactSecret       = "secret"
	FactPreference   = "preference"
	FactSkill        = "skill"
	FactHistory      = "history"
	FactRelationship = "relationship"
	FactLocation     = "location"
	FactWorld        = "world"
)

var validFactCategories = map[string]struct{}{
	FactPersonal:     {},
	FactSecret:       {},
	FactPreference:   {},
	FactSkill:        {},
	FactHistory:      {},
	FactRelationship: {},
	FactLocation:     {},
	FactWorld:        {},
}

// factCategoryAliases remaps common off-enum generator output.
var factCategoryAliases = map[string]string{
	"quest":      FactPersonal,
	"goal":       FactPersonal,
	"private":    FactSecret,
	"hidden":     FactSecret,
	"like":       FactPreference,
	"dislike":    FactPreference,
	"ability":    FactSkill,
	"past":       FactHistory,
	"event":      FactHistory,
	"social":     FactRelationship,
	"place":      FactLocation,
	"geography":  FactLocation,
	"lore":       FactWorld,
	"background": FactWorld,
}

// ValidFactCategory reports whether c is a member of the closed category set.
func ValidFactCategory(c string) bool {
	_, ok := validFactCategories[strings.ToLower(strings.TrimSpace(c))]
	return ok
}

// NormalizeFactCategory remaps an off-enum category to the nearest valid one,
// defaulting to personal. The second return reports whether a remap happened.
func NormalizeFactCategory(c string) (string, bool) {
	lc := strings.ToLower(strings.TrimSpace(c))
	if _, ok := validFactCategories[lc]; ok {
		return lc, false
	}
	if mapped, ok := factCategoryAliases[lc]; ok {
		return mapped, true
	}
	return FactPersonal, true
}

// Fact is one recorded statement about a subject entity.
type Fact struct {
	SubjectKey string `json:"subject_key"`
	Predicate  string `json:"predicate"`
	Value      string `json:"value"`
	Category   string `json:"category"`
}
