package textfilter

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Words softened when a session runs at a family content rating. The
// narrator oracle is instructed about ratings too, but its output is
// untrusted, so the filter is applied to final narration regardless.
var strongLanguage = map[string]string{
	"fuck":     "fudge",
	"shit":     "shoot",
	"damn":     "dang",
	"goddamn":  "gosh-dang",
	"hell":     "heck",
	"ass":      "backside",
	"asshole":  "jerk",
	"bitch":    "jerk",
	"bastard":  "scoundrel",
	"bullshit": "nonsense",
	"dick":     "jerk",
	"prick":    "jerk",
	"piss":     "tick",
	"crap":     "crud",
	"whore":    "[censored]",
	"slut":     "[censored]",
}

// Ratings supported by session config.
const (
	RatingFamily   = "family"
	RatingStandard = "standard"
	RatingMature   = "mature"
)

// NarrativeFilter softens strong language in narration for sessions with
// a family content rating.
type NarrativeFilter struct {
	regexes map[string]*regexp.Regexp
}

// New creates a filter with pre-compiled word patterns.
func New() *NarrativeFilter {
	nf := &NarrativeFilter{regexes: make(map[string]*regexp.Regexp, len(strongLanguage))}
	for word := range strongLanguage {
		nf.regexes[word] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	}
	return nf
}

// Apply filters narration according to the session rating. Standard and
// mature ratings pass text through unchanged.
func (nf *NarrativeFilter) Apply(text, rating string) string {
	if !shouldFilter(rating) {
		return text
	}
	result := text
	for word, replacement := range strongLanguage {
		result = nf.regexes[word].ReplaceAllStringFunc(result, func(match string) string {
			return preserveCase(match, replacement)
		})
	}
	return result
}

func shouldFilter(rating string) bool {
	return strings.ToLower(strings.TrimSpace(rating)) == RatingFamily
}

// preserveCase applies the case pattern of the original word to the
// replacement.
func preserveCase(original, replacement string) string {
	if len(original) == 0 {
		return replacement
	}
	if strings.ToUpper(original) == original {
		return strings.ToUpper(replacement)
	}
	if strings.ToLower(original) == original {
		return strings.ToLower(replacement)
	}
	titleCaser := cases.Title(language.English)
	if titleCaser.String(strings.ToLower(original)) == original {
		return titleCaser.String(replacement)
	}
	result := make([]rune, 0, len(replacement))
	originalRunes := []rune(original)
	for i, r := range replacement {
		if i < len(originalRunes) && unicode.IsUpper(originalRunes[i]) {
			result = append(result, unicode.ToUpper(r))
		} else {
			result = append(result, unicode.ToLower(r))
		}
	}
	return string(result)
}
