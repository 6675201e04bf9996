package branch

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VariantName identifies one speculative outcome of an action.
type VariantName string

const (
	VariantSuccess         VariantName = "success"
	VariantFailure         VariantName = "failure"
	VariantCriticalSuccess VariantName = "critical_success"
	VariantCriticalFailure VariantName = "critical_failure"
)

// Plain maps a critical outcome to its plain counterpart. Used when a
// resolved critical result was never generated.
func (v VariantName) Plain() VariantName {
	switch v {
	case VariantCriticalSuccess:
		return VariantSuccess
	case VariantCriticalFailure:
		return VariantFailure
	}
	return v
}

// Variant is one speculative outcome: narrative prose plus the ordered
// state deltas that make it true.
type Variant struct {
	Name              VariantName
	Narrative         string
	Deltas            []StateDelta
	TimePassedMinutes int
}

// Branch holds the speculative variants generated for one action. It lives
// only between generation and collapse; exactly one variant's effects
// survive.
type Branch struct {
	Variants map[VariantName]*Variant
}

// Pick returns the variant matching the resolved outcome, falling back
// from a critical result to its plain counterpart when the critical
// variant was never generated.
func (b *Branch) Pick(outcome VariantName) (*Variant, error) {
	if v, ok := b.Variants[outcome]; ok {
		return v, nil
	}
	if v, ok := b.Variants[outcome.Plain()]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("branch has no %q variant and no %q fallback", outcome, outcome.Plain())
}

// ParseError reports that an oracle response could not be parsed into the
// branch schema at all. This is always a hard failure requiring full
// regeneration, never a repair case.
type ParseError struct {
	Msg string
	Raw string
}

func (e *ParseError) Error() string {
	return "branch parse: " + e.Msg
}

// wire shapes for the oracle's branch response.
type rawVariant struct {
	Narrative         string     `json:"narrative"`
	StateDeltas       []rawDelta `json:"state_deltas,omitempty"`
	TimePassedMinutes int        `json:"time_passed_minutes"`
}

type rawBranch struct {
	Variants map[string]rawVariant `json:"variants"`
}

// ParseResponse decodes the oracle's raw response text into a Branch.
// The oracle frequently wraps its JSON in prose, so the first balanced
// JSON object is extracted before decoding.
func ParseResponse(raw string) (*Branch, error) {
	payload, ok := extractJSONObject(raw)
	if !ok {
		return nil, &ParseError{Msg: "no JSON object in response", Raw: raw}
	}

	var rb rawBranch
	if err := json.Unmarshal([]byte(payload), &rb); err != nil {
		return nil, &ParseError{Msg: err.Error(), Raw: raw}
	}
	if len(rb.Variants) == 0 {
		return nil, &ParseError{Msg: "response has no variants", Raw: raw}
	}

	b := &Branch{Variants: make(map[VariantName]*Variant, len(rb.Variants))}
	for name, rv := range rb.Variants {
		vn := VariantName(strings.ToLower(strings.TrimSpace(name)))
		switch vn {
		case VariantSuccess, VariantFailure, VariantCriticalSuccess, VariantCriticalFailure:
		default:
			return nil, &ParseError{Msg: fmt.Sprintf("unknown variant name %q", name), Raw: raw}
		}
		v := &Variant{
			Name:              vn,
			Narrative:         strings.TrimSpace(rv.Narrative),
			TimePassedMinutes: rv.TimePassedMinutes,
		}
		for _, rd := range rv.StateDeltas {
			d, err := decodeDelta(rd)
			if err != nil {
				return nil, &ParseError{Msg: fmt.Sprintf("variant %q: %v", name, err), Raw: raw}
			}
			v.Deltas = append(v.Deltas, d)
		}
		b.Variants[vn] = v
	}
	return b, nil
}

// Fallback builds the minimal safe branch substituted when the
// regeneration budget is exhausted: generic prose, zero deltas.
func Fallback(locationDisplay string) *Branch {
	narrative := "You pause and take stock of your surroundings. Nothing about the moment demands a decision just yet."
	if locationDisplay != "" {
		narrative = fmt.Sprintf("You pause in %s and take stock of your surroundings. Nothing about the moment demands a decision just yet.", locationDisplay)
	}
	return &Branch{
		Variants: map[VariantName]*Variant{
			VariantSuccess: {
				Name:              VariantSuccess,
				Narrative:         narrative,
				TimePassedMinutes: 1,
			},
		},
	}
}

// extractJSONObject returns the first balanced top-level JSON object in s.
// String contents are skipped so braces inside narrative text do not
// unbalance the scan.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
