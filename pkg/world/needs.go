package world

import "strings"

// Need identifiers form a closed set mirrored by the store's need manager.
const (
	NeedHunger           = "hunger"
	NeedThirst           = "thirst"
	NeedStamina          = "stamina"
	NeedSleepPressure    = "sleep_pressure"
	NeedSocialConnection = "social_connection"
	NeedHygiene          = "hygiene"
)

// NeedMin and NeedMax bound every stored need value.
const (
	NeedMin = 0
	NeedMax = 100
)

var validNeeds = map[string]struct{}{
	NeedHunger:           {},
	NeedThirst:           {},
	NeedStamina:          {},
	NeedSleepPressure:    {},
	NeedSocialConnection: {},
	NeedHygiene:          {},
}

// activityNeeds maps need-satisfying activities to the need they satisfy.
// The generator contract requires this mapping rather than loose inference
// from display names.
var activityNeeds = map[string]string{
	"drink":    NeedThirst,
	"eat":      NeedHunger,
	"rest":     NeedStamina,
	"sleep":    NeedSleepPressure,
	"converse": NeedSocialConnection,
	"bathe":    NeedHygiene,
}

// ValidNeed reports whether id is a member of the closed need set.
func ValidNeed(id string) bool {
	_, ok := validNeeds[strings.ToLower(strings.TrimSpace(id))]
	return ok
}

// NeedForActivity resolves an activity verb to its need identifier.
func NeedForActivity(activity string) (string, bool) {
	need, ok := activityNeeds[strings.ToLower(strings.TrimSpace(activity))]
	return need, ok
}

// ClampNeed bounds a need or relationship value to [NeedMin, NeedMax].
func ClampNeed(v int) int {
	if v < NeedMin {
		return NeedMin
	}
	if v > NeedMax {
		return NeedMax
	}
	return v
}
