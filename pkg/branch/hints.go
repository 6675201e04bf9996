package branch

import (
	"strings"

	"github.com/sbstnppl/branch-engine/pkg/world"
)

// Lexical hints for inferring the entity type of a key the generator
// referenced but never created. Matching is by token, never substring, so
// "mug" does not fire on "smuggler".

var itemHintWords = map[string]struct{}{
	"mug": {}, "ale": {}, "beer": {}, "wine": {}, "bread": {}, "loaf": {},
	"key": {}, "coin": {}, "purse": {}, "sword": {}, "knife": {}, "dagger": {},
	"rope": {}, "lantern": {}, "torch": {}, "bottle": {}, "cup": {}, "flask": {},
	"apple": {}, "cheese": {}, "stew": {}, "cloak": {}, "boots": {}, "hat": {},
	"map": {}, "letter": {}, "note": {}, "book": {}, "scroll": {}, "ring": {},
	"bucket": {}, "shovel": {}, "axe": {}, "hammer": {},
}

var npcHintWords = map[string]struct{}{
	"patron": {}, "guard": {}, "traveler": {}, "merchant": {}, "trader": {},
	"barkeep": {}, "bartender": {}, "innkeeper": {}, "farmer": {}, "stranger": {},
	"woman": {}, "man": {}, "boy": {}, "girl": {}, "child": {}, "elder": {},
	"smith": {}, "blacksmith": {}, "priest": {}, "beggar": {}, "soldier": {},
	"captain": {}, "hunter": {}, "fisherman": {}, "baker": {}, "cook": {},
	"servant": {}, "maid": {}, "noble": {}, "drunk": {},
}

var locationHintWords = map[string]struct{}{
	"cellar": {}, "square": {}, "market": {}, "road": {}, "inn": {},
	"tavern": {}, "well": {}, "bridge": {}, "gate": {}, "field": {},
	"forest": {}, "mill": {}, "dock": {}, "harbor": {}, "temple": {},
	"alley": {}, "stable": {},
}

// inferEntityType guesses an entity type from the tokens of a key and its
// display text. The second return reports whether any hint matched.
func inferEntityType(key, display string) (world.EntityType, bool) {
	tokens := strings.Split(key, "_")
	tokens = append(tokens, strings.Fields(strings.ToLower(display))...)
	for _, tok := range tokens {
		if _, ok := npcHintWords[tok]; ok {
			return world.EntityNPC, true
		}
	}
	for _, tok := range tokens {
		if _, ok := itemHintWords[tok]; ok {
			return world.EntityItem, true
		}
	}
	for _, tok := range tokens {
		if _, ok := locationHintWords[tok]; ok {
			return world.EntityLocation, true
		}
	}
	return "", false
}

// displayFromKey derives a display name from a snake_case key.
func displayFromKey(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}
