package world

import "strings"

// PlayerKey is the reserved entity key for the player character.
const PlayerKey = "player"

// EntityType routes an entity to one of the store's sub-managers.
type EntityType string

const (
	EntityNPC      EntityType = "npc"
	EntityItem     EntityType = "item"
	EntityLocation EntityType = "location"
)

// entityTypeAliases maps common off-enum generator output to valid types.
var entityTypeAliases = map[string]EntityType{
	"npc":       EntityNPC,
	"character": EntityNPC,
	"person":    EntityNPC,
	"creature":  EntityNPC,
	"animal":    EntityNPC,
	"item":      EntityItem,
	"object":    EntityItem,
	"thing":     EntityItem,
	"prop":      EntityItem,
	"tool":      EntityItem,
	"location":  EntityLocation,
	"place":     EntityLocation,
	"area":      EntityLocation,
	"room":      EntityLocation,
}

// ParseEntityType resolves a raw string to a valid EntityType.
// Returns false if the value was not already a member of the enum.
func ParseEntityType(s string) (EntityType, bool) {
	et := EntityType(strings.ToLower(strings.TrimSpace(s)))
	switch et {
	case EntityNPC, EntityItem, EntityLocation:
		return et, true
	}
	return "", false
}

// NormalizeEntityType remaps an off-enum value to the nearest valid type,
// defaulting to item. The second return reports whether a remap happened.
func NormalizeEntityType(s string) (EntityType, bool) {
	if et, ok := ParseEntityType(s); ok {
		return et, false
	}
	if et, ok := entityTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return et, true
	}
	return EntityItem, true
}

// Entity is a persistent NPC or other actor in the world.
type Entity struct {
	Key         string     `json:"key"`
	DisplayName string     `json:"display_name"`
	Type        EntityType `json:"type"`
	Description string     `json:"description,omitempty"`
	Disposition string     `json:"disposition,omitempty"` // e.g. "hostile", "neutral", "friendly"
	State       string     `json:"state,omitempty"`       // transient condition, e.g. "sleeping"
	LocationKey string     `json:"location_key,omitempty"`
}

// Item is a persistent object with a holder. Holder is the player key,
// an NPC key, or a location key.
type Item struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	State       string `json:"state,omitempty"`
	HolderKey   string `json:"holder_key"`
}

// Location is a persistent place with exits to other locations.
type Location struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description,omitempty"`
	Exits       []string `json:"exits,omitempty"`
}
