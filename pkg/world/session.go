package world

import (
	"time"

	"github.com/google/uuid"
)

// Session is the per-playthrough header: where the player is, what time
// it is, and how many turns have been committed. Entity, item, location,
// fact, and need records are stored under the session separately.
type Session struct {
	ID            uuid.UUID `json:"id"`
	ScenarioName  string    `json:"scenario_name,omitempty"`
	LocationKey   string    `json:"location_key"`
	Clock         Clock     `json:"clock"`
	ContentRating string    `json:"content_rating,omitempty"`
	TurnCount     int       `json:"turn_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
