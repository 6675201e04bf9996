package chat

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single message in an oracle conversation. The shape matches
// the chat APIs of the supported oracle backends.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnRequest is one player input submitted against a session.
type TurnRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	Input     string    `json:"input"`
}

// TurnReply is the resolved result of one turn.
type TurnReply struct {
	SessionID  uuid.UUID `json:"session_id"`
	TurnNumber int       `json:"turn_number,omitempty"`
	Narrative  string    `json:"narrative"`
	Location   string    `json:"location,omitempty"`
	GameTime   string    `json:"game_time,omitempty"`
	OOC        bool      `json:"ooc,omitempty"`
}

func (r *TurnRequest) Validate() error {
	if r.Input == "" {
		return fmt.Errorf("input cannot be empty")
	}
	return nil
}
