// Package agent runs per-user living agents behind HTTP and WebSocket
// transports and persists them between turns.
package agent

import (
	"errors"

	"github.com/ashureev/edem-agent/internal/domain"
)

var (
	// ErrInvalidRequest is returned for missing or malformed user input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound is returned when a user has no stored agent.
	ErrNotFound = errors.New("agent not found")
)

// TurnRequest is one user message addressed to the user's agent.
type TurnRequest struct {
	UserID    string `json:"userId"`
	Message   string `json:"message"`
	SessionID string `json:"-"`
}

// TurnResponse is the result of a turn. Degraded is set when generation
// failed and the grounding message was returned instead.
type TurnResponse struct {
	domain.TurnResult
	TurnID   string `json:"turnId"`
	Degraded bool   `json:"degraded,omitempty"`
}

// ArchetypeRequest sets an archetype tag on a user's agent.
type ArchetypeRequest struct {
	UserID    string `json:"userId"`
	Archetype string `json:"archetype"`
}
