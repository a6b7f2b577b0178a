// Package domain contains core domain types for the edem agent service.
package domain

import (
	"time"
)

// Phase is the emotional register the agent currently tracks for a user.
type Phase string

const (
	PhaseReflection Phase = "reflection"
	PhaseGrowth     Phase = "growth"
	PhaseEclipse    Phase = "eclipse"
	PhaseRest       Phase = "rest"
	PhaseRupture    Phase = "rupture"
)

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseReflection, PhaseGrowth, PhaseEclipse, PhaseRest, PhaseRupture:
		return true
	}
	return false
}

// MemoryState is the serializable view of an agent's bounded memory.
//
// Trauma is a content flag that is rendered into future prompts. It is not
// the same thing as the wound tint applied to generated text after the fact;
// the two are deliberately kept independent.
type MemoryState struct {
	Surface  []string `json:"surface"`
	Patterns []string `json:"patterns"`
	Trauma   *string  `json:"trauma,omitempty"`
}

// Clone returns a deep copy of the memory state.
func (m MemoryState) Clone() MemoryState {
	out := MemoryState{
		Surface:  append([]string(nil), m.Surface...),
		Patterns: append([]string(nil), m.Patterns...),
	}
	if m.Trauma != nil {
		t := *m.Trauma
		out.Trauma = &t
	}
	return out
}

// PhaseState holds the current phase and the fatigue scalar.
type PhaseState struct {
	Phase  Phase   `json:"phase"`
	Energy float64 `json:"energy"`
}

// MythContext is the narrative preamble of the agent.
type MythContext struct {
	Origin string `json:"origin" yaml:"origin"`
	Fear   string `json:"fear" yaml:"fear"`
	Desire string `json:"desire" yaml:"desire"`
}

// MythPatch is a partial update of a MythContext. Nil fields are left untouched.
type MythPatch struct {
	Origin *string `json:"origin,omitempty"`
	Fear   *string `json:"fear,omitempty"`
	Desire *string `json:"desire,omitempty"`
}

// AgentSnapshot is the persisted unit of an agent.
type AgentSnapshot struct {
	UserID    string      `json:"user_id"`
	Memory    MemoryState `json:"memory"`
	Phase     PhaseState  `json:"phase"`
	Myth      MythContext `json:"myth"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TurnResult is what a single conversational turn returns to the caller.
type TurnResult struct {
	Response   string  `json:"response"`
	Phase      Phase   `json:"phase"`
	Energy     float64 `json:"energy"`
	Trauma     *string `json:"trauma"`
	ExitSymbol string  `json:"exitSymbol"`
}

// AgentSummary is the listing view of a stored agent.
type AgentSummary struct {
	UserID    string    `json:"user_id"`
	Phase     Phase     `json:"phase"`
	Energy    float64   `json:"energy"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedAt time.Time `json:"created_at"`
}
