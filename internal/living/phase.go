package living

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/edem-agent/internal/domain"
)

const (
	MinEnergy = 0.1
	MaxEnergy = 1.0

	restThreshold = 0.3
	maxDecay      = 0.2
	decayDivisor  = 400.0
)

var (
	lossKeywords          = []string{"потер", "lost", "loss"}
	understandingKeywords = []string{"понима", "понял", "осозна"}
)

// PhaseEngine tracks the phase and energy of one agent. It is the only
// owner of PhaseState; outside code changes energy through DecayEnergy.
type PhaseEngine struct {
	state domain.PhaseState
}

// NewPhaseEngine returns an engine in the initial state.
func NewPhaseEngine() *PhaseEngine {
	return &PhaseEngine{state: domain.PhaseState{Phase: domain.PhaseReflection, Energy: MaxEnergy}}
}

// RestorePhaseEngine rebuilds an engine from persisted state, normalizing
// unknown phases and out-of-range energy.
func RestorePhaseEngine(state domain.PhaseState) *PhaseEngine {
	if !state.Phase.Valid() {
		state.Phase = domain.PhaseReflection
	}
	state.Energy = clampEnergy(state.Energy)
	return &PhaseEngine{state: state}
}

// Update applies the keyword transition and the fatigue decay for one input.
// Fatigue wins: below the rest threshold the phase is rest regardless of
// what the keywords said.
func (p *PhaseEngine) Update(input string) {
	lower := strings.ToLower(input)
	switch {
	case containsAny(lower, lossKeywords):
		p.state.Phase = domain.PhaseEclipse
	case containsAny(lower, understandingKeywords):
		p.state.Phase = domain.PhaseGrowth
	}

	decay := min(maxDecay, float64(utf8.RuneCountInString(input))/decayDivisor)
	p.state.Energy = clampEnergy(p.state.Energy - decay)

	if p.state.Energy < restThreshold {
		p.state.Phase = domain.PhaseRest
	}
}

// DecayEnergy lowers energy by amount, never below MinEnergy. The phase is
// left as is.
func (p *PhaseEngine) DecayEnergy(amount float64) {
	if amount <= 0 {
		return
	}
	p.state.Energy = clampEnergy(p.state.Energy - amount)
}

// Phase returns the current phase.
func (p *PhaseEngine) Phase() domain.Phase { return p.state.Phase }

// Energy returns the current energy.
func (p *PhaseEngine) Energy() float64 { return p.state.Energy }

// State returns a copy of the phase state.
func (p *PhaseEngine) State() domain.PhaseState { return p.state }

// PromptAnnotation renders the state as a single bracketed prompt line.
func (p *PhaseEngine) PromptAnnotation() string {
	return fmt.Sprintf("[фаза: %s | энергия: %.2f]", p.state.Phase, p.state.Energy)
}

func (p *PhaseEngine) clone() *PhaseEngine {
	return &PhaseEngine{state: p.state}
}

func clampEnergy(v float64) float64 {
	return min(MaxEnergy, max(MinEnergy, v))
}
