package living

import (
	"strings"
	"unicode/utf8"
)

const (
	// OrientationLossTrauma replaces any trauma when the agent admits it does not know.
	OrientationLossTrauma = "fear: loss of orientation"
	// ReflectionInsightTag is recorded when the agent itself voices an insight.
	ReflectionInsightTag = "инсайт: агент что-то понял в разговоре"

	longResponseRunes  = 280
	longResponseEnergy = 0.1
)

// Evolve mutates memory and phase from the text the agent just produced.
func Evolve(memory *Memory, phase *PhaseEngine, response string) {
	lower := strings.ToLower(response)

	if strings.Contains(lower, "не знаю") {
		t := OrientationLossTrauma
		memory.SetTrauma(&t)
	}
	if strings.Contains(lower, "я понял") || strings.Contains(lower, "я поняла") {
		memory.AddPattern(ReflectionInsightTag)
	}
	if utf8.RuneCountInString(response) > longResponseRunes {
		phase.DecayEnergy(longResponseEnergy)
	}
}
