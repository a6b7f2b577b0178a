package living

import (
	"math"
	"strings"
	"testing"

	"github.com/ashureev/edem-agent/internal/domain"
)

func TestEvolve_DontKnowOverwritesTrauma(t *testing.T) {
	m := NewMemory(domain.MemoryState{})
	m.Store("больно")
	Evolve(m, NewPhaseEngine(), "Честно, я не знаю.")
	if got := m.Trauma(); got == nil || *got != OrientationLossTrauma {
		t.Fatalf("expected orientation trauma, got %v", got)
	}
}

func TestEvolve_InsightGoesThroughCap(t *testing.T) {
	m := NewMemory(domain.MemoryState{})
	for i := 0; i < PatternCapacity; i++ {
		m.AddPattern("old")
	}
	Evolve(m, NewPhaseEngine(), "Кажется, я понял тебя.")
	state := m.State()
	if len(state.Patterns) != PatternCapacity {
		t.Fatalf("expected cap to hold, got %d", len(state.Patterns))
	}
	if state.Patterns[PatternCapacity-1] != ReflectionInsightTag {
		t.Fatalf("expected reflection tag last, got %v", state.Patterns)
	}
}

func TestEvolve_LongResponseCostsEnergy(t *testing.T) {
	p := RestorePhaseEngine(domain.PhaseState{Phase: domain.PhaseGrowth, Energy: 0.8})
	Evolve(NewMemory(domain.MemoryState{}), p, strings.Repeat("слово ", 60))
	if math.Abs(p.Energy()-0.7) > 1e-9 {
		t.Fatalf("expected energy 0.7, got %v", p.Energy())
	}

	p = RestorePhaseEngine(domain.PhaseState{Phase: domain.PhaseGrowth, Energy: 0.8})
	Evolve(NewMemory(domain.MemoryState{}), p, strings.Repeat("я", 280))
	if p.Energy() != 0.8 {
		t.Fatalf("exactly 280 runes must not cost energy, got %v", p.Energy())
	}
}
