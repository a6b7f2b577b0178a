package living

import (
	"math"
	"strings"
	"testing"

	"github.com/ashureev/edem-agent/internal/domain"
)

func TestPhaseEngine_InitialState(t *testing.T) {
	p := NewPhaseEngine()
	if p.Phase() != domain.PhaseReflection || p.Energy() != MaxEnergy {
		t.Fatalf("unexpected initial state: %+v", p.State())
	}
}

func TestPhaseEngine_KeywordTransitions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  domain.Phase
	}{
		{"loss wins over understanding", "я понял, что потерял", domain.PhaseEclipse},
		{"understanding", "теперь я понимаю", domain.PhaseGrowth},
		{"no keyword keeps phase", "привет", domain.PhaseReflection},
		{"case insensitive", "Я ПОТЕРЯЛСЯ", domain.PhaseEclipse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPhaseEngine()
			p.Update(tt.input)
			if p.Phase() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, p.Phase())
			}
		})
	}
}

func TestPhaseEngine_EnergyDecay(t *testing.T) {
	p := NewPhaseEngine()
	p.Update(strings.Repeat("a", 40))
	if math.Abs(p.Energy()-0.9) > 1e-9 {
		t.Fatalf("expected energy 0.9, got %v", p.Energy())
	}

	p = NewPhaseEngine()
	p.Update(strings.Repeat("a", 4000))
	if math.Abs(p.Energy()-0.8) > 1e-9 {
		t.Fatalf("decay must be capped at 0.2, got energy %v", p.Energy())
	}
}

func TestPhaseEngine_EnergyCountsRunes(t *testing.T) {
	p := NewPhaseEngine()
	p.Update(strings.Repeat("ж", 40))
	if math.Abs(p.Energy()-0.9) > 1e-9 {
		t.Fatalf("expected rune-based decay to 0.9, got %v", p.Energy())
	}
}

func TestPhaseEngine_EnergyMonotonicAndBounded(t *testing.T) {
	p := NewPhaseEngine()
	for i := 0; i < 50; i++ {
		before := p.Energy()
		p.Update(strings.Repeat("x", i*13))
		if p.Energy() > before {
			t.Fatalf("energy increased within update: %v -> %v", before, p.Energy())
		}
		if p.Energy() < MinEnergy || p.Energy() > MaxEnergy {
			t.Fatalf("energy out of bounds: %v", p.Energy())
		}
	}
}

func TestPhaseEngine_RestOverridesKeywords(t *testing.T) {
	p := RestorePhaseEngine(domain.PhaseState{Phase: domain.PhaseGrowth, Energy: 0.35})
	p.Update("я потерял всё, что у меня было, и не знаю, куда идти")
	if p.Energy() >= 0.3 {
		t.Fatalf("test setup: expected energy below 0.3, got %v", p.Energy())
	}
	if p.Phase() != domain.PhaseRest {
		t.Fatalf("expected rest to override eclipse, got %s", p.Phase())
	}
}

func TestPhaseEngine_DecayEnergyClamps(t *testing.T) {
	p := RestorePhaseEngine(domain.PhaseState{Phase: domain.PhaseEclipse, Energy: 0.15})
	p.DecayEnergy(0.1)
	if p.Energy() != MinEnergy {
		t.Fatalf("expected floor %v, got %v", MinEnergy, p.Energy())
	}
	if p.Phase() != domain.PhaseEclipse {
		t.Fatalf("DecayEnergy must not change phase, got %s", p.Phase())
	}
}

func TestRestorePhaseEngine_Normalizes(t *testing.T) {
	p := RestorePhaseEngine(domain.PhaseState{Phase: "bogus", Energy: 7})
	if p.Phase() != domain.PhaseReflection || p.Energy() != MaxEnergy {
		t.Fatalf("unexpected normalized state: %+v", p.State())
	}
}

func TestPhaseEngine_PromptAnnotation(t *testing.T) {
	p := RestorePhaseEngine(domain.PhaseState{Phase: domain.PhaseEclipse, Energy: 0.456})
	got := p.PromptAnnotation()
	if got != "[фаза: eclipse | энергия: 0.46]" {
		t.Fatalf("unexpected annotation %q", got)
	}
}
