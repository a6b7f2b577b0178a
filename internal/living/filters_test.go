package living

import (
	"strings"
	"testing"

	"github.com/ashureev/edem-agent/internal/domain"
)

type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(n int) int   { return r.n % n }

func TestWoundFilter_IdentityWithoutWound(t *testing.T) {
	w := NewWoundFilter("  ")
	if got := w.Tint("текст"); got != "текст" {
		t.Fatalf("expected identity, got %q", got)
	}
}

func TestWoundFilter_AppendsSingleFooter(t *testing.T) {
	w := NewWoundFilter("Одиночество")
	got := w.Tint("ответ")
	if !strings.HasPrefix(got, "ответ\n\n(") {
		t.Fatalf("expected footer after blank line, got %q", got)
	}
	if strings.Count(got, "\n\n") != 1 {
		t.Fatalf("expected exactly one footer block, got %q", got)
	}
	if !strings.Contains(got, "одиночество") {
		t.Fatalf("expected lowercased wound in footer, got %q", got)
	}
}

func TestMyth_SystemAndSet(t *testing.T) {
	m := NewMyth(domain.MythContext{Fear: "темнота"})
	if m.Get().Origin != DefaultMyth.Origin {
		t.Fatalf("blank origin must fall back to default")
	}

	desire := "свет"
	m.Set(domain.MythPatch{Desire: &desire})
	got := m.Get()
	if got.Fear != "темнота" || got.Desire != "свет" {
		t.Fatalf("unexpected myth after set: %+v", got)
	}

	lines := strings.Split(m.System(), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected three labelled lines, got %q", m.System())
	}
	if !strings.HasSuffix(lines[1], "темнота") || !strings.HasSuffix(lines[2], "свет") {
		t.Fatalf("unexpected system text %q", m.System())
	}
}

func TestDeviator_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		phase domain.Phase
		draw  float64
		want  bool
	}{
		{domain.PhaseRupture, 0.249, true},
		{domain.PhaseRupture, 0.25, false},
		{domain.PhaseEclipse, 0.149, true},
		{domain.PhaseGrowth, 0.12, false},
		{domain.PhaseReflection, 0.079, true},
		{domain.PhaseRest, 0.04, false},
		{domain.PhaseRest, 0.039, true},
	}
	for _, tt := range tests {
		d := NewDeviator(fixedRand{f: tt.draw})
		if got := d.ShouldDeviate(tt.phase); got != tt.want {
			t.Errorf("%s draw=%v: expected %v, got %v", tt.phase, tt.draw, tt.want, got)
		}
	}
}

func TestDeviator_RestRateIsAboutFourPercent(t *testing.T) {
	d := NewDeviator(NewSeededRand(42))
	const n = 100000
	hits := 0
	for i := 0; i < n; i++ {
		if d.ShouldDeviate(domain.PhaseRest) {
			hits++
		}
	}
	rate := float64(hits) / n
	if rate < 0.035 || rate > 0.045 {
		t.Fatalf("expected rate near 0.04, got %v", rate)
	}
}

func TestNewSeededRand_Deterministic(t *testing.T) {
	a, b := NewSeededRand(7), NewSeededRand(7)
	for i := 0; i < 10; i++ {
		if a.Float64() != b.Float64() {
			t.Fatal("same seed produced different sequences")
		}
	}
}

func TestSilence_PicksStaticResponse(t *testing.T) {
	for i := range silenceResponses {
		if got := Silence(fixedRand{n: i}); got != silenceResponses[i] {
			t.Errorf("expected %q, got %q", silenceResponses[i], got)
		}
	}
}
