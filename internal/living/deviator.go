package living

import "github.com/ashureev/edem-agent/internal/domain"

// deviationThresholds is the probability of granting the deviation license
// in each phase.
var deviationThresholds = map[domain.Phase]float64{
	domain.PhaseRupture:    0.25,
	domain.PhaseEclipse:    0.15,
	domain.PhaseGrowth:     0.12,
	domain.PhaseReflection: 0.08,
	domain.PhaseRest:       0.04,
}

// DeviationLicense is appended to the system prompt when the deviator fires.
const DeviationLicense = "Разрешение: ты можешь отступить от ожидаемого ответа, " +
	"если честный и заземляющий ответ важнее привычного."

// Deviator decides, per turn, whether the agent may answer against the
// expected pattern. It holds no state besides its random source.
type Deviator struct {
	rand Rand
}

// NewDeviator returns a deviator drawing from r.
func NewDeviator(r Rand) Deviator {
	if r == nil {
		r = DefaultRand()
	}
	return Deviator{rand: r}
}

// ShouldDeviate draws once and compares against the phase threshold.
func (d Deviator) ShouldDeviate(phase domain.Phase) bool {
	return d.rand.Float64() < deviationThresholds[phase]
}

// DeviationThreshold exposes the probability used for phase.
func DeviationThreshold(phase domain.Phase) float64 {
	return deviationThresholds[phase]
}
