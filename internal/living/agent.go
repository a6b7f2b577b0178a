package living

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/edem-agent/internal/domain"
	"github.com/ashureev/edem-agent/internal/generator"
)

var (
	// ErrGeneration wraps any failure of the text generator during a turn.
	ErrGeneration = errors.New("generation failed")
	// ErrEmptyMessage is returned for a blank user message.
	ErrEmptyMessage = errors.New("message is empty")
)

// GroundingMessage is returned to the user when generation fails.
const GroundingMessage = "Я рядом. Слова сейчас не складываются, " +
	"поэтому давай просто сделаем один медленный вдох и выдох вместе."

var exitSymbols = []string{
	"Сделай медленный вдох и почувствуй, как воздух наполняет грудь.",
	"Почувствуй опору под ногами. Ты здесь.",
	"Назови про себя три предмета, которые видишь прямо сейчас.",
	"Положи ладонь на сердце и побудь так несколько секунд.",
}

var silenceResponses = []string{
	"…",
	"Я здесь. Можно просто помолчать вместе.",
	"Тишина тоже бывает ответом.",
}

// Silence returns one of the static responses for an empty turn.
func Silence(r Rand) string {
	if r == nil {
		r = DefaultRand()
	}
	return pick(r, silenceResponses)
}

// ExitSymbol returns one of the grounding prompts attached to every turn.
func ExitSymbol(r Rand) string {
	if r == nil {
		r = DefaultRand()
	}
	return pick(r, exitSymbols)
}

// Agent is the live, mutable state of one user's agent plus the
// collaborators it needs for a turn.
type Agent struct {
	memory   *Memory
	phase    *PhaseEngine
	myth     *Myth
	wound    WoundFilter
	deviator Deviator
	rand     Rand
	gen      generator.Generator
	now      func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithRand sets the random source for deviation and exit symbols.
func WithRand(r Rand) Option {
	return func(a *Agent) {
		if r != nil {
			a.rand = r
		}
	}
}

// WithWound sets the wound used to tint every response.
func WithWound(wound string) Option {
	return func(a *Agent) { a.wound = NewWoundFilter(wound) }
}

// WithMyth overrides the starting myth of a fresh agent.
func WithMyth(ctx domain.MythContext) Option {
	return func(a *Agent) { a.myth = NewMyth(ctx) }
}

// WithClock sets the time source used for snapshots.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

// New returns a fresh agent that generates text with gen.
func New(gen generator.Generator, opts ...Option) *Agent {
	a := &Agent{
		memory: NewMemory(domain.MemoryState{}),
		phase:  NewPhaseEngine(),
		myth:   NewMyth(domain.MythContext{}),
		rand:   DefaultRand(),
		gen:    gen,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.deviator = NewDeviator(a.rand)
	return a
}

// Restore rebuilds an agent from a snapshot. The snapshot's myth takes
// precedence over WithMyth and is kept as stored, blank fields included,
// so a restored agent reports the same myth it was saved with.
func Restore(snap domain.AgentSnapshot, gen generator.Generator, opts ...Option) *Agent {
	a := New(gen, opts...)
	a.memory = NewMemory(snap.Memory)
	a.phase = RestorePhaseEngine(snap.Phase)
	a.myth = &Myth{ctx: snap.Myth}
	return a
}

// Turn runs one conversational turn. All state changes are staged and only
// committed once generation succeeded; on error the agent is unchanged and
// the returned error wraps ErrGeneration.
func (a *Agent) Turn(ctx context.Context, message string) (domain.TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return domain.TurnResult{}, ErrEmptyMessage
	}

	memory := a.memory.clone()
	phase := a.phase.clone()

	memory.Store(message)
	phase.Update(message)

	deviate := a.deviator.ShouldDeviate(phase.Phase())
	req := generator.Request{
		SystemBlocks: a.systemBlocks(memory, phase, deviate),
		User:         message,
	}

	text, err := a.gen.Generate(ctx, req)
	if err != nil {
		return domain.TurnResult{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	tinted := a.wound.Tint(text)
	Evolve(memory, phase, tinted)

	a.memory = memory
	a.phase = phase

	return domain.TurnResult{
		Response:   tinted,
		Phase:      phase.Phase(),
		Energy:     phase.Energy(),
		Trauma:     memory.Trauma(),
		ExitSymbol: ExitSymbol(a.rand),
	}, nil
}

func (a *Agent) systemBlocks(memory *Memory, phase *PhaseEngine, deviate bool) []string {
	blocks := []string{a.myth.System(), phase.PromptAnnotation()}
	if lines := memory.Context(); len(lines) > 0 {
		blocks = append(blocks, "Память:\n"+strings.Join(lines, "\n"))
	}
	if deviate {
		blocks = append(blocks, DeviationLicense)
	}
	return blocks
}

// SetArchetype records an archetype tag in the pattern list.
func (a *Agent) SetArchetype(archetype string) {
	a.memory.AddPattern("архетип: " + strings.TrimSpace(archetype))
}

// SetMyth merges patch into the agent's myth.
func (a *Agent) SetMyth(patch domain.MythPatch) { a.myth.Set(patch) }

// Myth returns the current myth.
func (a *Agent) Myth() domain.MythContext { return a.myth.Get() }

// Context returns the memory lines rendered into the prompt.
func (a *Agent) Context() []string { return a.memory.Context() }

// PhaseState returns a copy of the phase state.
func (a *Agent) PhaseState() domain.PhaseState { return a.phase.State() }

// MemoryState returns a copy of the memory state.
func (a *Agent) MemoryState() domain.MemoryState { return a.memory.State() }

// Trauma returns the trauma marker, or nil.
func (a *Agent) Trauma() *string { return a.memory.Trauma() }

// Snapshot captures the persistable state with a fresh timestamp.
func (a *Agent) Snapshot(userID string) domain.AgentSnapshot {
	return domain.AgentSnapshot{
		UserID:    userID,
		Memory:    a.memory.State(),
		Phase:     a.phase.State(),
		Myth:      a.myth.Get(),
		UpdatedAt: a.now().UTC(),
	}
}
