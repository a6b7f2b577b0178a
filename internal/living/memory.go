package living

import (
	"fmt"
	"strings"

	"github.com/ashureev/edem-agent/internal/domain"
)

const (
	// SurfaceCapacity bounds the rolling log of raw inputs.
	SurfaceCapacity = 10
	// PatternCapacity bounds the extracted pattern list.
	PatternCapacity = 8

	contextSurfaceWindow = 5

	// DefaultTrauma is set the first time a distress trigger is seen.
	DefaultTrauma = "боль потери опоры"
	// InsightTag is recorded when the user voices an insight.
	InsightTag = "инсайт: пользователь что-то осознал"
)

var (
	insightKeywords = []string{"понял", "осознал"}
	traumaKeywords  = []string{"боль", "обнул", "теряю"}
)

// Memory is the bounded per-user memory buffer.
type Memory struct {
	surface  []string
	patterns []string
	trauma   *string
}

// NewMemory restores memory from state, trimming anything over capacity.
func NewMemory(state domain.MemoryState) *Memory {
	state = state.Clone()
	return &Memory{
		surface:  keepLast(state.Surface, SurfaceCapacity),
		patterns: keepLast(state.Patterns, PatternCapacity),
		trauma:   state.Trauma,
	}
}

// Store records a user message and runs the insight and trauma heuristics.
func (m *Memory) Store(message string) {
	m.surface = keepLast(append(m.surface, message), SurfaceCapacity)

	lower := strings.ToLower(message)
	if containsAny(lower, insightKeywords) {
		m.AddPattern(InsightTag)
	}
	if m.trauma == nil && containsAny(lower, traumaKeywords) {
		t := DefaultTrauma
		m.trauma = &t
	}
}

// AddPattern appends a tag, evicting the oldest once PatternCapacity is exceeded.
func (m *Memory) AddPattern(tag string) {
	m.patterns = keepLast(append(m.patterns, tag), PatternCapacity)
}

// SetTrauma overwrites the trauma marker. Nil clears it.
func (m *Memory) SetTrauma(value *string) {
	if value == nil {
		m.trauma = nil
		return
	}
	v := *value
	m.trauma = &v
}

// Trauma returns a copy of the trauma marker, or nil.
func (m *Memory) Trauma() *string {
	if m.trauma == nil {
		return nil
	}
	v := *m.trauma
	return &v
}

// Context returns the lines rendered into the prompt: the last few surface
// entries, every pattern, then a trauma warning when one is set.
func (m *Memory) Context() []string {
	start := max(0, len(m.surface)-contextSurfaceWindow)
	out := make([]string, 0, contextSurfaceWindow+len(m.patterns)+1)
	out = append(out, m.surface[start:]...)
	out = append(out, m.patterns...)
	if m.trauma != nil {
		out = append(out, fmt.Sprintf("⚠ травма: %s", *m.trauma))
	}
	return out
}

// State returns a deep copy of the memory.
func (m *Memory) State() domain.MemoryState {
	return domain.MemoryState{
		Surface:  append([]string{}, m.surface...),
		Patterns: append([]string{}, m.patterns...),
		Trauma:   m.Trauma(),
	}
}

func (m *Memory) clone() *Memory {
	return NewMemory(m.State())
}

func keepLast(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return append([]string(nil), items[len(items)-n:]...)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
