package agent

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ashureev/edem-agent/internal/domain"
)

type fakeRepo struct {
	mu       sync.Mutex
	agents   map[string]domain.AgentSnapshot
	getErr   error
	putErr   error
	puts     int
	cleanups int
	cleanupN int64
	lastTTL  time.Duration
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{agents: make(map[string]domain.AgentSnapshot)}
}

func (f *fakeRepo) GetAgent(_ context.Context, userID string) (*domain.AgentSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	snap, ok := f.agents[userID]
	if !ok {
		return nil, nil
	}
	snap.Memory = snap.Memory.Clone()
	return &snap, nil
}

func (f *fakeRepo) PutAgent(_ context.Context, snap *domain.AgentSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	stored := *snap
	stored.Memory = snap.Memory.Clone()
	f.agents[snap.UserID] = stored
	return nil
}

func (f *fakeRepo) DeleteAgent(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.agents[userID]
	delete(f.agents, userID)
	return ok, nil
}

func (f *fakeRepo) ListAgents(_ context.Context, limit int) ([]domain.AgentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AgentSummary
	for _, snap := range f.agents {
		out = append(out, domain.AgentSummary{
			UserID:    snap.UserID,
			Phase:     snap.Phase.Phase,
			Energy:    snap.Phase.Energy,
			UpdatedAt: snap.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) CleanupStaleAgents(_ context.Context, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups++
	f.lastTTL = ttl
	return f.cleanupN, nil
}

func (f *fakeRepo) Ping(context.Context) error { return nil }
func (f *fakeRepo) Close() error               { return nil }

func (f *fakeRepo) stored(userID string) (domain.AgentSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.agents[userID]
	return snap, ok
}

func (f *fakeRepo) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

// fixedRand never deviates and always picks the first option.
type fixedRand struct{}

func (fixedRand) Float64() float64 { return 0.99 }
func (fixedRand) IntN(int) int     { return 0 }

type recordingLog struct {
	mu     sync.Mutex
	events []ConversationLogEvent
}

func (r *recordingLog) Log(e ConversationLogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingLog) Close() error { return nil }

func (r *recordingLog) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}
