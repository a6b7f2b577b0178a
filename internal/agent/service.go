package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ashureev/edem-agent/internal/domain"
	"github.com/ashureev/edem-agent/internal/generator"
	"github.com/ashureev/edem-agent/internal/identity"
	"github.com/ashureev/edem-agent/internal/living"
	"github.com/ashureev/edem-agent/internal/store"
)

const defaultGenerationTimeout = 25 * time.Second

// ServiceOptions configures a Service. Zero values select defaults.
type ServiceOptions struct {
	Wound             string
	Myth              domain.MythContext
	GenerationTimeout time.Duration
	Rand              living.Rand
	ConversationLog   ConversationLogger
	Logger            *slog.Logger
	Now               func() time.Time
}

// Service loads, runs and persists living agents. Turns for the same user
// are serialized; different users proceed in parallel.
type Service struct {
	repo    store.Repository
	gen     generator.Generator
	locks   *userLocks
	wound   string
	myth    domain.MythContext
	timeout time.Duration
	rand    living.Rand
	log     ConversationLogger
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a service over repo that generates text with gen.
func NewService(repo store.Repository, gen generator.Generator, opts ServiceOptions) *Service {
	s := &Service{
		repo:    repo,
		gen:     gen,
		locks:   newUserLocks(),
		wound:   opts.Wound,
		myth:    opts.Myth,
		timeout: opts.GenerationTimeout,
		rand:    opts.Rand,
		log:     opts.ConversationLog,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if s.timeout <= 0 {
		s.timeout = defaultGenerationTimeout
	}
	if s.rand == nil {
		s.rand = living.DefaultRand()
	}
	if s.log == nil {
		s.log = noopConversationLogger{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) agentOptions() []living.Option {
	return []living.Option{
		living.WithRand(s.rand),
		living.WithWound(s.wound),
		living.WithMyth(s.myth),
		living.WithClock(s.now),
	}
}

// load returns the user's agent, or a fresh one when none is stored. A
// snapshot that cannot be decoded is an error, never a silent reset.
func (s *Service) load(ctx context.Context, userID string) (*living.Agent, error) {
	snap, err := s.repo.GetAgent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load agent %s: %w", userID, err)
	}
	if snap == nil {
		return living.New(s.gen, s.agentOptions()...), nil
	}
	return living.Restore(*snap, s.gen, s.agentOptions()...), nil
}

func (s *Service) save(ctx context.Context, userID string, a *living.Agent) error {
	snap := a.Snapshot(userID)
	if err := s.repo.PutAgent(ctx, &snap); err != nil {
		return fmt.Errorf("save agent %s: %w", userID, err)
	}
	return nil
}

func validUserID(raw string) (string, error) {
	userID, ok := identity.NormalizeUserID(raw)
	if !ok {
		return "", fmt.Errorf("%w: userId is required and must be a simple identifier", ErrInvalidRequest)
	}
	return userID, nil
}

func (s *Service) newTurnID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), ulid.DefaultEntropy()).String()
}

// Turn runs one conversational turn for req.UserID and persists the result.
// When generation fails or times out the grounding message is returned with
// the pre-turn phase, energy and trauma, and nothing is persisted.
func (s *Service) Turn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	userID, err := validUserID(req.UserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	a, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	turnID := s.newTurnID()
	s.logEvent(userID, req.SessionID, turnID, "user_message", req.Message, nil)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	result, err := a.Turn(genCtx, req.Message)
	cancel()

	if err != nil {
		if !errors.Is(err, living.ErrGeneration) {
			return nil, err
		}
		s.logger.Warn("Generation failed, returning grounding response",
			"user_id", userID,
			"turn_id", turnID,
			"error", err)

		phase := a.PhaseState()
		resp := &TurnResponse{
			TurnResult: domain.TurnResult{
				Response:   living.GroundingMessage,
				Phase:      phase.Phase,
				Energy:     phase.Energy,
				Trauma:     a.Trauma(),
				ExitSymbol: living.ExitSymbol(s.rand),
			},
			TurnID:   turnID,
			Degraded: true,
		}
		s.logEvent(userID, req.SessionID, turnID, "grounding_message", resp.Response, map[string]any{
			"error": err.Error(),
		})
		return resp, nil
	}

	if err := s.save(ctx, userID, a); err != nil {
		return nil, err
	}

	s.logger.Info("Turn completed",
		"user_id", userID,
		"turn_id", turnID,
		"phase", result.Phase,
		"energy", result.Energy,
		"traumatized", result.Trauma != nil)
	s.logEvent(userID, req.SessionID, turnID, "agent_message", result.Response, map[string]any{
		"phase":       result.Phase,
		"energy":      result.Energy,
		"exit_symbol": result.ExitSymbol,
	})

	return &TurnResponse{TurnResult: result, TurnID: turnID}, nil
}

// SetArchetype records an archetype tag on the user's agent, creating the
// agent if needed.
func (s *Service) SetArchetype(ctx context.Context, req ArchetypeRequest) error {
	userID, err := validUserID(req.UserID)
	if err != nil {
		return err
	}
	archetype := strings.TrimSpace(req.Archetype)
	if archetype == "" {
		return fmt.Errorf("%w: archetype is required", ErrInvalidRequest)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	a, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	a.SetArchetype(archetype)
	if err := s.save(ctx, userID, a); err != nil {
		return err
	}

	s.logger.Info("Archetype set", "user_id", userID, "archetype", archetype)
	return nil
}

// Silence returns one of the static responses for an empty turn.
func (s *Service) Silence() string {
	return living.Silence(s.rand)
}

// Snapshot returns the stored snapshot of a user's agent or ErrNotFound.
func (s *Service) Snapshot(ctx context.Context, userID string) (*domain.AgentSnapshot, error) {
	userID, err := validUserID(userID)
	if err != nil {
		return nil, err
	}
	snap, err := s.repo.GetAgent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load agent %s: %w", userID, err)
	}
	if snap == nil {
		return nil, ErrNotFound
	}
	return snap, nil
}

// Reset deletes a user's agent. The next turn starts from a fresh one.
func (s *Service) Reset(ctx context.Context, userID string) error {
	userID, err := validUserID(userID)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	existed, err := s.repo.DeleteAgent(ctx, userID)
	if err != nil {
		return fmt.Errorf("reset agent %s: %w", userID, err)
	}
	if !existed {
		return ErrNotFound
	}
	s.logger.Info("Agent reset", "user_id", userID)
	return nil
}

// SetMyth applies patch to the user's myth and returns the result.
func (s *Service) SetMyth(ctx context.Context, userID string, patch domain.MythPatch) (domain.MythContext, error) {
	userID, err := validUserID(userID)
	if err != nil {
		return domain.MythContext{}, err
	}
	if patch.Origin == nil && patch.Fear == nil && patch.Desire == nil {
		return domain.MythContext{}, fmt.Errorf("%w: at least one of origin, fear, desire is required", ErrInvalidRequest)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	a, err := s.load(ctx, userID)
	if err != nil {
		return domain.MythContext{}, err
	}
	a.SetMyth(patch)
	if err := s.save(ctx, userID, a); err != nil {
		return domain.MythContext{}, err
	}
	return a.Myth(), nil
}

// List returns stored agents, most recently active first.
func (s *Service) List(ctx context.Context, limit int) ([]domain.AgentSummary, error) {
	agents, err := s.repo.ListAgents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return agents, nil
}

func (s *Service) logEvent(userID, sessionID, turnID, eventType, content string, meta map[string]any) {
	direction := "inbound"
	if eventType != "user_message" {
		direction = "outbound"
	}
	s.log.Log(ConversationLogEvent{
		Timestamp:  s.now().UTC().Format(time.RFC3339Nano),
		UserID:     userID,
		SessionID:  sessionID,
		TurnID:     turnID,
		Channel:    "turn",
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Meta:       meta,
	})
}
