package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ashureev/edem-agent/internal/agent"
	"github.com/ashureev/edem-agent/internal/domain"
)

func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--db", dbPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsAgainstDatabase(t *testing.T) {
	t.Setenv("GENERATOR_PROVIDER", "rules")
	t.Setenv("MYTH_FILE", "")
	t.Setenv("AGENT_WOUND", "")
	dbPath := filepath.Join(t.TempDir(), "edem.db")

	out, err := run(t, dbPath, "turn", "--user", "cli-user", "привет,", "ты", "здесь?")
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	var turn agent.TurnResponse
	if err := json.Unmarshal([]byte(out), &turn); err != nil {
		t.Fatalf("turn output is not JSON: %v\n%s", err, out)
	}
	if turn.Response == "" || turn.TurnID == "" || turn.Degraded {
		t.Fatalf("unexpected turn %+v", turn)
	}

	if _, err := run(t, dbPath, "archetype", "--user", "cli-user", "странник"); err != nil {
		t.Fatalf("archetype failed: %v", err)
	}

	out, err = run(t, dbPath, "myth", "--user", "cli-user", "--fear", "забвение")
	if err != nil {
		t.Fatalf("myth failed: %v", err)
	}
	var myth domain.MythContext
	if err := json.Unmarshal([]byte(out), &myth); err != nil {
		t.Fatalf("myth output is not JSON: %v", err)
	}
	if myth.Fear != "забвение" || myth.Origin == "" {
		t.Fatalf("unexpected myth %+v", myth)
	}

	out, err = run(t, dbPath, "show", "--user", "cli-user")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	var snap domain.AgentSnapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("show output is not JSON: %v", err)
	}
	if snap.UserID != "cli-user" || len(snap.Memory.Surface) == 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !slices.Contains(snap.Memory.Patterns, "архетип: странник") {
		t.Fatalf("archetype missing from patterns %v", snap.Memory.Patterns)
	}
	if snap.Myth.Fear != "забвение" {
		t.Fatalf("myth not persisted: %+v", snap.Myth)
	}

	out, err = run(t, dbPath, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var agents []domain.AgentSummary
	if err := json.Unmarshal([]byte(out), &agents); err != nil {
		t.Fatalf("list output is not JSON: %v", err)
	}
	if len(agents) != 1 || agents[0].UserID != "cli-user" {
		t.Fatalf("unexpected list %+v", agents)
	}

	if _, err := run(t, dbPath, "reset", "--user", "cli-user"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if _, err := run(t, dbPath, "show", "--user", "cli-user"); !errors.Is(err, agent.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after reset, got %v", err)
	}
}

func TestTurnRequiresUser(t *testing.T) {
	t.Setenv("GENERATOR_PROVIDER", "rules")
	if _, err := run(t, filepath.Join(t.TempDir(), "edem.db"), "turn", "hello"); err == nil {
		t.Fatal("expected missing --user to fail")
	}
}

func TestMythRequiresAField(t *testing.T) {
	t.Setenv("GENERATOR_PROVIDER", "rules")
	_, err := run(t, filepath.Join(t.TempDir(), "edem.db"), "myth", "--user", "u1")
	if !errors.Is(err, agent.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSilence(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "edem.db"), "silence")
	if err != nil {
		t.Fatalf("silence failed: %v", err)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(out), &body); err != nil || body["response"] == "" {
		t.Fatalf("unexpected silence output %q (%v)", out, err)
	}
}
