// Package cli implements the edemctl operator commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/edem-agent/internal/agent"
	"github.com/ashureev/edem-agent/internal/config"
	"github.com/ashureev/edem-agent/internal/generator"
	"github.com/ashureev/edem-agent/internal/living"
	"github.com/ashureev/edem-agent/internal/store"
)

type rootOptions struct {
	dbPath string
}

// NewRootCmd builds the edemctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "edemctl",
		Short:         "Inspect and talk to edem living agents",
		Long:          "edemctl runs turns against the agent database directly and inspects stored agents.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVarP(&opts.dbPath, "db", "d", "", "Database path (default: $DB_PATH or ./data/edem.db)")

	root.AddCommand(
		newTurnCmd(opts),
		newShowCmd(opts),
		newArchetypeCmd(opts),
		newMythCmd(opts),
		newResetCmd(opts),
		newSilenceCmd(opts),
		newListCmd(opts),
	)
	return root
}

// runtime is the service stack a single command runs against.
type runtime struct {
	service *agent.Service
	repo    *store.SQLiteStore
	backend *generator.Backend
}

func (r *runtime) Close() error {
	genErr := r.backend.Close()
	if err := r.repo.Close(); err != nil {
		return err
	}
	return genErr
}

func openRuntime(cmd *cobra.Command, opts *rootOptions) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}

	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))

	myth, err := config.LoadMyth(cfg.Agent.MythFile)
	if err != nil {
		return nil, err
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	backend, err := generator.NewFromConfig(cmd.Context(), cfg.Generator, logger)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("init generator: %w", err)
	}

	var rnd living.Rand
	if cfg.Agent.RandomSeed != 0 {
		rnd = living.NewSeededRand(uint64(cfg.Agent.RandomSeed))
	}

	return &runtime{
		service: agent.NewService(repo, backend, agent.ServiceOptions{
			Wound:             cfg.Agent.Wound,
			Myth:              myth,
			GenerationTimeout: cfg.Generator.Timeout,
			Rand:              rnd,
			Logger:            logger,
		}),
		repo:    repo,
		backend: backend,
	}, nil
}

// withRuntime opens the service stack, runs fn and closes the stack.
func withRuntime(cmd *cobra.Command, opts *rootOptions, fn func(*runtime) error) (err error) {
	rt, err := openRuntime(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(rt)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
