package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ashureev/edem-agent/internal/domain"
	"github.com/ashureev/edem-agent/internal/shared"
)

const (
	writeAttempts  = 3
	writeBaseDelay = 100 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS agents (
		user_id TEXT PRIMARY KEY,
		snapshot BLOB NOT NULL,
		phase TEXT NOT NULL,
		energy REAL NOT NULL,
		updated_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_agents_updated ON agents(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetAgent retrieves the snapshot for a user.
func (s *SQLiteStore) GetAgent(ctx context.Context, userID string) (*domain.AgentSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT snapshot FROM agents WHERE user_id = ?`, userID)

	var blob []byte
	err := row.Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan agent row: %w", err)
	}

	return decodeSnapshot(userID, blob)
}

// PutAgent creates or replaces the snapshot. The upsert is a single
// statement, so readers never observe a partially written snapshot.
func (s *SQLiteStore) PutAgent(ctx context.Context, snap *domain.AgentSnapshot) error {
	if snap == nil || snap.UserID == "" {
		return fmt.Errorf("put agent: user id is required")
	}

	blob, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO agents (user_id, snapshot, phase, energy, updated_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		snapshot = excluded.snapshot,
		phase = excluded.phase,
		energy = excluded.energy,
		updated_at = excluded.updated_at`

	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}

	return shared.RetryOnConflict(ctx, "put agent", writeAttempts, writeBaseDelay, func() error {
		_, err := s.db.ExecContext(ctx, query,
			snap.UserID, blob, string(snap.Phase.Phase), snap.Phase.Energy,
			updatedAt.Unix(), s.now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert agent: %w", err)
		}
		return nil
	})
}

// DeleteAgent removes a user's snapshot.
func (s *SQLiteStore) DeleteAgent(ctx context.Context, userID string) (bool, error) {
	var rows int64
	err := shared.RetryOnConflict(ctx, "delete agent", writeAttempts, writeBaseDelay, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE user_id = ?`, userID)
		if err != nil {
			return fmt.Errorf("delete agent: %w", err)
		}
		rows, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ListAgents returns stored agents, most recently updated first. A limit of
// zero or less returns every row.
func (s *SQLiteStore) ListAgents(ctx context.Context, limit int) ([]domain.AgentSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT user_id, phase, energy, updated_at, created_at
		FROM agents ORDER BY updated_at DESC, user_id LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close agent rows", "error", closeErr)
		}
	}()

	var agents []domain.AgentSummary
	for rows.Next() {
		var summary domain.AgentSummary
		var phase string
		var updatedAt, createdAt int64
		if err := rows.Scan(&summary.UserID, &phase, &summary.Energy, &updatedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan agent summary: %w", err)
		}
		summary.Phase = domain.Phase(phase)
		summary.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		summary.CreatedAt = time.Unix(createdAt, 0).UTC()
		agents = append(agents, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}

	return agents, nil
}

// CleanupStaleAgents removes snapshots not updated within ttl.
func (s *SQLiteStore) CleanupStaleAgents(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := s.now().Add(-ttl).Unix()

	var removed int64
	err := shared.RetryOnConflict(ctx, "cleanup agents", writeAttempts, writeBaseDelay, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE updated_at < ?`, threshold)
		if err != nil {
			return fmt.Errorf("cleanup stale agents: %w", err)
		}
		removed, err = result.RowsAffected()
		return err
	})
	return removed, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
