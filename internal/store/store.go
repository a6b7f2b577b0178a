// Package store provides persistence for agent snapshots.
package store

import (
	"context"
	"time"

	"github.com/ashureev/edem-agent/internal/domain"
)

// Repository defines the interface for persisting agent snapshots.
type Repository interface {
	// GetAgent retrieves the snapshot for a user. It returns (nil, nil) when
	// the user has no stored agent and ErrCorruptSnapshot when the stored
	// bytes cannot be decoded.
	GetAgent(ctx context.Context, userID string) (*domain.AgentSnapshot, error)

	// PutAgent creates or replaces the snapshot for snap.UserID.
	PutAgent(ctx context.Context, snap *domain.AgentSnapshot) error

	// DeleteAgent removes a user's snapshot. It reports whether a row existed.
	DeleteAgent(ctx context.Context, userID string) (bool, error)

	// ListAgents returns stored agents, most recently updated first.
	ListAgents(ctx context.Context, limit int) ([]domain.AgentSummary, error)

	// CleanupStaleAgents removes snapshots not updated within ttl.
	CleanupStaleAgents(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
