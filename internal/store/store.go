// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/quizmon/quizmon/internal/domain"
)

// Repository defines persistence for users, the creature catalog, the
// evolution-edge table and the capture ledger.
type Repository interface {
	// GetUser retrieves a user by their user ID. Returns nil when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetCreature retrieves one catalog entry. Returns nil when absent.
	GetCreature(ctx context.Context, id int64) (*domain.Creature, error)

	// GetCreatures batch-fetches catalog entries keyed by id. Missing ids
	// are simply absent from the result map.
	GetCreatures(ctx context.Context, ids []int64) (map[int64]*domain.Creature, error)

	// ListBaseCreatures returns all creatures with no evolution predecessor,
	// the wild-encounter pool, ordered by id.
	ListBaseCreatures(ctx context.Context) ([]*domain.Creature, error)

	// Predecessors returns the direct predecessor ids of a creature,
	// ordered ascending.
	Predecessors(ctx context.Context, id int64) ([]int64, error)

	// SuccessorEdges batch-fetches all edges leaving any of the given ids.
	SuccessorEdges(ctx context.Context, fromIDs []int64) ([]domain.EvolutionEdge, error)

	// HasEdge reports whether a direct from→to evolution edge exists.
	HasEdge(ctx context.Context, fromID, toID int64) (bool, error)

	// RecordCapture inserts a ledger row for (user, creature, variant).
	// The insert is atomic and first-writer-wins: it reports true when this
	// call created the row and false when the triple already existed.
	RecordCapture(ctx context.Context, userID string, creatureID int64, variant domain.Variant) (bool, error)

	// HasCapture reports whether the user owns the given creature variant.
	HasCapture(ctx context.Context, userID string, creatureID int64, variant domain.Variant) (bool, error)

	// OwnedBaseCreatures returns which of the given creature ids the user
	// owns in the base variant.
	OwnedBaseCreatures(ctx context.Context, userID string, ids []int64) (map[int64]bool, error)

	// CountCaptures returns the number of ledger rows for a user.
	CountCaptures(ctx context.Context, userID string) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
