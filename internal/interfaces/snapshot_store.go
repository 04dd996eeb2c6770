package interfaces

import (
	"context"

	"nihilism/server/internal/models"
)

// SnapshotStore defines durable keyed storage of player snapshots
type SnapshotStore interface {
	// Put stores a snapshot of the player, replacing any previous one
	Put(ctx context.Context, player *models.Player) error

	// Get returns a freshly decoded player for the id
	Get(ctx context.Context, playerID string) (*models.Player, error)

	// List returns the ids of all saved players
	List(ctx context.Context) ([]string, error)

	// Delete removes a saved player. Deleting an unknown id is not an error
	Delete(ctx context.Context, playerID string) error

	// Close releases the underlying connection
	Close() error
}
