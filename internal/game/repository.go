package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/models"
)

// Repository loads and saves the single mutable record of each game.
type Repository interface {
	// FindActive returns the owner's playing or dealer_turn game, or nil when there is none.
	FindActive(ctx context.Context, owner uuid.UUID) (*models.Game, error)

	// FindOwned returns the game only if it exists, belongs to owner, and has the given status.
	// Every other case is ErrGameNotFound.
	FindOwned(ctx context.Context, owner, id uuid.UUID, status models.Status) (*models.Game, error)

	// Save inserts a game with Version 0 and otherwise updates it only if the stored version
	// still equals g.Version. On success g.Version is advanced.
	Save(ctx context.Context, g *models.Game) error

	// ListFinished returns up to limit finished games, newest first.
	ListFinished(ctx context.Context, owner uuid.UUID, limit int) ([]*models.Game, error)
}
