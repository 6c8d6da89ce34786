package game

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/models"
)

// MemoryStore is an in-process Repository. It enforces the same one-active-game and
// version rules as the SQL stores and is used for local runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*models.Game
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games: make(map[uuid.UUID]*models.Game),
	}
}

func (s *MemoryStore) FindActive(ctx context.Context, owner uuid.UUID) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g := s.activeLocked(owner); g != nil {
		return g.Clone(), nil
	}
	return nil, nil
}

func (s *MemoryStore) FindOwned(ctx context.Context, owner, id uuid.UUID, status models.Status) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok || g.OwnerID != owner || g.Status != status {
		return nil, ErrGameNotFound
	}
	return g.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, g *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.Version == 0 {
		if g.Status.Active() {
			if existing := s.activeLocked(g.OwnerID); existing != nil {
				return &ActiveGameError{GameID: existing.ID}
			}
		}
		g.Version = 1
		s.games[g.ID] = g.Clone()
		return nil
	}

	stored, ok := s.games[g.ID]
	if !ok || stored.Version != g.Version {
		return ErrStaleGame
	}
	g.Version++
	s.games[g.ID] = g.Clone()
	return nil
}

func (s *MemoryStore) ListFinished(ctx context.Context, owner uuid.UUID, limit int) ([]*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Game
	for _, g := range s.games {
		if g.OwnerID == owner && g.Status == models.StatusFinished {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// activeLocked assumes s.mu is held.
func (s *MemoryStore) activeLocked(owner uuid.UUID) *models.Game {
	for _, g := range s.games {
		if g.OwnerID == owner && g.Status.Active() {
			return g
		}
	}
	return nil
}
