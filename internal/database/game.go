// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/models"
)

const activeIndexName = "blackjack_games_one_active_per_owner"

const gameColumns = `id, owner_id, bet_amount, side_bets, status, player_hand, dealer_hand, deck,
	result, result_amount, dealer_revealed, version, created_at, ended_at`

// GameRepository is the Postgres game.Repository. It also stores the action log for the historian.
type GameRepository struct {
	pool *pgxpool.Pool
}

func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

var _ game.Repository = (*GameRepository)(nil)

func (r *GameRepository) FindActive(ctx context.Context, owner uuid.UUID) (*models.Game, error) {
	q := `SELECT ` + gameColumns + ` FROM blackjack_games
		WHERE owner_id = $1 AND status IN ('playing', 'dealer_turn')`
	g, err := scanGame(r.pool.QueryRow(ctx, q, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active game: %w", err)
	}
	return g, nil
}

func (r *GameRepository) FindOwned(ctx context.Context, owner, id uuid.UUID, status models.Status) (*models.Game, error) {
	q := `SELECT ` + gameColumns + ` FROM blackjack_games
		WHERE id = $1 AND owner_id = $2 AND status = $3`
	g, err := scanGame(r.pool.QueryRow(ctx, q, id, owner, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find game %s: %w", id, err)
	}
	return g, nil
}

// Save inserts new games and applies version-checked updates to existing ones.
func (r *GameRepository) Save(ctx context.Context, g *models.Game) error {
	row, err := encodeGame(g)
	if err != nil {
		return err
	}
	if g.Version == 0 {
		return r.insert(ctx, g, row)
	}

	var affected int64
	err = pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE blackjack_games
			SET status = $3, player_hand = $4, dealer_hand = $5, deck = $6,
				result = $7, result_amount = $8, dealer_revealed = $9, ended_at = $10,
				version = version + 1
			WHERE id = $1 AND version = $2
		`
		tag, e := tx.Exec(ctx, q,
			g.ID, g.Version, string(g.Status), row.playerHand, row.dealerHand, row.deck,
			string(g.Result), g.ResultAmount, g.DealerRevealed, g.EndedAt,
		)
		affected = tag.RowsAffected()
		return e
	})
	if err != nil {
		return fmt.Errorf("update game %s: %w", g.ID, err)
	}
	if affected == 0 {
		return game.ErrStaleGame
	}
	g.Version++
	return nil
}

func (r *GameRepository) insert(ctx context.Context, g *models.Game, row encodedGame) error {
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO blackjack_games (` + gameColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, $12, $13)
		`
		_, e := tx.Exec(ctx, q,
			g.ID, g.OwnerID, g.BetAmount, row.sideBets, string(g.Status),
			row.playerHand, row.dealerHand, row.deck,
			string(g.Result), g.ResultAmount, g.DealerRevealed, g.CreatedAt, g.EndedAt,
		)
		return e
	})

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == activeIndexName {
		// the failed transaction is gone, so look the winner up on the pool
		existing, findErr := r.FindActive(ctx, g.OwnerID)
		if findErr != nil {
			return findErr
		}
		if existing == nil {
			return game.ErrStaleGame
		}
		return &game.ActiveGameError{GameID: existing.ID}
	}
	if err != nil {
		return fmt.Errorf("insert game %s: %w", g.ID, err)
	}
	g.Version = 1
	return nil
}

func (r *GameRepository) ListFinished(ctx context.Context, owner uuid.UUID, limit int) ([]*models.Game, error) {
	q := `SELECT ` + gameColumns + ` FROM blackjack_games
		WHERE owner_id = $1 AND status = 'finished'
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list finished games: %w", err)
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan finished game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list finished games: %w", err)
	}
	return games, nil
}

// InsertActions writes a batch of action records in one transaction.
// Records already stored under the same (game_id, action_index) are skipped.
func (r *GameRepository) InsertActions(ctx context.Context, records []models.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO blackjack_actions (
				game_id, action_index, actor_user_id, action_type, action_payload, created_at
			) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (game_id, action_index) DO NOTHING
		`
		for _, rec := range records {
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return fmt.Errorf("marshal payload: %w", err)
			}
			_, err = tx.Exec(ctx, q,
				rec.GameID, rec.ActionIndex, rec.ActorUserID, rec.ActionType, payload,
				time.UnixMilli(rec.Timestamp).UTC(),
			)
			if err != nil {
				return fmt.Errorf("insert action %s/%d: %w", rec.GameID, rec.ActionIndex, err)
			}
		}
		return nil
	})
}

// encodedGame holds the JSON columns of a game.
type encodedGame struct {
	sideBets   []byte
	playerHand []byte
	dealerHand []byte
	deck       []byte
}

func encodeGame(g *models.Game) (encodedGame, error) {
	var (
		row encodedGame
		err error
	)
	if row.sideBets, err = json.Marshal(g.SideBets); err != nil {
		return row, fmt.Errorf("marshal side bets: %w", err)
	}
	if row.playerHand, err = json.Marshal(g.PlayerHand); err != nil {
		return row, fmt.Errorf("marshal player hand: %w", err)
	}
	if row.dealerHand, err = json.Marshal(g.DealerHand); err != nil {
		return row, fmt.Errorf("marshal dealer hand: %w", err)
	}
	if row.deck, err = json.Marshal(g.Deck); err != nil {
		return row, fmt.Errorf("marshal deck: %w", err)
	}
	return row, nil
}

func scanGame(row pgx.Row) (*models.Game, error) {
	var (
		g                                      models.Game
		status, result                         string
		sideBets, playerHand, dealerHand, deck []byte
	)
	err := row.Scan(
		&g.ID, &g.OwnerID, &g.BetAmount, &sideBets, &status, &playerHand, &dealerHand, &deck,
		&result, &g.ResultAmount, &g.DealerRevealed, &g.Version, &g.CreatedAt, &g.EndedAt,
	)
	if err != nil {
		return nil, err
	}
	g.Status = models.Status(status)
	g.Result = models.Result(result)
	g.CreatedAt = g.CreatedAt.UTC()
	if g.EndedAt != nil {
		ended := g.EndedAt.UTC()
		g.EndedAt = &ended
	}
	if err := json.Unmarshal(sideBets, &g.SideBets); err != nil {
		return nil, fmt.Errorf("decode side bets: %w", err)
	}
	if err := json.Unmarshal(playerHand, &g.PlayerHand); err != nil {
		return nil, fmt.Errorf("decode player hand: %w", err)
	}
	if err := json.Unmarshal(dealerHand, &g.DealerHand); err != nil {
		return nil, fmt.Errorf("decode dealer hand: %w", err)
	}
	if err := json.Unmarshal(deck, &g.Deck); err != nil {
		return nil, fmt.Errorf("decode deck: %w", err)
	}
	return &g, nil
}
