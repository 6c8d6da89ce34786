// Package sqlite provides a SQLite-backed game store for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/models"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const gameColumns = `id, owner_id, bet_amount, side_bets, status, player_hand, dealer_hand, deck,
	result, result_amount, dealer_revealed, version, created_at, ended_at`

// Store persists games and the action log in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ game.Repository = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at path and applies the embedded schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := MemoryPath
	if path != MemoryPath {
		dsn = "file:" + filepath.Clean(path) +
			"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer at a time; this also keeps an in-memory database on a single connection
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) FindActive(ctx context.Context, owner uuid.UUID) (*models.Game, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM blackjack_games
		 WHERE owner_id = ? AND status IN ('playing', 'dealer_turn')`,
		owner.String(),
	)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active game: %w", err)
	}
	return g, nil
}

func (s *Store) FindOwned(ctx context.Context, owner, id uuid.UUID, status models.Status) (*models.Game, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM blackjack_games
		 WHERE id = ? AND owner_id = ? AND status = ?`,
		id.String(), owner.String(), string(status),
	)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find game %s: %w", id, err)
	}
	return g, nil
}

func (s *Store) Save(ctx context.Context, g *models.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sideBets, err := json.Marshal(g.SideBets)
	if err != nil {
		return fmt.Errorf("marshal side bets: %w", err)
	}
	playerHand, err := json.Marshal(g.PlayerHand)
	if err != nil {
		return fmt.Errorf("marshal player hand: %w", err)
	}
	dealerHand, err := json.Marshal(g.DealerHand)
	if err != nil {
		return fmt.Errorf("marshal dealer hand: %w", err)
	}
	deck, err := json.Marshal(g.Deck)
	if err != nil {
		return fmt.Errorf("marshal deck: %w", err)
	}

	var endedAt sql.NullInt64
	if g.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: toMillis(*g.EndedAt), Valid: true}
	}

	if g.Version == 0 {
		_, err := s.sqlDB.ExecContext(ctx,
			`INSERT INTO blackjack_games (`+gameColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			g.ID.String(), g.OwnerID.String(), g.BetAmount, string(sideBets), string(g.Status),
			string(playerHand), string(dealerHand), string(deck),
			string(g.Result), g.ResultAmount, g.DealerRevealed, toMillis(g.CreatedAt), endedAt,
		)
		if isActiveGameViolation(err) {
			existing, findErr := s.FindActive(ctx, g.OwnerID)
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

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE blackjack_games
		 SET status = ?, player_hand = ?, dealer_hand = ?, deck = ?,
		     result = ?, result_amount = ?, dealer_revealed = ?, ended_at = ?,
		     version = version + 1
		 WHERE id = ? AND version = ?`,
		string(g.Status), string(playerHand), string(dealerHand), string(deck),
		string(g.Result), g.ResultAmount, g.DealerRevealed, endedAt,
		g.ID.String(), g.Version,
	)
	if err != nil {
		return fmt.Errorf("update game %s: %w", g.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update game %s: %w", g.ID, err)
	}
	if affected == 0 {
		return game.ErrStaleGame
	}
	g.Version++
	return nil
}

func (s *Store) ListFinished(ctx context.Context, owner uuid.UUID, limit int) ([]*models.Game, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM blackjack_games
		 WHERE owner_id = ? AND status = 'finished'
		 ORDER BY created_at DESC
		 LIMIT ?`,
		owner.String(), limit,
	)
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

// InsertActions writes a batch of action records in one transaction, ignoring duplicates.
func (s *Store) InsertActions(ctx context.Context, records []models.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range records {
		payload, err := json.Marshal(rec.ActionPayload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO blackjack_actions (
			   game_id, action_index, actor_user_id, action_type, action_payload, created_at
			 ) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.GameID.String(), rec.ActionIndex, rec.ActorUserID.String(), rec.ActionType,
			string(payload), rec.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert action %s/%d: %w", rec.GameID, rec.ActionIndex, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit actions: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*models.Game, error) {
	var (
		g                                      models.Game
		id, owner, status, result              string
		sideBets, playerHand, dealerHand, deck string
		createdAt                              int64
		endedAt                                sql.NullInt64
	)
	err := row.Scan(
		&id, &owner, &g.BetAmount, &sideBets, &status, &playerHand, &dealerHand, &deck,
		&result, &g.ResultAmount, &g.DealerRevealed, &g.Version, &createdAt, &endedAt,
	)
	if err != nil {
		return nil, err
	}
	if g.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("decode id: %w", err)
	}
	if g.OwnerID, err = uuid.Parse(owner); err != nil {
		return nil, fmt.Errorf("decode owner id: %w", err)
	}
	g.Status = models.Status(status)
	g.Result = models.Result(result)
	g.CreatedAt = fromMillis(createdAt)
	if endedAt.Valid {
		ended := fromMillis(endedAt.Int64)
		g.EndedAt = &ended
	}
	if err := json.Unmarshal([]byte(sideBets), &g.SideBets); err != nil {
		return nil, fmt.Errorf("decode side bets: %w", err)
	}
	if err := json.Unmarshal([]byte(playerHand), &g.PlayerHand); err != nil {
		return nil, fmt.Errorf("decode player hand: %w", err)
	}
	if err := json.Unmarshal([]byte(dealerHand), &g.DealerHand); err != nil {
		return nil, fmt.Errorf("decode dealer hand: %w", err)
	}
	if err := json.Unmarshal([]byte(deck), &g.Deck); err != nil {
		return nil, fmt.Errorf("decode deck: %w", err)
	}
	return &g, nil
}

func isActiveGameViolation(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE {
		return strings.Contains(message, "blackjack_games.owner_id")
	}
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "blackjack_games.owner_id")
}
