package game

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrGameNotFound covers missing games, games owned by someone else, and games not in the
	// required status. Callers cannot tell these apart.
	ErrGameNotFound = errors.New("game not found")

	// ErrStaleGame is returned by Save when the stored version moved since the game was loaded.
	ErrStaleGame = errors.New("game was modified concurrently")

	// ErrLockTimeout is returned when a per-game lock could not be acquired in time.
	ErrLockTimeout = errors.New("timed out waiting for game lock")

	ErrUnknownAction = errors.New("unknown action")
)

// ValidationError reports a rejected request parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ActiveGameError is returned by Deal when the owner already has a game in progress.
type ActiveGameError struct {
	GameID uuid.UUID
}

func (e *ActiveGameError) Error() string {
	return fmt.Sprintf("active game %s already exists", e.GameID)
}

// PersistenceError wraps a store failure that is not part of the game rules.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// storeError passes rule-level sentinels through and wraps everything else as a PersistenceError.
func storeError(op string, err error) error {
	var active *ActiveGameError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrGameNotFound), errors.Is(err, ErrStaleGame), errors.As(err, &active):
		return err
	default:
		return &PersistenceError{Op: op, Err: err}
	}
}
