// internal/handlers/blackjack.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/auth"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 16 << 10

// Engine is the part of game.Engine the HTTP layer drives.
type Engine interface {
	Deal(ctx context.Context, owner uuid.UUID, req game.DealRequest) (*models.Game, error)
	Hit(ctx context.Context, owner, gameID uuid.UUID) (*models.Game, error)
	Stand(ctx context.Context, owner, gameID uuid.UUID) (*models.Game, error)
	Active(ctx context.Context, owner uuid.UUID) (*models.Game, error)
	History(ctx context.Context, owner uuid.UUID, limit int) ([]*models.Game, error)
}

// blackjackRequest is the union of every action's fields.
type blackjackRequest struct {
	Action                string      `json:"action"`
	Bet                   json.Number `json:"bet"`
	PerfectPairsBet       json.Number `json:"perfectPairsBet"`
	TwentyOnePlusThreeBet json.Number `json:"twentyOnePlusThreeBet"`
	GameID                string      `json:"gameId"`
	Limit                 int         `json:"limit"`
}

type gameResponse struct {
	Success bool          `json:"success"`
	Game    game.GameView `json:"game"`
}

type historyResponse struct {
	Success bool            `json:"success"`
	Games   []game.GameView `json:"games"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	GameID  string `json:"gameId,omitempty"`
}

// BlackjackHandler serves POST /blackjack. The body's "action" selects deal, hit, stand, active, or history.
//
// Request payloads:
//
//	{ "action": "deal", "bet": 25, "perfectPairsBet": 5, "twentyOnePlusThreeBet": 0 }
//	{ "action": "hit", "gameId": "..." }
//	{ "action": "stand", "gameId": "..." }
//	{ "action": "active" }
//	{ "action": "history", "limit": 10 }
func BlackjackHandler(logger logrus.FieldLogger, engine Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST, OPTIONS")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
			return
		}

		owner, err := auth.OwnerFromRequest(r)
		if err != nil {
			logger.WithError(err).Debug("rejected blackjack request")
			writeError(w, http.StatusUnauthorized, "unauthorized", "")
			return
		}

		var req blackjackRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}

		ctx := r.Context()
		var g *models.Game
		switch strings.ToLower(strings.TrimSpace(req.Action)) {
		case "deal":
			var deal game.DealRequest
			if deal, err = req.dealRequest(); err == nil {
				g, err = engine.Deal(ctx, owner, deal)
			}
		case "hit":
			var id uuid.UUID
			if id, err = req.gameID(); err == nil {
				g, err = engine.Hit(ctx, owner, id)
			}
		case "stand":
			var id uuid.UUID
			if id, err = req.gameID(); err == nil {
				g, err = engine.Stand(ctx, owner, id)
			}
		case "active":
			g, err = engine.Active(ctx, owner)
		case "history":
			var games []*models.Game
			if games, err = engine.History(ctx, owner, req.Limit); err == nil {
				writeJSON(w, http.StatusOK, historyResponse{Success: true, Games: game.PublicViews(games)})
				return
			}
		default:
			err = game.ErrUnknownAction
		}

		if err != nil {
			writeGameError(w, logger.WithField("owner", owner), err)
			return
		}
		writeJSON(w, http.StatusOK, gameResponse{Success: true, Game: game.PublicView(g)})
	}
}

func (req blackjackRequest) dealRequest() (game.DealRequest, error) {
	bet, err := wholeChips("bet", req.Bet, true)
	if err != nil {
		return game.DealRequest{}, err
	}
	pp, err := wholeChips("perfectPairsBet", req.PerfectPairsBet, false)
	if err != nil {
		return game.DealRequest{}, err
	}
	tp, err := wholeChips("twentyOnePlusThreeBet", req.TwentyOnePlusThreeBet, false)
	if err != nil {
		return game.DealRequest{}, err
	}
	return game.DealRequest{Bet: bet, PerfectPairsBet: pp, TwentyOnePlusThreeBet: tp}, nil
}

func (req blackjackRequest) gameID() (uuid.UUID, error) {
	if req.GameID == "" {
		return uuid.Nil, &game.ValidationError{Field: "gameId", Reason: "is required"}
	}
	id, err := uuid.Parse(req.GameID)
	if err != nil {
		return uuid.Nil, &game.ValidationError{Field: "gameId", Reason: "must be a UUID"}
	}
	return id, nil
}

// wholeChips accepts 25 and 25.0 but not 25.5.
func wholeChips(field string, n json.Number, required bool) (int64, error) {
	if n == "" {
		if required {
			return 0, &game.ValidationError{Field: field, Reason: "is required"}
		}
		return 0, nil
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, &game.ValidationError{Field: field, Reason: "must be a whole number"}
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, &game.ValidationError{Field: field, Reason: "is out of range"}
	}
	return int64(f), nil
}

// writeGameError maps engine errors onto status codes.
func writeGameError(w http.ResponseWriter, logger logrus.FieldLogger, err error) {
	var (
		validation *game.ValidationError
		active     *game.ActiveGameError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error(), "")
	case errors.Is(err, game.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	case errors.As(err, &active):
		writeError(w, http.StatusBadRequest, "an active game already exists", active.GameID.String())
	case errors.Is(err, game.ErrGameNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, game.ErrStaleGame), errors.Is(err, game.ErrLockTimeout):
		writeError(w, http.StatusConflict, err.Error(), "")
	default:
		logger.WithError(err).Error("blackjack request failed")
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func writeError(w http.ResponseWriter, status int, msg, gameID string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg, GameID: gameID})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
