// internal/game/engine.go
package game

import (
	"context"
	"math/rand"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/sirupsen/logrus"
)

// Stake limits, in whole chips.
const (
	MinBet     = 10
	MaxBet     = 200
	MaxSideBet = 10

	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)

// ActionRecorder receives one record per committed transition.
type ActionRecorder interface {
	PublishGameAction(ctx context.Context, record models.ActionRecord) error
}

// Engine runs the deal/hit/stand state machine. It keeps no game state between calls:
// every transition loads the game from the Repository and writes it back.
type Engine struct {
	repo     Repository
	locker   Locker
	recorder ActionRecorder
	clock    quartz.Clock
	newRand  func() *rand.Rand
	shuffle  func(models.Deck, *rand.Rand)
	log      logrus.FieldLogger
	lockWait time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker sets the lock held around each mutating transition.
func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithRecorder publishes an ActionRecord after every committed transition.
func WithRecorder(r ActionRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithClock(c quartz.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRandSource replaces the per-game random generator factory. Tests pass a seeded one.
func WithRandSource(fn func() *rand.Rand) Option {
	return func(e *Engine) { e.newRand = fn }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithLockWait bounds how long a transition waits for its lock.
func WithLockWait(d time.Duration) Option {
	return func(e *Engine) { e.lockWait = d }
}

// NewEngine builds an Engine over repo. Without options it uses a process-local lock,
// the real clock, crypto-seeded shuffles, and the standard logrus logger.
func NewEngine(repo Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:     repo,
		locker:   NewLocalLocker(),
		clock:    quartz.NewReal(),
		newRand:  NewRand,
		shuffle:  Shuffle,
		log:      logrus.StandardLogger(),
		lockWait: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DealRequest carries the stakes for a new game.
type DealRequest struct {
	Bet                   int64
	PerfectPairsBet       int64
	TwentyOnePlusThreeBet int64
}

// Validate checks the main bet and both side bets against the table limits.
func (r DealRequest) Validate() error {
	if r.Bet < MinBet || r.Bet > MaxBet {
		return &ValidationError{Field: "bet", Reason: "must be between 10 and 200"}
	}
	if r.PerfectPairsBet < 0 || r.PerfectPairsBet > MaxSideBet {
		return &ValidationError{Field: "perfectPairsBet", Reason: "must be between 0 and 10"}
	}
	if r.TwentyOnePlusThreeBet < 0 || r.TwentyOnePlusThreeBet > MaxSideBet {
		return &ValidationError{Field: "twentyOnePlusThreeBet", Reason: "must be between 0 and 10"}
	}
	return nil
}

// Deal starts a new game for owner. Naturals on either side finish the game immediately.
func (e *Engine) Deal(ctx context.Context, owner uuid.UUID, req DealRequest) (*models.Game, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	release, err := e.acquire(ctx, ownerLockKey(owner.String()))
	if err != nil {
		return nil, err
	}
	defer release()

	active, err := e.repo.FindActive(ctx, owner)
	if err != nil {
		return nil, storeError("find active game", err)
	}
	if active != nil {
		return nil, &ActiveGameError{GameID: active.ID}
	}

	now := e.clock.Now().UTC()
	deck := BuildDeck()
	e.shuffle(deck, e.newRand())

	g := &models.Game{
		ID:        uuid.New(),
		OwnerID:   owner,
		BetAmount: req.Bet,
		SideBets: models.SideBets{
			PerfectPairs:       req.PerfectPairsBet,
			TwentyOnePlusThree: req.TwentyOnePlusThreeBet,
		},
		Status:     models.StatusPlaying,
		PlayerHand: make(models.Hand, 0, 2),
		DealerHand: make(models.Hand, 0, 2),
		Deck:       deck,
		CreatedAt:  now,
	}

	// player, dealer, player, dealer
	for i := 0; i < 2; i++ {
		draw(g, &g.PlayerHand)
		draw(g, &g.DealerHand)
	}

	if IsNaturalBlackjack(g.PlayerHand) || IsNaturalBlackjack(g.DealerHand) {
		result, amount := Resolve(g.PlayerHand, g.DealerHand, g.BetAmount)
		finish(g, result, amount, now)
	}

	if err := e.repo.Save(ctx, g); err != nil {
		return nil, storeError("save new game", err)
	}
	e.committed(ctx, g, owner, "deal")
	return g, nil
}

// Hit deals one card to the player. A bust ends the game; reaching 21 stands automatically.
func (e *Engine) Hit(ctx context.Context, owner, gameID uuid.UUID) (*models.Game, error) {
	return e.transition(ctx, owner, gameID, "hit", func(g *models.Game, now time.Time) {
		draw(g, &g.PlayerHand)
		switch v := Value(g.PlayerHand); {
		case v > 21:
			finish(g, models.ResultBust, 0, now)
		case v == 21:
			resolveDealer(g, now)
		}
	})
}

// Stand ends the player's turn and plays out the dealer.
func (e *Engine) Stand(ctx context.Context, owner, gameID uuid.UUID) (*models.Game, error) {
	return e.transition(ctx, owner, gameID, "stand", resolveDealer)
}

// Active returns the owner's game in progress, or ErrGameNotFound.
func (e *Engine) Active(ctx context.Context, owner uuid.UUID) (*models.Game, error) {
	g, err := e.repo.FindActive(ctx, owner)
	if err != nil {
		return nil, storeError("find active game", err)
	}
	if g == nil {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// History lists the owner's finished games, newest first. A zero limit means DefaultHistoryLimit.
func (e *Engine) History(ctx context.Context, owner uuid.UUID, limit int) ([]*models.Game, error) {
	switch {
	case limit == 0:
		limit = DefaultHistoryLimit
	case limit < 0 || limit > MaxHistoryLimit:
		return nil, &ValidationError{Field: "limit", Reason: "must be between 1 and 50"}
	}
	games, err := e.repo.ListFinished(ctx, owner, limit)
	if err != nil {
		return nil, storeError("list finished games", err)
	}
	return games, nil
}

// transition loads a playing game under its lock, applies fn, and saves the result.
func (e *Engine) transition(ctx context.Context, owner, gameID uuid.UUID, action string, fn func(*models.Game, time.Time)) (*models.Game, error) {
	release, err := e.acquire(ctx, gameLockKey(gameID.String()))
	if err != nil {
		return nil, err
	}
	defer release()

	g, err := e.repo.FindOwned(ctx, owner, gameID, models.StatusPlaying)
	if err != nil {
		return nil, storeError("load game", err)
	}

	fn(g, e.clock.Now().UTC())

	if err := e.repo.Save(ctx, g); err != nil {
		return nil, storeError("save game", err)
	}
	e.committed(ctx, g, owner, action)
	return g, nil
}

// resolveDealer is the only place the dealer plays. Stand and the automatic stand on 21 both use it.
func resolveDealer(g *models.Game, now time.Time) {
	g.Status = models.StatusDealerTurn
	g.Deck, g.DealerHand = PlayDealer(g.Deck, g.DealerHand)
	result, amount := Resolve(g.PlayerHand, g.DealerHand, g.BetAmount)
	finish(g, result, amount, now)
}

func finish(g *models.Game, result models.Result, amount int64, now time.Time) {
	g.Status = models.StatusFinished
	g.Result = result
	g.ResultAmount = amount
	g.DealerRevealed = true
	g.EndedAt = &now
}

func draw(g *models.Game, hand *models.Hand) {
	var c models.Card
	c, g.Deck = DealTop(g.Deck)
	*hand = append(*hand, c)
}

func (e *Engine) acquire(ctx context.Context, key string) (func(), error) {
	if e.locker == nil {
		return func() {}, nil
	}
	lockCtx, cancel := context.WithTimeout(ctx, e.lockWait)
	defer cancel()
	return e.locker.Acquire(lockCtx, key)
}

// committed logs the transition and hands it to the recorder. Recorder failures never fail the request.
func (e *Engine) committed(ctx context.Context, g *models.Game, actor uuid.UUID, action string) {
	fields := logrus.Fields{
		"game_id": g.ID,
		"owner":   g.OwnerID,
		"action":  action,
		"status":  g.Status,
	}
	if g.Status == models.StatusFinished {
		fields["result"] = g.Result
		fields["result_amount"] = g.ResultAmount
	}
	e.log.WithFields(fields).Info("game transition")

	if e.recorder == nil {
		return
	}
	payload := map[string]interface{}{
		"status":      g.Status,
		"bet":         g.BetAmount,
		"playerValue": Value(g.PlayerHand),
	}
	if g.Status == models.StatusFinished {
		payload["dealerValue"] = Value(g.DealerHand)
		payload["result"] = g.Result
		payload["resultAmount"] = g.ResultAmount
	}
	record := models.ActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.Version,
		ActorUserID:   actor,
		ActionType:    action,
		ActionPayload: payload,
		Timestamp:     e.clock.Now().UnixMilli(),
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := e.recorder.PublishGameAction(pubCtx, record); err != nil {
		e.log.WithFields(fields).WithError(err).Warn("failed to publish game action")
	}
}
