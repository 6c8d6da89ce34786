// Package historian drains the action queue written by the server and persists it in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/jason-s-yu/blackjack/internal/config"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// maxPendingBatches bounds how many batches are kept in memory while the sink is failing.
const maxPendingBatches = 50

// Sink stores a batch of action records atomically.
type Sink interface {
	InsertActions(ctx context.Context, records []models.ActionRecord) error
}

// Service encapsulates the Redis + DB logic for capturing game actions.
type Service struct {
	rdb        *redis.Client
	sink       Sink
	queue      string
	batchSize  int
	flushDelay time.Duration
	popWait    time.Duration
	clock      quartz.Clock
	log        logrus.FieldLogger

	batchMu sync.Mutex
	batch   []models.ActionRecord
}

// New builds a Service. rdb may be nil when records are fed through Add directly.
func New(rdb *redis.Client, sink Sink, cfg config.Historian, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		rdb:        rdb,
		sink:       sink,
		queue:      cfg.Queue,
		batchSize:  cfg.BatchSize,
		flushDelay: cfg.FlushDelay(),
		popWait:    cfg.PopWait,
		clock:      quartz.NewReal(),
		log:        log,
		batch:      make([]models.ActionRecord, 0, cfg.BatchSize),
	}
}

// WithClock replaces the clock driving periodic flushes.
func (s *Service) WithClock(c quartz.Clock) *Service {
	s.clock = c
	return s
}

// Run pops records until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) error {
	if s.rdb == nil {
		return errors.New("historian: no redis client")
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.flushLoop(ctx)
	}()

	s.log.WithField("queue", s.queue).Info("historian started")
	s.readLoop(ctx)
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := s.Flush(flushCtx)
	s.log.Info("historian stopped")
	return err
}

// readLoop continuously uses BLPop to retrieve messages from the Redis queue.
func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		// a bounded wait so cancellation is noticed between pops
		res, err := s.rdb.BLPop(ctx, s.popWait, s.queue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				s.log.WithError(err).Error("BLPop failed")
				s.sleep(ctx, time.Second)
			}
			continue
		}
		// res[0] is the queue name and res[1] the payload.
		if len(res) < 2 {
			continue
		}
		s.AddPayload(ctx, res[1])
	}
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(s.flushDelay, "historian", "flush")
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil && ctx.Err() == nil {
				s.log.WithError(err).Error("periodic flush failed")
			}
		}
	}
}

// AddPayload decodes one queued JSON record and adds it to the batch.
func (s *Service) AddPayload(ctx context.Context, payload string) {
	var record models.ActionRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		s.log.WithError(err).Warn("invalid action record")
		return
	}
	s.Add(ctx, record)
}

// Add appends a record and flushes once the batch is full.
func (s *Service) Add(ctx context.Context, record models.ActionRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, record)
	full := len(s.batch) >= s.batchSize
	s.batchMu.Unlock()

	if full {
		if err := s.Flush(ctx); err != nil {
			s.log.WithError(err).Error("batch flush failed")
		}
	}
}

// Flush writes the pending batch in one transaction. On failure the records stay pending.
func (s *Service) Flush(ctx context.Context) error {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	if len(s.batch) == 0 {
		return nil
	}
	if err := s.sink.InsertActions(ctx, s.batch); err != nil {
		if limit := s.batchSize * maxPendingBatches; len(s.batch) > limit {
			dropped := len(s.batch) - limit
			s.batch = append(s.batch[:0], s.batch[dropped:]...)
			s.log.WithField("dropped", dropped).Warn("historian backlog full, dropping oldest records")
		}
		return err
	}
	s.log.WithField("count", len(s.batch)).Debug("flushed actions")
	s.batch = s.batch[:0]
	return nil
}

// Pending reports how many records are waiting to be flushed.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

func (s *Service) sleep(ctx context.Context, d time.Duration) {
	t := s.clock.NewTimer(d, "historian", "backoff")
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
