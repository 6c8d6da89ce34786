package historian

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/cache"
	"github.com/jason-s-yu/blackjack/internal/config"
	"github.com/jason-s-yu/blackjack/internal/database/sqlite"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu      sync.Mutex
	batches [][]models.ActionRecord
	err     error
}

func (m *memorySink) InsertActions(ctx context.Context, records []models.ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, append([]models.ActionRecord(nil), records...))
	return nil
}

func (m *memorySink) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func (m *memorySink) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func testConfig(batch int) config.Historian {
	return config.Historian{Queue: "blackjack_actions", BatchSize: batch, FlushMs: 500, PopWait: time.Second}
}

func record(index int) models.ActionRecord {
	return models.ActionRecord{
		GameID:        uuid.New(),
		ActionIndex:   index,
		ActorUserID:   uuid.New(),
		ActionType:    "hit",
		ActionPayload: map[string]interface{}{"status": "playing"},
		Timestamp:     time.Now().UnixMilli(),
	}
}

func TestFlushesWhenBatchFull(t *testing.T) {
	sink := &memorySink{}
	logger, _ := test.NewNullLogger()
	s := New(nil, sink, testConfig(3), logger)
	ctx := context.Background()

	s.Add(ctx, record(1))
	s.Add(ctx, record(2))
	assert.Equal(t, 0, sink.total())
	assert.Equal(t, 2, s.Pending())

	s.Add(ctx, record(3))
	assert.Equal(t, 3, sink.total())
	assert.Len(t, sink.batches, 1)
	assert.Equal(t, 0, s.Pending())
}

func TestAddPayload(t *testing.T) {
	sink := &memorySink{}
	logger, hook := test.NewNullLogger()
	s := New(nil, sink, testConfig(10), logger)
	ctx := context.Background()

	rec := record(4)
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	s.AddPayload(ctx, string(data))
	s.AddPayload(ctx, "{not json")

	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, "invalid action record", hook.LastEntry().Message)

	require.NoError(t, s.Flush(ctx))
	require.Len(t, sink.batches, 1)
	assert.Equal(t, rec, sink.batches[0][0])
}

func TestFailedFlushKeepsRecords(t *testing.T) {
	sink := &memorySink{err: errors.New("db down")}
	logger, _ := test.NewNullLogger()
	s := New(nil, sink, testConfig(10), logger)
	ctx := context.Background()

	s.Add(ctx, record(1))
	assert.Error(t, s.Flush(ctx))
	assert.Equal(t, 1, s.Pending())

	sink.setErr(nil)
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, 1, sink.total())
	assert.Equal(t, 0, s.Pending())
}

func TestBacklogIsBounded(t *testing.T) {
	sink := &memorySink{err: errors.New("db down")}
	logger, _ := test.NewNullLogger()
	s := New(nil, sink, testConfig(1), logger)
	ctx := context.Background()

	for i := 0; i < maxPendingBatches+10; i++ {
		s.Add(ctx, record(i))
	}
	assert.LessOrEqual(t, s.Pending(), maxPendingBatches+1)
}

func TestPeriodicFlush(t *testing.T) {
	sink := &memorySink{}
	logger, _ := test.NewNullLogger()
	mClock := quartz.NewMock(t)
	cfg := testConfig(100)
	s := New(nil, sink, cfg, logger).WithClock(mClock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.flushLoop(ctx)
	}()

	s.Add(ctx, record(1))
	assert.Eventually(t, func() bool {
		mClock.Advance(cfg.FlushDelay())
		return sink.total() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestRunRequiresRedis(t *testing.T) {
	s := New(nil, &memorySink{}, testConfig(1), nil)
	assert.Error(t, s.Run(context.Background()))
}

// TestQueueToSQLite runs the whole path from publisher to table when REDIS_ADDR is set.
func TestQueueToSQLite(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb, err := cache.ConnectRedis(ctx, config.Redis{Addr: addr})
	require.NoError(t, err)
	defer rdb.Close()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	cfg := testConfig(2)
	cfg.Queue = "blackjack_actions_test_" + uuid.NewString()
	cfg.PopWait = 200 * time.Millisecond
	defer rdb.Del(context.Background(), cfg.Queue)

	pub := cache.NewPublisher(rdb, cfg.Queue)
	require.NoError(t, pub.PublishGameAction(ctx, record(1)))
	require.NoError(t, pub.PublishGameAction(ctx, record(2)))

	logger, _ := test.NewNullLogger()
	s := New(rdb, store, cfg, logger)
	runCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(runCtx) }()

	assert.Eventually(t, func() bool {
		n, err := rdb.LLen(ctx, cfg.Queue).Result()
		return err == nil && n == 0 && s.Pending() == 0
	}, 5*time.Second, 50*time.Millisecond)
	stop()
	assert.NoError(t, <-errCh)
}
