package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryStore()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "spark:pools:list", sample{Name: "a", Count: 3}, 30*time.Second))
	require.NoError(t, m.Set(ctx, "forever", sample{Name: "b"}, 0))

	var got sample
	ok, err := m.Get(ctx, "spark:pools:list", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sample{Name: "a", Count: 3}, got)

	now = now.Add(30 * time.Second)
	ok, err = m.Get(ctx, "spark:pools:list", &got)
	require.NoError(t, err)
	assert.False(t, ok, "entry expires at its ttl")

	ok, err = m.Get(ctx, "forever", &got)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Set(ctx, constants.RedisKeyPoolsPrefix+"a", 1, time.Minute))
	require.NoError(t, m.Set(ctx, constants.RedisKeyPoolsPrefix+"b", 2, time.Minute))
	require.NoError(t, m.Set(ctx, constants.RedisKeySwapsPrefix+"a", 3, time.Minute))

	require.NoError(t, m.DeletePrefix(ctx, constants.RedisKeyPoolsPrefix))
	assert.Equal(t, 1, m.Len())

	var v int
	ok, _ := m.Get(ctx, constants.RedisKeySwapsPrefix+"a", &v)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestRedisStore(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	s, err := NewRedisStore(client)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "spark:pools:x", sample{Name: "x", Count: 1}, time.Minute))
	require.NoError(t, s.Set(ctx, "spark:pools:y", sample{Name: "y"}, time.Minute))
	require.NoError(t, s.Set(ctx, "spark:swaps:x", sample{Name: "z"}, time.Minute))

	var got sample
	ok, err := s.Get(ctx, "spark:pools:x", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", got.Name)

	ttl, err := client.TTL(ctx, "spark:pools:x").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, s.DeletePrefix(ctx, "spark:pools:"))
	ok, err = s.Get(ctx, "spark:pools:y", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Get(ctx, "spark:swaps:x", &got)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewRedisStore_NilClient(t *testing.T) {
	_, err := NewRedisStore(nil)
	assert.Error(t, err)
}

func TestPubSub_PublishAndSubscribe(t *testing.T) {
	client := setupTestRedis(t)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	ps := NewPubSubManager(client, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *models.SwapEvent, 1)
	ready := make(chan error, 1)
	go func() {
		ready <- ps.Subscribe(ctx, constants.PubSubChannelPoolPrefix+"*", func(s *models.SwapEvent) {
			got <- s
		})
	}()

	// Publish until the subscriber is attached.
	swap := &models.SwapEvent{ID: "s1", PoolID: "pool-1", Success: true}
	require.Eventually(t, func() bool {
		if err := ps.PublishSwap(context.Background(), swap); err != nil {
			return false
		}
		select {
		case s := <-got:
			return s.ID == "s1"
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 100*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-ready, context.Canceled)
}

func TestSwapChannels(t *testing.T) {
	ok := SwapChannels(&models.SwapEvent{PoolID: "p1", Success: true})
	assert.Equal(t, []string{"spark:swaps:all", "spark:swaps:pool:p1"}, ok)

	failed := SwapChannels(&models.SwapEvent{PoolID: "p1"})
	assert.Contains(t, failed, constants.PubSubChannelSwapsFailed)
}

type recordingSink struct {
	events []*models.SwapEvent
	err    error
}

func (r *recordingSink) InsertSwap(_ context.Context, s *models.SwapEvent) error {
	r.events = append(r.events, s)
	return r.err
}

func (r *recordingSink) PublishSwap(_ context.Context, s *models.SwapEvent) error {
	r.events = append(r.events, s)
	return r.err
}

func TestJournal_Record(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	sink := &recordingSink{}
	pub := &recordingSink{err: errors.New("redis down")}
	j := NewJournal(sink, pub, logger)

	ev := &models.SwapEvent{PoolID: "p1", Success: true}
	err := j.Record(context.Background(), ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")

	require.Len(t, sink.events, 1)
	require.Len(t, pub.events, 1)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())

	sinkOnly := NewJournal(sink, nil, logger)
	assert.NoError(t, sinkOnly.Record(context.Background(), &models.SwapEvent{ID: "fixed"}))
	assert.Equal(t, "fixed", sink.events[1].ID)

	var nilJournal *Journal
	assert.NoError(t, nilJournal.Record(context.Background(), ev))
}
