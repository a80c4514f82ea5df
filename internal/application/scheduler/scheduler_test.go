package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/autobid/internal/application/scheduler"
	"github.com/alejandrodnm/autobid/internal/auditlog"
	"github.com/alejandrodnm/autobid/internal/domain"
	"github.com/alejandrodnm/autobid/internal/orderstore"
)

type countingPauser struct {
	mu    sync.Mutex
	calls int
}

func (c *countingPauser) ApplyAutoPause(_ context.Context, _ time.Time) []domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *countingPauser) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newOrder(t *testing.T, s *orderstore.Store, exp time.Time) domain.Order {
	t.Helper()
	o, err := s.Create(context.Background(), domain.Order{
		Strategy: domain.StrategyCopyTrade,
		CopyTrade: &domain.CopyTrade{
			Target:    "0x52908400098527886E0F7030069857D2E4169EE7",
			Increment: decimal.NewFromInt(1),
		},
		Expiration: &exp,
	})
	require.NoError(t, err)
	return o
}

func TestScheduler_TickPausesExpiredOnce(t *testing.T) {
	audit := auditlog.New(auditlog.Config{}, nil, nil)
	store := orderstore.New(nil, audit)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	expired := newOrder(t, store, now.Add(-time.Second))
	pending := newOrder(t, store, now.Add(time.Hour))
	logged := audit.Len()

	sched := scheduler.New(store, time.Second)
	assert.Equal(t, 1, sched.Tick(context.Background(), now))

	got, _ := store.Get(expired.ID)
	assert.Equal(t, domain.StatusPaused, got.Status)
	assert.Nil(t, got.Expiration)
	require.NotNil(t, got.AutoPausedAt)
	assert.True(t, got.AutoPausedAt.Equal(now))

	other, _ := store.Get(pending.ID)
	assert.Equal(t, domain.StatusActive, other.Status)
	assert.Equal(t, logged+1, audit.Len())

	// a second pass changes nothing and logs nothing
	assert.Equal(t, 0, sched.Tick(context.Background(), now.Add(time.Second)))
	assert.Equal(t, logged+1, audit.Len())
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	p := &countingPauser{}
	sched := scheduler.New(p, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, func() bool { return p.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
