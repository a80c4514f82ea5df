package orderstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/autobid/internal/auditlog"
	"github.com/alejandrodnm/autobid/internal/domain"
	"github.com/alejandrodnm/autobid/internal/orderstore"
)

// --- mocks ---

type mockRepo struct {
	saved  []domain.Order
	saves  int
	loaded []domain.Order
}

func (m *mockRepo) LoadOrders(_ context.Context) ([]domain.Order, error) { return m.loaded, nil }

func (m *mockRepo) SaveOrders(_ context.Context, orders []domain.Order) error {
	m.saves++
	m.saved = orders
	return nil
}

// --- helpers ---

var base = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*orderstore.Store, *auditlog.Log, *mockRepo) {
	t.Helper()
	repo := &mockRepo{}
	audit := auditlog.New(auditlog.Config{}, nil, nil)
	s := orderstore.New(repo, audit)
	tick := base
	s.SetClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})
	return s, audit, repo
}

func copyDraft() domain.Order {
	return domain.Order{
		Strategy: domain.StrategyCopyTrade,
		CopyTrade: &domain.CopyTrade{
			Target:    "0x52908400098527886E0F7030069857D2E4169EE7",
			Increment: decimal.RequireFromString("1.25"),
		},
	}
}

func conditionDraft(odds int) domain.Order {
	return domain.Order{
		Strategy: domain.StrategyConditionMatch,
		ConditionMatch: &domain.ConditionMatch{
			Selections: []domain.ConditionSelection{{ConditionID: "0xc1", Outcome: domain.OutcomeYes}},
			TargetOdds: odds,
		},
	}
}

func at(d time.Duration) *time.Time {
	t := base.Add(d)
	return &t
}

// --- tests ---

func TestStore_CreateAssignsIDAndLogs(t *testing.T) {
	s, audit, repo := newStore(t)

	o, err := s.Create(context.Background(), copyDraft())
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, domain.StatusActive, o.Status)
	assert.False(t, o.CreatedAt.IsZero())
	assert.Equal(t, 1, repo.saves)

	entries := audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Order #1 created", entries[0].Message)
	assert.Equal(t, o.ID, entries[0].Metadata.OrderID)
	assert.Equal(t, "#1", entries[0].Metadata.Highlight)
	assert.Contains(t, entries[0].Metadata.OrderLabel, "copy")
}

func TestStore_CreateRejectsInvalidWithoutMutation(t *testing.T) {
	s, audit, repo := newStore(t)

	_, err := s.Create(context.Background(), conditionDraft(100))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "conditionMatch.targetOdds", ve.Field)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, audit.Len())
	assert.Equal(t, 0, repo.saves)
}

func TestStore_RejectsIncrementBelowOneUnit(t *testing.T) {
	s, audit, repo := newStore(t)
	ctx := context.Background()

	dust := copyDraft()
	dust.CopyTrade.Increment = decimal.RequireFromString("0.0000001")
	_, err := s.Create(ctx, dust)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "copyTrade.increment", ve.Field)
	assert.Equal(t, 0, s.Len())

	o, err := s.Create(ctx, copyDraft())
	require.NoError(t, err)
	o.CopyTrade.Increment = decimal.RequireFromString("1.2500001")
	require.Error(t, s.Update(ctx, o.ID, o))

	got, ok := s.Get(o.ID)
	require.True(t, ok)
	assert.Equal(t, "1.25", got.CopyTrade.Increment.String())
	assert.Equal(t, 1, audit.Len())
	assert.Equal(t, 1, repo.saves)
}

func TestStore_SetDecimalsAllowsFinerIncrements(t *testing.T) {
	s, _, _ := newStore(t)
	s.SetDecimals(18)

	draft := copyDraft()
	draft.CopyTrade.Increment = decimal.RequireFromString("0.0000001")
	_, err := s.Create(context.Background(), draft)
	assert.NoError(t, err)
}

func TestStore_UpdatePreservesIdentity(t *testing.T) {
	s, audit, _ := newStore(t)
	ctx := context.Background()
	o, err := s.Create(ctx, conditionDraft(25))
	require.NoError(t, err)

	edited := o
	edited.ID = "ignored"
	edited.ConditionMatch = &domain.ConditionMatch{
		Selections: o.ConditionMatch.Selections,
		TargetOdds: 40,
	}
	require.NoError(t, s.Update(ctx, o.ID, edited))

	got, ok := s.Get(o.ID)
	require.True(t, ok)
	assert.Equal(t, 40, got.ConditionMatch.TargetOdds)
	assert.Equal(t, o.CreatedAt, got.CreatedAt)
	assert.Equal(t, "Order #1 updated", audit.Entries()[0].Message)

	bad := got
	bad.ConditionMatch = &domain.ConditionMatch{TargetOdds: 40}
	assert.Error(t, s.Update(ctx, o.ID, bad))
	assert.Equal(t, 2, audit.Len(), "failed update is not logged")

	assert.ErrorIs(t, s.Update(ctx, "missing", got), domain.ErrOrderNotFound)
}

func TestStore_Delete(t *testing.T) {
	s, audit, repo := newStore(t)
	ctx := context.Background()
	o, err := s.Create(ctx, copyDraft())
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, o.ID))
	_, ok := s.Get(o.ID)
	assert.False(t, ok)
	assert.Empty(t, repo.saved)

	last := audit.Entries()[0]
	assert.Equal(t, "Order #1 deleted", last.Message)
	assert.Contains(t, last.Metadata.OrderLabel, "#1 copy", "label snapshot survives deletion")

	assert.ErrorIs(t, s.Delete(ctx, o.ID), domain.ErrOrderNotFound)
}

func TestStore_ToggleStatus(t *testing.T) {
	s, audit, _ := newStore(t)
	ctx := context.Background()
	o, err := s.Create(ctx, copyDraft())
	require.NoError(t, err)

	paused, err := s.ToggleStatus(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaused, paused.Status)
	assert.Nil(t, paused.AutoPausedAt, "manual pause is not an auto-pause")
	assert.Equal(t, "Order #1 paused", audit.Entries()[0].Message)

	resumed, err := s.ToggleStatus(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, resumed.Status)
	assert.Equal(t, "Order #1 resumed", audit.Entries()[0].Message)

	_, err = s.ToggleStatus(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestStore_ResumeClearsAutoPausedAt(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	draft := copyDraft()
	draft.Expiration = at(time.Minute)
	o, err := s.Create(ctx, draft)
	require.NoError(t, err)

	changed := s.ApplyAutoPause(ctx, base.Add(time.Hour))
	require.Len(t, changed, 1)
	require.NotNil(t, changed[0].AutoPausedAt)

	resumed, err := s.ToggleStatus(ctx, o.ID)
	require.NoError(t, err)
	assert.Nil(t, resumed.AutoPausedAt)
	assert.Nil(t, resumed.Expiration)
}

func TestStore_DisplayOrderAndTags(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()

	noExp, err := s.Create(ctx, copyDraft())
	require.NoError(t, err)

	late := conditionDraft(30)
	late.Expiration = at(2 * time.Hour)
	lateO, err := s.Create(ctx, late)
	require.NoError(t, err)

	soon := conditionDraft(60)
	soon.Expiration = at(time.Hour)
	soonO, err := s.Create(ctx, soon)
	require.NoError(t, err)

	assert.Equal(t, "#1", s.Tag(soonO.ID))
	assert.Equal(t, "#2", s.Tag(lateO.ID))
	assert.Equal(t, "#3", s.Tag(noExp.ID))
	assert.Equal(t, "", s.Tag("unknown"))

	// editing an unrelated field does not reshuffle tags
	edited := noExp
	edited.CopyTrade = &domain.CopyTrade{Target: noExp.CopyTrade.Target, Increment: decimal.NewFromInt(3)}
	require.NoError(t, s.Update(ctx, noExp.ID, edited))
	assert.Equal(t, "#3", s.Tag(noExp.ID))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{soonO.ID, lateO.ID, noExp.ID}, []string{snap[0].ID, snap[1].ID, snap[2].ID})
}

func TestStore_ActiveFiltersByStrategyAndStatus(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	c1, _ := s.Create(ctx, copyDraft())
	c2, _ := s.Create(ctx, copyDraft())
	_, _ = s.Create(ctx, conditionDraft(20))
	_, err := s.ToggleStatus(ctx, c2.ID)
	require.NoError(t, err)

	active := s.Active(domain.StrategyCopyTrade)
	require.Len(t, active, 1)
	assert.Equal(t, c1.ID, active[0].ID)
	assert.Len(t, s.Active(domain.StrategyConditionMatch), 1)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s, _, _ := newStore(t)
	o, err := s.Create(context.Background(), conditionDraft(20))
	require.NoError(t, err)

	snap := s.Snapshot()
	snap[0].ConditionMatch.TargetOdds = 99
	snap[0].Status = domain.StatusPaused

	got, _ := s.Get(o.ID)
	assert.Equal(t, 20, got.ConditionMatch.TargetOdds)
	assert.Equal(t, domain.StatusActive, got.Status)
}

func TestStore_LoadSkipsInvalid(t *testing.T) {
	repo := &mockRepo{loaded: []domain.Order{
		{ID: "good", Strategy: domain.StrategyConditionMatch, Status: domain.StatusActive,
			ConditionMatch: &domain.ConditionMatch{
				Selections: []domain.ConditionSelection{{ConditionID: "c", Outcome: domain.OutcomeNo}},
				TargetOdds: 10,
			}},
		{ID: "bad", Strategy: domain.StrategyCopyTrade, Status: domain.StatusActive},
	}}
	s := orderstore.New(repo, auditlog.New(auditlog.Config{}, nil, nil))

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("good")
	assert.True(t, ok)
}

func TestStore_ApplyAutoPauseIsIdempotent(t *testing.T) {
	s, audit, repo := newStore(t)
	ctx := context.Background()

	expiring := conditionDraft(25)
	expiring.Expiration = at(time.Minute)
	o, err := s.Create(ctx, expiring)
	require.NoError(t, err)

	future := conditionDraft(25)
	future.Expiration = at(48 * time.Hour)
	_, err = s.Create(ctx, future)
	require.NoError(t, err)

	now := base.Add(time.Minute + time.Second)
	savesBefore := repo.saves
	logBefore := audit.Len()

	changed := s.ApplyAutoPause(ctx, now)
	require.Len(t, changed, 1)
	assert.Equal(t, o.ID, changed[0].ID)
	assert.Equal(t, domain.StatusPaused, changed[0].Status)
	assert.Nil(t, changed[0].Expiration)
	require.NotNil(t, changed[0].AutoPausedAt)
	assert.True(t, changed[0].AutoPausedAt.Equal(now))
	assert.Equal(t, savesBefore+1, repo.saves)

	entries := audit.Entries()
	require.Equal(t, logBefore+1, len(entries))
	assert.Equal(t, domain.SeverityWarning, entries[0].Severity)
	assert.Equal(t, "Order #1 auto-paused: expiration reached", entries[0].Message)

	// second tick finds nothing to do
	assert.Empty(t, s.ApplyAutoPause(ctx, now.Add(5*time.Second)))
	assert.Equal(t, logBefore+1, audit.Len())
	assert.Equal(t, savesBefore+1, repo.saves)
}

func TestStore_ApplyAutoPauseSkipsPaused(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	draft := copyDraft()
	draft.Status = domain.StatusPaused
	draft.Expiration = at(time.Second)
	_, err := s.Create(ctx, draft)
	require.NoError(t, err)

	assert.Empty(t, s.ApplyAutoPause(ctx, base.Add(time.Hour)))
}
