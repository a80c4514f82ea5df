package notify_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/autobid/internal/adapters/notify"
	"github.com/alejandrodnm/autobid/internal/domain"
)

type stubCatalog map[string]string

func (s stubCatalog) Resolve(_ context.Context, id string) (domain.Condition, error) {
	label, ok := s[id]
	if !ok {
		return domain.Condition{}, errors.New("not found")
	}
	return domain.Condition{ID: id, Label: label}, nil
}

func TestConsole_NotifyLog(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	err := n.NotifyLog(context.Background(), domain.LogEntry{
		CreatedAt: time.Now(),
		Kind:      domain.KindMatch,
		Severity:  domain.SeverityError,
		Message:   "Order #2 bid rejected: auction closed",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "ERR")
	assert.Contains(t, out, "match")
	assert.Contains(t, out, "Order #2 bid rejected: auction closed")
}

func TestConsole_PrintLog(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	n.PrintLog([]domain.LogEntry{{
		CreatedAt: time.Now(),
		Kind:      domain.KindOrder,
		Severity:  domain.SeveritySuccess,
		Message:   "Order #1 created",
		Metadata:  &domain.LogMetadata{OrderLabel: "#1 copy 0x5290…9EE7 +1"},
	}})

	out := buf.String()
	assert.Contains(t, out, "AUDIT LOG (1)")
	assert.Contains(t, out, "Order #1 created")
	assert.Contains(t, out, "OK")
}

func TestConsole_PrintLog_Empty(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf).PrintLog(nil)
	assert.Contains(t, buf.String(), "(empty)")
}

func TestConsole_PrintOrders(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)
	paused := time.Now()

	orders := []domain.Order{
		{
			ID:       "o-1",
			Strategy: domain.StrategyConditionMatch,
			Status:   domain.StatusActive,
			ConditionMatch: &domain.ConditionMatch{
				Selections: []domain.ConditionSelection{
					{ConditionID: "0xknown", Outcome: domain.OutcomeYes},
					{ConditionID: "0xunknown0000000000", Outcome: domain.OutcomeNo},
				},
				TargetOdds: 25,
			},
		},
		{
			ID:           "o-2",
			Strategy:     domain.StrategyCopyTrade,
			Status:       domain.StatusPaused,
			AutoPausedAt: &paused,
			CopyTrade: &domain.CopyTrade{
				Target:    "0x52908400098527886E0F7030069857D2E4169EE7",
				Increment: decimal.RequireFromString("2.5"),
			},
		},
	}

	n.PrintOrders(context.Background(), orders, stubCatalog{"0xknown": "Will it rain?"})

	out := buf.String()
	assert.Contains(t, out, "ORDERS (2, 1 active)")
	assert.Contains(t, out, "Will it rain? YES")
	assert.Contains(t, out, "0xunkn…0000 NO")
	assert.Contains(t, out, "25%")
	assert.Contains(t, out, "paused (expired)")
	assert.Contains(t, out, "+2.5")
}

func TestConsole_PrintOrders_Empty(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf).PrintOrders(context.Background(), nil, nil)
	assert.Contains(t, buf.String(), "(none)")
}
