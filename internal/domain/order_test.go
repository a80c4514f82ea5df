package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const target = "0x52908400098527886E0F7030069857D2E4169EE7"

func copyOrder() Order {
	return Order{
		ID:        "o-1",
		Strategy:  StrategyCopyTrade,
		CopyTrade: &CopyTrade{Target: target, Increment: decimal.RequireFromString("0.5")},
		Status:    StatusActive,
	}
}

func conditionOrder(odds int, sels ...ConditionSelection) Order {
	return Order{
		ID:             "o-2",
		Strategy:       StrategyConditionMatch,
		ConditionMatch: &ConditionMatch{Selections: sels, TargetOdds: odds},
		Status:         StatusActive,
	}
}

func validationField(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Field
}

func TestOrder_Validate_CopyTrade(t *testing.T) {
	assert.NoError(t, copyOrder().Validate())

	o := copyOrder()
	o.CopyTrade.Increment = decimal.Zero
	assert.Equal(t, "copyTrade.increment", validationField(t, o.Validate()))

	o = copyOrder()
	o.CopyTrade.Target = "not-an-address"
	assert.Equal(t, "copyTrade.target", validationField(t, o.Validate()))

	o = copyOrder()
	o.CopyTrade = nil
	assert.Equal(t, "copyTrade", validationField(t, o.Validate()))
}

func TestOrder_ValidatePrecision(t *testing.T) {
	o := copyOrder()
	o.CopyTrade.Increment = decimal.RequireFromString("0.0000001")
	assert.NoError(t, o.Validate())
	assert.Equal(t, "copyTrade.increment", validationField(t, o.ValidatePrecision(6)))

	o.CopyTrade.Increment = decimal.RequireFromString("0.500000")
	assert.NoError(t, o.ValidatePrecision(6))

	assert.NoError(t, conditionOrder(25, ConditionSelection{ConditionID: "0xc1", Outcome: OutcomeYes}).ValidatePrecision(0))
}

func TestOrder_Validate_ConditionMatch(t *testing.T) {
	sel := ConditionSelection{ConditionID: "0xc1", Outcome: OutcomeYes}
	assert.NoError(t, conditionOrder(25, sel).Validate())

	assert.Equal(t, "conditionMatch.selections", validationField(t, conditionOrder(25).Validate()))
	assert.Equal(t, "conditionMatch.targetOdds", validationField(t, conditionOrder(0, sel).Validate()))
	assert.Equal(t, "conditionMatch.targetOdds", validationField(t, conditionOrder(100, sel).Validate()))

	dup := conditionOrder(25, sel, ConditionSelection{ConditionID: "0xC1", Outcome: OutcomeNo})
	assert.Equal(t, "conditionMatch.selections[1].conditionId", validationField(t, dup.Validate()))

	bad := conditionOrder(25, ConditionSelection{ConditionID: "0xc1", Outcome: "maybe"})
	assert.Equal(t, "conditionMatch.selections[0].outcome", validationField(t, bad.Validate()))
}

func TestOrder_Validate_StrategyPayloadMismatch(t *testing.T) {
	o := copyOrder()
	o.ConditionMatch = &ConditionMatch{TargetOdds: 10}
	assert.Equal(t, "conditionMatch", validationField(t, o.Validate()))

	o = copyOrder()
	o.Strategy = "grid"
	assert.Equal(t, "strategy", validationField(t, o.Validate()))
}

func TestOrder_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	o := copyOrder()
	assert.False(t, o.Expired(now))

	past := now.Add(-time.Second)
	o.Expiration = &past
	assert.True(t, o.Expired(now))

	o.Status = StatusPaused
	assert.False(t, o.Expired(now))

	future := now.Add(time.Minute)
	o.Status = StatusActive
	o.Expiration = &future
	assert.False(t, o.Expired(now))
}

func TestOrder_CloneDoesNotAlias(t *testing.T) {
	o := conditionOrder(30, ConditionSelection{ConditionID: "0xc1", Outcome: OutcomeYes})
	exp := time.Now()
	o.Expiration = &exp

	c := o.Clone()
	c.ConditionMatch.Selections[0].Outcome = OutcomeNo
	*c.Expiration = exp.Add(time.Hour)

	assert.Equal(t, OutcomeYes, o.ConditionMatch.Selections[0].Outcome)
	assert.Equal(t, exp, *o.Expiration)
}

func TestNormalizeAddress_CaseInsensitive(t *testing.T) {
	lower := "0x52908400098527886e0f7030069857d2e4169ee7"
	assert.Equal(t, NormalizeAddress(target), NormalizeAddress(lower))
}

func TestOutcome_UnmarshalJSON(t *testing.T) {
	var legs []Leg
	err := json.Unmarshal([]byte(`[
		{"conditionId":"a","outcome":"YES"},
		{"conditionId":"b","outcome":"no"},
		{"conditionId":"c","outcome":true},
		{"conditionId":"d","outcome":false}
	]`), &legs)
	require.NoError(t, err)
	assert.Equal(t, []Outcome{OutcomeYes, OutcomeNo, OutcomeYes, OutcomeNo},
		[]Outcome{legs[0].Outcome, legs[1].Outcome, legs[2].Outcome, legs[3].Outcome})

	var o Outcome
	assert.Error(t, json.Unmarshal([]byte(`"perhaps"`), &o))

	// null must not fall through to a false boolean
	err = json.Unmarshal([]byte(`[{"conditionId":"a","outcome":null}]`), &legs)
	assert.Error(t, err)
}

func TestShortHex_RuneSafe(t *testing.T) {
	assert.Equal(t, "0xc1", ShortHex("0xc1"))
	assert.Equal(t, "0x5290…9EE7", ShortHex(target))

	id := "0xéééééééééééé€€€€"
	short := ShortHex(id)
	assert.True(t, utf8.ValidString(short))
	assert.Equal(t, "0xéééé…€€€€", short)
}

func TestOrder_Summary(t *testing.T) {
	assert.Equal(t, "copy 0x5290…9EE7 +0.5", copyOrder().Summary())
	o := conditionOrder(25, ConditionSelection{ConditionID: "0xc1", Outcome: OutcomeYes})
	assert.Equal(t, "0xc1 YES @ 25%", o.Summary())
}
