package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/autobid/internal/domain"
)

const draftsYAML = `
orders:
  - copy_trade:
      target: "0x52908400098527886E0F7030069857D2E4169EE7"
      increment: "0.5"
  - condition_match:
      target_odds: 25
      selections:
        - condition_id: "0xc1"
          outcome: YES
    expiration: 2026-12-31T00:00:00Z
    paused: true
`

type fakeCreator struct {
	created []domain.Order
}

func (f *fakeCreator) Create(_ context.Context, d domain.Order) (domain.Order, error) {
	d.ID = "id"
	if err := d.Validate(); err != nil {
		return domain.Order{}, err
	}
	f.created = append(f.created, d)
	return d, nil
}

func (f *fakeCreator) Label(o domain.Order) string { return "#1 " + o.Summary() }

func TestParseDrafts(t *testing.T) {
	orders, err := parseDrafts([]byte(draftsYAML))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, domain.StrategyCopyTrade, orders[0].Strategy)
	assert.Equal(t, "0.5", orders[0].CopyTrade.Increment.String())
	assert.Equal(t, domain.StatusActive, orders[0].Status)

	cm := orders[1].ConditionMatch
	require.NotNil(t, cm)
	assert.Equal(t, 25, cm.TargetOdds)
	assert.Equal(t, domain.OutcomeYes, cm.Selections[0].Outcome)
	assert.Equal(t, domain.StatusPaused, orders[1].Status)
	require.NotNil(t, orders[1].Expiration)
	assert.Equal(t, 2026, orders[1].Expiration.Year())
}

func TestParseDrafts_Rejects(t *testing.T) {
	_, err := parseDrafts([]byte("orders:\n  - paused: true\n"))
	assert.Error(t, err)

	_, err = parseDrafts([]byte("orders:\n  - copy_trade: {target: x, increment: abc}\n"))
	assert.Error(t, err)
}

func TestImportDrafts_StopsAtInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.yaml")
	bad := draftsYAML + `
  - condition_match:
      target_odds: 100
      selections: [{condition_id: "0xc2", outcome: no}]
`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o600))

	f := &fakeCreator{}
	err := importDrafts(context.Background(), f, path)
	require.Error(t, err)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Len(t, f.created, 2)
}
