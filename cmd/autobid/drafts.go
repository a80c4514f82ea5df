package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/autobid/internal/domain"
)

// draftFile es el formato de -import:
//
//	orders:
//	  - copy_trade: {target: "0x…", increment: "0.5"}
//	    expiration: 2026-12-31T00:00:00Z
//	  - condition_match:
//	      target_odds: 25
//	      selections: [{condition_id: "0x…", outcome: yes}]
type draftFile struct {
	Orders []orderDraft `yaml:"orders"`
}

type orderDraft struct {
	CopyTrade *struct {
		Target    string `yaml:"target"`
		Increment string `yaml:"increment"`
	} `yaml:"copy_trade"`
	ConditionMatch *struct {
		TargetOdds int `yaml:"target_odds"`
		Selections []struct {
			ConditionID string `yaml:"condition_id"`
			Outcome     string `yaml:"outcome"`
		} `yaml:"selections"`
	} `yaml:"condition_match"`
	Expiration *time.Time `yaml:"expiration"`
	Paused     bool       `yaml:"paused"`
}

// OrderCreator is the slice of the order store -import needs.
type OrderCreator interface {
	Create(ctx context.Context, draft domain.Order) (domain.Order, error)
	Label(o domain.Order) string
}

// parseDrafts decodes a drafts file into order drafts. Ids are assigned on Create.
func parseDrafts(data []byte) ([]domain.Order, error) {
	var f draftFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parseDrafts: %w", err)
	}

	out := make([]domain.Order, 0, len(f.Orders))
	for i, d := range f.Orders {
		o, err := d.toOrder()
		if err != nil {
			return nil, fmt.Errorf("parseDrafts: orders[%d]: %w", i, err)
		}
		out = append(out, o)
	}
	return out, nil
}

func (d orderDraft) toOrder() (domain.Order, error) {
	o := domain.Order{Status: domain.StatusActive, Expiration: d.Expiration}
	if d.Paused {
		o.Status = domain.StatusPaused
	}

	switch {
	case d.CopyTrade != nil && d.ConditionMatch != nil:
		return o, fmt.Errorf("copy_trade and condition_match are mutually exclusive")
	case d.CopyTrade != nil:
		inc, err := decimal.NewFromString(strings.TrimSpace(d.CopyTrade.Increment))
		if err != nil {
			return o, fmt.Errorf("increment %q: %w", d.CopyTrade.Increment, err)
		}
		o.Strategy = domain.StrategyCopyTrade
		o.CopyTrade = &domain.CopyTrade{Target: d.CopyTrade.Target, Increment: inc}
	case d.ConditionMatch != nil:
		cm := &domain.ConditionMatch{TargetOdds: d.ConditionMatch.TargetOdds}
		for _, s := range d.ConditionMatch.Selections {
			cm.Selections = append(cm.Selections, domain.ConditionSelection{
				ConditionID: s.ConditionID,
				Outcome:     domain.Outcome(strings.ToLower(strings.TrimSpace(s.Outcome))),
			})
		}
		o.Strategy = domain.StrategyConditionMatch
		o.ConditionMatch = cm
	default:
		return o, fmt.Errorf("one of copy_trade or condition_match is required")
	}
	return o, nil
}

// importDrafts crea una orden por draft. Se detiene en el primer draft inválido;
// los anteriores ya quedan creados.
func importDrafts(ctx context.Context, store OrderCreator, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("importDrafts: read %q: %w", path, err)
	}
	drafts, err := parseDrafts(data)
	if err != nil {
		return fmt.Errorf("importDrafts: %w", err)
	}
	for i, d := range drafts {
		o, err := store.Create(ctx, d)
		if err != nil {
			return fmt.Errorf("importDrafts: orders[%d]: %w", i, err)
		}
		slog.Info("order imported", "id", o.ID, "order", store.Label(o))
	}
	return nil
}
