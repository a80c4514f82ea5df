package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// StrategyKind identifies which payload of an Order is in use.
type StrategyKind string

const (
	StrategyCopyTrade      StrategyKind = "copy_trade"
	StrategyConditionMatch StrategyKind = "condition_match"
)

// OrderStatus is the user-visible lifecycle of a standing order.
type OrderStatus string

const (
	StatusActive OrderStatus = "active"
	StatusPaused OrderStatus = "paused"
)

const (
	MinTargetOdds = 1
	MaxTargetOdds = 99
)

// CopyTrade mirrors every bid placed by Target, adding Increment (human units).
type CopyTrade struct {
	Target    string          `json:"target"`
	Increment decimal.Decimal `json:"increment"`
}

// ConditionSelection is one leg the user is willing to offer odds on.
type ConditionSelection struct {
	ConditionID string  `json:"conditionId"`
	Outcome     Outcome `json:"outcome"`
}

// ConditionMatch offers TargetOdds (implied probability, percent) on Selections.
type ConditionMatch struct {
	Selections []ConditionSelection `json:"selections"`
	TargetOdds int                  `json:"targetOdds"`
}

// Order is a standing instruction owned by the order store.
// Exactly one of CopyTrade / ConditionMatch is set, matching Strategy.
type Order struct {
	ID             string          `json:"id"`
	Strategy       StrategyKind    `json:"strategy"`
	CopyTrade      *CopyTrade      `json:"copyTrade,omitempty"`
	ConditionMatch *ConditionMatch `json:"conditionMatch,omitempty"`
	Status         OrderStatus     `json:"status"`
	Expiration     *time.Time      `json:"expiration"`
	AutoPausedAt   *time.Time      `json:"autoPausedAt"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// IsActive reports whether the order participates in matching.
func (o Order) IsActive() bool {
	return o.Status == StatusActive
}

// Expired reports whether an active order's expiration has elapsed at now.
func (o Order) Expired(now time.Time) bool {
	return o.Status == StatusActive && o.Expiration != nil && !o.Expiration.After(now)
}

// Clone returns a deep copy so callers never share pointers with the store.
func (o Order) Clone() Order {
	c := o
	if o.CopyTrade != nil {
		ct := *o.CopyTrade
		c.CopyTrade = &ct
	}
	if o.ConditionMatch != nil {
		cm := *o.ConditionMatch
		cm.Selections = append([]ConditionSelection(nil), o.ConditionMatch.Selections...)
		c.ConditionMatch = &cm
	}
	if o.Expiration != nil {
		t := *o.Expiration
		c.Expiration = &t
	}
	if o.AutoPausedAt != nil {
		t := *o.AutoPausedAt
		c.AutoPausedAt = &t
	}
	return c
}

// Validate checks the per-strategy rules. The returned error is a *ValidationError.
func (o Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	switch o.Status {
	case StatusActive, StatusPaused:
	default:
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", o.Status)}
	}

	switch o.Strategy {
	case StrategyCopyTrade:
		if o.ConditionMatch != nil {
			return &ValidationError{Field: "conditionMatch", Reason: "not allowed on a copy_trade order"}
		}
		return validateCopyTrade(o.CopyTrade)
	case StrategyConditionMatch:
		if o.CopyTrade != nil {
			return &ValidationError{Field: "copyTrade", Reason: "not allowed on a condition_match order"}
		}
		return validateConditionMatch(o.ConditionMatch)
	default:
		return &ValidationError{Field: "strategy", Reason: fmt.Sprintf("unknown strategy %q", o.Strategy)}
	}
}

func validateCopyTrade(ct *CopyTrade) error {
	if ct == nil {
		return &ValidationError{Field: "copyTrade", Reason: "payload missing"}
	}
	if !common.IsHexAddress(ct.Target) {
		return &ValidationError{Field: "copyTrade.target", Reason: fmt.Sprintf("%q is not an address", ct.Target)}
	}
	if !ct.Increment.IsPositive() {
		return &ValidationError{Field: "copyTrade.increment", Reason: "must be greater than zero"}
	}
	return nil
}

func validateConditionMatch(cm *ConditionMatch) error {
	if cm == nil {
		return &ValidationError{Field: "conditionMatch", Reason: "payload missing"}
	}
	if len(cm.Selections) == 0 {
		return &ValidationError{Field: "conditionMatch.selections", Reason: "at least one selection required"}
	}
	seen := make(map[string]bool, len(cm.Selections))
	for i, sel := range cm.Selections {
		field := fmt.Sprintf("conditionMatch.selections[%d]", i)
		if strings.TrimSpace(sel.ConditionID) == "" {
			return &ValidationError{Field: field + ".conditionId", Reason: "must not be empty"}
		}
		if !sel.Outcome.Valid() {
			return &ValidationError{Field: field + ".outcome", Reason: "must be yes or no"}
		}
		key := NormalizeConditionID(sel.ConditionID)
		if seen[key] {
			return &ValidationError{Field: field + ".conditionId", Reason: "duplicate condition"}
		}
		seen[key] = true
	}
	if cm.TargetOdds < MinTargetOdds || cm.TargetOdds > MaxTargetOdds {
		return &ValidationError{
			Field:  "conditionMatch.targetOdds",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinTargetOdds, MaxTargetOdds, cm.TargetOdds),
		}
	}
	return nil
}

// ValidatePrecision rejects a copy-trade increment finer than one minor unit of a
// token with the given decimals; such dust would be truncated away when bidding.
func (o Order) ValidatePrecision(decimals int32) error {
	if o.CopyTrade == nil {
		return nil
	}
	inc := o.CopyTrade.Increment
	if !inc.Equal(inc.Truncate(decimals)) {
		return &ValidationError{
			Field:  "copyTrade.increment",
			Reason: fmt.Sprintf("has more than %d decimal places", decimals),
		}
	}
	return nil
}

// NormalizeAddress returns the checksummed form used for case-insensitive comparison.
// Non-address strings are lowercased as-is.
func NormalizeAddress(addr string) string {
	if common.IsHexAddress(addr) {
		return common.HexToAddress(addr).Hex()
	}
	return strings.ToLower(strings.TrimSpace(addr))
}

// NormalizeConditionID lowercases condition ids so 0xABC and 0xabc compare equal.
func NormalizeConditionID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Summary is a short human description of the order's instruction, without its tag.
func (o Order) Summary() string {
	switch {
	case o.CopyTrade != nil:
		return fmt.Sprintf("copy %s +%s", ShortHex(o.CopyTrade.Target), o.CopyTrade.Increment.String())
	case o.ConditionMatch != nil:
		legs := make([]string, 0, len(o.ConditionMatch.Selections))
		for _, sel := range o.ConditionMatch.Selections {
			legs = append(legs, fmt.Sprintf("%s %s", ShortHex(sel.ConditionID), sel.Outcome))
		}
		return fmt.Sprintf("%s @ %d%%", strings.Join(legs, " & "), o.ConditionMatch.TargetOdds)
	default:
		return string(o.Strategy)
	}
}

// ShortHex trims long hex identifiers to 0x1234…abcd for display.
// Cuts on rune boundaries, so non-ASCII ids never break mid-character.
func ShortHex(s string) string {
	r := []rune(s)
	if len(r) <= 12 {
		return s
	}
	return string(r[:6]) + "…" + string(r[len(r)-4:])
}
