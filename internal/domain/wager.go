package domain

// wager.go — bid sizing in exact fixed-point arithmetic.
//
// Wagers are held in minor units of the settlement asset as uint256. Probabilities
// are scaled by ProbabilityScale (1 = 0.01%) so a target of 25% is 2500.
//
// For a counterparty wager T and probability p the maker stakes
//   makerWager / (makerWager + T) = p  →  makerWager = p·T / (1 − p)
// which in scaled integers is floor(pScaled·T / (ProbabilityScale − pScaled)).

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const ProbabilityScale = 10_000

// ScaledProbability turns a percentage into scaled units, flipped to the
// complementary side when inverted is true.
func ScaledProbability(targetOdds int, inverted bool) int64 {
	p := int64(targetOdds) * (ProbabilityScale / 100)
	if inverted {
		return ProbabilityScale - p
	}
	return p
}

// ConditionWager computes the maker wager that encodes pScaled against takerWager.
func ConditionWager(takerWager *uint256.Int, pScaled int64) (*uint256.Int, error) {
	if pScaled <= 0 || pScaled >= ProbabilityScale {
		return nil, fmt.Errorf("domain.ConditionWager: p=%d/%d: %w", pScaled, ProbabilityScale, ErrInvalidProbability)
	}
	denominator := ProbabilityScale - pScaled
	if denominator <= 0 {
		return nil, fmt.Errorf("domain.ConditionWager: denominator %d: %w", denominator, ErrInvalidProbability)
	}
	if takerWager == nil || takerWager.IsZero() {
		return nil, fmt.Errorf("domain.ConditionWager: counterparty wager is zero: %w", ErrZeroOrNegativeWager)
	}

	wager, overflow := new(uint256.Int).MulDivOverflow(
		takerWager,
		uint256.NewInt(uint64(pScaled)),
		uint256.NewInt(uint64(denominator)),
	)
	if overflow {
		return nil, fmt.Errorf("domain.ConditionWager: overflow for counterparty wager %s", takerWager.Dec())
	}
	if wager.IsZero() {
		return nil, fmt.Errorf("domain.ConditionWager: %w", ErrZeroOrNegativeWager)
	}
	return wager, nil
}

// CopyWager is the copied wager plus the order's increment, both in minor units.
func CopyWager(copied, increment *uint256.Int) (*uint256.Int, error) {
	if copied == nil || increment == nil {
		return nil, fmt.Errorf("domain.CopyWager: %w", ErrZeroOrNegativeWager)
	}
	sum, overflow := new(uint256.Int).AddOverflow(copied, increment)
	if overflow {
		return nil, fmt.Errorf("domain.CopyWager: overflow adding %s + %s", copied.Dec(), increment.Dec())
	}
	if sum.IsZero() {
		return nil, fmt.Errorf("domain.CopyWager: %w", ErrZeroOrNegativeWager)
	}
	return sum, nil
}

// ParseMinorUnits parses a base-10 minor-unit amount as sent on the wire.
func ParseMinorUnits(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("domain.ParseMinorUnits: %q: %w", s, err)
	}
	return v, nil
}

// ToMinorUnits converts a human amount to minor units, truncating sub-unit dust.
// A positive amount smaller than one minor unit is an error, never a silent zero.
func ToMinorUnits(amount decimal.Decimal, decimals int32) (*uint256.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("domain.ToMinorUnits: negative amount %s: %w", amount, ErrZeroOrNegativeWager)
	}
	shifted := amount.Shift(decimals).Truncate(0)
	v, overflow := uint256.FromBig(shifted.BigInt())
	if overflow {
		return nil, fmt.Errorf("domain.ToMinorUnits: %s overflows uint256", amount)
	}
	if v.IsZero() && amount.IsPositive() {
		return nil, fmt.Errorf("domain.ToMinorUnits: %s is below one unit at %d decimals: %w", amount, decimals, ErrZeroOrNegativeWager)
	}
	return v, nil
}

// ToHuman converts minor units back to a human decimal amount.
func ToHuman(v *uint256.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), -decimals)
}

// FormatUnits renders minor units as a human amount with the given display places.
func FormatUnits(v *uint256.Int, decimals, places int32) string {
	return ToHuman(v, decimals).Truncate(places).StringFixed(places)
}

// ImpliedPayout is the total pot the maker collects if the bid wins.
func ImpliedPayout(makerWager, takerWager *uint256.Int) *uint256.Int {
	return new(uint256.Int).Add(makerWager, takerWager)
}
