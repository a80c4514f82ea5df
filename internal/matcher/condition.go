package matcher

import (
	"fmt"

	"github.com/alejandrodnm/autobid/internal/domain"
)

// ConditionCandidate is a ConditionMatch order that reacts to an auction.
// Probability is scaled by domain.ProbabilityScale and already reflects inversion.
type ConditionCandidate struct {
	Order       domain.Order
	Inverted    bool
	Probability int64
	Key         string
}

// ConditionKey identifies a condition decision for one order on one auction.
func ConditionKey(orderID, auctionID string) string {
	return fmt.Sprintf("cond:%s:%s", orderID, auctionID)
}

// MatchSelections compares an order's selections with the auction's legs.
//
//   - direct: same set of conditions with the same outcomes, in any order
//   - inverted: a single selection against a single leg on the same condition,
//     with the opposite outcome
//
// Partial overlap between multi-leg sets never matches.
func MatchSelections(selections []domain.ConditionSelection, legs []domain.Leg) (matched, inverted bool) {
	if len(selections) == 0 || len(selections) != len(legs) {
		return false, false
	}

	if len(legs) == 1 {
		s, l := selections[0], legs[0]
		if domain.NormalizeConditionID(s.ConditionID) != domain.NormalizeConditionID(l.ConditionID) {
			return false, false
		}
		switch l.Outcome {
		case s.Outcome:
			return true, false
		case s.Outcome.Opposite():
			return true, true
		}
		return false, false
	}

	want := make(map[string]domain.Outcome, len(legs))
	for _, l := range legs {
		id := domain.NormalizeConditionID(l.ConditionID)
		if _, dup := want[id]; dup {
			return false, false
		}
		want[id] = l.Outcome
	}
	for _, s := range selections {
		out, ok := want[domain.NormalizeConditionID(s.ConditionID)]
		if !ok || out != s.Outcome {
			return false, false
		}
	}
	return true, false
}

// MatchConditions returns the active ConditionMatch orders that react to auction.
func MatchConditions(auction domain.AuctionContext, orders []domain.Order) []ConditionCandidate {
	var out []ConditionCandidate
	for _, o := range orders {
		if !o.IsActive() || o.Strategy != domain.StrategyConditionMatch || o.ConditionMatch == nil {
			continue
		}
		matched, inverted := MatchSelections(o.ConditionMatch.Selections, auction.PredictedOutcomes)
		if !matched {
			continue
		}
		out = append(out, ConditionCandidate{
			Order:       o,
			Inverted:    inverted,
			Probability: domain.ScaledProbability(o.ConditionMatch.TargetOdds, inverted),
			Key:         ConditionKey(o.ID, auction.AuctionID),
		})
	}
	return out
}
