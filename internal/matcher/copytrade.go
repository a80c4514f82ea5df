// Package matcher decides which standing orders react to an auction event.
// Matchers are pure: they read order snapshots and never touch shared state.
package matcher

import (
	"fmt"

	"github.com/alejandrodnm/autobid/internal/domain"
)

// CopyCandidate is one (order, bid) pair where the bid's maker is the order's target.
type CopyCandidate struct {
	Order domain.Order
	Bid   domain.Bid
	Key   string
}

// CopyTradeKey identifies a copy decision. The maker signature is unique per bid;
// bids without one fall back to maker and wager.
func CopyTradeKey(orderID, auctionID string, bid domain.Bid) string {
	if bid.MakerSignature != "" {
		return fmt.Sprintf("copy:%s:%s:%s", orderID, auctionID, bid.MakerSignature)
	}
	return fmt.Sprintf("copy:%s:%s:%s:%s", orderID, auctionID, domain.NormalizeAddress(bid.Maker), bid.MakerWager)
}

// MatchCopyTrade pairs every bid with every active CopyTrade order targeting its maker.
// Bids are walked in feed order, orders in the order given.
func MatchCopyTrade(auctionID string, orders []domain.Order, bids []domain.Bid) []CopyCandidate {
	if len(orders) == 0 || len(bids) == 0 {
		return nil
	}
	targets := make(map[string][]domain.Order, len(orders))
	for _, o := range orders {
		if !o.IsActive() || o.Strategy != domain.StrategyCopyTrade || o.CopyTrade == nil {
			continue
		}
		t := domain.NormalizeAddress(o.CopyTrade.Target)
		targets[t] = append(targets[t], o)
	}

	var out []CopyCandidate
	for _, b := range bids {
		for _, o := range targets[domain.NormalizeAddress(b.Maker)] {
			out = append(out, CopyCandidate{
				Order: o,
				Bid:   b,
				Key:   CopyTradeKey(o.ID, auctionID, b),
			})
		}
	}
	return out
}
