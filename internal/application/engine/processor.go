package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/autobid/internal/domain"
	"github.com/alejandrodnm/autobid/internal/matcher"
)

// Handle processes one feed message. It must be called from a single goroutine;
// matching, dedup marks and dispatch happen here, submissions run elsewhere.
func (e *Engine) Handle(ctx context.Context, msg domain.FeedMessage) {
	if msg.Event == nil {
		return
	}
	if msg.ID != "" && !e.messages.MarkIfNew(msg.ID) {
		slog.Debug("engine: duplicate message", "id", msg.ID)
		return
	}

	switch ev := msg.Event.(type) {
	case domain.AuctionStarted:
		e.onAuctionStarted(ctx, ev)
	case domain.AuctionBids:
		e.onAuctionBids(ctx, ev)
	default:
		slog.Warn("engine: unknown event", "type", fmt.Sprintf("%T", msg.Event))
	}
}

func (e *Engine) onAuctionStarted(ctx context.Context, ev domain.AuctionStarted) {
	if domain.NormalizeAddress(ev.Taker) == domain.NormalizeAddress(e.signer.Address()) {
		slog.Debug("engine: ignoring own auction", "auction", ev.AuctionID)
		return
	}
	ac := ev.Context(e.now().UTC())
	if !e.auctions.Put(ac) {
		slog.Debug("engine: auction already known", "auction", ev.AuctionID)
	}
	ac, _ = e.auctions.Get(ev.AuctionID)

	candidates := matcher.MatchConditions(ac, e.orders.Active(domain.StrategyConditionMatch))
	for _, c := range candidates {
		if !e.processed.MarkIfNew(c.Key) {
			continue
		}
		label := e.orders.Label(c.Order)

		takerWager, err := domain.ParseMinorUnits(ac.CounterpartyWager)
		if err != nil {
			e.logComputation(ctx, c.Order, label, ac.AuctionID, err)
			continue
		}
		wager, err := domain.ConditionWager(takerWager, c.Probability)
		if err != nil {
			e.logComputation(ctx, c.Order, label, ac.AuctionID, err)
			continue
		}

		slog.Info("engine: condition match",
			"order", c.Order.ID,
			"auction", ac.AuctionID,
			"inverted", c.Inverted,
			"maker_wager", wager.Dec(),
		)
		e.dispatch(job{
			order:    c.Order,
			label:    label,
			auction:  ac,
			estimate: wager,
			wager:    wager,
		})
	}
}

func (e *Engine) onAuctionBids(ctx context.Context, ev domain.AuctionBids) {
	orders := e.orders.Active(domain.StrategyCopyTrade)
	if len(orders) == 0 {
		return
	}
	ac, ok := e.auctions.Get(ev.AuctionID)
	if !ok {
		slog.Debug("engine: skipping bids", "auction", ev.AuctionID, "err", domain.ErrMissingAuctionContext)
		return
	}

	self := domain.NormalizeAddress(e.signer.Address())
	bids := make([]domain.Bid, 0, len(ev.Bids))
	for _, b := range ev.Bids {
		if domain.NormalizeAddress(b.Maker) != self {
			bids = append(bids, b)
		}
	}

	for _, c := range matcher.MatchCopyTrade(ac.AuctionID, orders, bids) {
		if !e.processed.MarkIfNew(c.Key) {
			slog.Debug("engine: bid already processed", "key", c.Key)
			continue
		}
		label := e.orders.Label(c.Order)

		wager, err := e.copyWager(c)
		if err != nil {
			e.logComputation(ctx, c.Order, label, ac.AuctionID, err)
			continue
		}

		slog.Info("engine: copy match",
			"order", c.Order.ID,
			"auction", ac.AuctionID,
			"maker", c.Bid.Maker,
			"maker_wager", wager.Dec(),
		)
		e.dispatch(job{
			order:    c.Order,
			label:    label,
			auction:  ac,
			estimate: wager,
			wager:    wager,
		})
	}
}

func (e *Engine) copyWager(c matcher.CopyCandidate) (*uint256.Int, error) {
	copied, err := domain.ParseMinorUnits(c.Bid.MakerWager)
	if err != nil {
		return nil, err
	}
	inc, err := domain.ToMinorUnits(c.Order.CopyTrade.Increment, e.cfg.Decimals)
	if err != nil {
		return nil, err
	}
	return domain.CopyWager(copied, inc)
}

// logComputation records a sizing failure once per order and auction.
func (e *Engine) logComputation(ctx context.Context, o domain.Order, label, auctionID string, err error) {
	reason := "wager computation failed"
	switch {
	case errors.Is(err, domain.ErrInvalidProbability):
		reason = domain.ErrInvalidProbability.Error()
	case errors.Is(err, domain.ErrZeroOrNegativeWager):
		reason = domain.ErrZeroOrNegativeWager.Error()
	}
	slog.Warn("engine: computation failed", "order", o.ID, "auction", auctionID, "err", err)

	tag := tagOf(label)
	e.audit.AppendUnique(ctx, fmt.Sprintf("compute:%s:%s", o.ID, auctionID), domain.LogEntry{
		Kind:     domain.KindMatch,
		Severity: domain.SeverityError,
		Message:  fmt.Sprintf("Order %s skipped: %s", tag, reason),
		Metadata: &domain.LogMetadata{OrderID: o.ID, OrderLabel: label, Highlight: tag, AuctionID: auctionID},
	})
}
