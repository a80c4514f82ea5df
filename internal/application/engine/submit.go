package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/autobid/internal/domain"
)

// job is one matched order ready to be funded, signed and submitted.
type job struct {
	order    domain.Order
	label    string
	auction  domain.AuctionContext
	estimate *uint256.Int
	wager    *uint256.Int
}

// result is the single terminal outcome of a job, written to the audit log by the reporter.
// dedupKey, when set, suppresses repeats of the same failure.
type result struct {
	entry    domain.LogEntry
	dedupKey string
}

// dispatch spawns the submission task. The dedup mark has already been set.
func (e *Engine) dispatch(j job) {
	e.inflight.Add(1)
	go func() {
		// detached: pausing an order or stopping the feed never cancels a submission
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.SubmitTimeout)
		defer cancel()
		e.results <- e.submit(ctx, j)
	}()
}

// report drains results into the audit log until the channel is closed.
func (e *Engine) report() {
	defer close(e.reporterDone)
	for r := range e.results {
		if r.entry.Message != "" {
			ctx := context.Background()
			if r.dedupKey != "" {
				e.audit.AppendUnique(ctx, r.dedupKey, r.entry)
			} else {
				e.audit.Append(ctx, r.entry)
			}
		}
		e.inflight.Done()
	}
}

// submit runs the gate against the estimate, builds the bid, re-checks funds against
// the exact wager, signs and relays. Exactly one result is returned.
func (e *Engine) submit(ctx context.Context, j job) result {
	if err := e.gate.Check(ctx, j.estimate); err != nil {
		return e.gateFailure(j, err)
	}

	bid := e.buildBid(j)

	if err := e.gate.CheckFunds(ctx, j.wager); err != nil {
		return e.gateFailure(j, err)
	}

	sig, err := e.signer.SignBid(ctx, bid)
	if err != nil {
		slog.Error("engine: signing failed", "order", j.order.ID, "auction", j.auction.AuctionID, "err", err)
		return e.outcome(j, domain.SeverityError, fmt.Sprintf("signing failed: %v", err))
	}
	bid.Signature = sig

	ack, err := e.relay.SubmitBid(ctx, bid)
	if err != nil {
		slog.Error("engine: relay failed", "order", j.order.ID, "auction", j.auction.AuctionID, "err", err)
		return e.outcome(j, domain.SeverityError, fmt.Sprintf("bid rejected: %v", err))
	}
	if !ack.Accepted {
		reason := ack.Reason
		if reason == "" {
			reason = "no reason given"
		}
		slog.Warn("engine: bid rejected", "order", j.order.ID, "auction", j.auction.AuctionID, "reason", reason)
		return e.outcome(j, domain.SeverityError, fmt.Sprintf("bid rejected: %s", reason))
	}

	size := domain.FormatUnits(j.wager, e.cfg.Decimals, 2)
	payout := domain.FormatUnits(domain.ImpliedPayout(j.wager, mustTakerWager(j.auction)), e.cfg.Decimals, 2)
	slog.Info("engine: bid submitted",
		"order", j.order.ID,
		"auction", j.auction.AuctionID,
		"bid_id", ack.BidID,
		"maker_wager", j.wager.Dec(),
	)
	return e.outcome(j, domain.SeveritySuccess, fmt.Sprintf("bid placed: %s to win %s", size, payout))
}

func (e *Engine) buildBid(j job) domain.SignedBid {
	return domain.SignedBid{
		AuctionID:         j.auction.AuctionID,
		Maker:             e.signer.Address(),
		MakerWager:        j.wager.Dec(),
		TakerWager:        j.auction.CounterpartyWager,
		PredictedOutcomes: append([]domain.Leg(nil), j.auction.PredictedOutcomes...),
		Resolver:          j.auction.Resolver,
		Taker:             j.auction.Counterparty,
		TakerNonce:        j.auction.CounterpartyNonce,
		ExpirySeconds:     int64(e.cfg.BidExpiry.Seconds()),
		MakerDeadline:     e.now().Add(e.cfg.BidExpiry).Unix(),
	}
}

// gateFailure maps a funding or compliance failure to its log entry.
// Repeats for the same order and auction are suppressed.
func (e *Engine) gateFailure(j job, err error) result {
	var (
		sev    = domain.SeverityWarning
		reason string
		kind   string
	)
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		reason, kind = domain.ErrInsufficientBalance.Error(), "balance"
	case errors.Is(err, domain.ErrInsufficientAllowance):
		reason, kind = domain.ErrInsufficientAllowance.Error(), "allowance"
	case errors.Is(err, domain.ErrComplianceBlocked):
		sev, reason, kind = domain.SeverityError, domain.ErrComplianceBlocked.Error(), "compliance"
	default:
		sev, reason, kind = domain.SeverityError, fmt.Sprintf("funding check failed: %v", err), "oracle"
	}
	slog.Warn("engine: submission blocked", "order", j.order.ID, "auction", j.auction.AuctionID, "err", err)

	r := e.outcome(j, sev, "skipped: "+reason)
	r.dedupKey = fmt.Sprintf("funding:%s:%s:%s", j.order.ID, j.auction.AuctionID, kind)
	return r
}

func (e *Engine) outcome(j job, sev domain.Severity, what string) result {
	tag := tagOf(j.label)
	return result{entry: domain.LogEntry{
		Kind:     domain.KindMatch,
		Severity: sev,
		Message:  fmt.Sprintf("Order %s %s", tag, what),
		Metadata: &domain.LogMetadata{
			OrderID:    j.order.ID,
			OrderLabel: j.label,
			Highlight:  tag,
			AuctionID:  j.auction.AuctionID,
		},
	}}
}

// mustTakerWager parses the cached counterparty wager. An unparseable wager counts
// as zero so the payout shown is just the bid size.
func mustTakerWager(ac domain.AuctionContext) *uint256.Int {
	v, err := domain.ParseMinorUnits(ac.CounterpartyWager)
	if err != nil {
		return new(uint256.Int)
	}
	return v
}
