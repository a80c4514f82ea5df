// Package engine reacts to the auction feed on behalf of the user's standing
// orders: it matches, sizes, funds, signs and submits bids.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/autobid/internal/auditlog"
	"github.com/alejandrodnm/autobid/internal/cache"
	"github.com/alejandrodnm/autobid/internal/domain"
	"github.com/alejandrodnm/autobid/internal/ports"
)

const (
	defaultBidExpiry     = 60 * time.Second
	defaultSubmitTimeout = 30 * time.Second
	defaultDecimals      = 6
	resultsBuffer        = 64
)

// OrderSource es el subconjunto del order store que usa el engine.
// Desacopla el engine de *orderstore.Store concreto.
type OrderSource interface {
	Active(kind domain.StrategyKind) []domain.Order
	Label(o domain.Order) string
}

// Config holds the engine's tunables.
type Config struct {
	// Spender is the contract whose allowance is checked by the funding gate.
	Spender string
	// Decimals of the collateral token, used to convert human increments.
	Decimals int32

	BidExpiry     time.Duration
	SubmitTimeout time.Duration

	MessageIDs      int
	ProcessedBids   int
	AuctionContexts int
}

func (c *Config) setDefaults() {
	if c.Decimals <= 0 {
		c.Decimals = defaultDecimals
	}
	if c.BidExpiry <= 0 {
		c.BidExpiry = defaultBidExpiry
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = defaultSubmitTimeout
	}
	if c.MessageIDs <= 0 {
		c.MessageIDs = cache.DefaultMessageIDs
	}
	if c.ProcessedBids <= 0 {
		c.ProcessedBids = cache.DefaultProcessedBids
	}
	if c.AuctionContexts <= 0 {
		c.AuctionContexts = cache.DefaultAuctionContexts
	}
}

// Engine consumes feed messages one at a time and spawns a submission task per match.
type Engine struct {
	cfg    Config
	orders OrderSource
	audit  *auditlog.Log
	gate   *FundingGate
	signer ports.Signer
	relay  ports.Relay
	now    func() time.Time

	messages  *cache.KeySet
	processed *cache.KeySet
	auctions  *cache.AuctionContexts

	results      chan result
	inflight     sync.WaitGroup
	startOnce    sync.Once
	reporterDone chan struct{}
}

// New creates an engine. compliance may be nil (always permitted).
func New(
	cfg Config,
	orders OrderSource,
	audit *auditlog.Log,
	oracle ports.FundingOracle,
	compliance ports.Compliance,
	signer ports.Signer,
	relay ports.Relay,
) (*Engine, error) {
	cfg.setDefaults()

	messages, err := cache.NewKeySet(cfg.MessageIDs)
	if err != nil {
		return nil, fmt.Errorf("engine.New: message ids: %w", err)
	}
	processed, err := cache.NewKeySet(cfg.ProcessedBids)
	if err != nil {
		return nil, fmt.Errorf("engine.New: processed bids: %w", err)
	}
	auctions, err := cache.NewAuctionContexts(cfg.AuctionContexts)
	if err != nil {
		return nil, fmt.Errorf("engine.New: auction contexts: %w", err)
	}

	return &Engine{
		cfg:          cfg,
		orders:       orders,
		audit:        audit,
		gate:         NewFundingGate(oracle, compliance, signer.Address(), cfg.Spender),
		signer:       signer,
		relay:        relay,
		now:          time.Now,
		messages:     messages,
		processed:    processed,
		auctions:     auctions,
		results:      make(chan result, resultsBuffer),
		reporterDone: make(chan struct{}),
	}, nil
}

// SetClock overrides the time source (tests).
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Start launches the reporter goroutine. Safe to call more than once.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		go e.report()
	})
}

// Wait blocks until every spawned submission has been reported.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Stop waits for in-flight submissions and shuts the reporter down.
// The engine cannot be restarted afterwards.
func (e *Engine) Stop() {
	e.Start()
	e.Wait()
	close(e.results)
	<-e.reporterDone
}

// Run consumes feed until its channel closes or ctx is cancelled.
// In-flight submissions are not cancelled; Run returns once they are reported.
func (e *Engine) Run(ctx context.Context, feed ports.FeedSource) error {
	e.Start()
	slog.Info("engine: starting",
		"account", e.signer.Address(),
		"bid_expiry", e.cfg.BidExpiry,
	)

	for msg := range feed.Messages(ctx) {
		e.Handle(ctx, msg)
	}

	slog.Info("engine: feed closed, draining submissions")
	e.Stop()
	slog.Info("engine: stopped")
	return nil
}

// tagOf extracts the "#N" tag from a "#N summary" label.
func tagOf(label string) string {
	tag, _, _ := strings.Cut(label, " ")
	return tag
}
