package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Outcome is the side of a yes/no condition.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// Valid reports whether o is one of the two known outcomes.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// Opposite returns the other side.
func (o Outcome) Opposite() Outcome {
	if o == OutcomeYes {
		return OutcomeNo
	}
	return OutcomeYes
}

func (o Outcome) String() string {
	return strings.ToUpper(string(o))
}

// UnmarshalJSON accepts "yes"/"no" in any case, or a boolean prediction.
// null is rejected; it would otherwise decode as a false boolean.
func (o *Outcome) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return fmt.Errorf("outcome: null")
	}
	var asBool bool
	if err := json.Unmarshal(b, &asBool); err == nil {
		if asBool {
			*o = OutcomeYes
		} else {
			*o = OutcomeNo
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("outcome: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true":
		*o = OutcomeYes
	case "no", "false":
		*o = OutcomeNo
	default:
		return fmt.Errorf("outcome: unknown value %q", s)
	}
	return nil
}

// Leg is one (condition, outcome) pair requested in an auction.
type Leg struct {
	ConditionID string  `json:"conditionId"`
	Outcome     Outcome `json:"outcome"`
}

// AuctionContext holds the immutable parameters captured from AuctionStarted.
// CounterpartyWager is in minor units, as a decimal string.
type AuctionContext struct {
	AuctionID         string
	Resolver          string
	Counterparty      string
	CounterpartyWager string
	CounterpartyNonce uint64
	PredictedOutcomes []Leg
	ReceivedAt        time.Time
}

// Bid is an inbound maker bid seen on the feed. Read-only.
type Bid struct {
	Maker          string `json:"maker"`
	MakerWager     string `json:"makerWager"`
	MakerDeadline  int64  `json:"makerDeadline"`
	MakerSignature string `json:"makerSignature"`
	MakerNonce     uint64 `json:"makerNonce"`
}

// Event is the tagged union of feed events the engine understands.
type Event interface {
	AuctionKey() string
	isEvent()
}

// AuctionStarted opens an auction: a taker requests odds on PredictedOutcomes.
type AuctionStarted struct {
	AuctionID         string `json:"auctionId"`
	Resolver          string `json:"resolver"`
	Taker             string `json:"taker"`
	TakerWager        string `json:"takerWager"`
	TakerNonce        uint64 `json:"takerNonce"`
	PredictedOutcomes []Leg  `json:"predictedOutcomes"`
}

// AuctionBids carries the current set of maker bids for an auction.
type AuctionBids struct {
	AuctionID string `json:"auctionId"`
	Bids      []Bid  `json:"bids"`
}

func (e AuctionStarted) AuctionKey() string { return e.AuctionID }
func (e AuctionBids) AuctionKey() string    { return e.AuctionID }
func (AuctionStarted) isEvent()             {}
func (AuctionBids) isEvent()                {}

// Context converts the opening event into the cached auction context.
func (e AuctionStarted) Context(receivedAt time.Time) AuctionContext {
	return AuctionContext{
		AuctionID:         e.AuctionID,
		Resolver:          e.Resolver,
		Counterparty:      e.Taker,
		CounterpartyWager: e.TakerWager,
		CounterpartyNonce: e.TakerNonce,
		PredictedOutcomes: append([]Leg(nil), e.PredictedOutcomes...),
		ReceivedAt:        receivedAt,
	}
}

// FeedMessage is one validated message from the feed.
// ID is the feed's sequence key, or a content hash when the feed omits it.
type FeedMessage struct {
	ID    string
	Event Event
}

// SignedBid is the outbound bid sent to the relay.
type SignedBid struct {
	AuctionID         string `json:"auctionId"`
	Maker             string `json:"maker"`
	MakerWager        string `json:"makerWager"`
	TakerWager        string `json:"takerWager"`
	PredictedOutcomes []Leg  `json:"predictedOutcomes"`
	Resolver          string `json:"resolver"`
	Taker             string `json:"taker"`
	TakerNonce        uint64 `json:"takerNonce"`
	ExpirySeconds     int64  `json:"expirySeconds"`
	MakerDeadline     int64  `json:"makerDeadline"`
	Signature         string `json:"signature,omitempty"`
}

// RelayAck is the relay's acknowledgement of a submitted bid.
type RelayAck struct {
	Accepted bool   `json:"accepted"`
	BidID    string `json:"bidId,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Condition is catalog metadata for a condition id. Display only.
type Condition struct {
	ID       string
	Label    string
	Category string
}
