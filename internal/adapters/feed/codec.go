package feed

// codec.go — validación del feed en la frontera.
//
// Todo mensaje se convierte en un domain.Event tipado o se rechaza aquí;
// los matchers nunca ven JSON crudo.

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/alejandrodnm/autobid/internal/domain"
)

const (
	TypeAuctionStarted = "auction.started"
	TypeAuctionBids    = "auction.bids"
)

// ErrMalformed marks a message rejected at the boundary.
var ErrMalformed = errors.New("malformed feed message")

type envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ParseMessage decodes and validates one raw feed frame.
// A frame without id gets the keccak256 of its type and payload.
func ParseMessage(raw []byte) (domain.FeedMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.FeedMessage{}, fmt.Errorf("feed.ParseMessage: %w: %v", ErrMalformed, err)
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return domain.FeedMessage{}, fmt.Errorf("feed.ParseMessage: %w: missing payload", ErrMalformed)
	}

	var ev domain.Event
	switch env.Type {
	case TypeAuctionStarted:
		var p domain.AuctionStarted
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return domain.FeedMessage{}, fmt.Errorf("feed.ParseMessage: %s: %w: %v", env.Type, ErrMalformed, err)
		}
		if err := validateStarted(p); err != nil {
			return domain.FeedMessage{}, fmt.Errorf("feed.ParseMessage: %s: %w: %v", env.Type, ErrMalformed, err)
		}
		ev = p
	case TypeAuctionBids:
		var p domain.AuctionBids
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return domain.FeedMessage{}, fmt.Errorf("feed.ParseMessage: %s: %w: %v", env.Type, ErrMalformed, err)
		}
		if err := validateBids(p); err != nil {
			return domain.FeedMessage{}, fmt.Errorf("feed.ParseMessage: %s: %w: %v", env.Type, ErrMalformed, err)
		}
		ev = p
	default:
		return domain.FeedMessage{}, fmt.Errorf("feed.ParseMessage: %w: unknown type %q", ErrMalformed, env.Type)
	}

	id := strings.TrimSpace(env.ID)
	if id == "" {
		id = crypto.Keccak256Hash([]byte(env.Type), env.Payload).Hex()
	}
	return domain.FeedMessage{ID: id, Event: ev}, nil
}

func validateStarted(p domain.AuctionStarted) error {
	if strings.TrimSpace(p.AuctionID) == "" {
		return errors.New("auctionId is empty")
	}
	if !common.IsHexAddress(p.Taker) {
		return fmt.Errorf("taker %q is not an address", p.Taker)
	}
	if _, err := domain.ParseMinorUnits(p.TakerWager); err != nil {
		return fmt.Errorf("takerWager: %v", err)
	}
	if len(p.PredictedOutcomes) == 0 {
		return errors.New("predictedOutcomes is empty")
	}
	for i, l := range p.PredictedOutcomes {
		if strings.TrimSpace(l.ConditionID) == "" {
			return fmt.Errorf("predictedOutcomes[%d].conditionId is empty", i)
		}
		if !l.Outcome.Valid() {
			return fmt.Errorf("predictedOutcomes[%d].outcome is missing", i)
		}
	}
	return nil
}

func validateBids(p domain.AuctionBids) error {
	if strings.TrimSpace(p.AuctionID) == "" {
		return errors.New("auctionId is empty")
	}
	for i, b := range p.Bids {
		if !common.IsHexAddress(b.Maker) {
			return fmt.Errorf("bids[%d].maker %q is not an address", i, b.Maker)
		}
		if _, err := domain.ParseMinorUnits(b.MakerWager); err != nil {
			return fmt.Errorf("bids[%d].makerWager: %v", i, err)
		}
	}
	return nil
}
