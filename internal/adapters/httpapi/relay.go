package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/alejandrodnm/autobid/internal/domain"
)

const bidsPath = "/bids"

// Relay implementa ports.Relay sobre POST /bids.
type Relay struct {
	c *Client
}

// NewRelay returns the relay adapter backed by c.
func NewRelay(c *Client) *Relay {
	return &Relay{c: c}
}

// SubmitBid posts a signed bid once. A 4xx answer is a rejection with the relay's
// reason; transport failures wrap domain.ErrRelaySubmissionFailed.
func (r *Relay) SubmitBid(ctx context.Context, bid domain.SignedBid) (domain.RelayAck, error) {
	if r.c.cfg.RelayBase == "" {
		return domain.RelayAck{}, fmt.Errorf("httpapi.SubmitBid: no relay configured: %w", domain.ErrRelaySubmissionFailed)
	}
	url := strings.TrimRight(r.c.cfg.RelayBase, "/") + bidsPath

	var ack domain.RelayAck
	err := r.c.post(ctx, r.c.relayLimiter, 0, url, bid, &ack)

	var se *StatusError
	if errors.As(err, &se) {
		return domain.RelayAck{Accepted: false, Reason: rejectionReason(se)}, nil
	}
	if err != nil {
		return domain.RelayAck{}, fmt.Errorf("httpapi.SubmitBid: %w: %v", domain.ErrRelaySubmissionFailed, err)
	}
	return ack, nil
}

// rejectionReason prefers the relay's structured reason over the raw body.
func rejectionReason(se *StatusError) string {
	var body struct {
		Reason string `json:"reason"`
		Error  string `json:"error"`
	}
	if json.Unmarshal([]byte(se.Body), &body) == nil {
		if body.Reason != "" {
			return body.Reason
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if s := strings.TrimSpace(se.Body); s != "" {
		return s
	}
	return fmt.Sprintf("status %d", se.Code)
}
