package domain

import (
	"errors"
	"fmt"
)

// ValidationError rejects a malformed order draft before any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order: %s %s", e.Field, e.Reason)
}

var (
	ErrOrderNotFound = errors.New("order not found")

	// Funding, checked in this order.
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient spend approved")

	ErrComplianceBlocked = errors.New("bidding is restricted in this region")

	ErrInvalidProbability    = errors.New("invalid probability")
	ErrZeroOrNegativeWager   = errors.New("computed wager is zero or negative")
	ErrMissingAuctionContext = errors.New("missing auction context")

	ErrSignatureRejected     = errors.New("signature rejected")
	ErrRelaySubmissionFailed = errors.New("relay submission failed")
)
