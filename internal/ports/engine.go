package ports

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/autobid/internal/domain"
)

// FundingOracle reports the account's spendable collateral, in minor units.
type FundingOracle interface {
	// Balance returns the token balance held by account.
	Balance(ctx context.Context, account string) (*uint256.Int, error)

	// Allowance returns how much spender may move on behalf of account.
	Allowance(ctx context.Context, account, spender string) (*uint256.Int, error)
}

// Signer produces maker signatures for outbound bids. Key custody lives behind it.
type Signer interface {
	// Address is the maker account bids are signed for.
	Address() string

	// SignBid returns the hex signature over bid, or an error if signing was refused.
	SignBid(ctx context.Context, bid domain.SignedBid) (string, error)
}

// Relay accepts signed bids and acknowledges or rejects them.
type Relay interface {
	SubmitBid(ctx context.Context, bid domain.SignedBid) (domain.RelayAck, error)
}

// ConditionCatalog resolves condition ids to display metadata. Never used for matching.
type ConditionCatalog interface {
	Resolve(ctx context.Context, conditionID string) (domain.Condition, error)
}

// Compliance reports whether bidding is permitted from the current region.
type Compliance interface {
	Permitted(ctx context.Context) (bool, error)
}

// FeedSource delivers validated feed messages in arrival order.
type FeedSource interface {
	// Messages streams messages until ctx is cancelled; the channel is closed on exit.
	Messages(ctx context.Context) <-chan domain.FeedMessage
}
