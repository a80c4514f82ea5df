package engine

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/autobid/internal/domain"
	"github.com/alejandrodnm/autobid/internal/ports"
)

// FundingGate blocks a submission the account cannot pay for.
// Checks run in a fixed order: balance, allowance, then compliance.
type FundingGate struct {
	oracle     ports.FundingOracle
	compliance ports.Compliance
	account    string
	spender    string
}

// NewFundingGate creates a gate for account. compliance may be nil.
func NewFundingGate(oracle ports.FundingOracle, compliance ports.Compliance, account, spender string) *FundingGate {
	return &FundingGate{oracle: oracle, compliance: compliance, account: account, spender: spender}
}

// CheckFunds verifies balance and then allowance cover required.
// Returns domain.ErrInsufficientBalance or domain.ErrInsufficientAllowance when they don't.
func (g *FundingGate) CheckFunds(ctx context.Context, required *uint256.Int) error {
	balance, err := g.oracle.Balance(ctx, g.account)
	if err != nil {
		return fmt.Errorf("engine.CheckFunds: balance: %w", err)
	}
	if balance.Lt(required) {
		return fmt.Errorf("engine.CheckFunds: have %s need %s: %w", balance.Dec(), required.Dec(), domain.ErrInsufficientBalance)
	}

	allowance, err := g.oracle.Allowance(ctx, g.account, g.spender)
	if err != nil {
		return fmt.Errorf("engine.CheckFunds: allowance: %w", err)
	}
	if allowance.Lt(required) {
		return fmt.Errorf("engine.CheckFunds: approved %s need %s: %w", allowance.Dec(), required.Dec(), domain.ErrInsufficientAllowance)
	}
	return nil
}

// CheckCompliance blocks when the region is restricted or the check itself fails.
func (g *FundingGate) CheckCompliance(ctx context.Context) error {
	if g.compliance == nil {
		return nil
	}
	ok, err := g.compliance.Permitted(ctx)
	if err != nil {
		return fmt.Errorf("engine.CheckCompliance: %w", err)
	}
	if !ok {
		return fmt.Errorf("engine.CheckCompliance: %w", domain.ErrComplianceBlocked)
	}
	return nil
}

// Check runs the funding checks and then compliance against required.
func (g *FundingGate) Check(ctx context.Context, required *uint256.Int) error {
	if err := g.CheckFunds(ctx, required); err != nil {
		return err
	}
	return g.CheckCompliance(ctx)
}
