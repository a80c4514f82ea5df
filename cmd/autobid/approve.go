package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/autobid/config"
	"github.com/alejandrodnm/autobid/internal/adapters/onchain"
	"github.com/alejandrodnm/autobid/internal/domain"
)

// runApprove envía approve(spender, amount) sobre el token de colateral.
// amount va en unidades humanas ("250" = 250 USDC).
func runApprove(ctx context.Context, cfg *config.Config, amount string) error {
	if cfg.Chain.PrivateKey == "" {
		return fmt.Errorf("runApprove: AUTOBID_PRIVATE_KEY is not set")
	}
	human, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("runApprove: amount %q: %w", amount, err)
	}
	minor, err := domain.ToMinorUnits(human, cfg.Chain.Decimals)
	if err != nil {
		return fmt.Errorf("runApprove: %w", err)
	}

	key, err := onchain.ParsePrivateKey(cfg.Chain.PrivateKey)
	if err != nil {
		return fmt.Errorf("runApprove: %w", err)
	}
	token, err := onchain.Dial(cfg.Chain.RPCURL, cfg.Chain.CollateralToken, cfg.Chain.ChainID)
	if err != nil {
		return fmt.Errorf("runApprove: %w", err)
	}

	slog.Info("approve: sending", "spender", cfg.Chain.Spender, "amount", human.String())
	hash, err := token.Approve(ctx, key, cfg.Chain.Spender, minor)
	if err != nil {
		return fmt.Errorf("runApprove: %w", err)
	}
	slog.Info("approve: confirmed", "tx", hash.Hex())
	return nil
}
