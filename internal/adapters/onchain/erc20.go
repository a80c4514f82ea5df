package onchain

// erc20.go — collateral token reads and the approve transaction.
//
// The funding gate reads balanceOf(account) and allowance(account, spender) on
// every check; there is no caching so a freshly approved spend is seen at once.
// Approve is the only write: it raises the spender's allowance so bids stop
// failing with "insufficient spend approved".

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
)

const (
	approvalGasLimit       = uint64(80_000)
	gasPriceUpdateInterval = 5 * time.Minute
	receiptTimeout         = 60 * time.Second
	receiptPollInterval    = 3 * time.Second
)

var erc20ABI abi.ABI

func init() {
	var err error
	erc20ABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "balanceOf",
			"type": "function",
			"inputs": [{"name": "account", "type": "address"}],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "approve",
			"type": "function",
			"inputs": [
				{"name": "spender", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "bool"}]
		},
		{
			"name": "allowance",
			"type": "function",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		}
	]`))
	if err != nil {
		panic("erc20 abi parse: " + err.Error())
	}
}

// Backend is the subset of *ethclient.Client the token adapter needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Token implements ports.FundingOracle for one ERC-20 collateral token.
type Token struct {
	backend Backend
	token   common.Address
	chainID *big.Int

	mu           sync.RWMutex
	cachedGasWei *big.Int
	gasUpdatedAt time.Time
}

// Dial connects to rpcURL and returns a Token for the given contract.
func Dial(rpcURL, token string, chainID int64) (*Token, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain.Dial: rpc %s: %w", rpcURL, err)
	}
	return NewToken(client, token, chainID)
}

// NewToken wraps an existing backend.
func NewToken(backend Backend, token string, chainID int64) (*Token, error) {
	if !common.IsHexAddress(token) {
		return nil, fmt.Errorf("onchain.NewToken: %q is not an address", token)
	}
	return &Token{
		backend: backend,
		token:   common.HexToAddress(token),
		chainID: big.NewInt(chainID),
	}, nil
}

// Balance returns balanceOf(account) in minor units.
func (t *Token) Balance(ctx context.Context, account string) (*uint256.Int, error) {
	v, err := t.call(ctx, "balanceOf", common.HexToAddress(account))
	if err != nil {
		return nil, fmt.Errorf("onchain.Balance: %w", err)
	}
	return v, nil
}

// Allowance returns allowance(account, spender) in minor units.
func (t *Token) Allowance(ctx context.Context, account, spender string) (*uint256.Int, error) {
	v, err := t.call(ctx, "allowance", common.HexToAddress(account), common.HexToAddress(spender))
	if err != nil {
		return nil, fmt.Errorf("onchain.Allowance: %w", err)
	}
	return v, nil
}

func (t *Token) call(ctx context.Context, method string, args ...any) (*uint256.Int, error) {
	callData, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	result, err := t.backend.CallContract(ctx, ethereum.CallMsg{To: &t.token, Data: callData}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	vals, err := erc20ABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	raw, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected %T", method, vals[0])
	}
	v, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, fmt.Errorf("%s: value overflows uint256", method)
	}
	return v, nil
}

// Approve sets spender's allowance to amount and waits for the receipt.
func (t *Token) Approve(ctx context.Context, key *ecdsa.PrivateKey, spender string, amount *uint256.Int) (common.Hash, error) {
	if key == nil {
		return common.Hash{}, errors.New("onchain.Approve: no private key configured")
	}
	callData, err := erc20ABI.Pack("approve", common.HexToAddress(spender), amount.ToBig())
	if err != nil {
		return common.Hash{}, fmt.Errorf("onchain.Approve: pack: %w", err)
	}

	from := addressOf(key)
	nonce, err := t.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("onchain.Approve: nonce: %w", err)
	}
	gasPrice, err := t.gasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("onchain.Approve: gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, t.token, big.NewInt(0), approvalGasLimit, gasPrice, callData)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(t.chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("onchain.Approve: sign: %w", err)
	}
	if err := t.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("onchain.Approve: send: %w", err)
	}

	receiptCtx, cancel := context.WithTimeout(ctx, receiptTimeout)
	defer cancel()
	receipt, err := t.waitForReceipt(receiptCtx, signed.Hash())
	if err != nil {
		return signed.Hash(), fmt.Errorf("onchain.Approve: wait receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return signed.Hash(), fmt.Errorf("onchain.Approve: tx %s reverted", signed.Hash().Hex())
	}
	return signed.Hash(), nil
}

// gasPrice returns the suggested gas price plus 10%, cached for a few minutes.
func (t *Token) gasPrice(ctx context.Context) (*big.Int, error) {
	t.mu.RLock()
	cached := t.cachedGasWei
	updatedAt := t.gasUpdatedAt
	t.mu.RUnlock()

	if cached != nil && time.Since(updatedAt) < gasPriceUpdateInterval {
		return cached, nil
	}

	price, err := t.backend.SuggestGasPrice(ctx)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return nil, err
	}
	buffered := new(big.Int).Mul(price, big.NewInt(11))
	buffered.Div(buffered, big.NewInt(10))

	t.mu.Lock()
	t.cachedGasWei = buffered
	t.gasUpdatedAt = time.Now()
	t.mu.Unlock()
	return buffered, nil
}

// waitForReceipt polls until the transaction is mined or ctx expires.
func (t *Token) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := t.backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
