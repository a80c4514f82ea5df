package onchain

// signer.go — EIP-712 signatures for outbound bids.
//
// The typed struct mirrors domain.SignedBid minus the signature itself. Legs are
// an array of Leg structs so the signature commits to each predicted outcome.

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/alejandrodnm/autobid/internal/domain"
)

// Domain is the EIP-712 domain separator bids are signed under.
type Domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract string
}

// LocalSigner implements ports.Signer with a key held in process memory.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	domain  Domain
}

// ParsePrivateKey decodes a hex private key, with or without 0x.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("onchain.ParsePrivateKey: %w", err)
	}
	return key, nil
}

// NewLocalSigner creates a signer for key under domain.
func NewLocalSigner(key *ecdsa.PrivateKey, d Domain) *LocalSigner {
	return &LocalSigner{key: key, address: addressOf(key), domain: d}
}

// Address is the checksummed maker address.
func (s *LocalSigner) Address() string {
	return s.address.Hex()
}

// SignBid returns the 65-byte [R || S || V] signature, V in {27, 28}, hex encoded.
func (s *LocalSigner) SignBid(ctx context.Context, bid domain.SignedBid) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("onchain.SignBid: %w", err)
	}
	if domain.NormalizeAddress(bid.Maker) != s.address.Hex() {
		return "", fmt.Errorf("onchain.SignBid: maker %s is not %s: %w", bid.Maker, s.address.Hex(), domain.ErrSignatureRejected)
	}
	hash, err := HashBid(s.domain, bid)
	if err != nil {
		return "", fmt.Errorf("onchain.SignBid: %w", err)
	}
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return "", fmt.Errorf("onchain.SignBid: %w: %v", domain.ErrSignatureRejected, err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// HashBid returns the EIP-712 digest of bid under d.
func HashBid(d Domain, bid domain.SignedBid) ([]byte, error) {
	makerWager, ok := new(big.Int).SetString(bid.MakerWager, 10)
	if !ok {
		return nil, fmt.Errorf("makerWager %q is not a number", bid.MakerWager)
	}
	takerWager, ok := new(big.Int).SetString(bid.TakerWager, 10)
	if !ok {
		return nil, fmt.Errorf("takerWager %q is not a number", bid.TakerWager)
	}

	legs := make([]interface{}, 0, len(bid.PredictedOutcomes))
	for _, l := range bid.PredictedOutcomes {
		legs = append(legs, map[string]interface{}{
			"conditionId": l.ConditionID,
			"outcome":     l.Outcome == domain.OutcomeYes,
		})
	}

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Bid": []apitypes.Type{
				{Name: "auctionId", Type: "string"},
				{Name: "maker", Type: "address"},
				{Name: "makerWager", Type: "uint256"},
				{Name: "taker", Type: "address"},
				{Name: "takerWager", Type: "uint256"},
				{Name: "takerNonce", Type: "uint256"},
				{Name: "resolver", Type: "address"},
				{Name: "predictedOutcomes", Type: "Leg[]"},
				{Name: "makerDeadline", Type: "uint256"},
			},
			"Leg": []apitypes.Type{
				{Name: "conditionId", Type: "string"},
				{Name: "outcome", Type: "bool"},
			},
		},
		PrimaryType: "Bid",
		Domain: apitypes.TypedDataDomain{
			Name:              d.Name,
			Version:           d.Version,
			ChainId:           math.NewHexOrDecimal256(d.ChainID),
			VerifyingContract: common.HexToAddress(d.VerifyingContract).Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"auctionId":         bid.AuctionID,
			"maker":             common.HexToAddress(bid.Maker).Hex(),
			"makerWager":        makerWager.String(),
			"taker":             common.HexToAddress(bid.Taker).Hex(),
			"takerWager":        takerWager.String(),
			"takerNonce":        new(big.Int).SetUint64(bid.TakerNonce).String(),
			"resolver":          common.HexToAddress(bid.Resolver).Hex(),
			"predictedOutcomes": legs,
			"makerDeadline":     big.NewInt(bid.MakerDeadline).String(),
		},
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	return hash, nil
}

// RecoverBidSigner returns the address that produced sig over bid.
func RecoverBidSigner(d Domain, bid domain.SignedBid, sig string) (common.Address, error) {
	raw, err := hexutil.Decode(sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("onchain.RecoverBidSigner: %w", err)
	}
	if len(raw) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("onchain.RecoverBidSigner: signature is %d bytes", len(raw))
	}
	hash, err := HashBid(d, bid)
	if err != nil {
		return common.Address{}, fmt.Errorf("onchain.RecoverBidSigner: %w", err)
	}
	raw[crypto.RecoveryIDOffset] -= 27
	pub, err := crypto.SigToPub(hash, raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("onchain.RecoverBidSigner: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func addressOf(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}
