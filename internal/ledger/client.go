package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

const defaultConfirmPoll = 2 * time.Second

// Client wraps the ledger node's JSON-RPC endpoint. The transaction wire
// format is owned by the backend; this client only builds signed instruction
// envelopes and hands back whatever acknowledgment shape the node returns.
type Client struct {
	rpcClient   *rpc.Client
	confirmPoll time.Duration
}

// Dial connects to the ledger RPC URL.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		rpcClient:   rpcClient,
		confirmPoll: defaultConfirmPoll,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// TokenAccount is one token-holding account returned by the holdings query.
type TokenAccount struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Mint    string `json:"mint"`
	Amount  uint64 `json:"amount"`
}

// ComputeBudget carries the elevated compute parameters attached to
// compression-program transactions.
type ComputeBudget struct {
	UnitLimit                uint32 `json:"unitLimit"`
	PriorityFeeMicroLamports uint64 `json:"priorityFeeMicroLamports"`
}

// CreatePoolRequest provisions a compressed-token pool for a mint.
type CreatePoolRequest struct {
	Mint      string
	Authority Signer
	Budget    ComputeBudget
}

// CompressRequest moves an entire supply batch from a token account into a
// pool-held compressed representation.
type CompressRequest struct {
	Pool   string
	Mint   string
	Source string
	Amount uint64
	Owner  Signer
}

// TransferRequest moves compressed units from the pool authority to a
// recipient, with the fee payer signing.
type TransferRequest struct {
	Mint      string
	Pool      string
	Authority string
	Recipient string
	Amount    uint64
	FeePayer  Signer
}

// CreateTokenPool submits a pool-creation transaction. The raw response is
// returned untouched for the normalizer; errors come back classified.
func (c *Client) CreateTokenPool(ctx context.Context, req CreatePoolRequest) (json.RawMessage, error) {
	return c.submit(ctx, req.Authority, envelope{
		Program:     "compressed-token",
		Instruction: "createTokenPool",
		Params: map[string]any{
			"mint":      req.Mint,
			"authority": req.Authority.PublicKey(),
			"budget":    req.Budget,
		},
	})
}

// CompressBatch submits a single batch compression instruction.
func (c *Client) CompressBatch(ctx context.Context, req CompressRequest) (json.RawMessage, error) {
	return c.submit(ctx, req.Owner, envelope{
		Program:     "compressed-token",
		Instruction: "compress",
		Params: map[string]any{
			"pool":   req.Pool,
			"mint":   req.Mint,
			"source": req.Source,
			"amount": req.Amount,
			"owner":  req.Owner.PublicKey(),
		},
	})
}

// TransferCompressed submits a single-unit transfer/decompression to the
// recipient, paid for by the claimant.
func (c *Client) TransferCompressed(ctx context.Context, req TransferRequest) (json.RawMessage, error) {
	return c.submit(ctx, req.FeePayer, envelope{
		Program:     "compressed-token",
		Instruction: "transfer",
		Params: map[string]any{
			"mint":      req.Mint,
			"pool":      req.Pool,
			"authority": req.Authority,
			"recipient": req.Recipient,
			"amount":    req.Amount,
			"feePayer":  req.FeePayer.PublicKey(),
		},
	})
}

type envelope struct {
	Program     string         `json:"program"`
	Instruction string         `json:"instruction"`
	Params      map[string]any `json:"params"`
}

func (c *Client) submit(ctx context.Context, signer Signer, env envelope) (json.RawMessage, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", env.Instruction, err)
	}
	sig, err := signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", env.Instruction, err)
	}

	var raw json.RawMessage
	err = c.rpcClient.CallContext(ctx, &raw, "sendTransaction",
		base64.StdEncoding.EncodeToString(payload),
		base64.StdEncoding.EncodeToString(sig),
	)
	if err != nil {
		return nil, classify(err)
	}
	return raw, nil
}

// BlockHeight returns the node's current block height.
func (c *Client) BlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	if err := c.rpcClient.CallContext(ctx, &height, "getBlockHeight"); err != nil {
		return 0, err
	}
	return height, nil
}

// TokenHoldings lists token accounts owned by owner for the given mint.
func (c *Client) TokenHoldings(ctx context.Context, owner, mint string) ([]TokenAccount, error) {
	var result struct {
		Value []TokenAccount `json:"value"`
	}
	err := c.rpcClient.CallContext(ctx, &result, "getTokenAccountsByOwner", owner, map[string]string{"mint": mint})
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

type signatureStatus struct {
	ConfirmationStatus string          `json:"confirmationStatus"`
	Err                json.RawMessage `json:"err"`
}

// Confirm polls the transaction status until it finalizes or the block
// height passes expiryHeight, which yields ErrConfirmationTimeout. A timeout
// does not mean the submission failed; it may still land.
func (c *Client) Confirm(ctx context.Context, txID string, expiryHeight uint64) error {
	ticker := time.NewTicker(c.confirmPoll)
	defer ticker.Stop()

	for {
		status, err := c.signatureStatus(ctx, txID)
		if err == nil && status != nil {
			if len(status.Err) > 0 && string(status.Err) != "null" {
				return fmt.Errorf("transaction %s rejected: %s", txID, status.Err)
			}
			switch status.ConfirmationStatus {
			case "confirmed", "finalized":
				return nil
			}
		}

		height, err := c.BlockHeight(ctx)
		if err == nil && height > expiryHeight {
			return fmt.Errorf("%w: %s not confirmed by height %d", ErrConfirmationTimeout, txID, expiryHeight)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) signatureStatus(ctx context.Context, txID string) (*signatureStatus, error) {
	var result struct {
		Value []*signatureStatus `json:"value"`
	}
	err := c.rpcClient.CallContext(ctx, &result, "getSignatureStatuses", []string{txID})
	if err != nil {
		return nil, err
	}
	if len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}
