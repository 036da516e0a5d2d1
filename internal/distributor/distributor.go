package distributor

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"tokendrop/internal/ledger"
	"tokendrop/internal/model"
	"tokendrop/internal/store"
)

// Ledger is the call boundary to the external ledger node. Submission
// responses come back raw; only the normalizer interprets their shape.
type Ledger interface {
	CreateTokenPool(ctx context.Context, req ledger.CreatePoolRequest) (json.RawMessage, error)
	CompressBatch(ctx context.Context, req ledger.CompressRequest) (json.RawMessage, error)
	TransferCompressed(ctx context.Context, req ledger.TransferRequest) (json.RawMessage, error)
	Confirm(ctx context.Context, txID string, expiryHeight uint64) error
	BlockHeight(ctx context.Context) (uint64, error)
	TokenHoldings(ctx context.Context, owner, mint string) ([]ledger.TokenAccount, error)
}

// Config holds runtime settings for the orchestrator.
type Config struct {
	// ConfirmWindow is the number of blocks past the submission height after
	// which an unconfirmed transaction is treated as timed out.
	ConfirmWindow uint64
	// StalePendingAfter expires a pending claim that never resolved, letting
	// the pair attempt again. Zero disables expiry.
	StalePendingAfter time.Duration
	// Budget is attached to compression-program submissions.
	Budget       ledger.ComputeBudget
	MaxRetries   int
	RetryBackoff time.Duration
}

// Distributor orchestrates the pool/compression/claim lifecycle against an
// eventually-confirmed ledger and the record store.
type Distributor struct {
	cfg    Config
	events store.EventStore
	pools  store.PoolStore
	claims store.ClaimStore
	ledger Ledger
	logger *zap.Logger
}

// New builds a Distributor with its dependencies.
func New(cfg Config, st store.Store, ledgerClient Ledger, logger *zap.Logger) *Distributor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConfirmWindow == 0 {
		cfg.ConfirmWindow = 150
	}
	return &Distributor{
		cfg:    cfg,
		events: st,
		pools:  st,
		claims: st,
		ledger: ledgerClient,
		logger: logger,
	}
}

// EventClaimHistory lists all claim attempts recorded for an event.
func (d *Distributor) EventClaimHistory(ctx context.Context, eventID string) ([]model.Claim, error) {
	return d.claims.ClaimsByEvent(ctx, eventID)
}

// WalletClaimHistory lists all claim attempts recorded for a wallet.
func (d *Distributor) WalletClaimHistory(ctx context.Context, wallet string) ([]model.Claim, error) {
	return d.claims.ClaimsByWallet(ctx, wallet)
}

// confirmTolerant confirms a recognized transaction id, absorbing timeouts
// and confirmation errors: the submission may still land server-side, so
// confirmation failure never fails the operation.
func (d *Distributor) confirmTolerant(ctx context.Context, ack ledger.Ack) {
	if !ack.Recognized {
		d.logger.Warn("skipping confirmation for synthetic transaction id", zap.String("tx_id", ack.TxID))
		return
	}

	var height uint64
	err := withRetry(ctx, d.cfg.MaxRetries, d.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		height, err = d.ledger.BlockHeight(ctx)
		return err
	})
	if err != nil {
		d.logger.Warn("block height unavailable, leaving transaction unconfirmed",
			zap.String("tx_id", ack.TxID), zap.Error(err))
		return
	}

	if err := d.ledger.Confirm(ctx, ack.TxID, height+d.cfg.ConfirmWindow); err != nil {
		d.logger.Warn("confirmation did not complete",
			zap.String("tx_id", ack.TxID), zap.Error(err))
	}
}
