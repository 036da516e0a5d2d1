package distributor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tokendrop/internal/ledger"
)

// CompressSupply stages the event's entire token supply into the pool in one
// batch compression. It runs once per pool; a failure leaves the pool valid
// for a later attempt and should be reported as a warning, not a pool
// failure.
func (d *Distributor) CompressSupply(ctx context.Context, eventID string, owner ledger.Signer) (string, error) {
	event, err := d.loadMintedEvent(ctx, eventID)
	if err != nil {
		return "", err
	}

	pool, found, err := d.pools.GetPoolByMint(ctx, event.Mint)
	if err != nil {
		return "", fmt.Errorf("look up pool: %w", err)
	}
	if !found {
		return "", fmt.Errorf("%w: event %s", ErrPoolNotProvisioned, eventID)
	}
	if pool.Compressed() {
		return "", fmt.Errorf("%w: pool %s", ErrAlreadyCompressed, pool.ID)
	}

	var holdings []ledger.TokenAccount
	err = withRetry(ctx, d.cfg.MaxRetries, d.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		holdings, err = d.ledger.TokenHoldings(ctx, owner.PublicKey(), event.Mint)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("query token holdings: %w", err)
	}
	if len(holdings) == 0 {
		return "", fmt.Errorf("%w: mint %s must be minted to %s before compression",
			ErrNoSourceAccount, event.Mint, owner.PublicKey())
	}

	raw, err := d.ledger.CompressBatch(ctx, ledger.CompressRequest{
		Pool:   pool.PoolAddress,
		Mint:   event.Mint,
		Source: holdings[0].Address,
		Amount: event.AttendeeCount,
		Owner:  owner,
	})
	if err != nil {
		return "", fmt.Errorf("compress supply: %w", err)
	}

	ack := ledger.NormalizeAck(raw, "compress", event.Mint, time.Now().UTC())
	d.confirmTolerant(ctx, ack)

	now := time.Now().UTC()
	if err := d.pools.AttachCompression(ctx, pool.ID, event.AttendeeCount, ack.TxID, now); err != nil {
		return "", fmt.Errorf("record compression: %w", err)
	}

	d.logger.Info("supply compressed",
		zap.String("event_id", eventID),
		zap.String("pool_id", pool.ID),
		zap.Uint64("amount", event.AttendeeCount),
		zap.String("tx_id", ack.TxID))
	return ack.TxID, nil
}
