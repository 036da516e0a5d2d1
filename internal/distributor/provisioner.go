package distributor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tokendrop/internal/ledger"
	"tokendrop/internal/model"
)

// Synthetic tx id prefix for pool creations whose response disclosed
// nothing; the pool may already exist server-side.
const poolAckPrefix = "possible-existing-pool"

// ProvisionPool idempotently provisions the distribution pool for an event's
// mint. A retried call returns the existing pool unchanged without touching
// the ledger. Ambiguous remote responses degrade to a sentinel-valued record
// rather than leaving the event without a pool.
func (d *Distributor) ProvisionPool(ctx context.Context, eventID string, creator ledger.Signer) (model.Pool, error) {
	event, err := d.loadMintedEvent(ctx, eventID)
	if err != nil {
		return model.Pool{}, err
	}

	if pool, found, err := d.pools.GetPoolByMint(ctx, event.Mint); err != nil {
		return model.Pool{}, fmt.Errorf("look up pool: %w", err)
	} else if found {
		d.logger.Debug("pool already provisioned",
			zap.String("event_id", eventID), zap.String("pool_id", pool.ID))
		return pool, nil
	}

	raw, submitErr := d.ledger.CreateTokenPool(ctx, ledger.CreatePoolRequest{
		Mint:      event.Mint,
		Authority: creator,
		Budget:    d.cfg.Budget,
	})
	if submitErr != nil {
		switch {
		case errors.Is(submitErr, ledger.ErrInsufficientFunds):
			return model.Pool{}, fmt.Errorf(
				"pool creation needs more funds in the creator wallet, top it up and retry: %w", submitErr)
		case errors.Is(submitErr, ledger.ErrAlreadyExists):
			// The pool exists server-side but we hold no record of it.
			// Re-check the store, then fall through to a degraded record.
			if pool, found, err := d.pools.GetPoolByMint(ctx, event.Mint); err == nil && found {
				return pool, nil
			}
			d.logger.Warn("ledger reports existing pool with no local record",
				zap.String("event_id", eventID), zap.Error(submitErr))
		default:
			d.logger.Warn("pool creation response unusable, persisting degraded record",
				zap.String("event_id", eventID), zap.Error(submitErr))
		}
		raw = nil
	}

	ack := ledger.NormalizeAck(raw, poolAckPrefix, event.Mint, time.Now().UTC())
	d.confirmTolerant(ctx, ack)

	disclosure := ledger.DecodePoolDisclosure(raw)
	pool := model.Pool{
		ID:          uuid.NewString(),
		EventID:     event.ID,
		Mint:        event.Mint,
		PoolAddress: disclosure.PoolAddress,
		TreeAddress: disclosure.TreeAddress,
		TxID:        ack.TxID,
		Degraded:    !ack.Recognized || disclosure.PoolAddress == ledger.UnknownPoolAddress,
		CreatedAt:   time.Now().UTC(),
	}
	if pool.Degraded {
		d.logger.Warn("pool record persisted with sentinel values",
			zap.String("event_id", eventID),
			zap.String("tx_id", pool.TxID),
			zap.Bool("ack_recognized", ack.Recognized))
	}

	if err := d.pools.InsertPool(ctx, pool); err != nil {
		return model.Pool{}, fmt.Errorf("persist pool: %w", err)
	}

	d.logger.Info("pool provisioned",
		zap.String("event_id", eventID),
		zap.String("pool_id", pool.ID),
		zap.String("tx_id", pool.TxID),
		zap.Bool("degraded", pool.Degraded))
	return pool, nil
}

func (d *Distributor) loadMintedEvent(ctx context.Context, eventID string) (model.Event, error) {
	event, err := d.events.GetEvent(ctx, eventID)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	if event.Mint == "" {
		return model.Event{}, fmt.Errorf("%w: %s", ErrEventNotMinted, eventID)
	}
	return event, nil
}
