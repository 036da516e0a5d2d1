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
	"tokendrop/internal/store"
)

const stalePendingReason = "stale pending claim expired"

// Claim processes one wallet's request for a single unit from the event's
// pool. At most one pending/confirmed claim exists per (event, wallet); the
// store's conditional insert is the lock, not the lookup. Failed attempts
// never block a retry.
func (d *Distributor) Claim(ctx context.Context, eventID, wallet string, feePayer ledger.Signer) (ClaimOutcome, error) {
	if existing, found, err := d.claims.ActiveClaim(ctx, eventID, wallet); err != nil {
		return ClaimOutcome{}, fmt.Errorf("look up claim: %w", err)
	} else if found {
		if !d.expireStalePending(ctx, existing) {
			return ClaimOutcome{Kind: OutcomeAlreadyClaimed, TxID: existing.TxID}, nil
		}
	}

	event, err := d.loadMintedEvent(ctx, eventID)
	if err != nil {
		return ClaimOutcome{}, err
	}

	pool, found, err := d.pools.GetPoolByMint(ctx, event.Mint)
	if err != nil {
		return ClaimOutcome{}, fmt.Errorf("look up pool: %w", err)
	}
	if !found {
		return ClaimOutcome{}, fmt.Errorf("%w: event %s", ErrPoolNotProvisioned, eventID)
	}

	// The pending row goes in before any remote call: it is both the audit
	// trail of the in-flight attempt and the uniqueness lock.
	claim := model.Claim{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Wallet:    wallet,
		Status:    model.ClaimPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.claims.InsertPendingClaim(ctx, claim); err != nil {
		if errors.Is(err, store.ErrDuplicateClaim) {
			return ClaimOutcome{Kind: OutcomeAlreadyClaimed}, nil
		}
		return ClaimOutcome{}, fmt.Errorf("insert pending claim: %w", err)
	}

	raw, submitErr := d.ledger.TransferCompressed(ctx, ledger.TransferRequest{
		Mint:      event.Mint,
		Pool:      pool.PoolAddress,
		Authority: event.Creator,
		Recipient: wallet,
		Amount:    1,
		FeePayer:  feePayer,
	})
	if submitErr != nil {
		reason := claimFailureReason(submitErr)
		if err := d.claims.ResolveClaim(ctx, claim.ID, model.ClaimFailed, "", reason); err != nil {
			return ClaimOutcome{}, fmt.Errorf("record failed claim: %w", err)
		}
		d.logger.Info("claim failed",
			zap.String("event_id", eventID),
			zap.String("wallet", wallet),
			zap.String("reason", reason))
		return ClaimOutcome{Kind: OutcomeFailed, Reason: reason}, nil
	}

	ack := ledger.NormalizeAck(raw, "claim", wallet, time.Now().UTC())
	d.confirmTolerant(ctx, ack)

	if err := d.claims.ResolveClaim(ctx, claim.ID, model.ClaimConfirmed, ack.TxID, ""); err != nil {
		return ClaimOutcome{}, fmt.Errorf("record confirmed claim: %w", err)
	}

	d.logger.Info("claim confirmed",
		zap.String("event_id", eventID),
		zap.String("wallet", wallet),
		zap.String("tx_id", ack.TxID))
	return ClaimOutcome{Kind: OutcomeConfirmed, TxID: ack.TxID}, nil
}

// expireStalePending resolves a pending claim that outlived the expiry
// horizon, reporting whether a new attempt may proceed. A crash between the
// pending insert and resolution would otherwise block the pair forever.
func (d *Distributor) expireStalePending(ctx context.Context, existing model.Claim) bool {
	if existing.Status != model.ClaimPending || d.cfg.StalePendingAfter <= 0 {
		return false
	}
	if time.Since(existing.CreatedAt) < d.cfg.StalePendingAfter {
		return false
	}
	if err := d.claims.ResolveClaim(ctx, existing.ID, model.ClaimFailed, "", stalePendingReason); err != nil {
		d.logger.Warn("could not expire stale pending claim",
			zap.String("claim_id", existing.ID), zap.Error(err))
		return false
	}
	d.logger.Warn("expired stale pending claim",
		zap.String("claim_id", existing.ID),
		zap.String("event_id", existing.EventID),
		zap.String("wallet", existing.Wallet),
		zap.Duration("age", time.Since(existing.CreatedAt)))
	return true
}

func claimFailureReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return guidanceInsufficientFunds
	case errors.Is(err, ledger.ErrSupplyExhausted):
		return guidanceSupplyExhausted
	default:
		return err.Error()
	}
}
