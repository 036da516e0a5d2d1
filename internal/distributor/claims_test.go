package distributor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tokendrop/internal/ledger"
	"tokendrop/internal/model"
	"tokendrop/internal/store/memory"
)

func seedProvisionedEvent(t *testing.T, dist *Distributor, st *memory.Store, fl *fakeLedger) {
	t.Helper()
	fl.mu.Lock()
	fl.createResp = json.RawMessage(`{"signature":"tx1","poolAddress":"poolA"}`)
	fl.mu.Unlock()
	seedEvent(t, st, "ev1", "mintA", 100)
	_, err := dist.ProvisionPool(context.Background(), "ev1", testSigner(t))
	require.NoError(t, err)
}

func TestClaimHappyPath(t *testing.T) {
	ctx := context.Background()
	fl := &fakeLedger{transferResp: json.RawMessage(`{"signature":"tx2"}`)}
	dist, st := newTestDistributor(t, fl)
	seedProvisionedEvent(t, dist, st, fl)

	outcome, err := dist.Claim(ctx, "ev1", "wallet1", testSigner(t))
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, outcome.Kind)
	require.Equal(t, "tx2", outcome.TxID)

	claim, found, err := st.ActiveClaim(ctx, "ev1", "wallet1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, model.ClaimConfirmed, claim.Status)
	require.Equal(t, "tx2", claim.TxID)
}

func TestClaimDuplicateIsShortCircuited(t *testing.T) {
	ctx := context.Background()
	fl := &fakeLedger{transferResp: json.RawMessage(`"tx2"`)}
	dist, st := newTestDistributor(t, fl)
	seedProvisionedEvent(t, dist, st, fl)

	_, err := dist.Claim(ctx, "ev1", "wallet1", testSigner(t))
	require.NoError(t, err)
	before := fl.submissions()

	outcome, err := dist.Claim(ctx, "ev1", "wallet1", testSigner(t))
	require.NoError(t, err)
	require.Equal(t, OutcomeAlreadyClaimed, outcome.Kind)
	require.Equal(t, "tx2", outcome.TxID, "duplicate reports the original transaction")
	require.Equal(t, before, fl.submissions(), "duplicate must perform zero remote submissions")

	claims, err := dist.EventClaimHistory(ctx, "ev1")
	require.NoError(t, err)
	require.Len(t, claims, 1, "no new claim row on duplicate")
}

func TestClaimFailedThenRetry(t *testing.T) {
	ctx := context.Background()
	fl := &fakeLedger{transferErr: errors.New("node unavailable")}
	dist, st := newTestDistributor(t, fl)
	seedProvisionedEvent(t, dist, st, fl)

	outcome, err := dist.Claim(ctx, "ev1", "wallet1", testSigner(t))
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, outcome.Kind)
	require.Equal(t, "node unavailable", outcome.Reason)

	fl.mu.Lock()
	fl.transferErr = nil
	fl.transferResp = json.RawMessage(`"tx3"`)
	fl.mu.Unlock()

	outcome, err = dist.Claim(ctx, "ev1", "wallet1", testSigner(t))
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, outcome.Kind, "failed claim must not block a retry")

	claims, err := dist.EventClaimHistory(ctx, "ev1")
	require.NoError(t, err)
	require.Len(t, claims, 2, "each attempt keeps its own record")
	require.Equal(t, model.ClaimFailed, claims[0].Status)
	require.Equal(t, model.ClaimConfirmed, claims[1].Status)
}

func TestClaimInsufficientFundsGuidance(t *testing.T) {
	ctx := context.Background()
	rawMsg := "Transaction simulation failed: insufficient lamports 12 for fee"
	fl := &fakeLedger{transferErr: errors.Join(ledger.ErrInsufficientFunds, errors.New(rawMsg))}
	dist, st := newTestDistributor(t, fl)
	seedProvisionedEvent(t, dist, st, fl)

	outcome, err := dist.Claim(ctx, "ev1", "wallet1", testSigner(t))
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, outcome.Kind)
	require.Equal(t, guidanceInsufficientFunds, outcome.Reason)
	require.NotEqual(t, rawMsg, outcome.Reason, "guidance replaces the raw backend string")

	claims, _ := dist.EventClaimHistory(ctx, "ev1")
	require.Len(t, claims, 1)
	require.Equal(t, model.ClaimFailed, claims[0].Status)
	require.Equal(t, guidanceInsufficientFunds, claims[0].ErrorMessage)
}

func TestClaimSupplyExhaustedGuidance(t *testing.T) {
	ctx := context.Background()
	fl := &fakeLedger{transferErr: errors.Join(ledger.ErrSupplyExhausted, errors.New("no tokens available"))}
	dist, st := newTestDistributor(t, fl)
	seedProvisionedEvent(t, dist, st, fl)

	outcome, err := dist.Claim(ctx, "ev1", "wallet1", testSigner(t))
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, outcome.Kind)
	require.Equal(t, guidanceSupplyExhausted, outcome.Reason)
}

func TestClaimPreconditions(t *testing.T) {
	ctx := context.Background()
	dist, st := newTestDistributor(t, &fakeLedger{})

	_, err := dist.Claim(ctx, "missing", "wallet1", testSigner(t))
	require.ErrorIs(t, err, ErrEventNotFound)

	seedEvent(t, st, "ev1", "mintA", 100)
	_, err = dist.Claim(ctx, "ev1", "wallet1", testSigner(t))
	require.ErrorIs(t, err, ErrPoolNotProvisioned)
}

func TestClaimConcurrentSamePair(t *testing.T) {
	ctx := context.Background()
	fl := &fakeLedger{
		transferResp: json.RawMessage(`"tx2"`),
		transferWait: 20 * time.Millisecond,
	}
	dist, st := newTestDistributor(t, fl)
	seedProvisionedEvent(t, dist, st, fl)

	const attempts = 4
	outcomes := make([]ClaimOutcome, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = dist.Claim(ctx, "ev1", "wallet1", testSigner(t))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	confirmed := 0
	for _, outcome := range outcomes {
		switch outcome.Kind {
		case OutcomeConfirmed:
			confirmed++
		case OutcomeAlreadyClaimed:
		default:
			t.Fatalf("unexpected outcome: %+v", outcome)
		}
	}
	require.Equal(t, 1, confirmed, "exactly one attempt wins the insert")

	claims, err := dist.EventClaimHistory(ctx, "ev1")
	require.NoError(t, err)
	require.Len(t, claims, 1, "the conditional insert admits a single row")
}

func TestClaimStalePendingExpires(t *testing.T) {
	ctx := context.Background()
	fl := &fakeLedger{transferResp: json.RawMessage(`"tx9"`)}
	dist, st := newTestDistributor(t, fl)
	seedProvisionedEvent(t, dist, st, fl)

	stale := model.Claim{
		ID:        "stuck",
		EventID:   "ev1",
		Wallet:    "wallet1",
		Status:    model.ClaimPending,
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, st.InsertPendingClaim(ctx, stale))

	outcome, err := dist.Claim(ctx, "ev1", "wallet1", testSigner(t))
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, outcome.Kind, "expired pending claim admits a new attempt")

	claims, err := dist.EventClaimHistory(ctx, "ev1")
	require.NoError(t, err)
	require.Len(t, claims, 2)
	require.Equal(t, model.ClaimFailed, claims[0].Status)
	require.Equal(t, stalePendingReason, claims[0].ErrorMessage)
	require.Equal(t, model.ClaimConfirmed, claims[1].Status)
}

func TestClaimFreshPendingBlocks(t *testing.T) {
	ctx := context.Background()
	fl := &fakeLedger{transferResp: json.RawMessage(`"tx9"`)}
	dist, st := newTestDistributor(t, fl)
	seedProvisionedEvent(t, dist, st, fl)

	fresh := model.Claim{
		ID:        "inflight",
		EventID:   "ev1",
		Wallet:    "wallet1",
		Status:    model.ClaimPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.InsertPendingClaim(ctx, fresh))

	outcome, err := dist.Claim(ctx, "ev1", "wallet1", testSigner(t))
	require.NoError(t, err)
	require.Equal(t, OutcomeAlreadyClaimed, outcome.Kind, "an in-flight attempt blocks a new one")
	require.Zero(t, fl.transfers)
}
