package distributor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tokendrop/internal/ledger"
)

func TestProvisionPoolIdempotent(t *testing.T) {
	ctx := context.Background()
	fl := &fakeLedger{createResp: json.RawMessage(`{"signature":"tx1","poolAddress":"poolA","treeAddress":"treeA"}`)}
	dist, st := newTestDistributor(t, fl)
	seedEvent(t, st, "ev1", "mintA", 100)

	first, err := dist.ProvisionPool(ctx, "ev1", testSigner(t))
	require.NoError(t, err)
	require.Equal(t, "tx1", first.TxID)
	require.Equal(t, "poolA", first.PoolAddress)
	require.Equal(t, "treeA", first.TreeAddress)
	require.False(t, first.Degraded)
	require.Equal(t, []string{"tx1"}, fl.confirms)

	second, err := dist.ProvisionPool(ctx, "ev1", testSigner(t))
	require.NoError(t, err)
	require.Equal(t, first, second, "second call must return the first pool unchanged")
	require.Equal(t, 1, fl.creates, "retried provision must not touch the ledger")
}

func TestProvisionPoolAmbiguousResponse(t *testing.T) {
	ctx := context.Background()
	fl := &fakeLedger{createResp: json.RawMessage(`null`)}
	dist, st := newTestDistributor(t, fl)
	seedEvent(t, st, "ev1", "mintA", 100)

	pool, err := dist.ProvisionPool(ctx, "ev1", testSigner(t))
	require.NoError(t, err, "ambiguous responses must not fail provisioning")
	require.True(t, strings.HasPrefix(pool.TxID, "possible-existing-pool-"), "tx id %q", pool.TxID)
	require.Equal(t, ledger.UnknownPoolAddress, pool.PoolAddress)
	require.Equal(t, ledger.UnknownTreeAddress, pool.TreeAddress)
	require.True(t, pool.Degraded)
	require.Empty(t, fl.confirms, "synthetic ids must never be confirmed")

	stored, found, err := st.GetPoolByMint(ctx, "mintA")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, pool, stored)
}

func TestProvisionPoolInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	fl := &fakeLedger{createErr: errors.Join(ledger.ErrInsufficientFunds, errors.New("insufficient funds for fee"))}
	dist, st := newTestDistributor(t, fl)
	seedEvent(t, st, "ev1", "mintA", 100)

	_, err := dist.ProvisionPool(ctx, "ev1", testSigner(t))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	require.Contains(t, err.Error(), "top it up and retry")

	_, found, lookupErr := st.GetPoolByMint(ctx, "mintA")
	require.NoError(t, lookupErr)
	require.False(t, found, "no pool record on a funding failure")
}

func TestProvisionPoolAlreadyExistsWithoutRecord(t *testing.T) {
	ctx := context.Background()
	fl := &fakeLedger{createErr: errors.Join(ledger.ErrAlreadyExists, errors.New("pool already exists"))}
	dist, st := newTestDistributor(t, fl)
	seedEvent(t, st, "ev1", "mintA", 100)

	pool, err := dist.ProvisionPool(ctx, "ev1", testSigner(t))
	require.NoError(t, err, "server-side existing pool must not fail the call")
	require.True(t, pool.Degraded)
	require.True(t, strings.HasPrefix(pool.TxID, "possible-existing-pool-"))

	_, found, _ := st.GetPoolByMint(ctx, "mintA")
	require.True(t, found, "event must not be left without a pool record")
}

func TestProvisionPoolConfirmationTimeoutTolerated(t *testing.T) {
	ctx := context.Background()
	fl := &fakeLedger{
		createResp: json.RawMessage(`"tx1"`),
		confirmErr: ledger.ErrConfirmationTimeout,
	}
	dist, st := newTestDistributor(t, fl)
	seedEvent(t, st, "ev1", "mintA", 100)

	pool, err := dist.ProvisionPool(ctx, "ev1", testSigner(t))
	require.NoError(t, err, "confirmation timeout is not an operation failure")
	require.Equal(t, "tx1", pool.TxID)
}

func TestProvisionPoolEventErrors(t *testing.T) {
	ctx := context.Background()
	dist, st := newTestDistributor(t, &fakeLedger{})

	_, err := dist.ProvisionPool(ctx, "missing", testSigner(t))
	require.ErrorIs(t, err, ErrEventNotFound)

	seedEvent(t, st, "ev1", "", 100)
	_, err = dist.ProvisionPool(ctx, "ev1", testSigner(t))
	require.ErrorIs(t, err, ErrEventNotMinted)
}
