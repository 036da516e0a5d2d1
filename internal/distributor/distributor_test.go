package distributor

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tokendrop/internal/ledger"
	"tokendrop/internal/model"
	"tokendrop/internal/store/memory"
)

// fakeLedger scripts submission responses and counts remote calls.
type fakeLedger struct {
	mu sync.Mutex

	createResp   json.RawMessage
	createErr    error
	compressResp json.RawMessage
	compressErr  error
	transferResp json.RawMessage
	transferErr  error
	holdings     []ledger.TokenAccount
	holdingsErr  error
	confirmErr   error
	transferWait time.Duration

	creates    int
	compresses int
	transfers  int
	confirms   []string
}

func (f *fakeLedger) CreateTokenPool(_ context.Context, _ ledger.CreatePoolRequest) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return f.createResp, f.createErr
}

func (f *fakeLedger) CompressBatch(_ context.Context, _ ledger.CompressRequest) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compresses++
	return f.compressResp, f.compressErr
}

func (f *fakeLedger) TransferCompressed(_ context.Context, _ ledger.TransferRequest) (json.RawMessage, error) {
	f.mu.Lock()
	wait := f.transferWait
	f.transfers++
	resp, err := f.transferResp, f.transferErr
	f.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
	return resp, err
}

func (f *fakeLedger) Confirm(_ context.Context, txID string, _ uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms = append(f.confirms, txID)
	return f.confirmErr
}

func (f *fakeLedger) BlockHeight(_ context.Context) (uint64, error) {
	return 1000, nil
}

func (f *fakeLedger) TokenHoldings(_ context.Context, _, _ string) ([]ledger.TokenAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holdings, f.holdingsErr
}

func (f *fakeLedger) submissions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates + f.compresses + f.transfers
}

func testSigner(t *testing.T) ledger.Signer {
	t.Helper()
	signer, err := ledger.NewLocalSigner(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	return signer
}

func newTestDistributor(t *testing.T, fl *fakeLedger) (*Distributor, *memory.Store) {
	t.Helper()
	st := memory.NewStore()
	dist := New(Config{
		ConfirmWindow:     150,
		StalePendingAfter: time.Hour,
	}, st, fl, nil)
	return dist, st
}

func seedEvent(t *testing.T, st *memory.Store, id, mint string, supply uint64) model.Event {
	t.Helper()
	event := model.Event{
		ID:            id,
		Title:         "Launch Party",
		Symbol:        "POP",
		AttendeeCount: supply,
		Creator:       "creatorPubKey",
		Mint:          mint,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, st.InsertEvent(context.Background(), event))
	return event
}
