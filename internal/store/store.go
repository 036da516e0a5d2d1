package store

import (
	"context"
	"errors"
	"time"

	"tokendrop/internal/model"
)

var (
	// ErrNotFound is returned by point lookups when no record matches.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateClaim is returned by InsertPendingClaim when another
	// pending or confirmed claim already exists for the same
	// (event, wallet) pair. The insert itself is the uniqueness lock.
	ErrDuplicateClaim = errors.New("active claim already exists")
)

// EventStore persists event records.
type EventStore interface {
	InsertEvent(ctx context.Context, event model.Event) error
	GetEvent(ctx context.Context, id string) (model.Event, error)
	SetEventMint(ctx context.Context, id, mint, mintTxID string) error
}

// PoolStore persists distribution pool records.
type PoolStore interface {
	InsertPool(ctx context.Context, pool model.Pool) error
	// GetPoolByMint returns the pool for a mint, with found=false when none
	// exists. At most one pool exists per mint.
	GetPoolByMint(ctx context.Context, mint string) (model.Pool, bool, error)
	AttachCompression(ctx context.Context, poolID string, amount uint64, txID string, at time.Time) error
}

// ClaimStore persists claim attempts. Uniqueness of active claims is the
// store's responsibility, not the caller's.
type ClaimStore interface {
	// ActiveClaim returns the pending or confirmed claim for the pair, if any.
	ActiveClaim(ctx context.Context, eventID, wallet string) (model.Claim, bool, error)
	// InsertPendingClaim atomically inserts a pending claim, returning
	// ErrDuplicateClaim when an active claim for the pair already exists.
	InsertPendingClaim(ctx context.Context, claim model.Claim) error
	// ResolveClaim transitions a pending claim to confirmed or failed.
	ResolveClaim(ctx context.Context, id string, status model.ClaimStatus, txID, errorMessage string) error
	ClaimsByEvent(ctx context.Context, eventID string) ([]model.Claim, error)
	ClaimsByWallet(ctx context.Context, wallet string) ([]model.Claim, error)
}

// Store bundles the three tables behind one connection lifecycle.
type Store interface {
	EventStore
	PoolStore
	ClaimStore
}
