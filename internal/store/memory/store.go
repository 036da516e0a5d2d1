package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tokendrop/internal/model"
	"tokendrop/internal/store"
)

// Store is an in-memory record store used for tests and local runs. A single
// mutex serializes row access, which also makes InsertPendingClaim atomic.
type Store struct {
	mu sync.RWMutex

	events map[string]model.Event
	pools  map[string]model.Pool // keyed by pool id
	byMint map[string]string     // mint -> pool id
	claims map[string]model.Claim
	active map[string]string // eventID|wallet -> claim id while active
}

func NewStore() *Store {
	return &Store{
		events: make(map[string]model.Event),
		pools:  make(map[string]model.Pool),
		byMint: make(map[string]string),
		claims: make(map[string]model.Claim),
		active: make(map[string]string),
	}
}

func pairKey(eventID, wallet string) string {
	return eventID + "|" + wallet
}

func (s *Store) InsertEvent(_ context.Context, event model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
	return nil
}

func (s *Store) GetEvent(_ context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return model.Event{}, store.ErrNotFound
	}
	return event, nil
}

func (s *Store) SetEventMint(_ context.Context, id, mint, mintTxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return store.ErrNotFound
	}
	event.Mint = mint
	event.MintTxID = mintTxID
	s.events[id] = event
	return nil
}

func (s *Store) InsertPool(_ context.Context, pool model.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[pool.ID] = pool
	s.byMint[pool.Mint] = pool.ID
	return nil
}

func (s *Store) GetPoolByMint(_ context.Context, mint string) (model.Pool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byMint[mint]
	if !ok {
		return model.Pool{}, false, nil
	}
	return s.pools[id], true, nil
}

func (s *Store) AttachCompression(_ context.Context, poolID string, amount uint64, txID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.pools[poolID]
	if !ok {
		return store.ErrNotFound
	}
	pool.CompressedAmount = amount
	pool.CompressTxID = txID
	pool.CompressedAt = &at
	s.pools[poolID] = pool
	return nil
}

func (s *Store) ActiveClaim(_ context.Context, eventID, wallet string) (model.Claim, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[pairKey(eventID, wallet)]
	if !ok {
		return model.Claim{}, false, nil
	}
	return s.claims[id], true, nil
}

func (s *Store) InsertPendingClaim(_ context.Context, claim model.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(claim.EventID, claim.Wallet)
	if _, exists := s.active[key]; exists {
		return store.ErrDuplicateClaim
	}
	claim.Status = model.ClaimPending
	s.claims[claim.ID] = claim
	s.active[key] = claim.ID
	return nil
}

func (s *Store) ResolveClaim(_ context.Context, id string, status model.ClaimStatus, txID, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[id]
	if !ok || claim.Status != model.ClaimPending {
		// A claim transitions exactly once; a resolved claim behaves like a
		// missing row, matching the postgres store's pending-only update.
		return store.ErrNotFound
	}
	claim.Status = status
	claim.TxID = txID
	claim.ErrorMessage = errorMessage
	s.claims[id] = claim
	if !status.Active() {
		key := pairKey(claim.EventID, claim.Wallet)
		if s.active[key] == id {
			delete(s.active, key)
		}
	}
	return nil
}

func (s *Store) ClaimsByEvent(_ context.Context, eventID string) ([]model.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]model.Claim, 0)
	for _, claim := range s.claims {
		if claim.EventID == eventID {
			items = append(items, claim)
		}
	}
	sortClaims(items)
	return items, nil
}

func (s *Store) ClaimsByWallet(_ context.Context, wallet string) ([]model.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]model.Claim, 0)
	for _, claim := range s.claims {
		if claim.Wallet == wallet {
			items = append(items, claim)
		}
	}
	sortClaims(items)
	return items, nil
}

func sortClaims(items []model.Claim) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
