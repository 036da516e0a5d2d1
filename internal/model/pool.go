package model

import "time"

// Pool represents the shared distribution pool provisioned for an event's mint.
// At most one pool exists per (event, mint) pair.
type Pool struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	Mint        string `json:"mint"`
	PoolAddress string `json:"pool_address"`
	TreeAddress string `json:"tree_address"`
	TxID        string `json:"tx_id"`

	// Degraded marks a record persisted from an ambiguous remote response;
	// its addresses are sentinels, not canonical ledger addresses.
	Degraded bool `json:"degraded,omitempty"`

	CompressedAmount uint64     `json:"compressed_amount,omitempty"`
	CompressTxID     string     `json:"compress_tx_id,omitempty"`
	CompressedAt     *time.Time `json:"compressed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Compressed reports whether the supply batch has already been staged.
func (p Pool) Compressed() bool {
	return p.CompressTxID != ""
}
