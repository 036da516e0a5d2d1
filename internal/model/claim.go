package model

import "time"

// ClaimStatus is the lifecycle state of a single claim attempt.
type ClaimStatus string

const (
	ClaimPending   ClaimStatus = "pending"
	ClaimConfirmed ClaimStatus = "confirmed"
	ClaimFailed    ClaimStatus = "failed"
)

// Active reports whether the status blocks another attempt for the same
// (event, wallet) pair. Failed attempts never block a retry.
func (s ClaimStatus) Active() bool {
	return s == ClaimPending || s == ClaimConfirmed
}

// Claim is one attempt by a wallet to receive a unit from an event's pool.
// It transitions pending -> confirmed or pending -> failed exactly once.
type Claim struct {
	ID           string      `json:"id"`
	EventID      string      `json:"event_id"`
	Wallet       string      `json:"wallet"`
	Status       ClaimStatus `json:"status"`
	TxID         string      `json:"tx_id,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
