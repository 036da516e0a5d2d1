package model

import "time"

// Event represents one distribution event and its participation token.
type Event struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Symbol        string    `json:"symbol"`
	Decimals      uint8     `json:"decimals"`
	AttendeeCount uint64    `json:"attendee_count"`
	Creator       string    `json:"creator"`
	Mint          string    `json:"mint,omitempty"`
	MintTxID      string    `json:"mint_tx_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
