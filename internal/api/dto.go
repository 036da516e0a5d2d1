package api

import "tokendrop/internal/model"

// RegisterEventRequest registers an event and its participation token.
// Mint may be empty at registration time and filled in after the external
// mint completes.
type RegisterEventRequest struct {
	Title         string `json:"title" binding:"required"`
	Symbol        string `json:"symbol" binding:"required"`
	Decimals      uint8  `json:"decimals"`
	AttendeeCount uint64 `json:"attendee_count" binding:"required"`
	Creator       string `json:"creator" binding:"required"`
	Mint          string `json:"mint"`
	MintTxID      string `json:"mint_tx_id"`
}

// SetMintRequest attaches the minted token address to an event.
type SetMintRequest struct {
	Mint     string `json:"mint" binding:"required"`
	MintTxID string `json:"mint_tx_id"`
}

// ClaimRequest asks for one unit of the event's token for a wallet.
type ClaimRequest struct {
	Wallet string `json:"wallet" binding:"required"`
}

// CompressResponse reports the compression batch result.
type CompressResponse struct {
	TxID string `json:"tx_id"`
}

// ClaimHistoryResponse wraps a claim listing.
type ClaimHistoryResponse struct {
	Claims []model.Claim `json:"claims"`
}

// ErrorResponse carries a classified error message.
type ErrorResponse struct {
	Error string `json:"error"`
}
