package distributor

import "errors"

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEventNotMinted     = errors.New("event asset has not been minted")
	ErrPoolNotProvisioned = errors.New("distribution pool not provisioned")
	ErrNoSourceAccount    = errors.New("no source token account for mint")
	ErrAlreadyCompressed  = errors.New("pool supply already compressed")
)

// User-facing guidance recorded on failed claims in place of raw backend
// strings.
const (
	guidanceInsufficientFunds = "insufficient funds: add more funds to the fee payer wallet and try again"
	guidanceSupplyExhausted   = "supply exhausted: no tokens remain in the distribution pool"
)

// OutcomeKind tags the result of a claim call.
type OutcomeKind string

const (
	OutcomeAlreadyClaimed OutcomeKind = "already_claimed"
	OutcomeConfirmed      OutcomeKind = "confirmed"
	OutcomeFailed         OutcomeKind = "failed"
)

// ClaimOutcome is the typed result of Claim. Failed submissions are an
// outcome, not an error; errors are reserved for store or precondition
// failures.
type ClaimOutcome struct {
	Kind   OutcomeKind `json:"kind"`
	TxID   string      `json:"tx_id,omitempty"`
	Reason string      `json:"reason,omitempty"`
}
