package ledger

import (
	"errors"
	"strings"
)

// Sentinel classifications for submission failures. The raw backend message
// is wrapped so callers can still log it, but control flow goes through
// errors.Is, never through string inspection outside this package.
var (
	ErrAlreadyExists       = errors.New("resource already exists")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrSupplyExhausted     = errors.New("supply exhausted")
	ErrConfirmationTimeout = errors.New("confirmation timed out")
)

var (
	alreadyExistsMarkers = []string{
		"already exists",
		"already registered",
		"already in use",
	}
	insufficientFundsMarkers = []string{
		"insufficient funds",
		"insufficient lamports",
		"insufficient balance",
	}
	supplyExhaustedMarkers = []string{
		"no tokens",
		"insufficient token balance",
		"pool is empty",
	}
)

// classify wraps a raw backend error with the matching sentinel, or returns
// it unchanged when no known marker is present.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range alreadyExistsMarkers {
		if strings.Contains(msg, marker) {
			return errors.Join(ErrAlreadyExists, err)
		}
	}
	for _, marker := range insufficientFundsMarkers {
		if strings.Contains(msg, marker) {
			return errors.Join(ErrInsufficientFunds, err)
		}
	}
	for _, marker := range supplyExhaustedMarkers {
		if strings.Contains(msg, marker) {
			return errors.Join(ErrSupplyExhausted, err)
		}
	}
	return err
}
