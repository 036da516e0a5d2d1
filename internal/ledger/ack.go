package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Ack is the canonical form of a submission acknowledgment. Recognized is
// false when the backend response carried no extractable transaction id and
// TxID is a synthesized placeholder; such acks must never be confirmed.
type Ack struct {
	TxID       string
	Recognized bool
}

// Candidate fields probed on object-shaped responses, in priority order.
var ackFields = []string{"signature", "txid", "transactionId", "result"}

// NormalizeAck extracts a transaction id from a heterogeneous backend
// response. The backend sometimes returns a bare string, sometimes an object
// with one of several field names, and sometimes null even on success. When
// nothing can be extracted a deterministic placeholder
// "<prefix>-<shortened address>-<unix seconds>" is synthesized.
func NormalizeAck(raw json.RawMessage, prefix, address string, now time.Time) Ack {
	if id, ok := extractTxID(raw); ok {
		return Ack{TxID: id, Recognized: true}
	}
	return Ack{TxID: syntheticTxID(prefix, address, now), Recognized: false}
}

func extractTxID(raw json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s != "" {
			return s, true
		}
		return "", false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	for _, field := range ackFields {
		inner, ok := obj[field]
		if !ok {
			continue
		}
		var v string
		if err := json.Unmarshal(inner, &v); err == nil && v != "" {
			return v, true
		}
	}
	return "", false
}

func syntheticTxID(prefix, address string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%d", prefix, shortAddress(address), now.Unix())
}

func shortAddress(address string) string {
	if address == "" {
		return "unknown"
	}
	if len(address) > 8 {
		return address[:8]
	}
	return address
}

// Sentinel addresses recorded when the backend disclosed nothing. They are
// distinguishable both from the empty string and from any real address.
const (
	UnknownPoolAddress = "unknown-pool-address"
	UnknownTreeAddress = "unknown-tree-address"
)

// PoolDisclosure holds whatever canonical addresses the backend revealed in
// a pool-creation response. Missing fields fall back to the sentinels.
type PoolDisclosure struct {
	PoolAddress string
	TreeAddress string
}

// DecodePoolDisclosure probes a pool-creation response for disclosed
// addresses. It never fails: an unreadable response yields both sentinels.
func DecodePoolDisclosure(raw json.RawMessage) PoolDisclosure {
	d := PoolDisclosure{
		PoolAddress: UnknownPoolAddress,
		TreeAddress: UnknownTreeAddress,
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return d
	}
	if v, ok := stringField(obj, "poolAddress", "pool", "tokenPool"); ok {
		d.PoolAddress = v
	}
	if v, ok := stringField(obj, "treeAddress", "merkleTree", "stateTree"); ok {
		d.TreeAddress = v
	}
	return d
}

func stringField(obj map[string]json.RawMessage, names ...string) (string, bool) {
	for _, name := range names {
		inner, ok := obj[name]
		if !ok {
			continue
		}
		var v string
		if err := json.Unmarshal(inner, &v); err == nil && v != "" {
			return v, true
		}
	}
	return "", false
}
