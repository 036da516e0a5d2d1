package ledger

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNormalizeAckRecognizedShapes(t *testing.T) {
	now := time.Unix(1700000000, 0)

	cases := []struct {
		name string
		raw  string
	}{
		{"bare string", `"abc123"`},
		{"signature field", `{"signature":"abc123"}`},
		{"txid field", `{"txid":"abc123"}`},
		{"transactionId field", `{"transactionId":"abc123"}`},
		{"result field", `{"result":"abc123"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ack := NormalizeAck(json.RawMessage(tc.raw), "pool", "mintAddr12345", now)
			if !ack.Recognized {
				t.Fatalf("expected recognized ack for %s", tc.raw)
			}
			if ack.TxID != "abc123" {
				t.Fatalf("tx id mismatch: %q", ack.TxID)
			}
		})
	}
}

func TestNormalizeAckSynthesized(t *testing.T) {
	now := time.Unix(1700000000, 0)

	for _, raw := range []string{`{}`, `null`, ``, `{"unrelated":7}`, `""`} {
		ack := NormalizeAck(json.RawMessage(raw), "possible-existing-pool", "mintAddr12345", now)
		if ack.Recognized {
			t.Fatalf("expected unrecognized ack for %q", raw)
		}
		if ack.TxID == "" {
			t.Fatalf("synthesized id must be non-empty for %q", raw)
		}
		want := "possible-existing-pool-mintAddr-1700000000"
		if ack.TxID != want {
			t.Fatalf("synthesized id mismatch: %q != %q", ack.TxID, want)
		}
	}
}

func TestNormalizeAckFieldPriority(t *testing.T) {
	raw := json.RawMessage(`{"txid":"second","signature":"first"}`)
	ack := NormalizeAck(raw, "pool", "addr", time.Now())
	if ack.TxID != "first" {
		t.Fatalf("signature should win: %q", ack.TxID)
	}
}

func TestNormalizeAckShortAddress(t *testing.T) {
	ack := NormalizeAck(nil, "claim", "abc", time.Unix(5, 0))
	if ack.TxID != "claim-abc-5" {
		t.Fatalf("short address mishandled: %q", ack.TxID)
	}
	ack = NormalizeAck(nil, "claim", "", time.Unix(5, 0))
	if !strings.HasPrefix(ack.TxID, "claim-unknown-") {
		t.Fatalf("empty address should use unknown marker: %q", ack.TxID)
	}
}

func TestDecodePoolDisclosure(t *testing.T) {
	d := DecodePoolDisclosure(json.RawMessage(`{"poolAddress":"pool9","merkleTree":"tree7"}`))
	if d.PoolAddress != "pool9" || d.TreeAddress != "tree7" {
		t.Fatalf("disclosure mismatch: %+v", d)
	}

	d = DecodePoolDisclosure(json.RawMessage(`null`))
	if d.PoolAddress != UnknownPoolAddress || d.TreeAddress != UnknownTreeAddress {
		t.Fatalf("expected sentinels, got %+v", d)
	}

	d = DecodePoolDisclosure(json.RawMessage(`{"pool":"alt"}`))
	if d.PoolAddress != "alt" {
		t.Fatalf("alternate field not probed: %+v", d)
	}
	if d.TreeAddress != UnknownTreeAddress {
		t.Fatalf("missing tree should stay sentinel: %+v", d)
	}
}
