package ledger

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Signer is the opaque signing capability. No key material crosses this
// boundary; implementations may delegate to hardware or remote wallets.
type Signer interface {
	PublicKey() string
	Sign(payload []byte) ([]byte, error)
}

// LocalSigner signs with an in-process ed25519 key. Used by the CLI and the
// HTTP server when they act as the event creator or fee payer.
type LocalSigner struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewLocalSigner derives a signer from an ed25519 seed.
func NewLocalSigner(seed []byte) (*LocalSigner, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &LocalSigner{
		pub:  priv.Public().(ed25519.PublicKey),
		priv: priv,
	}, nil
}

// LoadLocalSigner reads a hex-encoded ed25519 seed from a key file.
func LoadLocalSigner(path string) (*LocalSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode key file: %w", err)
	}
	return NewLocalSigner(seed)
}

func (s *LocalSigner) PublicKey() string {
	return base64.StdEncoding.EncodeToString(s.pub)
}

func (s *LocalSigner) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, payload), nil
}
