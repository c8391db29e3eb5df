package discord

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
)

const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

// ErrInvalidPublicKey is returned by NewVerifier for keys that are not 32 hex-encoded bytes.
var ErrInvalidPublicKey = errors.New("discord: invalid public key")

// Verifier checks Discord's Ed25519 request signatures.
type Verifier struct {
	key ed25519.PublicKey
}

// NewVerifier parses the hex-encoded application public key.
func NewVerifier(publicKeyHex string) (*Verifier, error) {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidPublicKey, ed25519.PublicKeySize, len(raw))
	}
	return &Verifier{key: ed25519.PublicKey(raw)}, nil
}

// Verify reports whether sig signs timestamp||body. Malformed input is simply invalid.
func (v *Verifier) Verify(sigHex, timestamp string, body []byte) bool {
	if sigHex == "" || timestamp == "" {
		return false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, body...)

	return ed25519.Verify(v.key, msg, sig)
}

// VerifyRequest reads the signature headers from h and verifies body against them.
func (v *Verifier) VerifyRequest(h http.Header, body []byte) bool {
	return v.Verify(h.Get(HeaderSignature), h.Get(HeaderTimestamp), body)
}
