// Package cryptox builds the AEAD ciphers used to seal temporary IDs.
//
// Every supported suite uses a 256-bit key, a 96-bit nonce and a 128-bit
// tag, so tokens sealed under any of them share one wire layout.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Suite names an AEAD construction.
type Suite string

const (
	AES256GCM        Suite = "aes-256-gcm"
	ChaCha20Poly1305 Suite = "chacha20-poly1305"
)

const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

// ParseSuite validates a configured suite name. An empty name selects
// AES-256-GCM.
func ParseSuite(name string) (Suite, error) {
	switch Suite(name) {
	case "", AES256GCM:
		return AES256GCM, nil
	case ChaCha20Poly1305:
		return ChaCha20Poly1305, nil
	default:
		return "", fmt.Errorf("unsupported cipher suite %q", name)
	}
}

// NewAEAD returns the AEAD for suite keyed with key. The key must be exactly
// KeySize bytes.
func NewAEAD(suite Suite, key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length %d", len(key))
	}

	switch suite {
	case AES256GCM, "":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("unsupported cipher suite %q", suite)
	}
}

// GenerateKey reads a fresh KeySize-byte key from r. A nil r uses crypto/rand.
func GenerateKey(r io.Reader) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}
