// Package vault seals platform credentials with an AEAD cipher so storage
// never holds plaintext secrets.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
)

// Algorithm names an AEAD cipher
type Algorithm string

const (
	// AlgorithmAESGCM is AES-256 in GCM mode with a 96-bit nonce
	AlgorithmAESGCM Algorithm = "aes-256-gcm"
	// AlgorithmXChaCha20Poly1305 is XChaCha20-Poly1305 with a 192-bit nonce
	AlgorithmXChaCha20Poly1305 Algorithm = "xchacha20-poly1305"
)

// KeySize is the required key length for both ciphers
const KeySize = 32

// legacyNonceSize is the IV length used by envelopes of the previous service
const legacyNonceSize = 16

var (
	// ErrInvalidKey is returned when key material is not exactly KeySize bytes
	ErrInvalidKey = errors.New("vault: key must be 32 bytes")
	// ErrUnsupportedAlgorithm is returned for unknown cipher names
	ErrUnsupportedAlgorithm = errors.New("vault: unsupported algorithm")
)

// Config holds vault configuration
type Config struct {
	// Key is the process-wide key: "hex:<64 hex chars>", "base64:<...>" or a raw 32-byte string
	Key string
	// Algorithm used by Seal; Open always honours the envelope's algorithm
	Algorithm string
}

// Vault implements integration.CredentialVault
type Vault struct {
	key       []byte
	algorithm Algorithm
	random    io.Reader
}

// New creates a vault from raw key bytes
func New(key []byte, algorithm Algorithm) (*Vault, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	if algorithm == "" {
		algorithm = AlgorithmAESGCM
	}
	if algorithm != AlgorithmAESGCM && algorithm != AlgorithmXChaCha20Poly1305 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}

	k := make([]byte, KeySize)
	copy(k, key)
	return &Vault{
		key:       k,
		algorithm: algorithm,
		random:    rand.Reader,
	}, nil
}

// NewFromConfig parses the configured key and builds a vault
func NewFromConfig(cfg Config) (*Vault, error) {
	key, err := ParseKey(cfg.Key)
	if err != nil {
		return nil, err
	}
	return New(key, Algorithm(strings.ToLower(cfg.Algorithm)))
}

// ParseKey decodes key material. Supported forms are "hex:...", "base64:..."
// and a raw string of exactly KeySize bytes.
func ParseKey(s string) ([]byte, error) {
	var (
		key []byte
		err error
	)
	switch {
	case strings.HasPrefix(s, "hex:"):
		key, err = hex.DecodeString(strings.TrimPrefix(s, "hex:"))
	case strings.HasPrefix(s, "base64:"):
		key, err = base64.StdEncoding.DecodeString(strings.TrimPrefix(s, "base64:"))
	default:
		key = []byte(s)
	}
	if err != nil {
		return nil, fmt.Errorf("vault: decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// Algorithm returns the cipher used by Seal
func (v *Vault) Algorithm() Algorithm {
	return v.algorithm
}

// Seal serializes creds (sorted keys), encrypts them under a fresh random
// nonce and returns the encoded envelope
func (v *Vault) Seal(ctx context.Context, creds integration.Credentials) ([]byte, error) {
	if creds == nil {
		creds = integration.Credentials{}
	}
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("vault: encode credentials: %w", err)
	}

	aead, err := v.aead(v.algorithm, 0)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(v.random, nonce); err != nil {
		return nil, fmt.Errorf("vault: generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	tagStart := len(sealed) - aead.Overhead()

	env := &Envelope{
		Ciphertext: sealed[:tagStart],
		Nonce:      nonce,
		Tag:        sealed[tagStart:],
	}
	if v.algorithm != AlgorithmAESGCM {
		env.Algorithm = v.algorithm
	}
	return env.Marshal()
}

// Open verifies and decrypts an envelope. Every failure is a
// *integration.CredentialDecryptionError; nothing is returned on failure.
func (v *Vault) Open(ctx context.Context, data []byte) (integration.Credentials, error) {
	env, err := ParseEnvelope(data)
	if err != nil {
		return nil, decryptionError("malformed envelope", err)
	}

	aead, err := v.aead(env.Algorithm, len(env.Nonce))
	if err != nil {
		return nil, decryptionError("unsupported envelope", err)
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, decryptionError("invalid nonce", nil)
	}
	if len(env.Tag) != aead.Overhead() {
		return nil, decryptionError("invalid authentication tag", nil)
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+len(env.Tag))
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag...)

	plaintext, err := aead.Open(nil, env.Nonce, sealed, nil)
	if err != nil {
		return nil, decryptionError("authentication failed", err)
	}

	var creds integration.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, decryptionError("invalid credential payload", nil)
	}
	if creds == nil {
		return nil, decryptionError("invalid credential payload", nil)
	}
	return creds, nil
}

// aead builds the cipher for alg. nonceSize only matters for AES-GCM
// envelopes written with the legacy 16-byte IV.
func (v *Vault) aead(alg Algorithm, nonceSize int) (cipher.AEAD, error) {
	switch alg {
	case AlgorithmAESGCM:
		block, err := aes.NewCipher(v.key)
		if err != nil {
			return nil, fmt.Errorf("vault: %w", err)
		}
		if nonceSize == legacyNonceSize {
			return cipher.NewGCMWithNonceSize(block, legacyNonceSize)
		}
		return cipher.NewGCM(block)
	case AlgorithmXChaCha20Poly1305:
		return chacha20poly1305.NewX(v.key)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
}

func decryptionError(reason string, err error) error {
	return &integration.CredentialDecryptionError{Reason: reason, Err: err}
}

var _ integration.CredentialVault = (*Vault)(nil)
