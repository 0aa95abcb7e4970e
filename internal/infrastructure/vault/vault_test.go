package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func newTestVault(t *testing.T, alg Algorithm) *Vault {
	t.Helper()
	v, err := New(testKey(t), alg)
	require.NoError(t, err)
	return v
}

func sampleCredentials() integration.Credentials {
	return integration.Credentials{
		"store_url":    "demo.myshopify.com",
		"access_token": "shpat_0123456789abcdef",
	}
}

func TestVault_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, alg := range []Algorithm{AlgorithmAESGCM, AlgorithmXChaCha20Poly1305} {
		t.Run(string(alg), func(t *testing.T) {
			v := newTestVault(t, alg)

			sealed, err := v.Seal(ctx, sampleCredentials())
			require.NoError(t, err)
			assert.NotContains(t, string(sealed), "shpat_0123456789abcdef")

			opened, err := v.Open(ctx, sealed)
			require.NoError(t, err)
			assert.Equal(t, sampleCredentials(), opened)
		})
	}
}

func TestVault_SealUsesFreshNonce(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t, AlgorithmAESGCM)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		sealed, err := v.Seal(ctx, sampleCredentials())
		require.NoError(t, err)
		env, err := ParseEnvelope(sealed)
		require.NoError(t, err)

		nonce := hex.EncodeToString(env.Nonce)
		_, dup := seen[nonce]
		require.False(t, dup, "nonce reused")
		seen[nonce] = struct{}{}
	}
}

func TestVault_OpenDetectsTampering(t *testing.T) {
	ctx := context.Background()

	tamper := map[string]func(env *Envelope){
		"ciphertext": func(env *Envelope) { env.Ciphertext[0] ^= 0x01 },
		"nonce":      func(env *Envelope) { env.Nonce[len(env.Nonce)-1] ^= 0x80 },
		"tag":        func(env *Envelope) { env.Tag[3] ^= 0x10 },
		"truncated":  func(env *Envelope) { env.Tag = env.Tag[:len(env.Tag)-1] },
	}

	for _, alg := range []Algorithm{AlgorithmAESGCM, AlgorithmXChaCha20Poly1305} {
		for name, mutate := range tamper {
			t.Run(string(alg)+"/"+name, func(t *testing.T) {
				v := newTestVault(t, alg)
				sealed, err := v.Seal(ctx, sampleCredentials())
				require.NoError(t, err)

				env, err := ParseEnvelope(sealed)
				require.NoError(t, err)
				mutate(env)
				data, err := env.Marshal()
				require.NoError(t, err)

				creds, err := v.Open(ctx, data)
				assert.Nil(t, creds)
				var derr *integration.CredentialDecryptionError
				require.ErrorAs(t, err, &derr)
				assert.Equal(t, integration.CodeCredentialDecryption, integration.ErrorCode(err))
			})
		}
	}
}

func TestVault_OpenWithWrongKey(t *testing.T) {
	ctx := context.Background()
	sealer := newTestVault(t, AlgorithmAESGCM)
	other := newTestVault(t, AlgorithmAESGCM)

	sealed, err := sealer.Seal(ctx, sampleCredentials())
	require.NoError(t, err)

	creds, err := other.Open(ctx, sealed)
	assert.Nil(t, creds)
	var derr *integration.CredentialDecryptionError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "authentication failed", derr.Reason)
	assert.NotContains(t, err.Error(), "shpat_")
}

func TestVault_OpenMalformed(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t, AlgorithmAESGCM)

	inputs := map[string]string{
		"empty":          ``,
		"not json":       `sealed-credentials`,
		"missing parts":  `{"ciphertext":"AAAA"}`,
		"bad base64":     `{"ciphertext":"!!","nonce":"AAAA","tag":"AAAA"}`,
		"unknown alg":    `{"alg":"rot13","ciphertext":"AAAA","nonce":"AAAA","tag":"AAAA"}`,
		"legacy bad hex": `{"encrypted":"zz","authTag":"00","iv":"00"}`,
		"short nonce":    `{"ciphertext":"AAAA","nonce":"AAAA","tag":"AAAAAAAAAAAAAAAAAAAAAA=="}`,
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			creds, err := v.Open(ctx, []byte(input))
			assert.Nil(t, creds)
			var derr *integration.CredentialDecryptionError
			assert.ErrorAs(t, err, &derr)
		})
	}
}

func TestVault_OpenAlgorithmMismatch(t *testing.T) {
	ctx := context.Background()
	key := testKey(t)
	xchacha, err := New(key, AlgorithmXChaCha20Poly1305)
	require.NoError(t, err)
	gcm, err := New(key, AlgorithmAESGCM)
	require.NoError(t, err)

	sealed, err := xchacha.Seal(ctx, sampleCredentials())
	require.NoError(t, err)

	// the envelope names its cipher, so a vault configured for AES-GCM still opens it
	opened, err := gcm.Open(ctx, sealed)
	require.NoError(t, err)
	assert.Equal(t, sampleCredentials(), opened)

	env, err := ParseEnvelope(sealed)
	require.NoError(t, err)
	env.Algorithm = AlgorithmAESGCM
	relabeled, err := env.Marshal()
	require.NoError(t, err)

	_, err = gcm.Open(ctx, relabeled)
	var derr *integration.CredentialDecryptionError
	assert.ErrorAs(t, err, &derr)
}

func TestVault_OpenLegacyEnvelope(t *testing.T) {
	ctx := context.Background()
	key := []byte("0123456789abcdef0123456789abcdef")

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	gcm, err := cipher.NewGCMWithNonceSize(block, 16)
	require.NoError(t, err)

	iv := make([]byte, 16)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	plaintext, err := json.Marshal(map[string]string{"store_url": "legacy.myshopify.com", "access_token": "tok"})
	require.NoError(t, err)
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - gcm.Overhead()

	legacy, err := json.Marshal(legacyEnvelope{
		Encrypted: hex.EncodeToString(sealed[:split]),
		AuthTag:   hex.EncodeToString(sealed[split:]),
		IV:        hex.EncodeToString(iv),
	})
	require.NoError(t, err)

	v, err := New(key, AlgorithmAESGCM)
	require.NoError(t, err)

	creds, err := v.Open(ctx, legacy)
	require.NoError(t, err)
	assert.Equal(t, "legacy.myshopify.com", creds.Get("store_url"))
	assert.Equal(t, "tok", creds.Get("access_token"))
}

func TestParseKey(t *testing.T) {
	raw := "0123456789abcdef0123456789abcdef"

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"raw", raw, false},
		{"hex", "hex:" + hex.EncodeToString([]byte(raw)), false},
		{"base64", "base64:MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=", false},
		{"too short", "short", true},
		{"too long", raw + "x", true},
		{"bad hex", "hex:" + strings.Repeat("z", 64), true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseKey(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []byte(raw), key)
		})
	}
}

func TestNew(t *testing.T) {
	_, err := New([]byte("short"), AlgorithmAESGCM)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = New(testKey(t), Algorithm("des"))
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	v, err := New(testKey(t), "")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmAESGCM, v.Algorithm())

	v, err = NewFromConfig(Config{Key: "0123456789abcdef0123456789abcdef", Algorithm: "XChaCha20-Poly1305"})
	require.NoError(t, err)
	assert.Equal(t, AlgorithmXChaCha20Poly1305, v.Algorithm())
}
