package vault

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope is the at-rest form of sealed credentials: three independently
// encoded byte strings (base64 in JSON) and the cipher tag. Key material is
// never part of it.
type Envelope struct {
	// Algorithm is omitted for the default cipher
	Algorithm  Algorithm `json:"alg,omitempty"`
	Ciphertext []byte    `json:"ciphertext"`
	Nonce      []byte    `json:"nonce"`
	Tag        []byte    `json:"tag"`
}

// legacyEnvelope is the hex format written by the previous service
// ({"encrypted","authTag","iv"}, AES-256-GCM with a 16-byte IV)
type legacyEnvelope struct {
	Encrypted string `json:"encrypted"`
	AuthTag   string `json:"authTag"`
	IV        string `json:"iv"`
}

var errMalformedEnvelope = errors.New("malformed envelope")

// Marshal encodes the envelope for storage
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ParseEnvelope decodes a stored envelope. Both the current and the legacy
// format are accepted.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errMalformedEnvelope
	}

	if _, ok := fields["encrypted"]; ok {
		return parseLegacyEnvelope(data)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errMalformedEnvelope
	}
	if len(env.Ciphertext) == 0 || len(env.Nonce) == 0 || len(env.Tag) == 0 {
		return nil, errMalformedEnvelope
	}
	if env.Algorithm == "" {
		env.Algorithm = AlgorithmAESGCM
	}
	return &env, nil
}

func parseLegacyEnvelope(data []byte) (*Envelope, error) {
	var legacy legacyEnvelope
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, errMalformedEnvelope
	}

	ciphertext, err := hex.DecodeString(legacy.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext", errMalformedEnvelope)
	}
	tag, err := hex.DecodeString(legacy.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("%w: tag", errMalformedEnvelope)
	}
	nonce, err := hex.DecodeString(legacy.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce", errMalformedEnvelope)
	}
	if len(ciphertext) == 0 || len(tag) == 0 || len(nonce) == 0 {
		return nil, errMalformedEnvelope
	}

	return &Envelope{
		Algorithm:  AlgorithmAESGCM,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Tag:        tag,
	}, nil
}
