package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	// SchemaVersion identifies the envelope layout.
	SchemaVersion = 1

	// AlgorithmTag is the fixed cipher identifier. Remote resources
	// are recognized as envelopes by the presence of this exact tag.
	AlgorithmTag = "AES-256-GCM"
)

// Envelope is the atomic unit of ciphertext at rest and in transit. It
// is self-describing: salt, IV and iteration count are sufficient to
// attempt decryption given only a password. An envelope is immutable
// once produced; updating data means producing a brand-new envelope.
type Envelope struct {
	SchemaVersion int    `json:"schemaVersion"`
	Algorithm     string `json:"algorithm"`
	IV            string `json:"iv"`   // base64, fresh per encryption
	Salt          string `json:"salt"` // base64, fresh per encryption
	KDFIterations int    `json:"kdfIterations"`
	Ciphertext    string `json:"ciphertext"` // base64, includes GCM tag

	// Checksum is a hex SHA-256 of the plaintext, for tamper-evidence
	// display only. It is derivable without the key and is not a
	// security control; a mismatch after successful decryption is
	// logged, never fatal.
	Checksum string `json:"checksum,omitempty"`
}

// Validate checks the envelope is structurally usable.
func (e *Envelope) Validate() error {
	if e.Algorithm != AlgorithmTag {
		return fmt.Errorf("unsupported algorithm %q", e.Algorithm)
	}
	if e.IV == "" || e.Salt == "" || e.Ciphertext == "" {
		return fmt.Errorf("envelope missing required fields")
	}
	if e.KDFIterations <= 0 {
		return fmt.Errorf("invalid kdf iteration count %d", e.KDFIterations)
	}
	return nil
}

func (e *Envelope) decodeFields() (iv, salt, ciphertext []byte, err error) {
	if iv, err = base64.StdEncoding.DecodeString(e.IV); err != nil {
		return nil, nil, nil, fmt.Errorf("decode iv: %w", err)
	}
	if salt, err = base64.StdEncoding.DecodeString(e.Salt); err != nil {
		return nil, nil, nil, fmt.Errorf("decode salt: %w", err)
	}
	if ciphertext, err = base64.StdEncoding.DecodeString(e.Ciphertext); err != nil {
		return nil, nil, nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	return iv, salt, ciphertext, nil
}

// IsEnvelope reports whether raw JSON carries the envelope algorithm
// tag. Decided once at the remote-resource boundary; anything else is
// treated as already-plaintext.
func IsEnvelope(raw []byte) bool {
	var probe struct {
		Algorithm string `json:"algorithm"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Algorithm == AlgorithmTag
}

// PasswordVerifier proves a candidate password matches the vault's
// password without attempting a decrypt. Its hash is domain-separated
// from the encryption key, so a leaked verifier cannot serve as key
// material and vice versa.
type PasswordVerifier struct {
	Hash          string `json:"hash"` // base64
	Salt          string `json:"salt"` // base64, distinct from any envelope salt
	KDFIterations int    `json:"kdfIterations"`
}
