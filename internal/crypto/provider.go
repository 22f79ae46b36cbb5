package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/pentesthub/hubvault/internal/events"
	"github.com/pentesthub/hubvault/internal/models"
)

const (
	// Key sizes
	KeySize   = 32 // AES-256
	NonceSize = 12 // GCM standard
	TagSize   = 16 // GCM tag

	// PBKDF2 parameters
	DefaultIterations = 100000
	SaltSize          = 32
)

// verifierLabel domain-separates the verifier hash from the derived
// encryption key.
var verifierLabel = []byte("hubvault-password-verifier-v1")

// EnvelopeProvider implements Provider with PBKDF2-SHA256 key
// derivation and AES-256-GCM authenticated encryption.
type EnvelopeProvider struct {
	iterations int
	logger     *events.Logger
}

// NewProvider creates an envelope crypto provider.
func NewProvider(iterations int, logger *events.Logger) *EnvelopeProvider {
	if iterations < DefaultIterations {
		iterations = DefaultIterations
	}
	return &EnvelopeProvider{
		iterations: iterations,
		logger:     logger.WithField("component", "crypto"),
	}
}

// SelfCheck verifies the platform primitives by round-tripping a probe
// value. Failure is fatal at startup.
func (p *EnvelopeProvider) SelfCheck() error {
	env, err := p.Encrypt(map[string]bool{"probe": true}, "self-check")
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrCryptoUnavailable, err)
	}
	if _, err := p.Decrypt(env, "self-check"); err != nil {
		return fmt.Errorf("%w: %v", models.ErrCryptoUnavailable, err)
	}
	return nil
}

// DeriveKey derives a 256-bit key from password, salt and iterations.
func (p *EnvelopeProvider) DeriveKey(password string, salt []byte, iterations int) ([]byte, error) {
	if len(salt) < SaltSize {
		return nil, fmt.Errorf("salt too short: %d bytes", len(salt))
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("invalid iteration count %d", iterations)
	}
	return pbkdf2.Key([]byte(password), salt, iterations, KeySize, sha256.New), nil
}

// Encrypt seals value into a fresh envelope under password.
func (p *EnvelopeProvider) Encrypt(value interface{}, password string) (*Envelope, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("serialize payload: %w", err)
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("%w: generate salt: %v", models.ErrCryptoUnavailable, err)
	}

	key, err := p.DeriveKey(password, salt, p.iterations)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer wipe(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: generate nonce: %v", models.ErrCryptoUnavailable, err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	checksum := sha256.Sum256(plaintext)

	return &Envelope{
		SchemaVersion: SchemaVersion,
		Algorithm:     AlgorithmTag,
		IV:            base64.StdEncoding.EncodeToString(nonce),
		Salt:          base64.StdEncoding.EncodeToString(salt),
		KDFIterations: p.iterations,
		Ciphertext:    base64.StdEncoding.EncodeToString(ciphertext),
		Checksum:      hex.EncodeToString(checksum[:]),
	}, nil
}

// Decrypt opens the envelope under password and returns the plaintext
// JSON. Wrong password and malformed ciphertext are indistinguishable:
// both surface models.ErrDecryptionFailed.
func (p *EnvelopeProvider) Decrypt(env *Envelope, password string) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, models.ErrDecryptionFailed
	}

	nonce, salt, ciphertext, err := env.decodeFields()
	if err != nil {
		return nil, models.ErrDecryptionFailed
	}
	if len(nonce) != NonceSize || len(ciphertext) < TagSize {
		return nil, models.ErrDecryptionFailed
	}

	key, err := p.DeriveKey(password, salt, env.KDFIterations)
	if err != nil {
		return nil, models.ErrDecryptionFailed
	}
	defer wipe(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, models.ErrDecryptionFailed
	}

	// Advisory integrity net, never fatal: the authentication tag has
	// already vouched for the ciphertext.
	if env.Checksum != "" {
		sum := sha256.Sum256(plaintext)
		if hex.EncodeToString(sum[:]) != env.Checksum {
			p.logger.WithField("expected", env.Checksum).Warn("Plaintext checksum mismatch")
		}
	}

	return plaintext, nil
}

// DecryptInto decrypts and unmarshals into out.
func (p *EnvelopeProvider) DecryptInto(env *Envelope, password string, out interface{}) error {
	plaintext, err := p.Decrypt(env, password)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("deserialize payload: %w", err)
	}
	return nil
}

// VerifyPassword reports whether password opens the envelope.
func (p *EnvelopeProvider) VerifyPassword(env *Envelope, password string) bool {
	_, err := p.Decrypt(env, password)
	return err == nil
}

// GenerateVerifier produces a password verifier with a fresh salt. The
// stored hash is HMAC(derivedKey, label), so it lives in a different
// output space than the encryption key itself.
func (p *EnvelopeProvider) GenerateVerifier(password string) (*PasswordVerifier, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("%w: generate salt: %v", models.ErrCryptoUnavailable, err)
	}

	hash, err := p.verifierHash(password, salt, p.iterations)
	if err != nil {
		return nil, err
	}

	return &PasswordVerifier{
		Hash:          base64.StdEncoding.EncodeToString(hash),
		Salt:          base64.StdEncoding.EncodeToString(salt),
		KDFIterations: p.iterations,
	}, nil
}

// CheckVerifier recomputes the hash with the verifier's stored salt
// and compares in constant time.
func (p *EnvelopeProvider) CheckVerifier(v *PasswordVerifier, password string) (bool, error) {
	salt, err := base64.StdEncoding.DecodeString(v.Salt)
	if err != nil {
		return false, fmt.Errorf("decode verifier salt: %w", err)
	}
	stored, err := base64.StdEncoding.DecodeString(v.Hash)
	if err != nil {
		return false, fmt.Errorf("decode verifier hash: %w", err)
	}

	computed, err := p.verifierHash(password, salt, v.KDFIterations)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(stored, computed) == 1, nil
}

func (p *EnvelopeProvider) verifierHash(password string, salt []byte, iterations int) ([]byte, error) {
	key, err := p.DeriveKey(password, salt, iterations)
	if err != nil {
		return nil, err
	}
	defer wipe(key)

	mac := hmac.New(sha256.New, key)
	mac.Write(verifierLabel)
	return mac.Sum(nil), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: create cipher: %v", models.ErrCryptoUnavailable, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: create GCM: %v", models.ErrCryptoUnavailable, err)
	}
	return aead, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
