package crypto

// Provider defines the interface for envelope cryptography.
type Provider interface {
	// DeriveKey derives a 256-bit symmetric key from a password. The
	// same (password, salt, iterations) triple always yields the same
	// key; the provider never caches derivations.
	DeriveKey(password string, salt []byte, iterations int) ([]byte, error)

	// Encrypt serializes value to JSON and seals it into a fresh
	// envelope with a newly generated salt and IV.
	Encrypt(value interface{}, password string) (*Envelope, error)

	// Decrypt re-derives the key from the envelope's own parameters
	// and returns the recovered plaintext JSON. A wrong password and
	// corrupted ciphertext fail identically with
	// models.ErrDecryptionFailed.
	Decrypt(env *Envelope, password string) ([]byte, error)

	// DecryptInto decrypts and unmarshals into out.
	DecryptInto(env *Envelope, password string, out interface{}) error

	// VerifyPassword reports whether password decrypts the envelope.
	// It never returns plaintext.
	VerifyPassword(env *Envelope, password string) bool

	// GenerateVerifier produces a non-decrypting password proof with a
	// fresh random salt.
	GenerateVerifier(password string) (*PasswordVerifier, error)

	// CheckVerifier recomputes the verifier hash with its stored salt
	// and compares in constant time.
	CheckVerifier(v *PasswordVerifier, password string) (bool, error)

	// AssessStrength scores a candidate password for UI feedback. It
	// never gates encryption.
	AssessStrength(password string) Strength
}
