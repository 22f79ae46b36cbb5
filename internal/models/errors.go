package models

import (
	"errors"
	"fmt"
)

// Error codes for structured error handling.
const (
	ErrCodeCrypto      = "CRYPTO_ERROR"
	ErrCodeCredentials = "INVALID_CREDENTIALS"
	ErrCodeDecryption  = "DECRYPTION_ERROR"
	ErrCodePolicy      = "POLICY_ERROR"
	ErrCodeNetwork     = "NETWORK_ERROR"
	ErrCodeConflict    = "REMOTE_CONFLICT"
	ErrCodeStorage     = "STORAGE_ERROR"
	ErrCodeState       = "STATE_ERROR"
)

// Sentinel errors.
var (
	// ErrCryptoUnavailable is fatal: the platform cannot perform the
	// required cryptography at all.
	ErrCryptoUnavailable = errors.New("cryptographic primitives unavailable")

	// ErrInvalidCredentials is returned when the password verifier
	// rejects a candidate password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDecryptionFailed covers both a wrong password and corrupted
	// ciphertext. The two cases are deliberately indistinguishable so
	// a caller cannot probe which one occurred.
	ErrDecryptionFailed = errors.New("decryption failed")

	ErrWeakPassword           = errors.New("password rejected by strength policy")
	ErrNetworkTimeout         = errors.New("network operation timed out")
	ErrRemoteUnavailable      = errors.New("remote store unavailable")
	ErrRemoteConflict         = errors.New("remote resource changed underneath expected revision")
	ErrRemoteNotFound         = errors.New("remote resource not found")
	ErrVaultNotConfigured     = errors.New("vault encryption not configured")
	ErrVaultAlreadyConfigured = errors.New("vault encryption already configured")
	ErrVaultLocked            = errors.New("vault is locked")
	ErrSyncInProgress         = errors.New("sync already in progress")
)

// RemoteError represents a failure reported by the remote blob store.
type RemoteError struct {
	StatusCode int
	Message    string
	Locator    string
	Path       string
}

func (e *RemoteError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("remote error %d at %s/%s: %s", e.StatusCode, e.Locator, e.Path, e.Message)
	}
	return fmt.Sprintf("remote error %d at %s: %s", e.StatusCode, e.Locator, e.Message)
}

// SyncError provides detailed sync failure information.
type SyncError struct {
	Code    string
	Phase   string
	Locator string
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s [%s]: %s: %v", e.Phase, e.Code, e.Locator, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
