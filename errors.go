package byteguard

import (
	"errors"
	"fmt"

	"github.com/byteguard/byteguard-go/internal/api"
	"github.com/byteguard/byteguard-go/internal/crypto"
	"github.com/byteguard/byteguard-go/internal/keystore"
)

// Sentinel errors for errors.Is() checks.
var (
	// ErrMissingBaseURL is returned when no server URL is provided.
	ErrMissingBaseURL = errors.New("server base URL is required")

	// ErrClientClosed is returned when operations are attempted on a closed client.
	ErrClientClosed = errors.New("client has been closed")

	// ErrNotLoggedIn is returned when an operation requires a session.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrUnauthorized is returned when the session is missing, unknown, or expired.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the session is valid but the action is not allowed.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a resource is absent or hidden by revocation.
	ErrNotFound = errors.New("not found")

	// ErrBadCredentials is returned on a login failure.
	ErrBadCredentials = errors.New("invalid credentials")

	// ErrAlreadyExists is returned on an identifier or group name collision.
	ErrAlreadyExists = errors.New("already exists")

	// ErrBadKey is returned for a malformed Kyber public key.
	ErrBadKey = errors.New("bad public key")

	// ErrNoRecipientKey is returned when a recipient exists but has no
	// registered Kyber public key.
	ErrNoRecipientKey = errors.New("recipient has no public key")

	// ErrNoKeypair is returned when the local keystore lacks a private key
	// for the caller. The client never regenerates silently: a fresh
	// keypair would orphan every share addressed to the old key.
	ErrNoKeypair = errors.New("no local keypair")

	// ErrBadPayload is returned for a wrapped-key payload of the wrong
	// length or one that fails decapsulation.
	ErrBadPayload = errors.New("bad key payload")

	// ErrTampered is returned when AES-GCM tag verification or the SHA-256
	// fingerprint check fails. No partial plaintext survives it.
	ErrTampered = errors.New("blob tampered or corrupted")

	// ErrSizeMismatch is returned when an uploaded blob's length does not
	// equal 12 + originalSize + 16.
	ErrSizeMismatch = errors.New("blob size mismatch")

	// ErrFingerprintMismatch is returned when an uploaded blob does not
	// hash to its declared fingerprint.
	ErrFingerprintMismatch = errors.New("fingerprint mismatch")

	// ErrWeakPassword is returned when a password fails the registration policy.
	ErrWeakPassword = errors.New("password too weak")

	// ErrInvalidInput is returned for validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal is returned for server-side failures (RNG, disk, database).
	ErrInternal = errors.New("internal error")
)

// APIError represents an HTTP error from the ByteGuard server.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// Is implements errors.Is for sentinel error matching. The server's stable
// error code is authoritative; the HTTP status is the fallback for
// responses that carry no code.
func (e *APIError) Is(target error) bool {
	if sentinel, ok := codeSentinels[e.Code]; ok {
		return target == sentinel
	}

	switch e.StatusCode {
	case 401:
		return target == ErrUnauthorized
	case 403:
		return target == ErrForbidden
	case 404:
		return target == ErrNotFound
	case 409:
		return target == ErrAlreadyExists
	case 400, 413, 422:
		return target == ErrInvalidInput
	case 500:
		return target == ErrInternal
	}
	return false
}

var codeSentinels = map[string]error{
	"UNAUTHORIZED":         ErrUnauthorized,
	"FORBIDDEN":            ErrForbidden,
	"NOT_FOUND":            ErrNotFound,
	"BAD_CREDENTIALS":      ErrBadCredentials,
	"ALREADY_EXISTS":       ErrAlreadyExists,
	"BAD_KEY":              ErrBadKey,
	"NO_RECIPIENT_KEY":     ErrNoRecipientKey,
	"BAD_PAYLOAD":          ErrBadPayload,
	"SIZE_MISMATCH":        ErrSizeMismatch,
	"FINGERPRINT_MISMATCH": ErrFingerprintMismatch,
	"WEAK_PASSWORD":        ErrWeakPassword,
	"INVALID_INPUT":        ErrInvalidInput,
	"INTERNAL":             ErrInternal,
}

// wrapAPIError converts transport errors into package errors.
func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			Code:       apiErr.Code,
		}
	}
	return err
}

// wrapCryptoError collapses engine errors into the package taxonomy.
func wrapCryptoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, crypto.ErrDecryptionFailed),
		errors.Is(err, crypto.ErrFingerprintMismatch),
		errors.Is(err, crypto.ErrBlobTooShort):
		return fmt.Errorf("%w: %v", ErrTampered, err)
	case errors.Is(err, crypto.ErrInvalidPayloadSize),
		errors.Is(err, crypto.ErrInvalidCiphertextSize):
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	case errors.Is(err, keystore.ErrNoKeypair):
		return fmt.Errorf("%w: %v", ErrNoKeypair, err)
	}
	return err
}
