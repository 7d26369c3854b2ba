package crypto

import "errors"

var (
	// ErrInvalidSecretKeySize is returned when the secret key size is invalid.
	ErrInvalidSecretKeySize = errors.New("invalid secret key size")

	// ErrInvalidPublicKeySize is returned when the public key size is invalid.
	ErrInvalidPublicKeySize = errors.New("invalid public key size")

	// ErrInvalidCiphertextSize is returned when the KEM ciphertext size is invalid.
	ErrInvalidCiphertextSize = errors.New("invalid ciphertext size")

	// ErrInvalidPayloadSize is returned when a wrapped-key payload is not
	// exactly KEMPayloadSize bytes.
	ErrInvalidPayloadSize = errors.New("invalid payload size")

	// ErrDecryptionFailed is returned when AES-GCM tag verification fails.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidKeySize is returned when the AES key size is invalid.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when the nonce size is invalid.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrPlaintextTooLarge is returned when a plaintext exceeds MaxPlaintextSize.
	// The check runs before any key material is drawn.
	ErrPlaintextTooLarge = errors.New("plaintext exceeds maximum size")

	// ErrBlobTooShort is returned when a blob is shorter than the fixed
	// nonce-plus-tag overhead.
	ErrBlobTooShort = errors.New("blob too short")

	// ErrFingerprintMismatch is returned when a blob does not hash to the
	// expected SHA-256 fingerprint.
	ErrFingerprintMismatch = errors.New("fingerprint mismatch")

	// ErrRandomSource is returned when the system RNG fails. The operation
	// aborts; there is no deterministic fallback.
	ErrRandomSource = errors.New("random source failure")
)
