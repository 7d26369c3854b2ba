package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// EncryptAES encrypts data using AES-256-GCM with the given nonce.
// Returns: nonce (12 bytes) || ciphertext || tag (16 bytes)
func EncryptAES(key, plaintext, nonce []byte) ([]byte, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}

	if len(nonce) != AESNonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), AESNonceSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, AESNonceSize+len(ciphertext))
	out = append(out, nonce...)
	return append(out, ciphertext...), nil
}

// EncryptBlob encrypts a plaintext into the blob wire format with a fresh
// random nonce. The plaintext size bound is checked before the nonce is
// drawn. The resulting blob is exactly BlobOverhead + len(plaintext) bytes.
func EncryptBlob(key, plaintext []byte) ([]byte, error) {
	if len(plaintext) > MaxPlaintextSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPlaintextTooLarge, len(plaintext))
	}

	nonce := make([]byte, AESNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomSource, err)
	}

	return EncryptAES(key, plaintext, nonce)
}

// DecryptBlob decrypts a blob in the wire format
// nonce (12 bytes) || ciphertext || tag (16 bytes).
// A tag verification failure returns ErrDecryptionFailed and no plaintext.
func DecryptBlob(key, blob []byte) ([]byte, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}

	if len(blob) < BlobOverhead {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlobTooShort, len(blob))
	}

	nonce := blob[:AESNonceSize]
	ciphertextWithTag := blob[AESNonceSize:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertextWithTag, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// NewNonce draws a fresh 12-byte AES-GCM nonce from the system RNG.
func NewNonce() ([]byte, error) {
	nonce := make([]byte, AESNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomSource, err)
	}
	return nonce, nil
}

// NewDEK draws a fresh 32-byte data-encryption key from the system RNG.
func NewDEK() ([]byte, error) {
	dek := make([]byte, DEKSize)
	if _, err := io.ReadFull(rand.Reader, dek); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomSource, err)
	}
	return dek, nil
}
