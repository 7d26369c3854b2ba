package crypto

import "fmt"

// WrapDEK wraps a 32-byte DEK for a recipient public key. It performs a
// fresh ML-KEM-512 encapsulation and XORs the DEK with the resulting shared
// secret. Returns the 800-byte wire payload kem_ct(768) || wrapped(32).
// The shared secret is wiped before returning.
func WrapDEK(dek, recipientPublicKey []byte) ([]byte, error) {
	if len(dek) != DEKSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(dek), DEKSize)
	}

	kemCT, sharedSecret, err := Encapsulate(recipientPublicKey)
	if err != nil {
		return nil, err
	}
	defer Wipe(sharedSecret)

	payload := make([]byte, 0, KEMPayloadSize)
	payload = append(payload, kemCT...)
	for i := 0; i < WrappedKeySize; i++ {
		payload = append(payload, dek[i]^sharedSecret[i])
	}

	return payload, nil
}

// UnwrapDEK recovers the DEK from an 800-byte wrapped-key payload using the
// holder's secret key. The shared secret is wiped before returning; the
// caller owns the returned DEK and must wipe it after use.
func UnwrapDEK(payload []byte, keypair *Keypair) ([]byte, error) {
	kemCT, wrapped, err := SplitPayload(payload)
	if err != nil {
		return nil, err
	}

	sharedSecret, err := keypair.Decapsulate(kemCT)
	if err != nil {
		return nil, err
	}
	defer Wipe(sharedSecret)

	dek := make([]byte, DEKSize)
	for i := range dek {
		dek[i] = wrapped[i] ^ sharedSecret[i]
	}

	return dek, nil
}

// SplitPayload splits a wrapped-key payload into its KEM ciphertext and
// wrapped-DEK halves. Total over exactly KEMPayloadSize-byte inputs.
func SplitPayload(payload []byte) (kemCT, wrapped []byte, err error) {
	if len(payload) != KEMPayloadSize {
		return nil, nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidPayloadSize, len(payload), KEMPayloadSize)
	}
	return payload[:MLKEMCiphertextSize], payload[MLKEMCiphertextSize:], nil
}
