package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateKeypair(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	if len(kp.PublicKey) != MLKEMPublicKeySize {
		t.Errorf("public key size = %d, want %d", len(kp.PublicKey), MLKEMPublicKeySize)
	}
	if len(kp.SecretKey) != MLKEMSecretKeySize {
		t.Errorf("secret key size = %d, want %d", len(kp.SecretKey), MLKEMSecretKeySize)
	}
}

func TestGenerateKeypair_Unique(t *testing.T) {
	kp1, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	kp2, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(kp1.PublicKey, kp2.PublicKey) {
		t.Error("two generated keypairs share a public key")
	}
}

// A fixed random source yields a reproducible keypair; restoring the
// source brings fresh randomness back.
func TestGenerateKeypair_DeterministicWithFixedReader(t *testing.T) {
	restore := SetRandReaderForTesting(zeroReader{})
	kp1, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	kp2, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	restore()

	if !bytes.Equal(kp1.SecretKey, kp2.SecretKey) {
		t.Error("fixed random source must reproduce the keypair")
	}

	kp3, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(kp1.PublicKey, kp3.PublicKey) {
		t.Error("restored random source must produce fresh keypairs")
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestKeypairFromSecretKey(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}

	restored, err := KeypairFromSecretKey(kp.SecretKey)
	if err != nil {
		t.Fatalf("KeypairFromSecretKey() error = %v", err)
	}

	if !bytes.Equal(restored.PublicKey, kp.PublicKey) {
		t.Error("restored public key differs from original")
	}
}

func TestKeypairFromSecretKey_InvalidSize(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"too short", MLKEMSecretKeySize - 1},
		{"too long", MLKEMSecretKeySize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := KeypairFromSecretKey(make([]byte, tt.size))
			if !errors.Is(err, ErrInvalidSecretKeySize) {
				t.Errorf("expected ErrInvalidSecretKeySize, got %v", err)
			}
		})
	}
}

func TestEncapsulate_Decapsulate_RoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}

	kemCT, sharedSecret, err := Encapsulate(kp.PublicKey)
	if err != nil {
		t.Fatalf("Encapsulate() error = %v", err)
	}

	if len(kemCT) != MLKEMCiphertextSize {
		t.Errorf("kem ciphertext size = %d, want %d", len(kemCT), MLKEMCiphertextSize)
	}
	if len(sharedSecret) != MLKEMSharedKeySize {
		t.Errorf("shared secret size = %d, want %d", len(sharedSecret), MLKEMSharedKeySize)
	}

	recovered, err := kp.Decapsulate(kemCT)
	if err != nil {
		t.Fatalf("Decapsulate() error = %v", err)
	}

	if !bytes.Equal(recovered, sharedSecret) {
		t.Error("decapsulated secret differs from encapsulated secret")
	}
}

func TestEncapsulate_FreshRandomness(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}

	ct1, ss1, err := Encapsulate(kp.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	ct2, ss2, err := Encapsulate(kp.PublicKey)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(ct1, ct2) {
		t.Error("two encapsulations produced identical KEM ciphertexts")
	}
	if bytes.Equal(ss1, ss2) {
		t.Error("two encapsulations produced identical shared secrets")
	}
}

func TestEncapsulate_InvalidPublicKeySize(t *testing.T) {
	_, _, err := Encapsulate(make([]byte, 100))
	if !errors.Is(err, ErrInvalidPublicKeySize) {
		t.Errorf("expected ErrInvalidPublicKeySize, got %v", err)
	}
}

func TestDecapsulate_InvalidCiphertextSize(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}

	_, err = kp.Decapsulate(make([]byte, MLKEMCiphertextSize-1))
	if !errors.Is(err, ErrInvalidCiphertextSize) {
		t.Errorf("expected ErrInvalidCiphertextSize, got %v", err)
	}
}

func TestValidatePublicKey(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}

	if err := ValidatePublicKey(kp.PublicKey); err != nil {
		t.Errorf("ValidatePublicKey() error = %v", err)
	}

	if err := ValidatePublicKey(make([]byte, 801)); !errors.Is(err, ErrInvalidPublicKeySize) {
		t.Errorf("expected ErrInvalidPublicKeySize, got %v", err)
	}
}
