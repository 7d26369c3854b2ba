package crypto

import (
	"crypto/rand"
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem512"
)

// randReader is the random source used for key generation.
// It defaults to nil (which uses crypto/rand) but can be overridden for testing.
var randReader io.Reader

// Keypair represents an ML-KEM-512 keypair for key encapsulation.
type Keypair struct {
	// PublicKey is the raw ML-KEM-512 public key bytes.
	PublicKey []byte
	// SecretKey is the raw ML-KEM-512 secret key bytes.
	SecretKey []byte
}

// GenerateKeypair creates a new ML-KEM-512 keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := mlkem512.GenerateKeyPair(randReader)
	if err != nil {
		return nil, err
	}

	// MarshalBinary never fails for valid keys from GenerateKeyPair
	pubBytes, _ := pub.MarshalBinary()
	privBytes, _ := priv.MarshalBinary()

	return &Keypair{
		PublicKey: pubBytes,
		SecretKey: privBytes,
	}, nil
}

// KeypairFromSecretKey reconstructs a keypair from the secret key.
// The public key is embedded in the secret key at offset 768.
func KeypairFromSecretKey(secretKey []byte) (*Keypair, error) {
	if len(secretKey) != MLKEMSecretKeySize {
		return nil, ErrInvalidSecretKeySize
	}

	publicKey := make([]byte, MLKEMPublicKeySize)
	copy(publicKey, secretKey[PublicKeyOffset:PublicKeyOffset+MLKEMPublicKeySize])

	return &Keypair{
		PublicKey: publicKey,
		SecretKey: secretKey,
	}, nil
}

// ValidatePublicKey checks that a public key has the correct size and can
// be parsed by the KEM.
func ValidatePublicKey(publicKey []byte) error {
	if len(publicKey) != MLKEMPublicKeySize {
		return ErrInvalidPublicKeySize
	}
	var pk mlkem512.PublicKey
	if err := pk.Unpack(publicKey); err != nil {
		return err
	}
	return nil
}

// Encapsulate performs ML-KEM-512 encapsulation against a recipient public
// key with fresh randomness. Returns the KEM ciphertext (768 bytes) and the
// shared secret (32 bytes). Two calls against the same key never produce
// the same output.
func Encapsulate(recipientPublicKey []byte) (kemCT, sharedSecret []byte, err error) {
	if len(recipientPublicKey) != MLKEMPublicKeySize {
		return nil, nil, ErrInvalidPublicKeySize
	}

	var pubKey mlkem512.PublicKey
	pubKey.Unpack(recipientPublicKey)

	seed := make([]byte, mlkem512.EncapsulationSeedSize)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, nil, ErrRandomSource
	}

	kemCT = make([]byte, MLKEMCiphertextSize)
	sharedSecret = make([]byte, MLKEMSharedKeySize)
	pubKey.EncapsulateTo(kemCT, sharedSecret, seed)

	return kemCT, sharedSecret, nil
}

// Decapsulate recovers the shared secret from the encapsulated key.
func (k *Keypair) Decapsulate(kemCT []byte) ([]byte, error) {
	if len(kemCT) != MLKEMCiphertextSize {
		return nil, ErrInvalidCiphertextSize
	}

	var privKey mlkem512.PrivateKey
	if err := privKey.Unpack(k.SecretKey); err != nil {
		return nil, err
	}

	sharedSecret := make([]byte, MLKEMSharedKeySize)
	privKey.DecapsulateTo(sharedSecret, kemCT)

	return sharedSecret, nil
}
