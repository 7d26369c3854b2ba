package crypto

const (
	// MLKEMPublicKeySize is the size of an ML-KEM-512 public key in bytes.
	MLKEMPublicKeySize = 800
	// MLKEMSecretKeySize is the size of an ML-KEM-512 secret key in bytes.
	MLKEMSecretKeySize = 1632
	// MLKEMCiphertextSize is the size of an ML-KEM-512 ciphertext in bytes.
	MLKEMCiphertextSize = 768
	// MLKEMSharedKeySize is the size of the shared secret from ML-KEM-512 in bytes.
	MLKEMSharedKeySize = 32

	// DEKSize is the size of the per-file data-encryption key in bytes (AES-256).
	DEKSize = 32
	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of an AES-GCM nonce in bytes.
	AESNonceSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16

	// WrappedKeySize is the size of the XOR-wrapped DEK in bytes.
	WrappedKeySize = 32
	// KEMPayloadSize is the size of a complete wrapped-key payload:
	// kem_ct(768) || wrapped_dek(32).
	KEMPayloadSize = MLKEMCiphertextSize + WrappedKeySize

	// BlobOverhead is the fixed per-blob overhead: nonce plus GCM tag.
	// A blob is always exactly BlobOverhead + plaintext-length bytes.
	BlobOverhead = AESNonceSize + AESTagSize

	// MaxPlaintextSize is the largest plaintext accepted for encryption.
	MaxPlaintextSize = 100 << 20 // 100 MiB, the transport bound

	// PublicKeyOffset is the byte offset where the public key is embedded
	// within an ML-KEM-512 secret key.
	PublicKeyOffset = 768
)

// AlgsCiphersuite is the canonical string representation of the algorithm suite.
var AlgsCiphersuite = "ML-KEM-512:AES-256-GCM"
