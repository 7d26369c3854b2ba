// Package crypto provides the cryptographic primitives for the ByteGuard
// hybrid file-encryption protocol. It implements post-quantum key
// encapsulation and authenticated encryption using standardized algorithms.
//
// # Algorithm Suite
//
// The package uses the following cryptographic algorithms:
//
//   - ML-KEM-512 (NIST FIPS 203, Kyber-512): Post-quantum key encapsulation
//     mechanism for wrapping the per-file data-encryption key. Provides
//     128-bit classical and quantum security levels.
//
//   - AES-256-GCM: Authenticated encryption for file payloads. Provides
//     confidentiality and integrity of the ciphertext blob.
//
//   - SHA-256: Ciphertext fingerprints exchanged between client and server
//     as an integrity receipt.
//
// # Key Wrap
//
// The 32-byte data-encryption key (DEK) is wrapped by XOR with the 32-byte
// ML-KEM-512 shared secret. Each encapsulation draws fresh randomness and
// produces an independent shared secret, so the XOR acts as a one-time pad
// over a single secret. A shared secret is consumed for exactly one wrap and
// then wiped; no additional keys are derived from it. The 800-byte wire
// payload is kem_ct(768) || wrapped_dek(32).
//
// # Critical Security Notes
//
// AES-GCM nonces MUST be unique for each encryption with the same key. Nonce
// reuse completely breaks the security of AES-GCM, allowing attackers to
// recover the authentication key and forge messages. [EncryptBlob] draws a
// fresh random nonce on every call.
//
// A failed GCM tag check returns no plaintext bytes. Callers must treat
// [ErrDecryptionFailed] as fatal for the blob in question.
//
// # Key Management
//
// Use [GenerateKeypair] to create a new ML-KEM-512 keypair. The secret key
// contains an embedded copy of the public key at offset 768, which can be
// extracted using [KeypairFromSecretKey]. Keep secret keys secure: they
// should never be logged, transmitted, or stored outside the local keystore.
//
// # Base64 Encoding
//
// Binary values cross the JSON boundary as standard base64 with padding
// ([ToBase64]/[FromBase64]). [DecodeBase64] accepts the URL-safe and
// unpadded variants as well for inbound tolerance.
package crypto
