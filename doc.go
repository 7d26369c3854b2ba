// Package byteguard is the client SDK for the ByteGuard end-to-end
// encrypted file-sharing service. The server is a zero-trust storage and
// rendezvous point: it persists opaque ciphertext blobs, indexes metadata,
// and routes wrapped keys between identities, but never observes plaintext
// bytes or symmetric keys. All encryption, decryption, and key wrapping
// happens in this package, on the client.
//
// # Protocol
//
// Each file is encrypted once with a fresh 32-byte AES-256-GCM
// data-encryption key (DEK). The DEK is then wrapped per recipient with
// ML-KEM-512 (Kyber-512): a fresh encapsulation against the recipient's
// public key yields a 32-byte shared secret, and the wrapped key is the
// XOR of DEK and shared secret. The 800-byte payload kem_ct || wrapped_dek
// is all the server ever stores. At upload time the uploader also wraps the
// DEK against their own public key (the owner-wrap), so they can later
// recover it to re-share without keeping plaintext keys anywhere.
//
// # Usage
//
//	client, err := byteguard.New("https://byteguard.example.com",
//		byteguard.WithKeystoreDir("/var/lib/byteguard/keys"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Login(ctx, "alice", "hunter2!"); err != nil {
//		log.Fatal(err)
//	}
//
//	file, err := client.Upload(ctx, "notes.txt", "text/plain", []byte("Hi\n"))
//	share, err := client.ShareDirect(ctx, file.ID, "bob", byteguard.PermissionDownload)
//	// bob:
//	plaintext, _, err := client.ReceiveByCode(ctx, share.ShareCode)
//
// On first login for an identity with no keypair anywhere, the client
// generates an ML-KEM-512 keypair, persists it in the local keystore, and
// uploads the public half to the registry. The private key never leaves
// the keystore. A host without the keystore cannot decrypt: operations
// that need the private key fail with [ErrNoKeypair] rather than silently
// generating a new keypair, which would orphan every prior share.
//
// # Errors
//
// All errors can be inspected with errors.Is against the package
// sentinels ([ErrUnauthorized], [ErrNotFound], [ErrTampered], ...).
// Cryptographic failures are never recovered: a blob that fails its GCM
// tag check or its SHA-256 fingerprint yields [ErrTampered] and no
// plaintext bytes.
package byteguard
