package byteguard

import (
	"context"
	"fmt"

	"github.com/byteguard/byteguard-go/internal/api"
	"github.com/byteguard/byteguard-go/internal/crypto"
)

// UploadPhase names one state of the encrypt-and-upload pipeline. The
// pipeline is a strict state machine: each phase completes or the whole
// operation fails; nothing is suspended mid-computation.
type UploadPhase int

// Pipeline states, in order.
const (
	UploadIdle UploadPhase = iota
	UploadKeyDraw
	UploadIvDraw
	UploadEncrypt
	UploadHash
	UploadOwnerWrap
	UploadStore
	UploadDone
	UploadFailed
)

// String returns the phase name.
func (p UploadPhase) String() string {
	switch p {
	case UploadIdle:
		return "idle"
	case UploadKeyDraw:
		return "key-draw"
	case UploadIvDraw:
		return "iv-draw"
	case UploadEncrypt:
		return "encrypt"
	case UploadHash:
		return "hash"
	case UploadOwnerWrap:
		return "owner-wrap"
	case UploadStore:
		return "store"
	case UploadDone:
		return "done"
	case UploadFailed:
		return "failed"
	}
	return "unknown"
}

// UploadProgress observes phase transitions. It is a side channel: the
// pipeline never waits on it.
type UploadProgress func(UploadPhase)

// UploadOption configures one upload.
type UploadOption func(*uploadConfig)

type uploadConfig struct {
	progress UploadProgress
}

// WithProgress reports each phase transition of the upload pipeline.
func WithProgress(fn UploadProgress) UploadOption {
	return func(c *uploadConfig) {
		c.progress = fn
	}
}

// Upload encrypts a plaintext and stores it on the server.
//
// The pipeline draws a fresh DEK and IV, encrypts with AES-256-GCM,
// fingerprints the ciphertext, wraps the DEK against the caller's own
// public key (so the file can be re-shared later), and uploads
// IV || ciphertext || tag together with the metadata. The DEK is wiped
// from memory on every exit path; the plaintext is never transmitted.
//
// Validation runs before any key material is drawn: an oversized plaintext
// or a missing local keypair fails without touching the RNG.
func (c *Client) Upload(ctx context.Context, fileName, contentType string, plaintext []byte, opts ...UploadOption) (*File, error) {
	identity, err := c.requireIdentity()
	if err != nil {
		return nil, err
	}

	var cfg uploadConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	phase := func(p UploadPhase) {
		if cfg.progress != nil {
			cfg.progress(p)
		}
	}
	failed := func(err error) (*File, error) {
		phase(UploadFailed)
		return nil, err
	}

	phase(UploadIdle)

	if len(plaintext) > crypto.MaxPlaintextSize {
		return failed(fmt.Errorf("%w: plaintext is %d bytes (max %d)", ErrInvalidInput, len(plaintext), crypto.MaxPlaintextSize))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// The owner-wrap needs this host's keypair before anything is drawn.
	kp, err := c.keys.Get(identity.ResearcherID)
	if err != nil {
		return failed(wrapCryptoError(err))
	}

	phase(UploadKeyDraw)
	dek, err := crypto.NewDEK()
	if err != nil {
		return failed(err)
	}
	defer crypto.Wipe(dek)

	phase(UploadIvDraw)
	nonce, err := crypto.NewNonce()
	if err != nil {
		return failed(err)
	}

	phase(UploadEncrypt)
	blob, err := crypto.EncryptAES(dek, plaintext, nonce)
	if err != nil {
		return failed(err)
	}

	phase(UploadHash)
	// The fingerprint covers ciphertext and tag only, never the IV and
	// never the plaintext.
	fingerprint := crypto.Fingerprint(blob[crypto.AESNonceSize:])

	phase(UploadOwnerWrap)
	ownerPayload, err := crypto.WrapDEK(dek, kp.PublicKey)
	if err != nil {
		return failed(err)
	}

	phase(UploadStore)
	file, err := c.apiClient.UploadFile(ctx, &api.UploadRequest{
		FileName:     fileName,
		OriginalSize: int64(len(plaintext)),
		ContentType:  contentType,
		SHA256Hash:   fingerprint,
		IV:           crypto.ToBase64(nonce),
		OwnerKemCt:   crypto.ToBase64(ownerPayload),
		Blob:         blob,
	})
	if err != nil {
		return failed(wrapAPIError(err))
	}

	phase(UploadDone)
	return file, nil
}
