package byteguard

import (
	"context"
	"fmt"

	"github.com/byteguard/byteguard-go/internal/crypto"
)

// recoverDEK unwraps a base64 wrapped-key payload with the logged-in
// identity's private key. The caller owns the returned DEK and must wipe
// it after use.
func (c *Client) recoverDEK(payloadB64 string) ([]byte, error) {
	identity, err := c.requireIdentity()
	if err != nil {
		return nil, err
	}

	kp, err := c.keys.Get(identity.ResearcherID)
	if err != nil {
		return nil, wrapCryptoError(err)
	}

	payload, err := crypto.DecodeBase64(payloadB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	dek, err := crypto.UnwrapDEK(payload, kp)
	if err != nil {
		return nil, wrapCryptoError(err)
	}
	return dek, nil
}

// decryptBlob verifies a downloaded blob against its fingerprint and
// decrypts it. On any integrity failure the plaintext is discarded and
// ErrTampered surfaces.
func decryptBlob(dek, blob []byte, fingerprint string) ([]byte, error) {
	if fingerprint != "" {
		if err := crypto.VerifyFingerprint(blob[min(len(blob), crypto.AESNonceSize):], fingerprint); err != nil {
			return nil, wrapCryptoError(err)
		}
	}

	plaintext, err := crypto.DecryptBlob(dek, blob)
	if err != nil {
		return nil, wrapCryptoError(err)
	}
	return plaintext, nil
}

// Download recovers a file the caller owns: fetch the metadata and blob,
// unwrap the owner-wrap payload, verify the fingerprint, and decrypt.
func (c *Client) Download(ctx context.Context, fileID uint) ([]byte, *File, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, nil, err
	}

	meta, err := c.apiClient.FileMeta(ctx, fileID)
	if err != nil {
		return nil, nil, wrapAPIError(err)
	}
	if meta.OwnerKemCt == "" {
		return nil, nil, fmt.Errorf("%w: file has no owner-wrap payload", ErrBadPayload)
	}

	dek, err := c.recoverDEK(meta.OwnerKemCt)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.Wipe(dek)

	blob, err := c.apiClient.DownloadFile(ctx, fileID)
	if err != nil {
		return nil, nil, wrapAPIError(err)
	}

	plaintext, err := decryptBlob(dek, blob, meta.SHA256Hash)
	if err != nil {
		return nil, nil, err
	}
	return plaintext, meta, nil
}

// ReceiveByCode fetches a direct share addressed to the caller by its
// share code, downloads the blob, and decrypts it: decapsulate, unwrap,
// verify, AES-GCM open. The first fetch marks the share viewed.
func (c *Client) ReceiveByCode(ctx context.Context, shareCode string) ([]byte, *Share, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, nil, err
	}

	share, err := c.apiClient.GetShareByCode(ctx, shareCode)
	if err != nil {
		return nil, nil, wrapAPIError(err)
	}
	if share.KemCiphertext == "" {
		return nil, nil, fmt.Errorf("%w: share carries no key payload", ErrBadPayload)
	}

	dek, err := c.recoverDEK(share.KemCiphertext)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.Wipe(dek)

	blob, err := c.apiClient.DownloadFile(ctx, share.FileID)
	if err != nil {
		return nil, nil, wrapAPIError(err)
	}

	plaintext, err := decryptBlob(dek, blob, share.SHA256Hash)
	if err != nil {
		return nil, nil, err
	}
	return plaintext, share, nil
}

// ReceiveGroupFile decrypts a file shared with one of the caller's groups,
// using the caller's per-member entry from the fan-out mapping.
func (c *Client) ReceiveGroupFile(ctx context.Context, groupShare *GroupShare) ([]byte, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}

	if groupShare.MyKemCiphertext == "" {
		return nil, fmt.Errorf("%w: no payload addressed to this identity", ErrBadPayload)
	}

	dek, err := c.recoverDEK(groupShare.MyKemCiphertext)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(dek)

	blob, err := c.apiClient.DownloadFile(ctx, groupShare.FileID)
	if err != nil {
		return nil, wrapAPIError(err)
	}

	return decryptBlob(dek, blob, groupShare.SHA256Hash)
}

// ListIncoming lists active shares addressed to the caller.
func (c *Client) ListIncoming(ctx context.Context) ([]Share, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}
	shares, err := c.apiClient.ListReceived(ctx)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return shares, nil
}

// ListOutgoing lists shares the caller has created.
func (c *Client) ListOutgoing(ctx context.Context) ([]Share, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}
	shares, err := c.apiClient.ListShared(ctx)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return shares, nil
}

// Revoke transitions a share the caller created to revoked. Terminal and
// authorization-only: a recipient who already decrypted keeps what they
// have, but the payload is never served again.
func (c *Client) Revoke(ctx context.Context, shareID uint) error {
	if _, err := c.requireIdentity(); err != nil {
		return err
	}
	return wrapAPIError(c.apiClient.RevokeShare(ctx, shareID))
}
