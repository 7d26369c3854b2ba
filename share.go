package byteguard

import (
	"context"
	"fmt"

	"github.com/byteguard/byteguard-go/internal/crypto"
)

// ownerDEK recovers the DEK for a file the caller owns, via the stored
// owner-wrap payload. Only the owner receives that payload from the
// server, so a non-owner fails before any crypto runs.
func (c *Client) ownerDEK(ctx context.Context, fileID uint) ([]byte, error) {
	meta, err := c.apiClient.FileMeta(ctx, fileID)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	if meta.OwnerKemCt == "" {
		return nil, fmt.Errorf("%w: no owner-wrap payload for file %d", ErrForbidden, fileID)
	}
	return c.recoverDEK(meta.OwnerKemCt)
}

// ShareDirect shares a file the caller owns with one recipient. The DEK is
// recovered from the owner-wrap, re-wrapped with a fresh ML-KEM-512
// encapsulation against the recipient's public key, and submitted to the
// share ledger. The server stores only the opaque 800-byte payload.
//
// Fails with [ErrNoRecipientKey] if the recipient has not registered a
// public key, and [ErrNoKeypair] if this host cannot recover the DEK.
// Not retried on failure: a duplicate would mint a second share code.
func (c *Client) ShareDirect(ctx context.Context, fileID uint, recipientID, permission string) (*Share, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}
	if permission == "" {
		permission = PermissionDownload
	}

	recipientKey, err := c.LookupPublicKey(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	dek, err := c.ownerDEK(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(dek)

	payload, err := crypto.WrapDEK(dek, recipientKey)
	if err != nil {
		return nil, err
	}

	share, err := c.apiClient.CreateShare(ctx, fileID, recipientID, crypto.ToBase64(payload), permission)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return share, nil
}

// ShareWithGroup fans a file out to every group member that has a
// registered public key. Each member gets an independent encapsulation of
// the same DEK, so the payloads differ even though the key is shared. The
// server records the whole mapping atomically: all members become able to
// fetch their payload, or none do.
//
// Members without a registered key are skipped; they remain without
// access. Members added to the group later are not retroactively granted
// access either — re-share to include them.
func (c *Client) ShareWithGroup(ctx context.Context, groupID, fileID uint) (*GroupShare, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}

	memberKeys, err := c.apiClient.GroupPubkeys(ctx, groupID)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	if len(memberKeys) == 0 {
		return nil, fmt.Errorf("%w: no group member has a registered public key", ErrNoRecipientKey)
	}

	dek, err := c.ownerDEK(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(dek)

	payloads := make(map[string]string, len(memberKeys))
	for _, member := range memberKeys {
		raw, err := crypto.DecodeBase64(member.KyberPublicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: key for %s: %v", ErrBadKey, member.ResearcherID, err)
		}
		payload, err := crypto.WrapDEK(dek, raw)
		if err != nil {
			return nil, err
		}
		payloads[member.ResearcherID] = crypto.ToBase64(payload)
	}

	share, err := c.apiClient.ShareWithGroup(ctx, groupID, fileID, payloads)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return share, nil
}
