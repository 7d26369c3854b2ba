package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Register creates an identity and returns a fresh session.
func (c *Client) Register(ctx context.Context, researcherID, password, kyberPublicKey string) (*AuthResponse, error) {
	body := map[string]string{
		"researcherId": researcherID,
		"password":     password,
	}
	if kyberPublicKey != "" {
		body["kyberPublicKey"] = kyberPublicKey
	}

	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates and returns a session plus an identity snapshot.
func (c *Client) Login(ctx context.Context, researcherID, password string) (*AuthResponse, error) {
	body := map[string]string{
		"researcherId": researcherID,
		"password":     password,
	}

	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// SessionCheck resolves the current token to an identity.
func (c *Client) SessionCheck(ctx context.Context) (*User, error) {
	var resp SessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// SetKyberKey uploads the caller's base64 Kyber public key.
func (c *Client) SetKyberKey(ctx context.Context, kyberPublicKey string) error {
	body := map[string]string{"kyberPublicKey": kyberPublicKey}
	return c.do(ctx, http.MethodPut, "/api/auth/kyber-key", body, nil)
}

// GetPubkey fetches a researcher's base64 Kyber public key.
func (c *Client) GetPubkey(ctx context.Context, researcherID string) (*PubkeyResponse, error) {
	var resp PubkeyResponse
	path := "/api/auth/pubkey/" + url.PathEscape(researcherID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchUsers returns identities whose id starts with the given prefix.
func (c *Client) SearchUsers(ctx context.Context, prefix string) ([]SearchResult, error) {
	var resp []SearchResult
	path := "/api/auth/search?q=" + url.QueryEscape(prefix)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// UploadFile sends an encrypted blob plus metadata as multipart form data.
func (c *Client) UploadFile(ctx context.Context, req *UploadRequest) (*File, error) {
	fields := map[string]string{
		"fileName":     req.FileName,
		"originalSize": strconv.FormatInt(req.OriginalSize, 10),
		"contentType":  req.ContentType,
		"sha256Hash":   req.SHA256Hash,
		"iv":           req.IV,
		"ownerKemCt":   req.OwnerKemCt,
	}

	var resp File
	if err := c.doMultipart(ctx, "/api/files/upload", "file", req.FileName, req.Blob, fields, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DownloadFile fetches a ciphertext blob by file id.
func (c *Client) DownloadFile(ctx context.Context, fileID uint) ([]byte, error) {
	return c.download(ctx, fmt.Sprintf("/api/files/download/%d", fileID))
}

// ListMyFiles lists the caller's own files.
func (c *Client) ListMyFiles(ctx context.Context) ([]File, error) {
	var resp []File
	if err := c.do(ctx, http.MethodGet, "/api/files/my-files", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// FileMeta fetches one file record. The owner-wrap payload is included for
// the owner only.
func (c *Client) FileMeta(ctx context.Context, fileID uint) (*File, error) {
	var resp File
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/files/%d/meta", fileID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteFile removes a file and every share referencing it.
func (c *Client) DeleteFile(ctx context.Context, fileID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/files/%d", fileID), nil, nil)
}

// CreateShare records a direct share. Never retried: a duplicate submission
// would mint a second share code.
func (c *Client) CreateShare(ctx context.Context, fileID uint, recipientID, kemCiphertext, permission string) (*Share, error) {
	body := map[string]interface{}{
		"fileId":        fileID,
		"recipientId":   recipientID,
		"kemCiphertext": kemCiphertext,
	}
	if permission != "" {
		body["permission"] = permission
	}

	var resp Share
	if err := c.do(ctx, http.MethodPost, "/api/files/share", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetShareByCode fetches a share record, including the caller's wrapped-key
// payload, by its share code.
func (c *Client) GetShareByCode(ctx context.Context, shareCode string) (*Share, error) {
	var resp Share
	path := "/api/files/share/" + url.PathEscape(shareCode)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListShared lists shares the caller has created.
func (c *Client) ListShared(ctx context.Context) ([]Share, error) {
	var resp []Share
	if err := c.do(ctx, http.MethodGet, "/api/files/shared", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListReceived lists active shares addressed to the caller.
func (c *Client) ListReceived(ctx context.Context) ([]Share, error) {
	var resp []Share
	if err := c.do(ctx, http.MethodGet, "/api/files/received", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// RevokeShare revokes a direct share. Owner-only; terminal.
func (c *Client) RevokeShare(ctx context.Context, shareID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/files/shared/%d", shareID), nil, nil)
}

// CreateGroup creates a group; the caller becomes owner and admin member.
func (c *Client) CreateGroup(ctx context.Context, name, description string) (*Group, error) {
	body := map[string]string{"name": name, "description": description}

	var resp Group
	if err := c.do(ctx, http.MethodPost, "/api/groups", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListGroups lists the caller's groups.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var resp []Group
	if err := c.do(ctx, http.MethodGet, "/api/groups", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetGroup fetches a group with members and the caller's share entries.
func (c *Client) GetGroup(ctx context.Context, groupID uint) (*Group, error) {
	var resp Group
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/groups/%d", groupID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteGroup removes a group; owner only.
func (c *Client) DeleteGroup(ctx context.Context, groupID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/groups/%d", groupID), nil, nil)
}

// AddMember adds a researcher to a group.
func (c *Client) AddMember(ctx context.Context, groupID uint, researcherID, role string) (*GroupMember, error) {
	body := map[string]string{"researcherId": researcherID}
	if role != "" {
		body["role"] = role
	}

	var resp GroupMember
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/groups/%d/members", groupID), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveMember removes a researcher from a group.
func (c *Client) RemoveMember(ctx context.Context, groupID uint, researcherID string) error {
	path := fmt.Sprintf("/api/groups/%d/members/%s", groupID, url.PathEscape(researcherID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// GroupPubkeys returns the public keys of every member that has one.
func (c *Client) GroupPubkeys(ctx context.Context, groupID uint) ([]MemberKey, error) {
	var resp []MemberKey
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/groups/%d/pubkeys", groupID), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ShareWithGroup submits a group fan-out: researcher id to wrapped-key
// payload, all-or-nothing on the server.
func (c *Client) ShareWithGroup(ctx context.Context, groupID, fileID uint, kemCiphertexts map[string]string) (*GroupShare, error) {
	body := map[string]interface{}{
		"fileId":         fileID,
		"kemCiphertexts": kemCiphertexts,
	}

	var resp GroupShare
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/groups/%d/share", groupID), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListGroupSharedFiles lists every group share visible to the caller.
func (c *Client) ListGroupSharedFiles(ctx context.Context) ([]GroupShare, error) {
	var resp []GroupShare
	if err := c.do(ctx, http.MethodGet, "/api/groups/shared-files", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetHistory lists the caller's audit rows, newest first.
func (c *Client) GetHistory(ctx context.Context) ([]HistoryEntry, error) {
	var resp []HistoryEntry
	if err := c.do(ctx, http.MethodGet, "/api/files/history", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// AddHistory appends an audit row.
func (c *Client) AddHistory(ctx context.Context, entry *HistoryEntry) error {
	body := map[string]interface{}{
		"name":          entry.Name,
		"originalSize":  entry.OriginalSize,
		"encryptedSize": entry.EncryptedSize,
		"type":          entry.Type,
		"operation":     entry.Operation,
	}
	return c.do(ctx, http.MethodPost, "/api/files/history", body, nil)
}

// DeleteHistoryItem removes one audit row.
func (c *Client) DeleteHistoryItem(ctx context.Context, itemID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/files/history/%d", itemID), nil, nil)
}

// ClearHistory removes all of the caller's audit rows.
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/files/history", nil, nil)
}

// GetSettings fetches the caller's settings, defaults when unset.
func (c *Client) GetSettings(ctx context.Context) (*Settings, error) {
	var resp Settings
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateSettings upserts the caller's settings.
func (c *Client) UpdateSettings(ctx context.Context, settings *Settings) (*Settings, error) {
	var resp Settings
	if err := c.do(ctx, http.MethodPut, "/api/settings", settings, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
