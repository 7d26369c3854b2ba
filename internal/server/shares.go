package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/byteguard/byteguard-go/internal/crypto"
	"github.com/byteguard/byteguard-go/internal/store"
)

type shareInput struct {
	FileID        uint   `json:"fileId" binding:"required"`
	RecipientID   string `json:"recipientId" binding:"required"`
	KemCiphertext string `json:"kemCiphertext" binding:"required"`
	Permission    string `json:"permission"`
}

func shareDTO(s *store.SharedAccess, senderRID, recipientRID, fileName string) gin.H {
	return gin.H{
		"id":            s.ID,
		"fileId":        s.FileID,
		"fileName":      fileName,
		"senderId":      s.SenderID,
		"senderName":    senderRID,
		"recipientId":   s.RecipientID,
		"recipientName": recipientRID,
		"shareCode":     s.ShareCode,
		"permission":    s.Permission,
		"status":        s.Status,
		"viewed":        s.Viewed,
		"viewedAt":      s.ViewedAt,
		"createdAt":     s.CreatedAt,
	}
}

func validPermission(p string) bool {
	switch p {
	case store.PermissionView, store.PermissionDownload, store.PermissionFull:
		return true
	}
	return false
}

// validatePayload checks a base64 wrapped-key payload decodes to exactly
// 800 bytes. The server never inspects the payload beyond its length.
func validatePayload(b64 string) error {
	raw, err := crypto.DecodeBase64(b64)
	if err != nil {
		return err
	}
	if len(raw) != crypto.KEMPayloadSize {
		return crypto.ErrInvalidPayloadSize
	}
	return nil
}

// createShare records a direct share: one recipient, one wrapped-key
// payload, a fresh share code. The sender must own the file; the recipient
// must exist. No partial state: the record is created in one insert.
func (s *Server) createShare(c *gin.Context) {
	sender := currentUser(c)

	var input shareInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "fileId, recipientId, and kemCiphertext are required")
		return
	}

	permission := input.Permission
	if permission == "" {
		permission = store.PermissionDownload
	}
	if !validPermission(permission) {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "permission must be view, download, or full")
		return
	}
	if err := validatePayload(input.KemCiphertext); err != nil {
		fail(c, http.StatusBadRequest, CodeBadPayload, "kemCiphertext must be an 800-byte KEM payload")
		return
	}

	var meta store.FileMetadata
	if err := s.db.First(&meta, input.FileID).Error; err != nil || meta.OwnerID != sender.ID {
		fail(c, http.StatusNotFound, CodeNotFound, "File not found or access denied")
		return
	}

	var recipient store.User
	if err := s.db.Where("researcher_id = ?", input.RecipientID).First(&recipient).Error; err != nil {
		fail(c, http.StatusNotFound, CodeNotFound, "Recipient not found")
		return
	}
	if recipient.ID == sender.ID {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Cannot share with yourself")
		return
	}

	share := store.SharedAccess{
		FileID:        meta.ID,
		SenderID:      sender.ID,
		RecipientID:   recipient.ID,
		KemCiphertext: input.KemCiphertext,
		Permission:    permission,
		Status:        store.ShareStatusActive,
		CreatedAt:     time.Now(),
	}

	// Share codes are short lookup handles; retry on the unique index
	// until an unused one lands.
	for attempt := 0; ; attempt++ {
		code, err := store.NewShareCode()
		if err != nil {
			fail(c, http.StatusInternalServerError, CodeInternal, "Failed to generate share code")
			return
		}
		share.ShareCode = code
		if err := s.db.Create(&share).Error; err == nil {
			break
		} else if attempt >= 10 {
			fail(c, http.StatusInternalServerError, CodeInternal, "Failed to create share")
			return
		}
	}

	s.db.Create(&store.FileHistory{
		UserID:        sender.ID,
		Name:          meta.FileName,
		OriginalSize:  meta.OriginalSize,
		EncryptedSize: meta.EncryptedSize,
		FileType:      "share",
		Operation:     "share",
		Timestamp:     time.Now(),
	})

	s.log.WithFields(map[string]interface{}{
		"file":      meta.ID,
		"sender":    sender.ResearcherID,
		"recipient": recipient.ResearcherID,
	}).Info("direct share created")

	c.JSON(http.StatusCreated, shareDTO(&share, sender.ResearcherID, recipient.ResearcherID, meta.FileName))
}

// getShareByCode returns the share record addressed to the caller,
// including the wrapped-key payload and the file metadata needed to
// decrypt. The first fetch by the recipient sets the viewed flag;
// subsequent fetches are idempotent. Revoked shares are gone for everyone.
func (s *Server) getShareByCode(c *gin.Context) {
	caller := currentUser(c)
	code := c.Param("shareCode")

	var share store.SharedAccess
	err := s.db.Where("share_code = ?", code).First(&share).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, CodeNotFound, "Share not found")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to load share")
		return
	}

	if share.Status == store.ShareStatusRevoked {
		fail(c, http.StatusNotFound, CodeNotFound, "Share not found")
		return
	}
	// The code is a lookup handle, not a bearer secret: only the addressed
	// recipient may pull the payload. Senders use list-outgoing.
	if share.RecipientID != caller.ID {
		fail(c, http.StatusForbidden, CodeForbidden, "Access denied")
		return
	}

	if !share.Viewed {
		now := time.Now()
		s.db.Model(&store.SharedAccess{}).Where("id = ?", share.ID).
			Updates(map[string]interface{}{"viewed": true, "viewed_at": now})
		share.Viewed = true
		share.ViewedAt = &now
	}

	var meta store.FileMetadata
	if err := s.db.First(&meta, share.FileID).Error; err != nil {
		fail(c, http.StatusNotFound, CodeNotFound, "File not found")
		return
	}

	var sender, recipient store.User
	s.db.First(&sender, share.SenderID)
	s.db.First(&recipient, share.RecipientID)

	dto := shareDTO(&share, sender.ResearcherID, recipient.ResearcherID, meta.FileName)
	dto["kemCiphertext"] = share.KemCiphertext
	dto["iv"] = meta.IV
	dto["contentType"] = meta.ContentType
	dto["originalSize"] = meta.OriginalSize
	dto["encryptedSize"] = meta.EncryptedSize
	dto["sha256Hash"] = meta.SHA256Hash
	c.JSON(http.StatusOK, dto)
}

func (s *Server) listShared(c *gin.Context) {
	user := currentUser(c)

	var shares []store.SharedAccess
	if err := s.db.Where("sender_id = ?", user.ID).Order("created_at DESC").Find(&shares).Error; err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to list shares")
		return
	}
	c.JSON(http.StatusOK, s.enrichShares(shares))
}

func (s *Server) listReceived(c *gin.Context) {
	user := currentUser(c)

	var shares []store.SharedAccess
	if err := s.db.Where("recipient_id = ? AND status = ?", user.ID, store.ShareStatusActive).
		Order("created_at DESC").Find(&shares).Error; err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to list shares")
		return
	}
	c.JSON(http.StatusOK, s.enrichShares(shares))
}

func (s *Server) enrichShares(shares []store.SharedAccess) []gin.H {
	result := make([]gin.H, 0, len(shares))
	for i := range shares {
		share := &shares[i]
		var meta store.FileMetadata
		var sender, recipient store.User
		s.db.First(&meta, share.FileID)
		s.db.First(&sender, share.SenderID)
		s.db.First(&recipient, share.RecipientID)
		result = append(result, shareDTO(share, sender.ResearcherID, recipient.ResearcherID, meta.FileName))
	}
	return result
}

// revokeShare transitions a share to revoked. Terminal: the wrapped payload
// is never returned again, though a recipient who already fetched it keeps
// whatever they decrypted. Authorization-only, not cryptographic.
func (s *Server) revokeShare(c *gin.Context) {
	user := currentUser(c)

	shareID, err := strconv.ParseUint(c.Param("shareId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Invalid share id")
		return
	}

	res := s.db.Model(&store.SharedAccess{}).
		Where("id = ? AND sender_id = ?", shareID, user.ID).
		Update("status", store.ShareStatusRevoked)
	if res.RowsAffected == 0 {
		fail(c, http.StatusNotFound, CodeNotFound, "Share not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Access revoked"})
}

// memberPayloads parses the stored group fan-out mapping.
func memberPayloads(gfa *store.GroupFileAccess) map[string]string {
	var m map[string]string
	if err := json.Unmarshal([]byte(gfa.KemCiphertexts), &m); err != nil {
		return nil
	}
	return m
}
