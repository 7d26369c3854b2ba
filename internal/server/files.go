package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/byteguard/byteguard-go/internal/blob"
	"github.com/byteguard/byteguard-go/internal/crypto"
	"github.com/byteguard/byteguard-go/internal/store"
)

func fileDTO(f *store.FileMetadata) gin.H {
	return gin.H{
		"id":            f.ID,
		"ownerId":       f.OwnerID,
		"fileName":      f.FileName,
		"originalSize":  f.OriginalSize,
		"encryptedSize": f.EncryptedSize,
		"contentType":   f.ContentType,
		"sha256Hash":    f.SHA256Hash,
		"iv":            f.IV,
		"createdAt":     f.CreatedAt,
	}
}

// uploadFile accepts an encrypted blob plus metadata via multipart form.
// Fields: file, fileName, originalSize, iv (base64), sha256Hash,
// contentType, ownerKemCt (base64 800-byte owner-wrap payload).
//
// The blob is validated before anything becomes visible: its length must be
// exactly 12 + originalSize + 16 and it must hash to the declared
// fingerprint. The write is atomic; a failed upload leaves no file record
// and no blob.
func (s *Server) uploadFile(c *gin.Context) {
	user := currentUser(c)

	if c.Request.ContentLength > s.cfg.MaxUploadSize+(64<<10) {
		fail(c, http.StatusRequestEntityTooLarge, CodeInvalidInput, "Upload too large")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "No file provided")
		return
	}

	fileName := c.PostForm("fileName")
	if fileName == "" {
		fileName = fileHeader.Filename
	}
	if fileName == "" {
		fileName = "unnamed"
	}

	originalSize, err := strconv.ParseInt(c.PostForm("originalSize"), 10, 64)
	if err != nil || originalSize < 0 {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "originalSize is required")
		return
	}

	sha256Hash := c.PostForm("sha256Hash")
	iv := c.PostForm("iv")
	contentType := c.PostForm("contentType")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ownerKemCt := c.PostForm("ownerKemCt")
	if ownerKemCt != "" {
		raw, err := crypto.DecodeBase64(ownerKemCt)
		if err != nil || len(raw) != crypto.KEMPayloadSize {
			fail(c, http.StatusBadRequest, CodeBadPayload, "ownerKemCt must be an 800-byte KEM payload")
			return
		}
	}

	src, err := fileHeader.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Could not open uploaded file")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, s.cfg.MaxUploadSize+1))
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to read upload")
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadSize {
		fail(c, http.StatusRequestEntityTooLarge, CodeInvalidInput, "Upload too large")
		return
	}

	wantLen := crypto.BlobOverhead + originalSize
	if int64(len(data)) != wantLen {
		fail(c, http.StatusUnprocessableEntity, CodeSizeMismatch,
			fmt.Sprintf("Blob is %d bytes, expected %d", len(data), wantLen))
		return
	}

	// Fingerprint covers ciphertext and tag, not the leading IV.
	computed := crypto.Fingerprint(data[crypto.AESNonceSize:])
	if sha256Hash == "" {
		sha256Hash = computed
	} else if sha256Hash != computed {
		fail(c, http.StatusUnprocessableEntity, CodeFingerprintMismatch, "Blob does not match declared fingerprint")
		return
	}

	// The blob commits first under a fresh storage name; the file record
	// only appears once the bytes are durably on disk. A crash in between
	// leaves an orphan blob, never a record pointing at nothing.
	storageName := uuid.New().String()
	if err := s.blobs.Put(c.Request.Context(), storageName, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to store blob")
		return
	}

	meta := store.FileMetadata{
		OwnerID:       user.ID,
		FileName:      fileName,
		OriginalSize:  originalSize,
		EncryptedSize: int64(len(data)),
		StoragePath:   storageName,
		ContentType:   contentType,
		SHA256Hash:    sha256Hash,
		IV:            iv,
		OwnerKemCt:    ownerKemCt,
		CreatedAt:     time.Now(),
	}
	if err := s.db.Create(&meta).Error; err != nil {
		s.blobs.Delete(c.Request.Context(), storageName)
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to record file")
		return
	}

	s.db.Create(&store.FileHistory{
		UserID:        user.ID,
		Name:          fileName,
		OriginalSize:  originalSize,
		EncryptedSize: int64(len(data)),
		FileType:      contentType,
		Operation:     "encrypt",
		Timestamp:     time.Now(),
	})

	s.log.WithFields(map[string]interface{}{
		"file":  meta.ID,
		"owner": user.ResearcherID,
		"bytes": len(data),
	}).Info("blob stored")

	c.JSON(http.StatusCreated, fileDTO(&meta))
}

// authorizeRead is the ledger predicate used by blob downloads: the caller
// must be the owner, hold an active direct share, or be a current member of
// a group holding a group share for the file. Group membership is
// re-evaluated at read time, so removal from a group revokes future reads.
func (s *Server) authorizeRead(fileID, userID uint) bool {
	var meta store.FileMetadata
	if err := s.db.First(&meta, fileID).Error; err != nil {
		return false
	}
	if meta.OwnerID == userID {
		return true
	}

	var n int64
	s.db.Model(&store.SharedAccess{}).
		Where("file_id = ? AND recipient_id = ? AND status = ?", fileID, userID, store.ShareStatusActive).
		Count(&n)
	if n > 0 {
		return true
	}

	s.db.Model(&store.GroupFileAccess{}).
		Joins("JOIN group_memberships ON group_memberships.group_id = group_file_access.group_id").
		Where("group_file_access.file_id = ? AND group_memberships.user_id = ?", fileID, userID).
		Count(&n)
	return n > 0
}

func (s *Server) downloadFile(c *gin.Context) {
	user := currentUser(c)

	fileID, err := strconv.ParseUint(c.Param("fileId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Invalid file id")
		return
	}

	var meta store.FileMetadata
	if err := s.db.First(&meta, fileID).Error; err != nil {
		fail(c, http.StatusNotFound, CodeNotFound, "File not found")
		return
	}

	if meta.OwnerID != user.ID && !s.authorizeRead(meta.ID, user.ID) {
		fail(c, http.StatusForbidden, CodeForbidden, "Access denied")
		return
	}

	rc, err := s.blobs.Get(c.Request.Context(), meta.StoragePath)
	if errors.Is(err, blob.ErrNotFound) {
		fail(c, http.StatusNotFound, CodeNotFound, "File blob not found on storage")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to open blob")
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+meta.FileName+`.enc"`)
	c.DataFromReader(http.StatusOK, meta.EncryptedSize, "application/octet-stream", rc, nil)
}

func (s *Server) listMyFiles(c *gin.Context) {
	user := currentUser(c)

	var files []store.FileMetadata
	if err := s.db.Where("owner_id = ?", user.ID).Order("created_at DESC").Find(&files).Error; err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to list files")
		return
	}

	result := make([]gin.H, 0, len(files))
	for i := range files {
		result = append(result, fileDTO(&files[i]))
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) fileMeta(c *gin.Context) {
	user := currentUser(c)

	fileID, err := strconv.ParseUint(c.Param("fileId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Invalid file id")
		return
	}

	var meta store.FileMetadata
	if err := s.db.First(&meta, fileID).Error; err != nil {
		fail(c, http.StatusNotFound, CodeNotFound, "File not found")
		return
	}
	if meta.OwnerID != user.ID && !s.authorizeRead(meta.ID, user.ID) {
		fail(c, http.StatusForbidden, CodeForbidden, "Access denied")
		return
	}

	dto := fileDTO(&meta)
	if meta.OwnerID == user.ID {
		dto["ownerKemCt"] = meta.OwnerKemCt
	}
	c.JSON(http.StatusOK, dto)
}

// deleteFile is owner-only and cascades: every share ledger entry that
// references the file goes with it. Idempotent on a missing file.
func (s *Server) deleteFile(c *gin.Context) {
	user := currentUser(c)

	fileID, err := strconv.ParseUint(c.Param("fileId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Invalid file id")
		return
	}

	var meta store.FileMetadata
	if err := s.db.First(&meta, fileID).Error; err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
		return
	}
	if meta.OwnerID != user.ID {
		fail(c, http.StatusForbidden, CodeForbidden, "Only the owner can delete a file")
		return
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", meta.ID).Delete(&store.SharedAccess{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", meta.ID).Delete(&store.GroupFileAccess{}).Error; err != nil {
			return err
		}
		return tx.Delete(&store.FileMetadata{}, meta.ID).Error
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to delete file")
		return
	}

	if err := s.blobs.Delete(c.Request.Context(), meta.StoragePath); err != nil {
		s.log.WithField("file", meta.ID).WithError(err).Warn("blob removal failed")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

// ── File history ──

func (s *Server) getHistory(c *gin.Context) {
	user := currentUser(c)

	var items []store.FileHistory
	if err := s.db.Where("user_id = ?", user.ID).Order("timestamp DESC").Limit(100).Find(&items).Error; err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to list history")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) addHistory(c *gin.Context) {
	user := currentUser(c)

	var input struct {
		Name          string `json:"name"`
		OriginalSize  int64  `json:"originalSize"`
		EncryptedSize int64  `json:"encryptedSize"`
		Type          string `json:"type"`
		Operation     string `json:"operation"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Invalid history entry")
		return
	}

	entry := store.FileHistory{
		UserID:        user.ID,
		Name:          input.Name,
		OriginalSize:  input.OriginalSize,
		EncryptedSize: input.EncryptedSize,
		FileType:      input.Type,
		Operation:     input.Operation,
		Timestamp:     time.Now(),
	}
	if entry.Name == "" {
		entry.Name = "Unnamed"
	}
	if entry.FileType == "" {
		entry.FileType = "unknown"
	}
	if entry.Operation == "" {
		entry.Operation = "encrypt"
	}

	if err := s.db.Create(&entry).Error; err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to record history")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) deleteHistoryItem(c *gin.Context) {
	user := currentUser(c)

	itemID, err := strconv.ParseUint(c.Param("itemId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Invalid history id")
		return
	}

	res := s.db.Where("id = ? AND user_id = ?", itemID, user.ID).Delete(&store.FileHistory{})
	if res.RowsAffected == 0 {
		fail(c, http.StatusNotFound, CodeNotFound, "Not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

func (s *Server) clearHistory(c *gin.Context) {
	user := currentUser(c)
	s.db.Where("user_id = ?", user.ID).Delete(&store.FileHistory{})
	c.JSON(http.StatusOK, gin.H{"message": "History cleared"})
}
