package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/byteguard/byteguard-go/internal/store"
)

func defaultSettings(userID uint) store.UserSettings {
	return store.UserSettings{
		UserID:         userID,
		Algorithm:      "AES-256-GCM",
		KeySize:        "512",
		AutoDelete:     false,
		Animations:     true,
		HighContrast:   false,
		SessionTimeout: "30",
		TwoFactor:      false,
		AuditLogging:   true,
	}
}

func (s *Server) getSettings(c *gin.Context) {
	user := currentUser(c)

	var settings store.UserSettings
	if err := s.db.Where("user_id = ?", user.ID).First(&settings).Error; err != nil {
		settings = defaultSettings(user.ID)
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) updateSettings(c *gin.Context) {
	user := currentUser(c)

	var settings store.UserSettings
	if err := s.db.Where("user_id = ?", user.ID).First(&settings).Error; err != nil {
		settings = defaultSettings(user.ID)
	}

	// Partial update: absent fields keep their stored values. KeySize is
	// stored for UI continuity only; the protocol is fixed at ML-KEM-512.
	var input struct {
		Algorithm      *string `json:"algorithm"`
		KeySize        *string `json:"keySize"`
		AutoDelete     *bool   `json:"autoDelete"`
		Animations     *bool   `json:"animations"`
		HighContrast   *bool   `json:"highContrast"`
		SessionTimeout *string `json:"sessionTimeout"`
		TwoFactor      *bool   `json:"twoFactor"`
		AuditLogging   *bool   `json:"auditLogging"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Invalid settings")
		return
	}

	if input.Algorithm != nil {
		settings.Algorithm = *input.Algorithm
	}
	if input.KeySize != nil {
		settings.KeySize = *input.KeySize
	}
	if input.AutoDelete != nil {
		settings.AutoDelete = *input.AutoDelete
	}
	if input.Animations != nil {
		settings.Animations = *input.Animations
	}
	if input.HighContrast != nil {
		settings.HighContrast = *input.HighContrast
	}
	if input.SessionTimeout != nil {
		settings.SessionTimeout = *input.SessionTimeout
	}
	if input.TwoFactor != nil {
		settings.TwoFactor = *input.TwoFactor
	}
	if input.AuditLogging != nil {
		settings.AuditLogging = *input.AuditLogging
	}

	if err := s.db.Save(&settings).Error; err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to save settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}
