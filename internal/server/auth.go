package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/byteguard/byteguard-go/internal/crypto"
	"github.com/byteguard/byteguard-go/internal/store"
)

// dummyHash is compared against when the researcher id is unknown, so that
// login latency does not reveal whether the identifier exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("byteguard-timing-pad"), bcrypt.DefaultCost)

type registerInput struct {
	ResearcherID   string `json:"researcherId" binding:"required"`
	Password       string `json:"password" binding:"required"`
	KyberPublicKey string `json:"kyberPublicKey"`
}

type loginInput struct {
	ResearcherID string `json:"researcherId" binding:"required"`
	Password     string `json:"password" binding:"required"`
}

type kyberKeyInput struct {
	KyberPublicKey string `json:"kyberPublicKey" binding:"required"`
}

func userDTO(u *store.User) gin.H {
	return gin.H{
		"id":           u.ID,
		"researcherId": u.ResearcherID,
		"role":         u.Role,
		"hasKyberKey":  u.KyberPublicKey != "",
		"createdAt":    u.CreatedAt,
	}
}

// requireSession resolves the bearer token to an identity and stores it in
// the request context. Missing, unknown, or expired tokens are 401.
func (s *Server) requireSession(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		fail(c, http.StatusUnauthorized, CodeUnauthorized, "Missing bearer token")
		return
	}

	var sess store.Session
	if err := s.db.Where("token = ?", token).First(&sess).Error; err != nil {
		fail(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid session")
		return
	}
	if time.Now().After(sess.ExpiresAt) {
		s.db.Delete(&sess)
		fail(c, http.StatusUnauthorized, CodeUnauthorized, "Session expired")
		return
	}

	var user store.User
	if err := s.db.First(&user, sess.UserID).Error; err != nil {
		fail(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid session")
		return
	}

	c.Set("user", &user)
	c.Set("sessionToken", token)
	c.Next()
}

func currentUser(c *gin.Context) *store.User {
	return c.MustGet("user").(*store.User)
}

// newSession mints a durable bearer session for the user.
func (s *Server) newSession(userID uint) (string, error) {
	token, err := store.NewSessionToken()
	if err != nil {
		return "", err
	}
	sess := store.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(s.cfg.SessionTTL),
	}
	if err := s.db.Create(&sess).Error; err != nil {
		return "", err
	}
	return token, nil
}

// validateKyberKey checks a base64 public key decodes to exactly 800 bytes.
func validateKyberKey(b64 string) error {
	raw, err := crypto.DecodeBase64(b64)
	if err != nil {
		return err
	}
	return crypto.ValidatePublicKey(raw)
}

func (s *Server) register(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Researcher ID and password are required")
		return
	}

	rid := strings.TrimSpace(input.ResearcherID)
	password := input.Password

	if rid == "" || password == "" {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Researcher ID and password are required")
		return
	}
	if len(rid) > store.MaxResearcherIDLen {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Researcher ID too long (max 64 chars)")
		return
	}
	if len(password) < s.cfg.MinPasswordLen {
		fail(c, http.StatusBadRequest, CodeWeakPassword, "Password must be at least 6 characters")
		return
	}
	if input.KyberPublicKey != "" {
		if err := validateKyberKey(input.KyberPublicKey); err != nil {
			fail(c, http.StatusBadRequest, CodeBadKey, "Kyber public key must be 800 bytes")
			return
		}
	}

	var existing store.User
	if err := s.db.Where("researcher_id = ?", rid).First(&existing).Error; err == nil {
		fail(c, http.StatusConflict, CodeAlreadyExists, "Researcher ID already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to hash password")
		return
	}

	user := store.User{
		ResearcherID:   rid,
		PasswordHash:   string(hash),
		KyberPublicKey: input.KyberPublicKey,
		Role:           "Researcher",
		CreatedAt:      time.Now(),
	}
	if err := s.db.Create(&user).Error; err != nil {
		fail(c, http.StatusConflict, CodeAlreadyExists, "Researcher ID already exists")
		return
	}

	token, err := s.newSession(user.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to create session")
		return
	}

	s.log.WithField("researcher", rid).Info("registered")
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": userDTO(&user)})
}

func (s *Server) login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Researcher ID and password are required")
		return
	}

	rid := strings.TrimSpace(input.ResearcherID)

	var user store.User
	err := s.db.Where("researcher_id = ?", rid).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Same work and same answer as a wrong password.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(input.Password))
		fail(c, http.StatusUnauthorized, CodeBadCredentials, "Invalid credentials")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Login failed")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		fail(c, http.StatusUnauthorized, CodeBadCredentials, "Invalid credentials")
		return
	}

	token, err := s.newSession(user.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to create session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": userDTO(&user)})
}

func (s *Server) logout(c *gin.Context) {
	token := c.MustGet("sessionToken").(string)
	s.db.Where("token = ?", token).Delete(&store.Session{})
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (s *Server) sessionCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": userDTO(currentUser(c))})
}

func (s *Server) updateKyberKey(c *gin.Context) {
	var input kyberKeyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "kyberPublicKey is required")
		return
	}
	if err := validateKyberKey(input.KyberPublicKey); err != nil {
		fail(c, http.StatusBadRequest, CodeBadKey, "Kyber public key must be 800 bytes")
		return
	}

	user := currentUser(c)
	user.KyberPublicKey = input.KyberPublicKey
	if err := s.db.Model(&store.User{}).Where("id = ?", user.ID).
		Update("kyber_public_key", input.KyberPublicKey).Error; err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to store key")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Kyber public key updated", "user": userDTO(user)})
}

func (s *Server) getPubkey(c *gin.Context) {
	rid := c.Param("researcherId")

	var user store.User
	if err := s.db.Where("researcher_id = ?", rid).First(&user).Error; err != nil {
		fail(c, http.StatusNotFound, CodeNotFound, "User not found")
		return
	}
	if user.KyberPublicKey == "" {
		fail(c, http.StatusNotFound, CodeNoRecipientKey, "Recipient has no Kyber public key registered")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"researcherId":   user.ResearcherID,
		"kyberPublicKey": user.KyberPublicKey,
	})
}

func (s *Server) searchUsers(c *gin.Context) {
	prefix := c.Query("q")
	caller := currentUser(c)

	if prefix == "" {
		c.JSON(http.StatusOK, []gin.H{})
		return
	}

	var users []store.User
	// Prefix match, case-sensitive as supplied. SQLite LIKE folds ASCII
	// case, so compare the leading substring directly instead.
	if err := s.db.Where("substr(researcher_id, 1, ?) = ? AND id != ?", len(prefix), prefix, caller.ID).
		Limit(20).Find(&users).Error; err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Search failed")
		return
	}

	result := make([]gin.H, 0, len(users))
	for _, u := range users {
		result = append(result, gin.H{
			"id":           u.ID,
			"researcherId": u.ResearcherID,
			"hasKyberKey":  u.KyberPublicKey != "",
		})
	}
	c.JSON(http.StatusOK, result)
}
