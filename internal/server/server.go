// Package server implements the ByteGuard zero-trust HTTP service: identity
// and key registry, blob store, and share ledger. The server persists
// opaque ciphertext and wrapped-key payloads and routes them between
// identities; it never observes plaintext bytes or symmetric keys.
package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/byteguard/byteguard-go/internal/blob"
)

// Error codes carried in error responses alongside the HTTP status. Stable
// strings: clients dispatch on them.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeBadCredentials      = "BAD_CREDENTIALS"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeBadKey              = "BAD_KEY"
	CodeNoRecipientKey      = "NO_RECIPIENT_KEY"
	CodeBadPayload          = "BAD_PAYLOAD"
	CodeSizeMismatch        = "SIZE_MISMATCH"
	CodeFingerprintMismatch = "FINGERPRINT_MISMATCH"
	CodeWeakPassword        = "WEAK_PASSWORD"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInternal            = "INTERNAL"
)

// Config configures the server.
type Config struct {
	// MaxUploadSize bounds encrypted upload bodies in bytes.
	MaxUploadSize int64
	// SessionTTL is how long a bearer session stays valid.
	SessionTTL time.Duration
	// MinPasswordLen is the registration password policy.
	MinPasswordLen int
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		MaxUploadSize:  100 << 20, // 100 MiB
		SessionTTL:     24 * time.Hour,
		MinPasswordLen: 6,
	}
}

// Server wires the registry, blob store, and share ledger behind one router.
type Server struct {
	cfg   Config
	db    *gorm.DB
	blobs blob.Store
	log   *logrus.Logger
}

// New creates a server. A nil logger falls back to a default logrus logger.
func New(cfg Config, db *gorm.DB, blobs blob.Store, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = DefaultConfig().MaxUploadSize
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = DefaultConfig().SessionTTL
	}
	if cfg.MinPasswordLen == 0 {
		cfg.MinPasswordLen = DefaultConfig().MinPasswordLen
	}
	return &Server{cfg: cfg, db: db, blobs: blobs, log: log}
}

// Router builds the HTTP routing table.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "ByteGuard PQC Backend"})
	})

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", s.register)
		auth.POST("/login", s.login)
		auth.POST("/logout", s.requireSession, s.logout)
		auth.GET("/session", s.requireSession, s.sessionCheck)
		auth.PUT("/kyber-key", s.requireSession, s.updateKyberKey)
		// Public-key lookup of a named identity is the one read that needs
		// no session: it leaks only that the identifier exists.
		auth.GET("/pubkey/:researcherId", s.getPubkey)
		auth.GET("/search", s.requireSession, s.searchUsers)
	}

	files := r.Group("/api/files", s.requireSession)
	{
		files.POST("/upload", s.uploadFile)
		files.GET("/download/:fileId", s.downloadFile)
		files.GET("/my-files", s.listMyFiles)
		files.GET("/:fileId/meta", s.fileMeta)
		files.DELETE("/:fileId", s.deleteFile)

		files.POST("/share", s.createShare)
		files.GET("/share/:shareCode", s.getShareByCode)
		files.GET("/shared", s.listShared)
		files.GET("/received", s.listReceived)
		files.DELETE("/shared/:shareId", s.revokeShare)

		files.GET("/history", s.getHistory)
		files.POST("/history", s.addHistory)
		files.DELETE("/history/:itemId", s.deleteHistoryItem)
		files.DELETE("/history", s.clearHistory)
	}

	groups := r.Group("/api/groups", s.requireSession)
	{
		groups.POST("", s.createGroup)
		groups.GET("", s.listGroups)
		groups.GET("/shared-files", s.listGroupSharedFiles)
		groups.GET("/:groupId", s.getGroup)
		groups.DELETE("/:groupId", s.deleteGroup)
		groups.POST("/:groupId/members", s.addMember)
		groups.DELETE("/:groupId/members/:researcherId", s.removeMember)
		groups.GET("/:groupId/pubkeys", s.getGroupPubkeys)
		groups.POST("/:groupId/share", s.shareFileWithGroup)
	}

	settings := r.Group("/api/settings", s.requireSession)
	{
		settings.GET("", s.getSettings)
		settings.PUT("", s.updateSettings)
	}

	return r
}

// fail writes a JSON error response with a stable code.
func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}
