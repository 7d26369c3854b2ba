// Package store defines the server's durable records and the SQLite-backed
// database handle. The server persists only opaque material: password
// verifiers, public keys, ciphertext metadata, and wrapped-key payloads.
// Plaintext bytes and raw DEKs never appear in any column.
package store

import "time"

// Share permissions.
const (
	PermissionView     = "view"
	PermissionDownload = "download"
	PermissionFull     = "full"
)

// Direct share lifecycle. Revoked is terminal: a revoked record never
// returns its wrapped payload again.
const (
	ShareStatusActive  = "active"
	ShareStatusRevoked = "revoked"
)

// Group member roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// MaxResearcherIDLen bounds the opaque researcher identifier.
const MaxResearcherIDLen = 64

// User is a registered researcher identity. KyberPublicKey holds the
// base64-encoded 800-byte ML-KEM-512 public key, empty until the client
// uploads one.
type User struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ResearcherID   string `gorm:"uniqueIndex;size:64;not null" json:"researcherId"`
	PasswordHash   string `gorm:"not null" json:"-"`
	KyberPublicKey string `gorm:"type:text" json:"-"`
	Role           string `gorm:"size:50;default:Researcher" json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Session is an opaque bearer token naming one identity. Sessions live in
// the database so that logout and expiry are durable and race-free.
type Session struct {
	Token     string    `gorm:"primaryKey;size:64" json:"-"`
	UserID    uint      `gorm:"index;not null" json:"-"`
	CreatedAt time.Time `json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"-"`
}

// FileMetadata describes one stored ciphertext blob. OwnerKemCt is the
// owner-wrap payload (base64 of kem_ct(768) || wrapped_dek(32)) that lets
// the owner recover the DEK for re-sharing; the server cannot unwrap it.
type FileMetadata struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OwnerID       uint      `gorm:"index;not null" json:"ownerId"`
	FileName      string    `gorm:"size:512;not null" json:"fileName"`
	OriginalSize  int64     `json:"originalSize"`
	EncryptedSize int64     `json:"encryptedSize"`
	StoragePath   string    `gorm:"size:1024;not null" json:"-"`
	ContentType   string    `gorm:"size:128;default:application/octet-stream" json:"contentType"`
	SHA256Hash    string    `gorm:"size:64" json:"sha256Hash"`
	IV            string    `gorm:"size:64" json:"iv"`
	OwnerKemCt    string    `gorm:"type:text" json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SharedAccess is a direct share record: one file, one recipient, one
// wrapped-key payload. The payload is opaque to the server.
type SharedAccess struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	FileID        uint       `gorm:"index;not null" json:"fileId"`
	SenderID      uint       `gorm:"index;not null" json:"senderId"`
	RecipientID   uint       `gorm:"index;not null" json:"recipientId"`
	KemCiphertext string     `gorm:"type:text;not null" json:"-"`
	ShareCode     string     `gorm:"uniqueIndex;size:20;not null" json:"shareCode"`
	Permission    string     `gorm:"size:20;default:download" json:"permission"`
	Status        string     `gorm:"size:20;default:active;index" json:"status"`
	Viewed        bool       `json:"viewed"`
	ViewedAt      *time.Time `json:"viewedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Group is a named set of member identities.
type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	OwnerID     uint      `gorm:"index;not null" json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GroupMembership binds a user to a group with a role.
type GroupMembership struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	GroupID  uint      `gorm:"index;not null;uniqueIndex:uq_group_user" json:"groupId"`
	UserID   uint      `gorm:"index;not null;uniqueIndex:uq_group_user" json:"userId"`
	Role     string    `gorm:"size:20;default:member" json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// GroupFileAccess is a group share record. KemCiphertexts is a JSON object
// mapping researcher id to that member's wrapped-key payload, one entry per
// member who had a public key at fan-out time.
type GroupFileAccess struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	FileID         uint      `gorm:"index;not null;uniqueIndex:uq_file_group" json:"fileId"`
	GroupID        uint      `gorm:"index;not null;uniqueIndex:uq_file_group" json:"groupId"`
	SharedBy       uint      `gorm:"not null" json:"sharedBy"`
	KemCiphertexts string    `gorm:"type:text;not null" json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

// FileHistory is a per-user audit row for encrypt/share operations.
type FileHistory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"-"`
	Name          string    `gorm:"size:512;not null" json:"name"`
	OriginalSize  int64     `json:"originalSize"`
	EncryptedSize int64     `json:"encryptedSize"`
	FileType      string    `gorm:"size:128;default:unknown" json:"type"`
	Operation     string    `gorm:"size:20;default:encrypt" json:"operation"`
	Timestamp     time.Time `json:"timestamp"`
}

// Table names pinned to the wire schema rather than left to pluralization.
func (User) TableName() string            { return "users" }
func (Session) TableName() string         { return "sessions" }
func (FileMetadata) TableName() string    { return "file_metadata" }
func (SharedAccess) TableName() string    { return "shared_access" }
func (Group) TableName() string           { return "groups" }
func (GroupMembership) TableName() string { return "group_memberships" }
func (GroupFileAccess) TableName() string { return "group_file_access" }
func (FileHistory) TableName() string     { return "file_history" }
func (UserSettings) TableName() string    { return "user_settings" }

// UserSettings holds per-user preferences. KeySize is kept for UI
// continuity; the protocol itself is fixed at ML-KEM-512.
type UserSettings struct {
	ID             uint   `gorm:"primaryKey" json:"-"`
	UserID         uint   `gorm:"uniqueIndex;not null" json:"-"`
	Algorithm      string `gorm:"size:50;default:AES-256-GCM" json:"algorithm"`
	KeySize        string `gorm:"size:10;default:512" json:"keySize"`
	AutoDelete     bool   `gorm:"default:false" json:"autoDelete"`
	Animations     bool   `gorm:"default:true" json:"animations"`
	HighContrast   bool   `gorm:"default:false" json:"highContrast"`
	SessionTimeout string `gorm:"size:10;default:30" json:"sessionTimeout"`
	TwoFactor      bool   `gorm:"default:false" json:"twoFactor"`
	AuditLogging   bool   `gorm:"default:true" json:"auditLogging"`
}
