package api

import "time"

// User is the server's view of an identity. The private key never appears
// here; HasKyberKey only reports that a public key is registered.
type User struct {
	ID           uint      `json:"id"`
	ResearcherID string    `json:"researcherId"`
	Role         string    `json:"role"`
	HasKyberKey  bool      `json:"hasKyberKey"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// SessionResponse is returned by the session check.
type SessionResponse struct {
	User User `json:"user"`
}

// SearchResult is one row of a prefix search.
type SearchResult struct {
	ID           uint   `json:"id"`
	ResearcherID string `json:"researcherId"`
	HasKyberKey  bool   `json:"hasKyberKey"`
}

// PubkeyResponse carries a recipient's base64 Kyber public key.
type PubkeyResponse struct {
	ResearcherID   string `json:"researcherId"`
	KyberPublicKey string `json:"kyberPublicKey"`
}

// File is a stored ciphertext blob's metadata. OwnerKemCt is only present
// when the caller owns the file.
type File struct {
	ID            uint      `json:"id"`
	OwnerID       uint      `json:"ownerId"`
	FileName      string    `json:"fileName"`
	OriginalSize  int64     `json:"originalSize"`
	EncryptedSize int64     `json:"encryptedSize"`
	ContentType   string    `json:"contentType"`
	SHA256Hash    string    `json:"sha256Hash"`
	IV            string    `json:"iv"`
	OwnerKemCt    string    `json:"ownerKemCt,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// UploadRequest carries one encrypted blob plus its multipart metadata.
type UploadRequest struct {
	FileName     string
	OriginalSize int64
	ContentType  string
	SHA256Hash   string
	IV           string // base64
	OwnerKemCt   string // base64 800-byte owner-wrap payload
	Blob         []byte // IV(12) || ciphertext || tag(16)
}

// Share is a direct share record. KemCiphertext and the file fields are
// populated on fetch-by-code.
type Share struct {
	ID            uint       `json:"id"`
	FileID        uint       `json:"fileId"`
	FileName      string     `json:"fileName"`
	SenderID      uint       `json:"senderId"`
	SenderName    string     `json:"senderName"`
	RecipientID   uint       `json:"recipientId"`
	RecipientName string     `json:"recipientName"`
	ShareCode     string     `json:"shareCode"`
	Permission    string     `json:"permission"`
	Status        string     `json:"status"`
	Viewed        bool       `json:"viewed"`
	ViewedAt      *time.Time `json:"viewedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`

	KemCiphertext string `json:"kemCiphertext,omitempty"`
	IV            string `json:"iv,omitempty"`
	ContentType   string `json:"contentType,omitempty"`
	OriginalSize  int64  `json:"originalSize,omitempty"`
	EncryptedSize int64  `json:"encryptedSize,omitempty"`
	SHA256Hash    string `json:"sha256Hash,omitempty"`
}

// Group is a named set of members.
type Group struct {
	ID          uint          `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	OwnerID     uint          `json:"ownerId"`
	OwnerName   string        `json:"ownerName"`
	MemberCount int64         `json:"memberCount"`
	CreatedAt   time.Time     `json:"createdAt"`
	IsOwner     bool          `json:"isOwner"`
	MyRole      string        `json:"myRole"`
	Members     []GroupMember `json:"members,omitempty"`
	SharedFiles []GroupShare  `json:"sharedFiles,omitempty"`
}

// GroupMember is one membership row.
type GroupMember struct {
	UserID       uint      `json:"userId"`
	ResearcherID string    `json:"researcherId"`
	HasKyberKey  bool      `json:"hasKyberKey"`
	Role         string    `json:"role"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// MemberKey is one member's public key for bulk encapsulation.
type MemberKey struct {
	UserID         uint   `json:"userId"`
	ResearcherID   string `json:"researcherId"`
	KyberPublicKey string `json:"kyberPublicKey"`
}

// GroupShare is a group fan-out record as seen by one member.
// MyKemCiphertext is the caller's own entry from the mapping, empty if the
// caller was not included at fan-out time.
type GroupShare struct {
	ID              uint      `json:"id"`
	FileID          uint      `json:"fileId"`
	FileName        string    `json:"fileName"`
	GroupID         uint      `json:"groupId"`
	GroupName       string    `json:"groupName"`
	SharedBy        string    `json:"sharedBy"`
	ContentType     string    `json:"contentType"`
	OriginalSize    int64     `json:"originalSize"`
	EncryptedSize   int64     `json:"encryptedSize"`
	SHA256Hash      string    `json:"sha256Hash"`
	IV              string    `json:"iv"`
	MyKemCiphertext string    `json:"myKemCiphertext,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// HistoryEntry is one audit row.
type HistoryEntry struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	OriginalSize  int64     `json:"originalSize"`
	EncryptedSize int64     `json:"encryptedSize"`
	Type          string    `json:"type"`
	Operation     string    `json:"operation"`
	Timestamp     time.Time `json:"timestamp"`
}

// Settings are the per-user preferences.
type Settings struct {
	Algorithm      string `json:"algorithm"`
	KeySize        string `json:"keySize"`
	AutoDelete     bool   `json:"autoDelete"`
	Animations     bool   `json:"animations"`
	HighContrast   bool   `json:"highContrast"`
	SessionTimeout string `json:"sessionTimeout"`
	TwoFactor      bool   `json:"twoFactor"`
	AuditLogging   bool   `json:"auditLogging"`
}
