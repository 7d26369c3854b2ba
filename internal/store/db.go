package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens (or creates) the SQLite database at path and migrates the
// schema. Pass ":memory:" for an ephemeral database in tests.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.AutoMigrate(
		&User{},
		&Session{},
		&FileMetadata{},
		&SharedAccess{},
		&Group{},
		&GroupMembership{},
		&GroupFileAccess{},
		&FileHistory{},
		&UserSettings{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

// ShareCodeLen is the length of a direct-share code in hex characters.
// The code is a lookup handle, not a secret: authorization is always the
// session plus the recipient identity.
const ShareCodeLen = 6

// NewShareCode draws a random share code. Collisions are handled by the
// caller retrying against the unique index.
func NewShareCode() (string, error) {
	buf := make([]byte, ShareCodeLen/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewSessionToken draws an opaque 64-hex-char bearer token.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
