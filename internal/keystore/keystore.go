// Package keystore holds ML-KEM-512 keypairs in a durable, process-local
// Badger store keyed by researcher id. Private keys never leave the process
// boundary; the server only ever sees the public half.
package keystore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/byteguard/byteguard-go/internal/crypto"
)

// ErrNoKeypair is returned when no keypair is stored for an identity.
var ErrNoKeypair = errors.New("no keypair for identity")

var keyPrefix = []byte("keypair/")

// Store is a durable local keystore. Concurrent reads are safe; key
// generation for a given identity is serialized so two keypairs cannot race
// into storage.
type Store struct {
	db *badger.DB
	mu sync.Mutex
}

// Open opens (or creates) a keystore at the given directory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open keystore: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying store.
func (s *Store) Close() error {
	return s.db.Close()
}

func storageKey(identity string) []byte {
	return append(append([]byte{}, keyPrefix...), identity...)
}

// Has reports whether a keypair is stored for the identity.
func (s *Store) Has(identity string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(storageKey(identity))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the keypair stored for the identity, or ErrNoKeypair.
func (s *Store) Get(identity string) (*crypto.Keypair, error) {
	var secretKey []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storageKey(identity))
		if err != nil {
			return err
		}
		secretKey, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoKeypair, identity)
	}
	if err != nil {
		return nil, err
	}

	// Only the secret key is persisted; the public key is embedded in it.
	return crypto.KeypairFromSecretKey(secretKey)
}

// Put stores a keypair for the identity, overwriting any existing entry.
func (s *Store) Put(identity string, kp *crypto.Keypair) error {
	if len(kp.SecretKey) != crypto.MLKEMSecretKeySize {
		return crypto.ErrInvalidSecretKeySize
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storageKey(identity), kp.SecretKey)
	})
}

// GenerateIfAbsent returns the stored keypair for the identity, generating
// and persisting a fresh one if none exists. The second return value
// reports whether a new keypair was generated. Generation is serialized
// across goroutines; an existing keypair is never overwritten.
func (s *Store) GenerateIfAbsent(identity string) (*crypto.Keypair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kp, err := s.Get(identity)
	if err == nil {
		return kp, false, nil
	}
	if !errors.Is(err, ErrNoKeypair) {
		return nil, false, err
	}

	kp, err = crypto.GenerateKeypair()
	if err != nil {
		return nil, false, err
	}
	if err := s.Put(identity, kp); err != nil {
		return nil, false, err
	}
	return kp, true, nil
}
