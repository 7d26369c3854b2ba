package byteguard

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/byteguard/byteguard-go/internal/api"
	"github.com/byteguard/byteguard-go/internal/crypto"
	"github.com/byteguard/byteguard-go/internal/keystore"
)

// Share permissions.
const (
	PermissionView     = "view"
	PermissionDownload = "download"
	PermissionFull     = "full"
)

// Wire types shared with the server surface.
type (
	// User is an identity snapshot.
	User = api.User
	// File is a stored ciphertext blob's metadata.
	File = api.File
	// Share is a direct share record.
	Share = api.Share
	// Group is a named set of members.
	Group = api.Group
	// GroupMember is one membership row.
	GroupMember = api.GroupMember
	// GroupShare is a group fan-out record as seen by one member.
	GroupShare = api.GroupShare
	// HistoryEntry is one audit row.
	HistoryEntry = api.HistoryEntry
	// SearchResult is one row of a prefix search.
	SearchResult = api.SearchResult
	// Settings are the per-user preferences.
	Settings = api.Settings
)

// Client is the ByteGuard client: it owns the HTTP session, the local
// keystore, and the hybrid cipher operations. Safe for concurrent use.
type Client struct {
	apiClient *api.Client
	keys      *keystore.Store

	mu       sync.RWMutex
	identity *User
	closed   bool
}

// New creates a client for the server at baseURL and opens the local
// keystore. Call [Client.Login] or [Client.Register] before file
// operations.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	cfg := &clientConfig{
		timeout: 30 * time.Second,
		retries: 3,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.keystoreDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve keystore dir: %w", err)
		}
		cfg.keystoreDir = filepath.Join(base, "byteguard", "keystore")
	}

	keys, err := keystore.Open(cfg.keystoreDir)
	if err != nil {
		return nil, err
	}

	apiOpts := []api.Option{api.WithRetries(cfg.retries)}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	} else if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Client{
		apiClient: api.New(baseURL, apiOpts...),
		keys:      keys,
	}, nil
}

// Close releases the local keystore. The keystore contents stay on disk;
// closing never wipes key material.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.keys.Close()
}

func (c *Client) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// Identity returns the logged-in identity snapshot, or nil.
func (c *Client) Identity() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

func (c *Client) requireIdentity() (*User, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return nil, ErrNotLoggedIn
	}
	return c.identity, nil
}

// Register creates a new identity. An ML-KEM-512 keypair is generated into
// the local keystore first (an existing local keypair for the id is reused)
// so the public half rides along with the registration; the private half
// never leaves this host.
func (c *Client) Register(ctx context.Context, researcherID, password string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	kp, _, err := c.keys.GenerateIfAbsent(researcherID)
	if err != nil {
		return err
	}

	resp, err := c.apiClient.Register(ctx, researcherID, password, crypto.ToBase64(kp.PublicKey))
	if err != nil {
		return wrapAPIError(err)
	}

	c.apiClient.SetToken(resp.Token)
	c.mu.Lock()
	c.identity = &resp.User
	c.mu.Unlock()
	return nil
}

// Login authenticates and bootstraps the keystore: if this identity has no
// keypair anywhere, one is generated locally and its public half uploaded.
// If the registry already holds a public key but this host's keystore does
// not hold the private half, nothing is generated — decrypt operations
// will fail with [ErrNoKeypair] until the keystore is restored or a new
// key is registered deliberately via [Client.RotateKey].
func (c *Client) Login(ctx context.Context, researcherID, password string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	resp, err := c.apiClient.Login(ctx, researcherID, password)
	if err != nil {
		return wrapAPIError(err)
	}

	c.apiClient.SetToken(resp.Token)
	c.mu.Lock()
	c.identity = &resp.User
	c.mu.Unlock()

	hasLocal, err := c.keys.Has(researcherID)
	if err != nil {
		return err
	}

	switch {
	case !hasLocal && !resp.User.HasKyberKey:
		kp, _, err := c.keys.GenerateIfAbsent(researcherID)
		if err != nil {
			return err
		}
		if err := c.apiClient.SetKyberKey(ctx, crypto.ToBase64(kp.PublicKey)); err != nil {
			return wrapAPIError(err)
		}
		c.mu.Lock()
		c.identity.HasKyberKey = true
		c.mu.Unlock()
	case hasLocal && !resp.User.HasKyberKey:
		// The registry lost or never received our key; re-upload it.
		kp, err := c.keys.Get(researcherID)
		if err != nil {
			return wrapCryptoError(err)
		}
		if err := c.apiClient.SetKyberKey(ctx, crypto.ToBase64(kp.PublicKey)); err != nil {
			return wrapAPIError(err)
		}
		c.mu.Lock()
		c.identity.HasKyberKey = true
		c.mu.Unlock()
	}

	return nil
}

// Logout revokes the server session. The local keystore is untouched: a
// later login on this host can still decrypt.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.requireIdentity(); err != nil {
		return err
	}

	if err := c.apiClient.Logout(ctx); err != nil {
		return wrapAPIError(err)
	}

	c.apiClient.SetToken("")
	c.mu.Lock()
	c.identity = nil
	c.mu.Unlock()
	return nil
}

// Session validates the current token against the server and refreshes the
// identity snapshot.
func (c *Client) Session(ctx context.Context) (*User, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	user, err := c.apiClient.SessionCheck(ctx)
	if err != nil {
		return nil, wrapAPIError(err)
	}

	c.mu.Lock()
	c.identity = user
	c.mu.Unlock()
	return user, nil
}

// HasLocalKeypair reports whether this host's keystore holds the private
// key for the logged-in identity.
func (c *Client) HasLocalKeypair() (bool, error) {
	identity, err := c.requireIdentity()
	if err != nil {
		return false, err
	}
	return c.keys.Has(identity.ResearcherID)
}

// RotateKey deliberately generates a fresh keypair, replacing any local
// one, and registers the new public half. Every payload wrapped to the old
// key becomes permanently undecryptable on this identity.
func (c *Client) RotateKey(ctx context.Context) error {
	identity, err := c.requireIdentity()
	if err != nil {
		return err
	}

	kp, err := crypto.GenerateKeypair()
	if err != nil {
		return err
	}
	if err := c.keys.Put(identity.ResearcherID, kp); err != nil {
		return err
	}
	if err := c.apiClient.SetKyberKey(ctx, crypto.ToBase64(kp.PublicKey)); err != nil {
		return wrapAPIError(err)
	}

	c.mu.Lock()
	c.identity.HasKyberKey = true
	c.mu.Unlock()
	return nil
}

// LookupPublicKey fetches a researcher's raw ML-KEM-512 public key.
func (c *Client) LookupPublicKey(ctx context.Context, researcherID string) ([]byte, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	resp, err := c.apiClient.GetPubkey(ctx, researcherID)
	if err != nil {
		return nil, wrapAPIError(err)
	}

	raw, err := crypto.DecodeBase64(resp.KyberPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	if err := crypto.ValidatePublicKey(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	return raw, nil
}

// Search returns up to 20 identities whose id starts with prefix,
// annotated with whether each has a registered public key.
func (c *Client) Search(ctx context.Context, prefix string) ([]SearchResult, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}

	results, err := c.apiClient.SearchUsers(ctx, prefix)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return results, nil
}
