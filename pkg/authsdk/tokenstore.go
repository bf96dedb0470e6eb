package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lumilearn/lumiauth/pkg/cryptox"
)

// expiryBuffer is how far ahead of the recorded expiry a stored token is
// treated as expired. Matches the in-memory session's refresh buffer so
// a token loaded from disk is never handed out moments before it dies.
const expiryBuffer = 5 * time.Minute

// StoredTokens is the persisted token state for one client.
type StoredTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ClientID     string    `json:"client_id"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsExpired reports whether the access token is past its expiry, with
// the safety buffer applied.
func (t *StoredTokens) IsExpired() bool {
	return t.WillExpireWithin(0)
}

// WillExpireWithin reports whether the access token will be inside the
// expiry buffer after d elapses.
func (t *StoredTokens) WillExpireWithin(d time.Duration) bool {
	return !time.Now().Add(d).Before(t.ExpiresAt.Add(-expiryBuffer))
}

// TokenStore persists token state between process runs.
type TokenStore interface {
	// Load returns the stored tokens, or nil if none are stored. A
	// corrupt or undecryptable store also returns nil; the caller just
	// re-authenticates.
	Load() (*StoredTokens, error)

	// Save persists the tokens, replacing any previous state.
	Save(tokens *StoredTokens) error

	// Clear removes the stored tokens. Idempotent: clearing an empty
	// store is not an error.
	Clear() error
}

// FileTokenStore keeps tokens in a single file, encrypted with
// AES-256-GCM. The file is written with owner-only permissions via an
// atomic rename.
type FileTokenStore struct {
	mu     sync.Mutex
	path   string
	sealer *cryptox.Sealer
}

// NewFileTokenStore creates a store at path, deriving the encryption key
// from keyMaterial. Parent directories are created on first Save.
func NewFileTokenStore(path string, keyMaterial []byte) (*FileTokenStore, error) {
	sealer, err := cryptox.NewSealer(keyMaterial)
	if err != nil {
		return nil, err
	}
	return &FileTokenStore{path: path, sealer: sealer}, nil
}

// Load reads and decrypts the stored tokens. A missing file returns
// (nil, nil). A file that fails decryption or parsing is treated as
// absent rather than fatal, since the only recovery is logging in again.
func (f *FileTokenStore) Load() (*StoredTokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sealed, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token store: %w", err)
	}

	plaintext, err := f.sealer.Open(sealed)
	if err != nil {
		return nil, nil
	}

	var tokens StoredTokens
	if err := json.Unmarshal(plaintext, &tokens); err != nil {
		return nil, nil
	}

	return &tokens, nil
}

// Save encrypts and writes the tokens atomically.
func (f *FileTokenStore) Save(tokens *StoredTokens) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	plaintext, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}

	sealed, err := f.sealer.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt tokens: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set token store permissions: %w", err)
	}
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write token store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close token store: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace token store: %w", err)
	}
	return nil
}

// Clear deletes the token file. Safe to call when no file exists.
func (f *FileTokenStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear token store: %w", err)
	}
	return nil
}

// MemoryTokenStore keeps tokens in process memory. Useful for tests and
// short-lived tools that should never touch disk.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens *StoredTokens
}

// NewMemoryTokenStore creates an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (m *MemoryTokenStore) Load() (*StoredTokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tokens == nil {
		return nil, nil
	}
	cp := *m.tokens
	return &cp, nil
}

func (m *MemoryTokenStore) Save(tokens *StoredTokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *tokens
	m.tokens = &cp
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens = nil
	return nil
}
