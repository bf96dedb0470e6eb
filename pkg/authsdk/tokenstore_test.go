package authsdk

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileTokenStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokens")
	store, err := NewFileTokenStore(path, []byte("test-key-material"))
	require.NoError(t, err)

	// Empty store loads as nil, not an error.
	loaded, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)

	saved := &StoredTokens{
		AccessToken:  "access-token-value",
		RefreshToken: "refresh-token-value",
		ClientID:     "lumilearn-web",
		Scope:        "profile courses.read",
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
	}
	require.NoError(t, store.Save(saved))

	loaded, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, saved.AccessToken, loaded.AccessToken)
	require.Equal(t, saved.RefreshToken, loaded.RefreshToken)
	require.Equal(t, saved.ClientID, loaded.ClientID)
	require.Equal(t, saved.Scope, loaded.Scope)
	require.True(t, saved.ExpiresAt.Equal(loaded.ExpiresAt))

	// Save replaces, never merges.
	require.NoError(t, store.Save(&StoredTokens{AccessToken: "second", ExpiresAt: saved.ExpiresAt}))
	loaded, err = store.Load()
	require.NoError(t, err)
	require.Equal(t, "second", loaded.AccessToken)
	require.Empty(t, loaded.RefreshToken)
}

func TestFileTokenStoreEncryptsAtRest(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokens")
	store, err := NewFileTokenStore(path, []byte("test-key-material"))
	require.NoError(t, err)

	require.NoError(t, store.Save(&StoredTokens{
		AccessToken: "super-secret-access-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "super-secret-access-token")

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileTokenStoreCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokens")
	store, err := NewFileTokenStore(path, []byte("test-key-material"))
	require.NoError(t, err)

	require.NoError(t, store.Save(&StoredTokens{
		AccessToken: "valid-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	t.Run("truncated ciphertext", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("xx"), 0o600))
		loaded, err := store.Load()
		require.NoError(t, err)
		require.Nil(t, loaded)
	})

	t.Run("wrong key", func(t *testing.T) {
		require.NoError(t, store.Save(&StoredTokens{
			AccessToken: "valid-token",
			ExpiresAt:   time.Now().Add(time.Hour),
		}))

		other, err := NewFileTokenStore(path, []byte("a-different-key"))
		require.NoError(t, err)

		loaded, err := other.Load()
		require.NoError(t, err)
		require.Nil(t, loaded)
	})
}

func TestFileTokenStoreClearIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokens")
	store, err := NewFileTokenStore(path, []byte("test-key-material"))
	require.NoError(t, err)

	// Clearing an empty store succeeds.
	require.NoError(t, store.Clear())

	require.NoError(t, store.Save(&StoredTokens{
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	require.NoError(t, store.Clear())
	loaded, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)

	// And clearing again still succeeds.
	require.NoError(t, store.Clear())
}

func TestStoredTokensExpiry(t *testing.T) {
	t.Parallel()

	t.Run("fresh token", func(t *testing.T) {
		tokens := &StoredTokens{ExpiresAt: time.Now().Add(time.Hour)}
		require.False(t, tokens.IsExpired())
	})

	t.Run("inside the safety buffer", func(t *testing.T) {
		tokens := &StoredTokens{ExpiresAt: time.Now().Add(2 * time.Minute)}
		require.True(t, tokens.IsExpired())
	})

	t.Run("past expiry", func(t *testing.T) {
		tokens := &StoredTokens{ExpiresAt: time.Now().Add(-time.Minute)}
		require.True(t, tokens.IsExpired())
	})

	t.Run("will expire within lookahead", func(t *testing.T) {
		tokens := &StoredTokens{ExpiresAt: time.Now().Add(10 * time.Minute)}
		require.False(t, tokens.WillExpireWithin(0))
		require.True(t, tokens.WillExpireWithin(6*time.Minute))
	})
}

func TestMemoryTokenStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryTokenStore()

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)

	saved := &StoredTokens{AccessToken: "token", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(saved))

	loaded, err = store.Load()
	require.NoError(t, err)
	require.Equal(t, "token", loaded.AccessToken)

	// Load returns a copy; mutating it does not affect the store.
	loaded.AccessToken = "mutated"
	again, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "token", again.AccessToken)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())

	loaded, err = store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)
}
