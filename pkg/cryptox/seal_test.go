package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer([]byte("test-key-material"))
	require.NoError(t, err)

	plaintext := []byte(`{"access_token":"abc","refresh_token":"def"}`)

	sealed, err := s.Seal(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, sealed)

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestSealerNonceUniqueness(t *testing.T) {
	s, err := NewSealer([]byte("test-key-material"))
	require.NoError(t, err)

	a, err := s.Seal([]byte("same plaintext"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("same plaintext"))
	require.NoError(t, err)

	require.NotEqual(t, a, b, "each seal should use a fresh nonce")
}

func TestSealerRejectsTamperedCiphertext(t *testing.T) {
	s, err := NewSealer([]byte("test-key-material"))
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("payload"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = s.Open(sealed)
	require.Error(t, err)
}

func TestSealerRejectsWrongKey(t *testing.T) {
	a, err := NewSealer([]byte("key-a"))
	require.NoError(t, err)
	b, err := NewSealer([]byte("key-b"))
	require.NoError(t, err)

	sealed, err := a.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = b.Open(sealed)
	require.Error(t, err)
}

func TestSealerRejectsShortCiphertext(t *testing.T) {
	s, err := NewSealer([]byte("key"))
	require.NoError(t, err)

	_, err = s.Open([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestNewSealerRequiresKey(t *testing.T) {
	_, err := NewSealer(nil)
	require.Error(t, err)
}
