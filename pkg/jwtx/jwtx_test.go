package jwtx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumilearn/lumiauth/pkg/cryptox"
	"github.com/lumilearn/lumiauth/pkg/jwtx"
)

const testIssuer = "https://auth.lumilearn.test"

func newSigner(t *testing.T, kid string) jwtx.Signer {
	t.Helper()
	pemBytes, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA(kid, pemBytes)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())
	return signer
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	signer := newSigner(t, "key-1")

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	claims := jwtx.NewAccessClaims(
		"user-123", "sess-456",
		[]string{"courses:read"}, []string{jwtx.AMRPassword},
		jwtx.DefaultAccessTokenTTL,
		testIssuer, []string{"lumilearn"},
		"alex@school.test", "Alex", "student",
		time.Now().UTC(),
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := jwtx.NewVerifierEdDSA(keys, testIssuer, []string{"lumilearn"})
	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", got.Subject)
	require.Equal(t, "sess-456", got.SID)
	require.Equal(t, "student", got.Role)
	require.True(t, got.HasScope("courses:read"))
	require.False(t, got.UsedMFA())
}

func TestVerifyRejectsUnknownKid(t *testing.T) {
	signer := newSigner(t, "key-a")
	other := newSigner(t, "key-b")

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(other))

	claims := jwtx.NewAccessClaims(
		"user-123", "sess-456", nil, nil,
		time.Minute, testIssuer, nil, "", "", "", time.Now().UTC(),
	)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := jwtx.NewVerifierEdDSA(keys, testIssuer, nil)
	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	signer := newSigner(t, "key-1")
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	claims := jwtx.NewAccessClaims(
		"user-123", "sess-456", nil, nil,
		time.Minute, "https://evil.test", nil, "", "", "", time.Now().UTC(),
	)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := jwtx.NewVerifierEdDSA(keys, testIssuer, nil)
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	signer := newSigner(t, "key-1")
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	claims := jwtx.NewAccessClaims(
		"user-123", "sess-456", nil, nil,
		time.Minute, testIssuer, nil, "", "", "",
		time.Now().UTC().Add(-time.Hour),
	)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := jwtx.NewVerifierEdDSA(keys, testIssuer, nil)
	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestKeySetResetFromJWKS(t *testing.T) {
	a := newSigner(t, "key-a")
	b := newSigner(t, "key-b")

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(a))

	published := jwtx.JWKS{Keys: []jwtx.JWK{b.PublicJWK()}}
	require.NoError(t, keys.ResetFromJWKS(published))

	_, err := keys.Get("key-a")
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	_, err = keys.Get("key-b")
	require.NoError(t, err)
}

func TestEphemeralKeyManager(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  testIssuer,
		NumKeys: 3,
	})
	require.NoError(t, err)
	require.True(t, km.IsReady())
	require.Equal(t, 3, km.NumSigners())
	require.Len(t, km.KeySet.PublicJWKS().Keys, 3)

	claims := jwtx.NewAccessClaims(
		"user-1", "sess-1", nil, []string{jwtx.AMRPassword},
		time.Minute, testIssuer, nil, "", "", "", time.Now().UTC(),
	)
	token, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	got, err := km.Verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
}

func TestEphemeralKeyManagerRequiresIssuer(t *testing.T) {
	_, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{})
	require.Error(t, err)
}

func TestClaimsValidateExpiryWithLeeway(t *testing.T) {
	claims := jwtx.NewAccessClaims(
		"u", "s", nil, nil,
		-30*time.Second, testIssuer, nil, "", "", "", time.Now().UTC(),
	)
	require.Error(t, claims.ValidateExpiry())
	require.NoError(t, claims.ValidateExpiryWithLeeway(2*time.Minute))
}
