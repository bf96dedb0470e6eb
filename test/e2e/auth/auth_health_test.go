package auth_test

import (
	"testing"

	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestHealthEndpoints verifies liveness and readiness probes.
func TestHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	live, err := client.GetLiveness(t.Context())
	assertHealthy(t, live, err)
	require.NotEmpty(t, live.Version)

	ready, err := client.GetReadiness(t.Context())
	assertHealthy(t, ready, err)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Signer)
}
