package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the LumiLearn authentication service. It
// provides unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// CheckScopes enables client-side scope validation before API
	// requests, avoiding round trips that would fail with
	// insufficient_scope. Disable in tests to exercise the server-side
	// checks. Default: true.
	CheckScopes bool
}

// NewSDKClient creates a new auth service client with scope checking
// enabled.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		CheckScopes: true,
	}
}

// AuthenticateWithClientCredentials creates an authenticated session via
// the client_credentials grant, for machine-to-machine callers.
func (c *SDKClient) AuthenticateWithClientCredentials(
	ctx context.Context,
	clientID, clientSecret string,
	scopes []string,
) (*Session, error) {
	tokenResp, err := c.ClientCredentialsGrant(ctx, clientID, clientSecret, scopes)
	if err != nil {
		return nil, err
	}

	return newSession(c, clientID, tokenResp), nil
}

// AuthenticateWithRefreshToken creates an authenticated session from an
// existing refresh token.
func (c *SDKClient) AuthenticateWithRefreshToken(
	ctx context.Context,
	clientID, refreshToken string,
) (*Session, error) {
	tokenResp, err := c.RefreshGrant(ctx, clientID, refreshToken)
	if err != nil {
		return nil, err
	}

	return newSession(c, clientID, tokenResp), nil
}

// NewSessionFromTokens creates an authenticated session from previously
// stored tokens. The session still auto-refreshes when the access token
// nears expiry.
func (c *SDKClient) NewSessionFromTokens(clientID, accessToken, refreshToken, scope string, expiresIn int) *Session {
	expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second)
	expiresAt = expiresAt.Add(-refreshBuffer)

	return &Session{
		client:       c,
		clientID:     clientID,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    expiresAt,
		scopes:       parseScopes(scope),
	}
}
