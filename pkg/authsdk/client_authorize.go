package authsdk

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/lumilearn/lumiauth/pkg/cryptox"
)

// PKCEChallenge holds a PKCE verifier and challenge pair. The verifier
// stays with the client; the challenge goes to the authorize endpoint.
type PKCEChallenge struct {
	// Verifier is the high-entropy random string (kept secret)
	Verifier string

	// Challenge is BASE64URL(SHA256(verifier)), sent to the server
	Challenge string

	// Method is always "S256"
	Method string
}

// GeneratePKCEChallenge creates a new PKCE pair per RFC 7636, using 256
// bits of entropy and S256 hashing.
func GeneratePKCEChallenge() (*PKCEChallenge, error) {
	verifier, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}

	hash := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(hash[:])

	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: challenge,
		Method:    "S256",
	}, nil
}

// BuildAuthorizeURL constructs the authorization URL for the code flow.
// Redirect the user's browser here to begin authorization. state is
// strongly recommended for CSRF protection; PKCE is required for public
// clients.
func (c *SDKClient) BuildAuthorizeURL(
	clientID, redirectURI, state string,
	scopes []string,
	pkce *PKCEChallenge,
) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", clientID)
	params.Set("redirect_uri", redirectURI)

	if state != "" {
		params.Set("state", state)
	}

	if len(scopes) > 0 {
		params.Set("scope", strings.Join(scopes, " "))
	}

	if pkce != nil {
		params.Set("code_challenge", pkce.Challenge)
		params.Set("code_challenge_method", pkce.Method)
	}

	return fmt.Sprintf("%s/v1/oauth2/authorize?%s", c.BaseURL, params.Encode())
}

// noRedirect returns an HTTP client that surfaces 302s instead of
// following them, so the authorization code can be read off the
// Location header.
func (c *SDKClient) noRedirect() *http.Client {
	return &http.Client{
		Timeout: c.HTTPClient.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// codeFromRedirect extracts the authorization code from a 302 Location
// header, translating error query parameters into an error.
func codeFromRedirect(resp *http.Response) (string, error) {
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("redirect response missing Location header")
	}

	redirectURL, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}

	code := redirectURL.Query().Get("code")
	if code == "" {
		errorCode := redirectURL.Query().Get("error")
		errorDesc := redirectURL.Query().Get("error_description")
		if errorCode != "" {
			return "", fmt.Errorf("authorization failed: %s - %s", errorCode, errorDesc)
		}
		return "", fmt.Errorf("redirect missing authorization code")
	}

	return code, nil
}

// AuthorizeWithPassword performs interactive authorization with email and
// password, for server-side flows that collect credentials directly. If
// the account has MFA enabled, returns *MFARequiredError; complete with
// AuthorizeWithPasswordAndMFA.
//
// Returns the authorization code on success.
func (c *SDKClient) AuthorizeWithPassword(
	ctx context.Context,
	clientID, redirectURI, email, password string,
	scopes []string,
	pkce *PKCEChallenge,
) (string, error) {
	data := url.Values{
		"response_type": {"code"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"email":         {email},
		"password":      {password},
	}

	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	if pkce != nil {
		data.Set("code_challenge", pkce.Challenge)
		data.Set("code_challenge_method", pkce.Method)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.BaseURL+"/v1/oauth2/authorize",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.noRedirect().Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	// 409 Conflict carries the MFA challenge.
	if resp.StatusCode == http.StatusConflict {
		var mfaResp struct {
			Error            string   `json:"error"`
			ErrorDescription string   `json:"error_description"`
			MFAToken         string   `json:"mfa_token"`
			MFAMethods       []string `json:"mfa_methods"`
		}
		if err := json.Unmarshal(bodyBytes, &mfaResp); err != nil {
			return "", fmt.Errorf("failed to decode MFA response: %w", err)
		}

		return "", &MFARequiredError{
			MFAToken: mfaResp.MFAToken,
			Methods:  mfaResp.MFAMethods,
		}
	}

	if resp.StatusCode == http.StatusFound {
		return codeFromRedirect(resp)
	}

	return "", parseErrorResponse(resp, bodyBytes)
}

// AuthorizeWithPasswordAndMFA completes authorization after an
// *MFARequiredError. method is "totp" or "backup_code".
//
// Returns the authorization code on success.
func (c *SDKClient) AuthorizeWithPasswordAndMFA(
	ctx context.Context,
	clientID, redirectURI string,
	mfaError MFARequiredError,
	method, code string,
	scopes []string,
	pkce *PKCEChallenge,
) (string, error) {
	data := url.Values{
		"response_type": {"code"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"mfa_token":     {mfaError.MFAToken},
		"mfa_method":    {method},
		"mfa_code":      {code},
	}

	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	if pkce != nil {
		data.Set("code_challenge", pkce.Challenge)
		data.Set("code_challenge_method", pkce.Method)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.BaseURL+"/v1/oauth2/authorize",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.noRedirect().Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusFound {
		return codeFromRedirect(resp)
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	return "", parseErrorResponse(resp, bodyBytes)
}

// AuthorizeWithBearerToken obtains an authorization code using an
// existing access token, letting an already signed-in user authorize a
// new client or different scopes without re-entering credentials.
//
// Returns the authorization code on success.
func (c *SDKClient) AuthorizeWithBearerToken(
	ctx context.Context,
	accessToken string,
	clientID, redirectURI string,
	scopes []string,
	pkce *PKCEChallenge,
) (string, error) {
	data := url.Values{
		"response_type": {"code"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
	}

	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	if pkce != nil {
		data.Set("code_challenge", pkce.Challenge)
		data.Set("code_challenge_method", pkce.Method)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.BaseURL+"/v1/oauth2/authorize",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.noRedirect().Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusFound {
		return codeFromRedirect(resp)
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	return "", parseErrorResponse(resp, bodyBytes)
}

// ExchangeAuthorizationCode trades an authorization code for tokens,
// completing the code flow. clientSecret is empty for public clients;
// codeVerifier must be the PKCE verifier if PKCE was used.
func (c *SDKClient) ExchangeAuthorizationCode(
	ctx context.Context,
	clientID, clientSecret, code, redirectURI, codeVerifier string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {clientID},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}

	if clientSecret != "" {
		data.Set("client_secret", clientSecret)
	}

	if codeVerifier != "" {
		data.Set("code_verifier", codeVerifier)
	}

	return c.requestToken(ctx, data)
}

// AuthorizeAndExchange runs the complete password login code flow in one
// call. Returns *MFARequiredError when the account has MFA; continue with
// AuthorizeAndExchangeWithMFA.
func (c *SDKClient) AuthorizeAndExchange(
	ctx context.Context,
	clientID, clientSecret, redirectURI, email, password string,
	scopes []string,
) (*Session, error) {
	pkce, err := GeneratePKCEChallenge()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE: %w", err)
	}

	authCode, err := c.AuthorizeWithPassword(ctx, clientID, redirectURI, email, password, scopes, pkce)
	if err != nil {
		return nil, err
	}

	tokenResp, err := c.ExchangeAuthorizationCode(ctx, clientID, clientSecret, authCode, redirectURI, pkce.Verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return newSession(c, clientID, tokenResp), nil
}

// AuthorizeAndExchangeWithMFA completes the code flow after an
// *MFARequiredError from AuthorizeAndExchange.
func (c *SDKClient) AuthorizeAndExchangeWithMFA(
	ctx context.Context,
	clientID, clientSecret, redirectURI string,
	mfaError MFARequiredError,
	method, mfaCode string,
	scopes []string,
) (*Session, error) {
	pkce, err := GeneratePKCEChallenge()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE: %w", err)
	}

	authCode, err := c.AuthorizeWithPasswordAndMFA(ctx, clientID, redirectURI, mfaError, method, mfaCode, scopes, pkce)
	if err != nil {
		return nil, err
	}

	tokenResp, err := c.ExchangeAuthorizationCode(ctx, clientID, clientSecret, authCode, redirectURI, pkce.Verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return newSession(c, clientID, tokenResp), nil
}

// ParseAuthorizationCallback extracts the code and state from a redirect
// callback URL, translating error parameters into an error. Callers must
// verify the returned state against the one they sent.
func ParseAuthorizationCallback(callbackURL string) (code, state string, err error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse callback URL: %w", err)
	}

	query := u.Query()

	if errorCode := query.Get("error"); errorCode != "" {
		errorDesc := query.Get("error_description")
		return "", "", fmt.Errorf("authorization error: %s - %s", errorCode, errorDesc)
	}

	code = query.Get("code")
	if code == "" {
		return "", "", fmt.Errorf("callback missing authorization code")
	}

	state = query.Get("state")

	return code, state, nil
}
