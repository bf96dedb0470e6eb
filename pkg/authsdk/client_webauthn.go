package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// BeginWebAuthnLogin starts a passkey login for the given email. The
// returned options go to navigator.credentials.get in the browser.
func (c *SDKClient) BeginWebAuthnLogin(ctx context.Context, email string) (*WebAuthnBeginResponse, error) {
	buf, err := json.Marshal(WebAuthnLoginBeginRequest{Email: email})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/webauthn/login/begin", bytes.NewReader(buf),
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return nil, err
	}

	var begin WebAuthnBeginResponse
	if err := decodeJSON(resp, &begin, http.StatusOK); err != nil {
		return nil, err
	}

	return &begin, nil
}

// FinishWebAuthnLogin completes a passkey login with the browser's
// assertion and returns a token pair bound to the given OAuth2 client.
// Passkey login satisfies MFA; no separate OTP step follows.
func (c *SDKClient) FinishWebAuthnLogin(ctx context.Context, clientID, challengeID string, credential json.RawMessage) (*TokenResponse, error) {
	buf, err := json.Marshal(WebAuthnFinishRequest{ChallengeID: challengeID, Credential: credential, ClientID: clientID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/webauthn/login/finish", bytes.NewReader(buf),
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &tokenResp, nil
}

// LoginWithWebAuthn completes a passkey login and wraps the tokens in a
// Session with automatic refresh.
func (c *SDKClient) LoginWithWebAuthn(ctx context.Context, clientID, challengeID string, credential json.RawMessage) (*Session, error) {
	tokenResp, err := c.FinishWebAuthnLogin(ctx, clientID, challengeID, credential)
	if err != nil {
		return nil, err
	}
	return newSession(c, clientID, tokenResp), nil
}
