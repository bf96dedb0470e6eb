package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Signup registers a new account. The account can sign in immediately;
// no session or tokens are returned.
func (c *SDKClient) Signup(ctx context.Context, req SignupRequest) (*ProfileResponse, error) {
	buf, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/signup", bytes.NewReader(buf),
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return nil, err
	}

	var profile ProfileResponse
	if err := decodeJSON(resp, &profile, http.StatusCreated); err != nil {
		return nil, err
	}

	return &profile, nil
}

// RequestPasswordReset starts the forgot-password flow. Always succeeds
// for well-formed requests, whether or not the email is registered.
func (c *SDKClient) RequestPasswordReset(ctx context.Context, email string) error {
	buf, err := json.Marshal(PasswordResetRequest{Email: email})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/password-reset/request", bytes.NewReader(buf),
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp, bodyBytes)
	}
	return nil
}

// ConfirmPasswordReset redeems an emailed reset token and sets the new
// password. All of the account's sessions are revoked.
func (c *SDKClient) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	buf, err := json.Marshal(PasswordResetConfirmRequest{Token: token, NewPassword: newPassword})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/password-reset/confirm", bytes.NewReader(buf),
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
