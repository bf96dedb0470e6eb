package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// GetUserInfo retrieves the OIDC-style userinfo for the session.
// Requires: profile scope.
func (s *Session) GetUserInfo(ctx context.Context) (*ProfileResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/userinfo", nil, nil, "profile")
	if err != nil {
		return nil, err
	}

	var userInfo ProfileResponse
	if err := decodeJSON(resp, &userInfo, http.StatusOK); err != nil {
		return nil, err
	}

	return &userInfo, nil
}

// GetProfile fetches the full account profile.
// Requires: profile scope.
func (s *Session) GetProfile(ctx context.Context) (*ProfileResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/profile", nil, nil, "profile")
	if err != nil {
		return nil, err
	}

	var profile ProfileResponse
	if err := decodeJSON(resp, &profile, http.StatusOK); err != nil {
		return nil, err
	}

	return &profile, nil
}

// UpdateProfile applies partial updates to display name and locale.
// Requires: profile scope.
func (s *Session) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*ProfileResponse, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPatch, "/v1/profile", req, "profile")
	if err != nil {
		return nil, err
	}

	var profile ProfileResponse
	if err := decodeJSON(resp, &profile, http.StatusOK); err != nil {
		return nil, err
	}

	return &profile, nil
}

// ChangePassword rotates the account password. The server revokes every
// session and refresh token, including this one; re-authenticate after.
func (s *Session) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/profile/password", ChangePasswordRequest{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// DeleteAccount permanently deletes the account after re-verifying the
// password. Irreversible.
func (s *Session) DeleteAccount(ctx context.Context, password string) error {
	resp, err := s.doAuthJSON(ctx, http.MethodDelete, "/v1/profile", DeleteAccountRequest{Password: password})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// IntrospectToken introspects a token per RFC 7662.
func (s *Session) IntrospectToken(ctx context.Context, tokenToIntrospect string) (*IntrospectionResponse, error) {
	data := url.Values{
		"token":           {tokenToIntrospect},
		"token_type_hint": {"access_token"},
	}

	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}

	resp, err := s.doAuthRequest(
		ctx,
		http.MethodPost,
		"/v1/oauth2/introspect",
		strings.NewReader(data.Encode()),
		headers,
	)
	if err != nil {
		return nil, err
	}

	var introspectResp IntrospectionResponse
	if err := decodeJSON(resp, &introspectResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &introspectResp, nil
}
