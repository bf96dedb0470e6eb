package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
)

// BeginWebAuthnRegistration starts registering a new passkey on the
// account. The returned options go to navigator.credentials.create in
// the browser.
func (s *Session) BeginWebAuthnRegistration(ctx context.Context) (*WebAuthnBeginResponse, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/webauthn/register/begin", nil)
	if err != nil {
		return nil, err
	}

	var begin WebAuthnBeginResponse
	if err := decodeJSON(resp, &begin, http.StatusOK); err != nil {
		return nil, err
	}

	return &begin, nil
}

// FinishWebAuthnRegistration completes passkey registration with the
// browser's attestation. Label is an optional display name for the
// credential.
func (s *Session) FinishWebAuthnRegistration(ctx context.Context, challengeID string, credential json.RawMessage, label string) (*WebAuthnCredentialInfo, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/webauthn/register/finish", WebAuthnFinishRequest{
		ChallengeID: challengeID,
		Credential:  credential,
		Label:       label,
	})
	if err != nil {
		return nil, err
	}

	var cred WebAuthnCredentialInfo
	if err := decodeJSON(resp, &cred, http.StatusCreated); err != nil {
		return nil, err
	}

	return &cred, nil
}

// ListWebAuthnCredentials lists the account's registered passkeys.
func (s *Session) ListWebAuthnCredentials(ctx context.Context) (*ListCredentialsResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/webauthn/credentials", nil, nil)
	if err != nil {
		return nil, err
	}

	var creds ListCredentialsResponse
	if err := decodeJSON(resp, &creds, http.StatusOK); err != nil {
		return nil, err
	}

	return &creds, nil
}

// DeleteWebAuthnCredential removes a registered passkey by ID.
func (s *Session) DeleteWebAuthnCredential(ctx context.Context, credentialID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/webauthn/credentials/"+credentialID, nil, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
