package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Bootstrap initializes a fresh deployment, creating the role set, the
// first system admin and the default web client. Guarded by the
// pre-shared bootstrap token; fails once the system has users.
func (c *SDKClient) Bootstrap(ctx context.Context, bootstrapToken string, req BootstrapRequest) (*BootstrapResponse, error) {
	buf, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/bootstrap", bytes.NewReader(buf), map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + bootstrapToken,
	})
	if err != nil {
		return nil, err
	}

	var result BootstrapResponse
	if err := decodeJSON(resp, &result, http.StatusCreated); err != nil {
		return nil, err
	}

	return &result, nil
}
