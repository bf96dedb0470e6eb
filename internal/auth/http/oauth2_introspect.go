package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/service"
	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/lumilearn/lumiauth/pkg/httpx"
	"github.com/lumilearn/lumiauth/pkg/jwtx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

// IntrospectHandler serves POST /v1/oauth2/introspect following RFC 7662.
// Beyond signature and expiry checks, it verifies the token's backing
// session is still alive, so revoking a session kills its access tokens
// at introspection time even before they expire.
type IntrospectHandler struct {
	Verifier       jwtx.Verifier
	SessionService *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Introspection Endpoint
//	@Description	Introspects a token and returns metadata about it (RFC 7662)
//	@Description	Tokens whose backing session has been revoked or has gone idle report active=false.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Security		BearerAuth
//	@Param			token			formData	string							true	"The token to introspect"
//	@Param			token_type_hint	formData	string							false	"Hint about token type (currently only 'access_token' is supported)"	Enums(access_token)
//	@Success		200				{object}	authsdk.IntrospectionResponse	"Token introspection result"
//	@Failure		400				{object}	map[string]string				"error, error_description"
//	@Failure		401				{object}	map[string]string				"error, error_description"
//	@Header			200				{string}	Cache-Control					"no-store"
//	@Header			200				{string}	Pragma							"no-cache"
//	@Router			/v1/oauth2/introspect [post].
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Ensure the right content-type
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	// 2. Parse the form body
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	token := r.Form.Get("token")
	tokenTypeHint := r.Form.Get("token_type_hint")

	if token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	// 3. Only access tokens (JWTs) are introspectable. If the hint names
	// anything else, report inactive without revealing why (RFC 7662).
	if tokenTypeHint != "" && tokenTypeHint != "access_token" {
		writeInactiveResponse(w)
		return
	}

	// 4. Verify signature, issuer and audience
	claims, err := h.Verifier.Verify(token)
	if err != nil {
		log.Debug("token verification failed during introspection", "error", err)
		writeInactiveResponse(w)
		return
	}

	// 5. Check if token is expired or not yet valid
	if err := claims.ValidateExpiry(); err != nil {
		log.Debug("token failed expiry check during introspection", "error", err)
		writeInactiveResponse(w)
		return
	}

	// 6. A user token is only as alive as its session. Client-credentials
	// tokens carry no sid and skip this check.
	if claims.SID != "" && h.SessionService != nil {
		sess, err := h.SessionService.GetSession(ctx, claims.Subject, claims.SID)
		if err != nil || !sess.Active(time.Now(), h.SessionService.MaxInactivity) {
			log.Debug("token's session is no longer active", "sid", claims.SID)
			writeInactiveResponse(w)
			return
		}
	}

	// 7. Build the introspection response
	response := authsdk.IntrospectionResponse{
		Active:      true,
		Scope:       strings.Join(claims.Scopes, " "),
		TokenType:   "Bearer",
		Sub:         claims.Subject,
		Iss:         claims.Issuer,
		SessionID:   claims.SID,
		AMR:         claims.AMR,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
		Jti:         claims.ID,
	}

	// Extract audience (client_id is first audience value)
	if len(claims.Audience) > 0 {
		response.ClientID = claims.Audience[0]
		response.Aud = claims.Audience
	}

	// Extract timestamps
	if claims.ExpiresAt != nil {
		response.Exp = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		response.Iat = claims.IssuedAt.Unix()
	}
	if claims.NotBefore != nil {
		response.Nbf = claims.NotBefore.Unix()
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}

// writeInactiveResponse returns the minimal RFC 7662 response for inactive tokens.
func writeInactiveResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)

	// Per RFC 7662, inactive tokens get {"active":false} and nothing more.
	_, _ = w.Write([]byte(`{"active":false}`))
}
