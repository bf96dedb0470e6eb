package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/service"
	"github.com/lumilearn/lumiauth/internal/auth/store"
	"github.com/lumilearn/lumiauth/pkg/httpx"
	"github.com/lumilearn/lumiauth/pkg/jwtx"
	"github.com/lumilearn/lumiauth/pkg/slogx"

	_ "github.com/lumilearn/lumiauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store                store.Store
	TokenService         *service.TokenService
	AccountService       *service.AccountService
	RolesService         *service.RolesService
	BootstrapService     *service.BootstrapService
	MFAService           *service.MFAService
	ClientService        *service.ClientService
	AuthorizeService     *service.AuthorizeService
	SessionService       *service.SessionService
	PasswordResetService *service.PasswordResetService
	WebAuthnService      *service.WebAuthnService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	issuer, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerSignup()
	r.registerProfile()
	r.registerPasswordReset()
	r.registerMFA()
	r.registerWebAuthn()
	r.registerSessions()
	r.registerRoles()
	r.registerClients()
	r.registerSystem()
	r.registerBootstrap()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			LumiLearn Authentication Service API
//	@version		0.1.0
//	@description	OAuth2-compliant authentication for the LumiLearn education platform: token
//	@description	management with JWT access tokens, TOTP and passkey multi-factor auth, and
//	@description	device session management.
//	@description
//	@description				All tokens are signed using EdDSA (Ed25519) and can be verified using the JWKS endpoint.
//
//	@contact.name				LumiLearn Platform Team
//	@contact.url				https://github.com/lumilearn/lumiauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth2() {
	authorizeHandler := &AuthorizeHandler{
		AuthorizeService: r.AuthorizeService,
		Verifier:         r.verifier,
		Logger:           r.logger,
	}

	// GET /authorize - lenient rate limit (mostly just displays forms)
	r.Mux.Handle("GET /v1/oauth2/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandleGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /authorize - strict rate limit by IP + email to slow brute force
	r.Mux.Handle("POST /v1/oauth2/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandlePost),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		),
	)

	// POST /token - strict rate limit by IP (covers all grant types)
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/oauth2/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /revoke - moderate rate limit
	revokeHandler := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/oauth2/revoke",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	// Introspection endpoint (RFC 7662) - requires authentication, moderate limit
	introspectHandler := &IntrospectHandler{Verifier: r.verifier, SessionService: r.SessionService}
	r.Mux.Handle("POST /v1/oauth2/introspect",
		httpx.Chain(introspectHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// OIDC-style userinfo
	userInfoHandler := &UserInfoHandler{AccountService: r.AccountService}
	r.Mux.Handle("GET /v1/userinfo",
		httpx.Chain(userInfoHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope("profile"),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSignup() {
	h := &SignupHandler{AccountService: r.AccountService}

	// POST /signup - strict rate limit by IP (public account creation)
	r.Mux.Handle("POST /v1/signup",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerProfile() {
	h := &ProfileHandler{AccountService: r.AccountService}

	secured := func(handler http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(handler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope("profile"),
			httpx.RateLimitByUser(limit),
		)
	}

	r.Mux.Handle("GET /v1/profile", secured(h.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("PATCH /v1/profile", secured(h.HandleUpdate, httpx.ModerateLimit))

	// Password change and account deletion re-verify the password, so no
	// scope requirement beyond a valid token.
	r.Mux.Handle("POST /v1/profile/password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/profile",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerPasswordReset() {
	h := &PasswordResetHandler{PasswordResetService: r.PasswordResetService}

	// Both endpoints are unauthenticated; strict IP limits slow abuse.
	r.Mux.Handle("POST /v1/password-reset/request",
		httpx.Chain(http.HandlerFunc(h.HandleRequest),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/password-reset/confirm",
		httpx.Chain(http.HandlerFunc(h.HandleConfirm),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{
		MFAService:     r.MFAService,
		AccountService: r.AccountService,
	}

	// POST /mfa/totp/enroll - moderate rate limit by user
	securedEnroll := httpx.Chain(http.HandlerFunc(h.HandleEnroll),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	// POST /mfa/totp/verify - strict rate limit by user (prevent brute force of TOTP codes)
	securedVerify := httpx.Chain(http.HandlerFunc(h.HandleVerify),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.StrictLimit),
	)

	// POST /mfa/totp/remove - strict rate limit by user
	securedRemove := httpx.Chain(http.HandlerFunc(h.HandleRemove),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.StrictLimit),
	)

	// Backup code management - moderate rate limit by user
	securedRegenerate := httpx.Chain(http.HandlerFunc(h.HandleRegenerateBackupCodes),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
	securedCount := httpx.Chain(http.HandlerFunc(h.HandleCountBackupCodes),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)

	r.Mux.Handle("POST /v1/mfa/totp/enroll", securedEnroll)
	r.Mux.Handle("POST /v1/mfa/totp/verify", securedVerify)
	r.Mux.Handle("POST /v1/mfa/totp/remove", securedRemove)
	r.Mux.Handle("POST /v1/mfa/backup-codes/regenerate", securedRegenerate)
	r.Mux.Handle("GET /v1/mfa/backup-codes", securedCount)
}

func (r *Router) registerWebAuthn() {
	h := &WebAuthnHandler{
		WebAuthnService: r.WebAuthnService,
		TokenService:    r.TokenService,
	}

	// Registration requires an authenticated session.
	securedRegisterBegin := httpx.Chain(http.HandlerFunc(h.HandleRegisterBegin),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
	securedRegisterFinish := httpx.Chain(http.HandlerFunc(h.HandleRegisterFinish),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
	securedList := httpx.Chain(http.HandlerFunc(h.HandleListCredentials),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)
	securedDelete := httpx.Chain(http.HandlerFunc(h.HandleDeleteCredential),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	r.Mux.Handle("POST /v1/webauthn/register/begin", securedRegisterBegin)
	r.Mux.Handle("POST /v1/webauthn/register/finish", securedRegisterFinish)
	r.Mux.Handle("GET /v1/webauthn/credentials", securedList)
	r.Mux.Handle("DELETE /v1/webauthn/credentials/{id}", securedDelete)

	// Login is unauthenticated; strict IP limits apply.
	r.Mux.Handle("POST /v1/webauthn/login/begin",
		httpx.Chain(http.HandlerFunc(h.HandleLoginBegin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/webauthn/login/finish",
		httpx.Chain(http.HandlerFunc(h.HandleLoginFinish),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{SessionService: r.SessionService}

	secured := func(handler http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(handler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(limit),
		)
	}

	r.Mux.Handle("GET /v1/sessions", secured(h.HandleList, httpx.LenientLimit))
	r.Mux.Handle("DELETE /v1/sessions/{id}", secured(h.HandleRevoke, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/sessions", secured(h.HandleRevokeAll, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/sessions/heartbeat", secured(h.HandleHeartbeat, httpx.LenientLimit))
}

func (r *Router) registerRoles() {
	h := &RolesHandler{RolesService: r.RolesService}

	// GET /roles - moderate rate limit by user (admin read operation)
	secured := httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyScope("roles.manage"),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /v1/roles", secured)
}

func (r *Router) registerClients() {
	h := &ClientsHandler{ClientService: r.ClientService}

	secured := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope("clients.manage"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/clients", secured(h.HandleCreate))
	r.Mux.Handle("GET /v1/clients", secured(h.HandleList))
	r.Mux.Handle("GET /v1/clients/{id}", secured(h.HandleGet))
	r.Mux.Handle("POST /v1/clients/{id}/rotate-secret", secured(h.HandleRotateSecret))
	r.Mux.Handle("DELETE /v1/clients/{id}", secured(h.HandleDelete))
}

func (r *Router) registerBootstrap() {
	// POST /bootstrap - very strict rate limit by IP (one-time setup endpoint)
	bootstrapHandler := &BootstrapHandler{BootstrapService: r.BootstrapService}
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(bootstrapHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
