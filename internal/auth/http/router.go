package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cognify-learn/cognify/internal/auth/service"
	"github.com/cognify-learn/cognify/internal/auth/store"
	"github.com/cognify-learn/cognify/pkg/authsdk"
	"github.com/cognify-learn/cognify/pkg/httpx"
	"github.com/cognify-learn/cognify/pkg/jwtx"
	"github.com/cognify-learn/cognify/pkg/slogx"

	_ "github.com/cognify-learn/cognify/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store       store.Store
	AuthService *service.AuthService
	UserService *service.UserService
	Cookie      CookieConfig

	// AuthLimit guards signup, login and refresh; GeneralLimit the rest.
	AuthLimit    httpx.RateLimitConfig
	GeneralLimit httpx.RateLimitConfig
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		AuthLimit:    httpx.AuthLimit,
		GeneralLimit: httpx.GeneralLimit,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Cognify Authentication Service API
//	@version		0.1.0
//	@description	Session endpoints for the Cognify platform. Access tokens are short lived EdDSA JWTs;
//	@description	renewal uses an httpOnly refresh cookie that rotates on every use.
//
//	@contact.name				Cognify Team
//	@contact.url				https://github.com/cognify-learn/cognify
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

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Auth:   r.AuthService,
		Users:  r.UserService,
		Store:  r.store,
		Cookie: r.Cookie,
	}

	// Credential endpoints share one strict bucket per client.
	strict := httpx.RateLimitAuth(r.AuthLimit)
	r.Mux.Handle("POST "+authsdk.PathSignup, httpx.Chain(http.HandlerFunc(h.HandleSignup), strict))
	r.Mux.Handle("POST "+authsdk.PathLogin, httpx.Chain(http.HandlerFunc(h.HandleLogin), strict))
	r.Mux.Handle("POST "+authsdk.PathRefresh, httpx.Chain(http.HandlerFunc(h.HandleRefresh), strict))

	general := httpx.RateLimitByIP(r.GeneralLimit)
	r.Mux.Handle("POST "+authsdk.PathLogout, httpx.Chain(http.HandlerFunc(h.HandleLogout), general))
	r.Mux.Handle("GET "+authsdk.PathMe,
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.AuthnMiddleware(r.verifier),
			general,
		),
	)
}

func (r *Router) registerUsers() {
	h := &RolesHandler{Users: r.UserService}

	r.Mux.Handle("PUT /api/v1/users/{id}/roles",
		httpx.Chain(h,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(jwtx.RoleAdmin),
			httpx.RateLimitByIP(r.GeneralLimit),
		),
	)
}

func (r *Router) registerSystem() {
	public := httpx.RateLimitByIP(r.GeneralLimit)

	h := &HealthHandler{Started: r.startTime, Version: r.buildVersion, Store: r.store, Keys: r.keys}

	r.Mux.Handle("GET /livez", httpx.Chain(http.HandlerFunc(h.HandleLivez), public))
	r.Mux.Handle("GET /readyz", httpx.Chain(http.HandlerFunc(h.HandleReadyz), public))
	r.Mux.Handle("GET /.well-known/jwks.json", httpx.Chain(JWKSHandler(r.keys), public))
}
