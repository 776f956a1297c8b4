// Package router arma el árbol de rutas chi y la cadena de middlewares.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	healthctrl "github.com/dropDatabas3/apptoken/internal/http/controllers/health"
	jwksctrl "github.com/dropDatabas3/apptoken/internal/http/controllers/jwks"
	tokenctrl "github.com/dropDatabas3/apptoken/internal/http/controllers/token"
	httperrors "github.com/dropDatabas3/apptoken/internal/http/errors"
	mw "github.com/dropDatabas3/apptoken/internal/http/middlewares"
	"github.com/dropDatabas3/apptoken/internal/metrics"
	"github.com/dropDatabas3/apptoken/internal/rate"
)

// Deps contiene lo que necesita el router. Limiter y Metrics son opcionales.
type Deps struct {
	Token  *tokenctrl.TokenController
	JWKS   *jwksctrl.JWKSController
	Health *healthctrl.HealthController

	Verifier    mw.TokenVerifier
	Limiter     rate.Limiter
	Metrics     *metrics.Metrics
	CORSOrigins []string
	// Proxies cuyo X-Forwarded-For se respeta al calcular la clave de rate limit.
	TrustedProxies mw.TrustedProxies
}

// New devuelve el handler raíz.
//
//	POST      /issue-token            (rate limit, no-store)
//	GET       /secure-data            (bearer token)
//	GET|HEAD  /.well-known/jwks.json  (no-store)
//	GET|HEAD  /health
//	GET       /metrics
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		deps.Metrics.Middleware,
		mw.WithLogging(),
		mw.WithSecurityHeaders(),
		mw.WithCORS(deps.CORSOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// Emisión
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore())
		if rl := mw.WithRateLimit(mw.RateLimitConfig{
			Limiter: deps.Limiter,
			KeyFunc: deps.TrustedProxies.RateKey,
			OnLimited: func(req *http.Request) {
				deps.Metrics.ObserveRateLimited(req.URL.Path)
			},
		}); rl != nil {
			r.Use(rl)
		}
		r.Post("/issue-token", deps.Token.Issue)
	})

	// Recurso protegido
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore(), mw.RequireAppToken(deps.Verifier, deps.Metrics))
		r.Get("/secure-data", deps.Token.SecureData)
	})

	r.Get("/.well-known/jwks.json", deps.JWKS.Get)
	r.Head("/.well-known/jwks.json", deps.JWKS.Get)

	r.Get("/health", deps.Health.Health)
	r.Head("/health", deps.Health.Health)

	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	return r
}
