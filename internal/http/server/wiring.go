// Package server arma las dependencias del servicio a partir de la config y
// devuelve el handler HTTP listo para servir.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	rdb "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropDatabas3/apptoken/internal/config"
	"github.com/dropDatabas3/apptoken/internal/credentials"
	healthctrl "github.com/dropDatabas3/apptoken/internal/http/controllers/health"
	jwksctrl "github.com/dropDatabas3/apptoken/internal/http/controllers/jwks"
	tokenctrl "github.com/dropDatabas3/apptoken/internal/http/controllers/token"
	mw "github.com/dropDatabas3/apptoken/internal/http/middlewares"
	"github.com/dropDatabas3/apptoken/internal/http/router"
	healthsvc "github.com/dropDatabas3/apptoken/internal/http/services/health"
	jwkssvc "github.com/dropDatabas3/apptoken/internal/http/services/jwks"
	tokensvc "github.com/dropDatabas3/apptoken/internal/http/services/token"
	jwtx "github.com/dropDatabas3/apptoken/internal/jwt"
	"github.com/dropDatabas3/apptoken/internal/metrics"
	"github.com/dropDatabas3/apptoken/internal/observability/logger"
	"github.com/dropDatabas3/apptoken/internal/rate"
)

// Core son las piezas de dominio, compartidas por el server y los comandos del CLI.
type Core struct {
	Keys     *jwtx.KeyMaterial
	Apps     *credentials.Store
	Issuer   *jwtx.Issuer
	Verifier *jwtx.Verifier
}

// BuildCore carga claves y credenciales (una sola vez) y arma Issuer/Verifier.
func BuildCore(cfg *config.Config) *Core {
	keys := jwtx.LoadKeyMaterial(jwtx.KeySource{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		KeyID:          cfg.JWT.KeyID,
	})
	apps := credentials.Load(cfg.Apps.File)
	if len(cfg.Apps.Inline) > 0 {
		apps = apps.Merge(cfg.Apps.Inline)
	}

	return &Core{
		Keys: keys,
		Apps: apps,
		Issuer: jwtx.NewIssuer(cfg.JWT.Issuer, keys, apps,
			jwtx.WithIssuerTTL(cfg.TokenTTL())),
		Verifier: jwtx.NewVerifier(cfg.JWT.Issuer, keys, apps,
			jwtx.WithServiceAudience(cfg.AcceptServiceAudience())),
	}
}

// App es el servicio armado.
type App struct {
	*Core
	Handler http.Handler
	Metrics *metrics.Metrics
	Cleanup func() error
}

// Build arma el servicio completo. reg puede ser nil (se crea un registry propio).
func Build(cfg *config.Config, reg *prometheus.Registry) (*App, error) {
	log := logger.L().With(logger.Component("wiring"))

	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m, err := metrics.Register(reg)
	if err != nil {
		return nil, err
	}

	proxies, err := mw.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}

	core := BuildCore(cfg)
	m.SetKeyMaterial(core.Keys.HasSigningKey(), core.Keys.HasVerificationKey())

	limiter, cleanup := buildLimiter(cfg, log)

	handler := router.New(router.Deps{
		Token: tokenctrl.NewTokenController(tokensvc.NewTokenService(tokensvc.Deps{
			Issuer:   core.Issuer,
			Observer: m,
		})),
		JWKS:           jwksctrl.NewJWKSController(jwkssvc.NewJWKSService(core.Keys)),
		Health:         healthctrl.NewHealthController(healthsvc.NewHealthService(healthsvc.Deps{Keys: core.Keys, Apps: core.Apps})),
		Verifier:       core.Verifier,
		Limiter:        limiter,
		Metrics:        m,
		CORSOrigins:    cfg.Server.CORSAllowedOrigins,
		TrustedProxies: proxies,
	})

	log.Info("service wired",
		logger.String("issuer", cfg.JWT.Issuer),
		logger.KeyID(core.Keys.KeyID()),
		logger.Count(core.Apps.Len()),
		logger.Bool("rate_limit", limiter != nil),
		logger.Int("trusted_proxies", len(proxies)),
	)
	return &App{Core: core, Handler: handler, Metrics: m, Cleanup: cleanup}, nil
}

// buildLimiter elige backend: Redis si hay addr y responde al PING, si no memoria.
func buildLimiter(cfg *config.Config, log *zap.Logger) (rate.Limiter, func() error) {
	noop := func() error { return nil }
	if !cfg.RateEnabled() {
		return nil, noop
	}
	if cfg.Rate.Redis.Addr == "" {
		return rate.NewMemoryLimiter(cfg.Rate.Limit, cfg.RateWindow()), noop
	}

	client := rdb.NewClient(&rdb.Options{Addr: cfg.Rate.Redis.Addr, DB: cfg.Rate.Redis.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, using in-memory rate limiter",
			logger.String("addr", cfg.Rate.Redis.Addr), logger.Err(err))
		_ = client.Close()
		return rate.NewMemoryLimiter(cfg.Rate.Limit, cfg.RateWindow()), noop
	}
	log.Info("redis rate limiter enabled", logger.String("addr", cfg.Rate.Redis.Addr))
	return rate.NewRedisLimiter(client, cfg.Rate.Redis.Prefix, cfg.Rate.Limit, cfg.RateWindow()), client.Close
}
