// Package health contiene el service del health check.
package health

import (
	"context"

	dto "github.com/dropDatabas3/apptoken/internal/http/dto/health"
	jwtx "github.com/dropDatabas3/apptoken/internal/jwt"
	"github.com/dropDatabas3/apptoken/internal/observability/logger"
)

// HealthService reporta el estado de carga de claves y credenciales.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// AppCounter cuenta las apps cargadas (credentials.Store lo implementa).
type AppCounter interface {
	Len() int
}

type Deps struct {
	Keys *jwtx.KeyMaterial
	Apps AppCounter
}

type healthService struct {
	deps Deps
}

func NewHealthService(deps Deps) HealthService {
	return &healthService{deps: deps}
}

// Check siempre reporta "healthy": el servicio responde aunque esté degradado,
// y los flags dicen qué falta.
func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	resp := dto.HealthResponse{
		Status:        "healthy",
		HasPrivateKey: s.deps.Keys.HasSigningKey(),
		HasPublicKey:  s.deps.Keys.HasVerificationKey(),
		KeyID:         s.deps.Keys.KeyID(),
	}
	if s.deps.Apps != nil {
		resp.LoadedApps = s.deps.Apps.Len()
	}

	logger.From(ctx).Debug("health check completed",
		logger.Layer("service"),
		logger.Op("Check"),
		logger.Bool("has_private_key", resp.HasPrivateKey),
		logger.Bool("has_public_key", resp.HasPublicKey),
		logger.Count(resp.LoadedApps),
	)
	return resp
}
