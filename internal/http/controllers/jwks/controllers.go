// Package jwks contiene el controller de /.well-known/jwks.json.
package jwks

import (
	"net/http"

	httperrors "github.com/dropDatabas3/apptoken/internal/http/errors"
	svc "github.com/dropDatabas3/apptoken/internal/http/services/jwks"
	"github.com/dropDatabas3/apptoken/internal/observability/logger"
)

type JWKSController struct {
	service svc.JWKSService
}

func NewJWKSController(service svc.JWKSService) *JWKSController {
	return &JWKSController{service: service}
}

// Get maneja GET/HEAD /.well-known/jwks.json
func (c *JWKSController) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("JWKSController.Get"))

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	data, err := c.service.GetJWKS(ctx)
	if err != nil {
		log.Error("failed to build JWKS", logger.Err(err))
		httperrors.WriteErrorCtx(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}
