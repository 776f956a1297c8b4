// Package health contiene el controller del health check.
package health

import (
	"net/http"

	httperrors "github.com/dropDatabas3/apptoken/internal/http/errors"
	"github.com/dropDatabas3/apptoken/internal/http/helpers"
	svc "github.com/dropDatabas3/apptoken/internal/http/services/health"
)

type HealthController struct {
	service svc.HealthService
}

func NewHealthController(service svc.HealthService) *HealthController {
	return &HealthController{service: service}
}

// Health maneja GET /health
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	resp := c.service.Check(r.Context())
	if resp.KeyID != "" {
		w.Header().Set("X-JWKS-KID", resp.KeyID)
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}
