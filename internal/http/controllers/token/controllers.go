// Package token contiene los controllers de emisión de tokens y del recurso protegido.
package token

import (
	"net/http"

	dto "github.com/dropDatabas3/apptoken/internal/http/dto/token"
	httperrors "github.com/dropDatabas3/apptoken/internal/http/errors"
	"github.com/dropDatabas3/apptoken/internal/http/helpers"
	mw "github.com/dropDatabas3/apptoken/internal/http/middlewares"
	svc "github.com/dropDatabas3/apptoken/internal/http/services/token"
	"github.com/dropDatabas3/apptoken/internal/observability/logger"
)

// TokenController maneja POST /issue-token y GET /secure-data.
type TokenController struct {
	service svc.TokenService
}

func NewTokenController(service svc.TokenService) *TokenController {
	return &TokenController{service: service}
}

// Issue maneja POST /issue-token
func (c *TokenController) Issue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TokenController.Issue"))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	var req dto.IssueTokenRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		log.Debug("invalid issue-token body", logger.Err(err))
		httperrors.WriteErrorCtx(w, r, err)
		return
	}

	resp, err := c.service.Issue(ctx, req)
	if err != nil {
		httperrors.WriteErrorCtx(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// SecureData maneja GET /secure-data (detrás de RequireAppToken).
func (c *TokenController) SecureData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	claims := mw.GetClaims(ctx)
	if claims == nil {
		httperrors.WriteErrorCtx(w, r, httperrors.ErrTokenMissing)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, c.service.SecureData(ctx, claims))
}
