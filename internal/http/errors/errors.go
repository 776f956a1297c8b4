// Package errors define el cuerpo de error estándar {code, message, detail} y los
// errores predefinidos de la API.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/apptoken/internal/observability/logger"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError serializa err como AppError. Los 5xx se loguean con su causa, que
// nunca se expone al cliente.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorCtx(w, nil, err)
}

// WriteErrorCtx es WriteError con el logger del request.
func WriteErrorCtx(w http.ResponseWriter, r *http.Request, err error) {
	appErr := FromError(err)

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log := logger.L()
		if r != nil {
			log = logger.From(r.Context())
		}
		log.Error("request failed", logger.String("code", appErr.Code), logger.Err(appErr.Err))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}
