package middlewares

import (
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/apptoken/internal/http/errors"
	jwtx "github.com/dropDatabas3/apptoken/internal/jwt"
	"github.com/dropDatabas3/apptoken/internal/observability/logger"
)

// TokenVerifier es lo que necesita RequireAppToken (jwt.Verifier lo implementa).
type TokenVerifier interface {
	Verify(raw string) jwtx.Verification
}

// VerificationObserver recibe cada outcome (métricas). Puede ser nil.
type VerificationObserver interface {
	ObserveVerification(outcome string)
}

// BearerToken extrae el token de "Authorization: Bearer <jwt>". ok=false si falta.
func BearerToken(r *http.Request) (string, bool) {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(ah) < len("bearer ") || !strings.EqualFold(ah[:len("bearer ")], "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(ah[len("bearer "):])
	return raw, raw != ""
}

// RequireAppToken verifica el bearer token y deja las claims en el contexto.
// Cualquier outcome distinto de Valid corta con 401 (o 500 si falta la clave pública).
func RequireAppToken(v TokenVerifier, obs VerificationObserver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.From(r.Context()).With(logger.Layer("middleware"), logger.Op("RequireAppToken"))

			raw, ok := BearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				httperrors.WriteErrorCtx(w, r, httperrors.ErrTokenMissing)
				return
			}

			res := v.Verify(raw)
			if obs != nil {
				obs.ObserveVerification(res.Outcome.String())
			}
			if !res.Valid() {
				if res.Outcome == jwtx.OutcomeFailed {
					// falla inesperada: 401 para el cliente, error con causa en el log
					log.Error("token verification fault", logger.Err(res.Err), logger.TokenPrefix(raw))
				} else {
					log.Info("token rejected", logger.Outcome(res.Outcome.String()), logger.TokenPrefix(raw))
				}
				appErr := VerificationError(res)
				if appErr.HTTPStatus == http.StatusUnauthorized {
					w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				}
				httperrors.WriteErrorCtx(w, r, appErr)
				return
			}

			log.Debug("token accepted", logger.AppName(res.Claims.Subject))
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), res.Claims)))
		})
	}
}

// VerificationError traduce un outcome no válido al AppError de la respuesta.
func VerificationError(res jwtx.Verification) *httperrors.AppError {
	switch res.Outcome {
	case jwtx.OutcomeConfigError:
		return httperrors.ErrVerificationKeyMissing.WithCause(res.Err)
	case jwtx.OutcomeExpired:
		return httperrors.ErrTokenExpired
	case jwtx.OutcomeInvalid:
		return httperrors.ErrTokenInvalid.
			WithMessage("Invalid token: " + res.Detail).
			WithDetail(res.Detail)
	case jwtx.OutcomeAudienceMismatch:
		return httperrors.ErrAudienceMismatch.
			WithMessage("Invalid audience: " + res.Detail).
			WithDetail(res.Detail)
	default:
		return httperrors.ErrVerificationFailed.WithCause(res.Err)
	}
}
