// Package token contiene el service de emisión de tokens y de la respuesta protegida.
package token

import (
	"context"
	"errors"
	"strings"
	"time"

	dto "github.com/dropDatabas3/apptoken/internal/http/dto/token"
	httperrors "github.com/dropDatabas3/apptoken/internal/http/errors"
	jwtx "github.com/dropDatabas3/apptoken/internal/jwt"
	"github.com/dropDatabas3/apptoken/internal/metrics"
	"github.com/dropDatabas3/apptoken/internal/observability/logger"
)

// TokenService define las operaciones de emisión y la vista de datos protegidos.
type TokenService interface {
	Issue(ctx context.Context, req dto.IssueTokenRequest) (*dto.IssueTokenResponse, error)
	SecureData(ctx context.Context, claims *jwtx.Claims) dto.SecureDataResponse
}

// IssueObserver recibe el resultado de cada emisión (métricas). Puede ser nil.
type IssueObserver interface {
	ObserveIssue(result string)
}

type Deps struct {
	Issuer   *jwtx.Issuer
	Observer IssueObserver
}

type tokenService struct {
	deps Deps
}

func NewTokenService(deps Deps) TokenService {
	return &tokenService{deps: deps}
}

const componentToken = "token"

func (s *tokenService) Issue(ctx context.Context, req dto.IssueTokenRequest) (*dto.IssueTokenResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentToken),
		logger.Op("Issue"),
	)

	if missing := req.MissingFields(); len(missing) > 0 {
		s.observe(metrics.IssueMalformed)
		log.Info("token issuance rejected", logger.String("result", metrics.IssueMalformed), logger.Any("missing", missing))
		return nil, httperrors.ErrMissingFields.WithDetail(strings.Join(missing, ", "))
	}

	tok, err := s.deps.Issuer.Issue(*req.AppNameB64, *req.AppSecretB64)
	if err != nil {
		appErr, result := mapIssueError(err)
		s.observe(result)
		if appErr.HTTPStatus >= 500 {
			log.Error("token issuance failed", logger.Err(err))
		} else {
			log.Info("token issuance rejected", logger.String("result", result))
		}
		return nil, appErr
	}

	s.observe(metrics.IssueOK)
	log.Info("token issued", logger.KeyID(tok.KeyID), logger.Int("expires_in", int(tok.ExpiresIn())))
	return &dto.IssueTokenResponse{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresIn:   tok.ExpiresIn(),
	}, nil
}

func (s *tokenService) observe(result string) {
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveIssue(result)
	}
}

// mapIssueError traduce los errores del Issuer al AppError y al label de métricas.
func mapIssueError(err error) (*httperrors.AppError, string) {
	switch {
	case errors.Is(err, jwtx.ErrNoSigningKey):
		return httperrors.ErrSigningKeyMissing.WithCause(err), metrics.IssueNoKey
	case errors.Is(err, jwtx.ErrMalformedInput):
		return httperrors.ErrMalformedInput.WithDetail(err.Error()).WithCause(err), metrics.IssueMalformed
	case errors.Is(err, jwtx.ErrUnauthorized):
		return httperrors.ErrInvalidCredentials, metrics.IssueUnauthorized
	default:
		return httperrors.ErrIssuanceFailed.WithCause(err), metrics.IssueFailed
	}
}

// SecureData arma la respuesta del recurso protegido con las claims verificadas.
func (s *tokenService) SecureData(ctx context.Context, claims *jwtx.Claims) dto.SecureDataResponse {
	logger.From(ctx).Debug("secure data served",
		logger.Layer("service"), logger.Op("SecureData"), logger.AppName(claims.Subject))

	return dto.SecureDataResponse{
		Message:      "Access granted",
		TokenPayload: claims.Map(),
		AppName:      claims.Subject,
		IssuedAt:     formatClaimTime(claims.IssuedAtTime()),
		ExpiresAt:    formatClaimTime(claims.ExpiresAtTime()),
	}
}

func formatClaimTime(t time.Time) string {
	if t.IsZero() {
		return time.Unix(0, 0).UTC().Format(time.RFC3339)
	}
	return t.UTC().Format(time.RFC3339)
}
