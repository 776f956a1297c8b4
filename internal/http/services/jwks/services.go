// Package jwks contiene el service que publica la clave pública como JWKS.
package jwks

import (
	"context"
	"encoding/json"
	"sync"

	jwtx "github.com/dropDatabas3/apptoken/internal/jwt"
	"github.com/dropDatabas3/apptoken/internal/observability/logger"
)

type JWKSService interface {
	GetJWKS(ctx context.Context) (json.RawMessage, error)
}

type jwksService struct {
	keys *jwtx.KeyMaterial

	// las claves no cambian en runtime: el documento se arma una vez
	once sync.Once
	doc  []byte
	err  error
}

func NewJWKSService(keys *jwtx.KeyMaterial) JWKSService {
	return &jwksService{keys: keys}
}

func (s *jwksService) GetJWKS(ctx context.Context) (json.RawMessage, error) {
	s.once.Do(func() {
		s.doc, s.err = s.keys.JWKSJSON()
	})
	if s.err != nil {
		logger.From(ctx).Error("jwks build failed",
			logger.Layer("service"), logger.Op("GetJWKS"), logger.Err(s.err))
		return nil, s.err
	}
	return s.doc, nil
}
