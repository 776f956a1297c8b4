package jwt

import (
	"errors"
	"os"
	"strings"

	"github.com/dropDatabas3/apptoken/internal/observability/logger"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// KeySource indica de dónde leer el par de claves.
type KeySource struct {
	PrivateKeyPath string
	PublicKeyPath  string
	KeyID          string
}

// LoadKeyMaterial lee las claves una sola vez al arrancar. Nunca falla: un archivo
// ausente o ilegible deja esa clave en nil y se loguea (el servicio arranca degradado).
func LoadKeyMaterial(src KeySource) *KeyMaterial {
	log := logger.L().With(logger.Component("keys"))
	km := &KeyMaterial{}

	if b := readKeyFile(log, "private", src.PrivateKeyPath); b != nil {
		if priv, err := jwtv5.ParseRSAPrivateKeyFromPEM(b); err != nil {
			log.Error("private key unreadable", zap.String("path", src.PrivateKeyPath), logger.Err(err))
		} else {
			km.priv = priv
		}
	}
	if b := readKeyFile(log, "public", src.PublicKeyPath); b != nil {
		if pub, err := jwtv5.ParseRSAPublicKeyFromPEM(b); err != nil {
			log.Error("public key unreadable", zap.String("path", src.PublicKeyPath), logger.Err(err))
		} else {
			km.pub = pub
		}
	}

	kid, err := km.resolveKeyID(src.KeyID)
	if err != nil {
		log.Warn("key id thumbprint failed, using configured value", logger.Err(err))
		kid = strings.TrimSpace(src.KeyID)
	}
	km.kid = kid

	log.Info("key material loaded",
		logger.KeyID(km.kid),
		logger.Bool("has_private_key", km.HasSigningKey()),
		logger.Bool("has_public_key", km.HasVerificationKey()),
	)
	return km
}

func readKeyFile(log *zap.Logger, which, path string) []byte {
	if strings.TrimSpace(path) == "" {
		log.Warn(which + " key path not configured")
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn(which+" key file not found", zap.String("path", path))
		} else {
			log.Error(which+" key file read failed", zap.String("path", path), logger.Err(err))
		}
		return nil
	}
	return b
}
