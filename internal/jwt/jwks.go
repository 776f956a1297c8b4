package jwt

import (
	"crypto"
	"crypto/rsa"
	_ "crypto/sha256" // registra crypto.SHA256 para el thumbprint
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// emptyJWKS es el documento publicado cuando no hay clave pública cargada.
var emptyJWKS = []byte(`{"keys":[]}`)

// JWKS arma el key set público (una sola clave, o vacío si falta la pública).
func (k *KeyMaterial) JWKS() (jwk.Set, error) {
	set := jwk.NewSet()
	if !k.HasVerificationKey() {
		return set, nil
	}
	key, err := publicJWK(k.pub, k.kid)
	if err != nil {
		return nil, err
	}
	if err := set.AddKey(key); err != nil {
		return nil, fmt.Errorf("jwks: add key: %w", err)
	}
	return set, nil
}

// JWKSJSON devuelve el documento {"keys":[...]} serializado.
func (k *KeyMaterial) JWKSJSON() ([]byte, error) {
	if !k.HasVerificationKey() {
		return append([]byte(nil), emptyJWKS...), nil
	}
	set, err := k.JWKS()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("jwks: marshal: %w", err)
	}
	return b, nil
}

func publicJWK(pub *rsa.PublicKey, kid string) (jwk.Key, error) {
	key, err := jwk.FromRaw(pub)
	if err != nil {
		return nil, fmt.Errorf("jwks: from raw: %w", err)
	}
	if kid != "" {
		if err := key.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, err
		}
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return nil, err
	}
	return key, nil
}

// thumbprintKID calcula el thumbprint RFC 7638 (SHA-256, base64url sin padding).
func thumbprintKID(pub *rsa.PublicKey) (string, error) {
	key, err := jwk.FromRaw(pub)
	if err != nil {
		return "", fmt.Errorf("thumbprint: %w", err)
	}
	tp, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(tp), nil
}
