package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// AlgRS256 es el único algoritmo que firma y acepta el servicio.
const AlgRS256 = "RS256"

// KeyIDThumbprint como kid configurado => se deriva del thumbprint RFC 7638 de la pública.
const KeyIDThumbprint = "thumbprint"

// KeyMaterial agrupa el par de claves del servicio. Cualquiera de las dos puede faltar
// (estado degradado). Es inmutable después de construirse y se comparte sin locks.
type KeyMaterial struct {
	priv *rsa.PrivateKey
	pub  *rsa.PublicKey
	kid  string
}

// NewKeyMaterial parsea las claves PEM (PKCS#1/PKCS#8 y PKIX). Un slice vacío significa
// "clave ausente"; un PEM presente pero inválido es error.
func NewKeyMaterial(privPEM, pubPEM []byte, kid string) (*KeyMaterial, error) {
	km := &KeyMaterial{}
	if len(privPEM) > 0 {
		priv, err := jwtv5.ParseRSAPrivateKeyFromPEM(privPEM)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		km.priv = priv
	}
	if len(pubPEM) > 0 {
		pub, err := jwtv5.ParseRSAPublicKeyFromPEM(pubPEM)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		km.pub = pub
	}
	resolved, err := km.resolveKeyID(kid)
	if err != nil {
		return nil, err
	}
	km.kid = resolved
	return km, nil
}

// NewKeyMaterialFromKeys arma el material desde claves ya parseadas (tests, CLI).
func NewKeyMaterialFromKeys(priv *rsa.PrivateKey, pub *rsa.PublicKey, kid string) (*KeyMaterial, error) {
	if pub == nil && priv != nil {
		pub = &priv.PublicKey
	}
	km := &KeyMaterial{priv: priv, pub: pub}
	resolved, err := km.resolveKeyID(kid)
	if err != nil {
		return nil, err
	}
	km.kid = resolved
	return km, nil
}

func (k *KeyMaterial) resolveKeyID(kid string) (string, error) {
	kid = strings.TrimSpace(kid)
	if kid != KeyIDThumbprint {
		return kid, nil
	}
	pub := k.pub
	if pub == nil && k.priv != nil {
		pub = &k.priv.PublicKey
	}
	if pub == nil {
		// sin clave no hay thumbprint; el kid queda vacío
		return "", nil
	}
	return thumbprintKID(pub)
}

func (k *KeyMaterial) HasSigningKey() bool      { return k != nil && k.priv != nil }
func (k *KeyMaterial) HasVerificationKey() bool { return k != nil && k.pub != nil }

func (k *KeyMaterial) KeyID() string {
	if k == nil {
		return ""
	}
	return k.kid
}

func (k *KeyMaterial) Algorithm() string { return AlgRS256 }

// PublicKey devuelve la clave de verificación (nil si falta).
func (k *KeyMaterial) PublicKey() *rsa.PublicKey {
	if k == nil {
		return nil
	}
	return k.pub
}

// Sign firma las claims con RS256 y setea los headers kid/typ.
func (k *KeyMaterial) Sign(claims jwtv5.Claims) (string, error) {
	if !k.HasSigningKey() {
		return "", ErrNoSigningKey
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	if k.kid != "" {
		tk.Header["kid"] = k.kid
	}
	tk.Header["typ"] = "JWT"
	return tk.SignedString(k.priv)
}

// Parse verifica firma y estructura de raw y decodifica las claims en claims.
// No valida exp/iss/aud: eso es del Verifier.
func (k *KeyMaterial) Parse(raw string, claims jwtv5.Claims) error {
	if !k.HasVerificationKey() {
		return ErrNoVerificationKey
	}
	parser := jwtv5.NewParser(
		jwtv5.WithValidMethods([]string{AlgRS256}),
		jwtv5.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(raw, claims, k.keyfunc)
	return err
}

// keyfunc rechaza tokens cuyo kid no es el configurado. Un token sin kid se acepta.
func (k *KeyMaterial) keyfunc(t *jwtv5.Token) (any, error) {
	if kid, _ := t.Header["kid"].(string); kid != "" && k.kid != "" && kid != k.kid {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKID, kid)
	}
	if k.pub == nil {
		return nil, errors.New("no public key")
	}
	return k.pub, nil
}
