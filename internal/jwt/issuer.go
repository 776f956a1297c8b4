package jwt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// TokenTypeBearer es el token_type que se devuelve al caller.
const TokenTypeBearer = "bearer"

// DefaultTTL de los tokens de aplicación (8h).
const DefaultTTL = 8 * time.Hour

// Authenticator valida credenciales de aplicación (credentials.Store lo implementa).
type Authenticator interface {
	Authenticate(appName, secret string) bool
}

// IssuedToken es el resultado de una emisión exitosa.
type IssuedToken struct {
	AccessToken string
	TokenType   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	KeyID       string
}

// ExpiresIn en segundos enteros.
func (t *IssuedToken) ExpiresIn() int64 {
	return int64(t.ExpiresAt.Sub(t.IssuedAt) / time.Second)
}

// Issuer emite tokens firmados para apps que presentan credenciales válidas.
// No guarda estado entre llamadas.
type Issuer struct {
	iss  string
	keys *KeyMaterial
	apps Authenticator
	ttl  time.Duration
	now  func() time.Time
}

type IssuerOption func(*Issuer)

// WithIssuerTTL cambia el TTL (se trunca a segundos enteros).
func WithIssuerTTL(d time.Duration) IssuerOption {
	return func(i *Issuer) {
		if d >= time.Second {
			i.ttl = d.Truncate(time.Second)
		}
	}
}

// WithIssuerClock inyecta el reloj (tests).
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

func NewIssuer(iss string, keys *KeyMaterial, apps Authenticator, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		iss:  iss,
		keys: keys,
		apps: apps,
		ttl:  DefaultTTL,
		now:  time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

func (i *Issuer) TTL() time.Duration { return i.ttl }
func (i *Issuer) Identity() string   { return i.iss }

// Issue recibe app_name y app_secret codificados en base64 y devuelve un token firmado.
//
// Orden de chequeos:
//   - sin clave privada => ErrNoSigningKey
//   - base64/UTF-8 inválido => ErrMalformedInput
//   - app desconocida o secreto incorrecto => ErrUnauthorized
//   - error al firmar => ErrIssuanceFailed
func (i *Issuer) Issue(appNameEncoded, appSecretEncoded string) (*IssuedToken, error) {
	if !i.keys.HasSigningKey() {
		return nil, ErrNoSigningKey
	}
	appName, err := DecodeInput(appNameEncoded)
	if err != nil {
		return nil, fmt.Errorf("%w: app_name: %w", ErrMalformedInput, err)
	}
	secret, err := DecodeInput(appSecretEncoded)
	if err != nil {
		return nil, fmt.Errorf("%w: app_secret: %w", ErrMalformedInput, err)
	}
	return i.IssueFor(appName, secret)
}

// IssueFor es Issue con credenciales ya decodificadas (CLI).
func (i *Issuer) IssueFor(appName, secret string) (*IssuedToken, error) {
	if !i.keys.HasSigningKey() {
		return nil, ErrNoSigningKey
	}
	if i.apps == nil || !i.apps.Authenticate(appName, secret) {
		return nil, ErrUnauthorized
	}

	iat := i.now().UTC().Truncate(time.Second)
	exp := iat.Add(i.ttl)
	claims := &Claims{
		AppName: appName,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.iss,
			Subject:   appName,
			Audience:  jwtv5.ClaimStrings{i.iss},
			IssuedAt:  jwtv5.NewNumericDate(iat),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}

	signed, err := i.keys.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIssuanceFailed, err)
	}
	return &IssuedToken{
		AccessToken: signed,
		TokenType:   TokenTypeBearer,
		IssuedAt:    iat,
		ExpiresAt:   exp,
		KeyID:       i.keys.KeyID(),
	}, nil
}

// =================================================================================
// DECODIFICACIÓN DE ENTRADAS
// =================================================================================

// DecodeInput decodifica un campo del body de /issue-token.
//
// Primero intenta base64 estándar con padding, que es lo que mandan los clientes.
// Si falla prueba, en este orden, estándar sin padding, URL-safe y URL-safe sin
// padding, y se queda con la primera que decodifique. Si ninguna sirve devuelve
// el error de la estándar, que es el que describe mejor el input.
// El resultado tiene que ser UTF-8 válido: nombres y secretos son texto.
func DecodeInput(s string) (string, error) {
	s = strings.TrimSpace(s)
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var ok bool
		for _, enc := range []*base64.Encoding{base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
			if alt, altErr := enc.DecodeString(s); altErr == nil {
				b, ok = alt, true
				break
			}
		}
		if !ok {
			return "", err
		}
	}
	if !utf8.Valid(b) {
		return "", errors.New("decoded value is not valid UTF-8")
	}
	return string(b), nil
}
