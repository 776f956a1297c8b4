package jwt

import "errors"

// Errores de emisión. Se envuelven con fmt.Errorf("%w") y se comparan con errors.Is.
var (
	// ErrNoSigningKey: el servicio no tiene clave privada cargada (config, no culpa del caller).
	ErrNoSigningKey = errors.New("signing key not configured")
	// ErrNoVerificationKey: el servicio no tiene clave pública cargada.
	ErrNoVerificationKey = errors.New("verification key not configured")
	// ErrMalformedInput: app_name/app_secret no son base64 válido.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnauthorized: app desconocida o secreto incorrecto (no se distingue a propósito).
	ErrUnauthorized = errors.New("invalid application credentials")
	// ErrIssuanceFailed: falló la firma del token.
	ErrIssuanceFailed = errors.New("token generation failed")
)

// Errores de verificación, uno por Outcome (ver Outcome.Err).
var (
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrAudienceMismatch   = errors.New("invalid audience")
	ErrVerificationFailed = errors.New("token verification failed")

	// ErrUnknownKID: el header kid no coincide con la clave configurada.
	ErrUnknownKID = errors.New("unknown kid")
)
