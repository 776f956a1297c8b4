package jwt

import (
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Claims es el set fijo de claims de un token de aplicación.
// sub y app_name llevan el mismo valor (app_name es por comodidad del caller).
type Claims struct {
	AppName string `json:"app_name"`
	jwtv5.RegisteredClaims
}

// IssuedAtTime devuelve iat como time.Time (zero si falta).
func (c *Claims) IssuedAtTime() time.Time {
	if c == nil || c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime devuelve exp como time.Time (zero si falta).
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Map expone las claims como map plano (lo que ve el endpoint protegido).
func (c *Claims) Map() map[string]any {
	if c == nil {
		return nil
	}
	out := map[string]any{
		"iss":      c.Issuer,
		"sub":      c.Subject,
		"app_name": c.AppName,
	}
	switch len(c.Audience) {
	case 0:
	case 1:
		out["aud"] = c.Audience[0]
	default:
		out["aud"] = []string(c.Audience)
	}
	if c.IssuedAt != nil {
		out["iat"] = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		out["exp"] = c.ExpiresAt.Unix()
	}
	return out
}
