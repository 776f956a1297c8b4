package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Outcome es el resultado cerrado de una verificación. Nunca se lanza: viaja en Verification.
type Outcome int

const (
	OutcomeValid Outcome = iota
	OutcomeExpired
	OutcomeInvalid // firma inválida, token malformado o issuer ajeno
	OutcomeAudienceMismatch
	OutcomeConfigError // no hay clave pública cargada
	OutcomeFailed      // cualquier otra falla no clasificada
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeExpired:
		return "expired"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeAudienceMismatch:
		return "audience_mismatch"
	case OutcomeConfigError:
		return "configuration_error"
	default:
		return "verification_failed"
	}
}

// Err mapea el outcome a su sentinel (nil para Valid).
func (o Outcome) Err() error {
	switch o {
	case OutcomeValid:
		return nil
	case OutcomeExpired:
		return ErrTokenExpired
	case OutcomeInvalid:
		return ErrTokenInvalid
	case OutcomeAudienceMismatch:
		return ErrAudienceMismatch
	case OutcomeConfigError:
		return ErrNoVerificationKey
	default:
		return ErrVerificationFailed
	}
}

// Verification lleva el outcome, las claims (solo si Valid) y el detalle para el caller.
type Verification struct {
	Outcome Outcome
	Claims  *Claims
	Detail  string
	Err     error
}

func (v Verification) Valid() bool { return v.Outcome == OutcomeValid }

// AudienceSet responde si un nombre de app es conocido (credentials.Store lo implementa).
type AudienceSet interface {
	Has(appName string) bool
}

// Verifier valida tokens presentados como bearer. Sin estado: dos llamadas con el mismo
// token y el mismo reloj dan el mismo resultado.
type Verifier struct {
	iss                   string
	keys                  *KeyMaterial
	apps                  AudienceSet
	acceptServiceAudience bool
	now                   func() time.Time
}

type VerifierOption func(*Verifier)

// WithVerifierClock inyecta el reloj (tests).
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// WithServiceAudience controla si aud == identidad del servicio cuenta como audiencia válida.
// Con false solo valen nombres de apps registradas.
func WithServiceAudience(accept bool) VerifierOption {
	return func(v *Verifier) { v.acceptServiceAudience = accept }
}

func NewVerifier(iss string, keys *KeyMaterial, apps AudienceSet, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		iss:                   iss,
		keys:                  keys,
		apps:                  apps,
		acceptServiceAudience: true,
		now:                   time.Now,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// =================================================================================
// VERIFY
// =================================================================================

// Verify evalúa el token y devuelve un único outcome. El orden importa: el primer
// chequeo que falla define el resultado.
//
//  1. sin clave pública                     => OutcomeConfigError
//  2. firma, alg, kid o estructura inválida => OutcomeInvalid (Detail = motivo)
//  3. iss distinto del propio               => OutcomeInvalid ("invalid issuer")
//  4. sin exp, o now >= exp                 => OutcomeExpired
//  5. ninguna aud es app conocida (ni el issuer, si se acepta) => OutcomeAudienceMismatch
//  6. resto                                 => OutcomeValid con las claims
//
// Un token vencido con audiencia ajena se reporta como vencido. Cualquier falla no
// clasificada, incluido un panic dentro del parseo o del registro de apps, termina
// en OutcomeFailed sin claims.
func (v *Verifier) Verify(raw string) (res Verification) {
	defer func() {
		if r := recover(); r != nil {
			res = Verification{
				Outcome: OutcomeFailed,
				Detail:  "token verification failed",
				Err:     fmt.Errorf("%w: panic: %v", ErrVerificationFailed, r),
			}
		}
	}()

	if !v.keys.HasVerificationKey() {
		return Verification{Outcome: OutcomeConfigError, Detail: "public key not loaded", Err: ErrNoVerificationKey}
	}

	claims := &Claims{}
	if err := v.keys.Parse(strings.TrimSpace(raw), claims); err != nil {
		return classifyParseError(err)
	}

	if claims.Issuer != v.iss {
		return Verification{
			Outcome: OutcomeInvalid,
			Detail:  "invalid issuer",
			Err:     fmt.Errorf("%w: issuer %q", ErrTokenInvalid, claims.Issuer),
		}
	}

	// exp faltante cuenta como vencido
	if exp := claims.ExpiresAtTime(); exp.IsZero() || !v.now().Before(exp) {
		return Verification{Outcome: OutcomeExpired, Detail: "token has expired", Err: ErrTokenExpired}
	}

	if !v.audienceAllowed(claims.Audience) {
		aud := strings.Join(claims.Audience, ", ")
		return Verification{
			Outcome: OutcomeAudienceMismatch,
			Detail:  aud,
			Err:     fmt.Errorf("%w: %s", ErrAudienceMismatch, aud),
		}
	}

	return Verification{Outcome: OutcomeValid, Claims: claims}
}

func (v *Verifier) audienceAllowed(aud jwtv5.ClaimStrings) bool {
	for _, a := range aud {
		if v.acceptServiceAudience && a == v.iss {
			return true
		}
		if v.apps != nil && v.apps.Has(a) {
			return true
		}
	}
	return false
}

// classifyParseError separa los errores de firma/estructura de las fallas inesperadas.
func classifyParseError(err error) Verification {
	switch {
	case errors.Is(err, ErrNoVerificationKey):
		return Verification{Outcome: OutcomeConfigError, Detail: "public key not loaded", Err: err}
	case errors.Is(err, jwtv5.ErrTokenMalformed),
		errors.Is(err, jwtv5.ErrTokenSignatureInvalid),
		errors.Is(err, jwtv5.ErrTokenUnverifiable),
		errors.Is(err, jwtv5.ErrTokenInvalidClaims):
		return Verification{
			Outcome: OutcomeInvalid,
			Detail:  err.Error(),
			Err:     fmt.Errorf("%w: %w", ErrTokenInvalid, err),
		}
	default:
		return Verification{
			Outcome: OutcomeFailed,
			Detail:  "token verification failed",
			Err:     fmt.Errorf("%w: %w", ErrVerificationFailed, err),
		}
	}
}
