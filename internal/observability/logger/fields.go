package logger

import (
	"time"

	"go.uber.org/zap"
)

// Field es un alias para no importar zap solo por el tipo.
type Field = zap.Field

// ─── HTTP ───

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }

// DurationMs registra la duración del request en milisegundos.
func DurationMs(d time.Duration) zap.Field {
	return zap.Int64("duration_ms", d.Milliseconds())
}

// ─── Dominio ───

// AppName identifica la aplicación cliente (nunca el secreto).
func AppName(v string) zap.Field { return zap.String("app_name", v) }

// KeyID es el kid de la clave de firma/verificación.
func KeyID(v string) zap.Field { return zap.String("kid", v) }

// Outcome es el resultado de una verificación de token.
func Outcome(v string) zap.Field { return zap.String("outcome", v) }

// TokenPrefix registra solo los primeros caracteres de un token.
func TokenPrefix(raw string) zap.Field {
	const n = 16
	if len(raw) > n {
		raw = raw[:n] + "..."
	}
	return zap.String("token_prefix", raw)
}

// ─── Sistema ───

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }
func Count(v int) zap.Field        { return zap.Int("count", v) }

func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
