// Package logger provides the process-wide Zap logger used by apptoken.
//
// # Design Decisions
//
//   - Singleton: se inicializa una sola vez con Init() desde cmd/apptoken.
//   - Scoping por request: WithLogging inyecta un logger con request_id/method/path
//     en el contexto; From(ctx) lo recupera (o cae al singleton).
//   - "dev" escribe consola con colores, "prod" escribe JSON.
//   - Nunca se loguean secretos ni tokens completos (ver TokenPrefix).
//
// # Usage
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
//	defer logger.Sync()
//
//	log := logger.From(ctx)
//	log.Info("token issued", logger.AppName(name), logger.KeyID(kid))
package logger
