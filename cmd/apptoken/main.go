// Command apptoken emite y verifica tokens firmados (RS256) para aplicaciones.
//
//	apptoken serve                        # servidor HTTP
//	apptoken jwks                         # imprime el JWKS
//	apptoken issue --app acme --secret x  # emite un token localmente
//	apptoken verify <token>               # verifica un token
//	apptoken status                       # estado de claves y credenciales
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/apptoken/internal/config"
	"github.com/dropDatabas3/apptoken/internal/observability/logger"
)

var version = "dev"

type globalOpts struct {
	configPath string
	envFile    string
	out        string // "json" | "text"
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{
		configPath: envOr("APPTOKEN_CONFIG", "config.yaml"),
		envFile:    ".env",
		out:        "json",
	}

	root := &cobra.Command{
		Use:           "apptoken",
		Short:         "Emisión y verificación de tokens de aplicación (RS256)",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "Archivo YAML de configuración (env APPTOKEN_CONFIG)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", opts.envFile, "Archivo .env a cargar antes de la config")
	root.PersistentFlags().StringVar(&opts.out, "out", opts.out, "Formato de salida: json|text")

	root.AddCommand(
		newServeCmd(opts),
		newJWKSCmd(opts),
		newIssueCmd(opts),
		newVerifyCmd(opts),
		newStatusCmd(opts),
	)
	return root
}

// loadConfig carga .env (si existe), la config y deja el logger inicializado.
func loadConfig(opts *globalOpts) (*config.Config, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "apptoken",
		Version:     version,
	})
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
