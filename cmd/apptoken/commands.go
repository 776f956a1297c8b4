package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/apptoken/internal/http/server"
)

func newJWKSCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "jwks",
		Short: "Imprime el JWKS con la clave pública cargada",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			doc, err := server.BuildCore(cfg).Keys.JWKSJSON()
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), doc)
		},
	}
}

func newIssueCmd(opts *globalOpts) *cobra.Command {
	var app, secret string
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Emite un token localmente (credenciales en texto plano)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			tok, err := server.BuildCore(cfg).Issuer.IssueFor(app, secret)
			if err != nil {
				return err
			}
			if opts.out == "text" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"access_token": tok.AccessToken,
				"token_type":   tok.TokenType,
				"expires_in":   tok.ExpiresIn(),
				"expires_at":   tok.ExpiresAt.Format(time.RFC3339),
				"kid":          tok.KeyID,
			})
		},
	}
	cmd.Flags().StringVar(&app, "app", "", "Nombre de la aplicación")
	cmd.Flags().StringVar(&secret, "secret", "", "Secreto de la aplicación")
	_ = cmd.MarkFlagRequired("app")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}

func newVerifyCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verifica un token e imprime outcome y claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			res := server.BuildCore(cfg).Verifier.Verify(strings.TrimSpace(args[0]))
			out := map[string]any{"outcome": res.Outcome.String()}
			if res.Detail != "" {
				out["detail"] = res.Detail
			}
			if res.Claims != nil {
				out["claims"] = res.Claims.Map()
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !res.Valid() {
				return fmt.Errorf("token %s", res.Outcome)
			}
			return nil
		},
	}
}

func newStatusCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Estado de claves y credenciales cargadas",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			core := server.BuildCore(cfg)
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"has_private_key": core.Keys.HasSigningKey(),
				"has_public_key":  core.Keys.HasVerificationKey(),
				"key_id":          core.Keys.KeyID(),
				"loaded_apps":     core.Apps.Len(),
				"apps":            core.Apps.Names(),
				"issuer":          cfg.JWT.Issuer,
				"ttl_seconds":     int64(cfg.TokenTTL() / time.Second),
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRaw(w io.Writer, b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		_, err = w.Write(b)
		return err
	}
	return printJSON(w, v)
}
