package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/bremersee/authman/internal/config"
	"github.com/bremersee/authman/internal/credentials"
	"github.com/bremersee/authman/internal/observability/logger"
)

func newClientTokenCmd(conf func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "client-token",
		Short: "Request an access token with the configured credentials and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := conf()
			ctx := logger.ToContext(cmd.Context(), logger.L().With(logger.Component("client-token")))

			if cfg.Credentials.TokenURL == "" {
				return errors.New("credentials.token_url is not configured")
			}

			var secret credentials.SecretSource = credentials.StaticSecret(cfg.Credentials.ClientSecret)
			if cfg.Credentials.SecretFromRegistry {
				st, err := openStorage(ctx, cfg)
				if err != nil {
					return err
				}
				defer st.close()
				box, err := openSecretBox(cfg)
				if err != nil {
					return fmt.Errorf("secretbox: %w", err)
				}
				secret = credentials.RegistrySecret{Registry: st.clients, ClientID: cfg.Credentials.ClientID, Box: box}
			}

			client := credentials.New(credentials.Config{
				TokenURL:   cfg.Credentials.TokenURL,
				ClientID:   cfg.Credentials.ClientID,
				Scopes:     cfg.Credentials.Scopes,
				Username:   cfg.Credentials.Username,
				Password:   cfg.Credentials.Password,
				Secret:     secret,
				HTTPClient: &http.Client{Timeout: cfg.Credentials.Timeout},
			})

			tok, err := client.AccessToken(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
}
