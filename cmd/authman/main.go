// Command authman runs the token and approval broker.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bremersee/authman/internal/config"
	"github.com/bremersee/authman/internal/observability/logger"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath = envOr("AUTHMAN_CONFIG", "")
		envFile    = ".env"
		cfg        *config.Config
	)

	root := &cobra.Command{
		Use:           "authman",
		Short:         "OAuth2 token and approval broker",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" && fileExists(envFile) {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load %s: %w", envFile, err)
				}
			}
			c, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg = c
			logger.Init(logger.Config{
				Env:         c.App.Env,
				Level:       c.App.LogLevel,
				ServiceName: c.App.Name,
				Version:     version,
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", configPath, "YAML config file (env AUTHMAN_CONFIG); empty means env only")
	root.PersistentFlags().StringVar(&envFile, "env-file", envFile, "dotenv file loaded before the config when it exists")

	conf := func() *config.Config { return cfg }
	root.AddCommand(newServeCmd(conf))
	root.AddCommand(newPurgeCmd(conf))
	root.AddCommand(newClientTokenCmd(conf))
	return root
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
