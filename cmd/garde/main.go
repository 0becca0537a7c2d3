package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pharmagarde/pharmagarde/internal/client"
	"github.com/pharmagarde/pharmagarde/internal/config"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

func main() {
	rootCmd := &cobra.Command{
		Use:           "garde",
		Short:         "Find pharmacies and health facilities on duty",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("api", "", "API base URL (overrides GARDE_API_URL)")

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(discoverCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// clientConfig loads the client settings and applies the --api override.
func clientConfig(cmd *cobra.Command) (*config.ClientConfig, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	if api, _ := cmd.Flags().GetString("api"); api != "" {
		cfg.APIURL = api
	}
	return cfg, nil
}

func newAPI(cmd *cobra.Command) (*client.API, *config.ClientConfig, error) {
	cfg, err := clientConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	return client.NewAPI(cfg.APIURL, cfg.Token, cfg.Timeout), cfg, nil
}
