package main

import (
	"context"
	"fmt"

	"voice-dialer/internal/app"
	"voice-dialer/internal/config"
	"voice-dialer/pkg/logger"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dialctl",
		Short:         "Operator CLI for the voice dialer",
		Long:          "dialctl runs dial sessions synchronously, inspects call records and\nissues development access tokens. Configuration comes from the same\nenvironment as the API process.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newCallCmd(nil),
		newSessionsCmd(nil),
		newNormalizeCmd(),
		newTokenCmd(nil),
	)
	return cmd
}

// openApp loads configuration from env and builds the full object graph.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	a, err := app.New(ctx, cfg, logger.New(cfg.App.Env))
	if err != nil {
		return nil, err
	}
	return a, nil
}
