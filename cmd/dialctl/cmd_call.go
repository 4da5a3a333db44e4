package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"voice-dialer/internal/dialer"
	"voice-dialer/internal/reporting"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// callDeps is what "dialctl call" needs: a session runner and a way to report on it.
type callDeps struct {
	runner    dialer.Runner
	reporting *reporting.Service
	useAgent  bool
}

// newCallCmd creates "dialctl call". With nil deps the command builds them from env.
func newCallCmd(deps *callDeps) *cobra.Command {
	var (
		message string
		owner   string
		source  string
		noAgent bool
	)
	cmd := &cobra.Command{
		Use:   "call <number>...",
		Short: "Run one dial session in the foreground",
		Long:  "Dial every number in order, waiting out the configured pacing between\nnumbers, then print the session summary. Ctrl-C stops after the current number.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			d := deps
			if d == nil {
				a, err := openApp(ctx)
				if err != nil {
					return fmt.Errorf("call: %w", err)
				}
				defer a.Close(5 * time.Second)
				d = &callDeps{runner: a.Orchestrator, reporting: a.Reporting, useAgent: a.Config.Dialer.UseAgent}
			}

			s := dialer.Session{
				ID:              uuid.NewString(),
				Numbers:         args,
				MessageTemplate: message,
				OwnerID:         owner,
				SourceID:        source,
				UseAgent:        d.useAgent && !noAgent,
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s: dialing %d number(s)\n", s.ID, len(args))
			d.runner.Run(ctx, s)

			sum, err := d.reporting.SessionSummary(context.Background(), s.ID)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "session %s: no call records (all numbers invalid?)\n", s.ID)
				return nil
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "message template; {{number}} is replaced with the dialed number")
	cmd.Flags().StringVar(&owner, "owner", "", "owner id recorded on each attempt")
	cmd.Flags().StringVar(&source, "source", "", "source id recorded on each attempt")
	cmd.Flags().BoolVar(&noAgent, "no-agent", false, "do not attach the conversational agent")
	return cmd
}

func printSummary(w io.Writer, s reporting.CallsSummary) {
	if s.SessionID != "" {
		fmt.Fprintf(w, "session:     %s\n", s.SessionID)
	}
	fmt.Fprintf(w, "attempts:    %d (pending %d, in-progress %d, completed %d, failed %d)\n",
		s.TotalAttempts, s.PendingCalls, s.InProgressCalls, s.CompletedCalls, s.FailedCalls)
	fmt.Fprintf(w, "errors:      %d\n", s.AttemptsWithErrors)
	fmt.Fprintf(w, "agent:       %d attached, %d transcribed\n", s.AgentAttached, s.Transcribed)
	fmt.Fprintf(w, "duration:    %.0fs total, %.1fs avg\n", s.TotalDurationSeconds, s.AverageDurationSeconds)
	fmt.Fprintf(w, "settled:     %t\n", s.Settled)
}
