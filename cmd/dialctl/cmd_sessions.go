package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"voice-dialer/internal/calls"
	"voice-dialer/internal/reporting"

	"github.com/spf13/cobra"
)

type sessionsDeps struct {
	store     calls.Store
	reporting *reporting.Service
}

// newSessionsCmd creates "dialctl sessions <id>". With nil deps the command builds them from env.
func newSessionsCmd(deps *sessionsDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions <session-id>",
		Short: "Show the call records and summary of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d := deps
			if d == nil {
				a, err := openApp(ctx)
				if err != nil {
					return fmt.Errorf("sessions: %w", err)
				}
				defer a.Close(time.Second)
				d = &sessionsDeps{store: a.Store, reporting: a.Reporting}
			}

			rows, err := d.store.FindBySession(ctx, args[0])
			if err != nil {
				return fmt.Errorf("sessions: %w", err)
			}
			if len(rows) == 0 {
				return fmt.Errorf("sessions: %s: %w", args[0], calls.ErrNotFound)
			}
			out := cmd.OutOrStdout()
			for _, a := range rows {
				printAttempt(out, a)
			}
			fmt.Fprintln(out)

			sum, err := d.reporting.SessionSummary(ctx, args[0])
			if err != nil && !errors.Is(err, calls.ErrNotFound) {
				return fmt.Errorf("sessions: %w", err)
			}
			printSummary(out, sum)
			return nil
		},
	}
}

func printAttempt(w io.Writer, a calls.CallAttempt) {
	fmt.Fprintf(w, "%-16s %-12s call=%s", a.Phone, a.Status, orDash(a.TelephonyCallID))
	if a.AgentCallID != "" {
		fmt.Fprintf(w, " agent=%s", a.AgentCallID)
	}
	if a.Error != "" {
		fmt.Fprintf(w, " error=%q", a.Error)
	}
	fmt.Fprintln(w)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
