package main

import (
	"fmt"
	"time"

	"voice-dialer/internal/auth"
	"voice-dialer/internal/config"
	"voice-dialer/internal/rbac"

	"github.com/spf13/cobra"
)

// newTokenCmd creates "dialctl token". With a nil manager the signing key comes from env.
func newTokenCmd(m *auth.Manager) *cobra.Command {
	var (
		user string
		role string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return fmt.Errorf("token: --user is required")
			}
			if !rbac.Valid(role) {
				return fmt.Errorf("token: unknown role %q (want admin, operator or viewer)", role)
			}
			mgr := m
			if mgr == nil {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("token: config: %w", err)
				}
				if cfg.IsProduction() {
					return fmt.Errorf("token: refusing to mint tokens in production")
				}
				if mgr, err = auth.NewManager(cfg.Auth); err != nil {
					return fmt.Errorf("token: %w", err)
				}
			}
			tok, err := mgr.IssueAccess(time.Now(), user, role)
			if err != nil {
				return fmt.Errorf("token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id (becomes the owner of triggered sessions)")
	cmd.Flags().StringVar(&role, "role", rbac.RoleOperator, "role: admin, operator or viewer")
	return cmd
}
