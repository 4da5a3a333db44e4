package main

import (
	"fmt"

	"voice-dialer/internal/phone"

	"github.com/spf13/cobra"
)

func newNormalizeCmd() *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "normalize <number>...",
		Short: "Print the canonical E.164 form of each number",
		Long:  "Print each input with its canonical E.164 form, or \"invalid\" when it\ncannot be dialed. Uses the same rules as a dial session.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, raw := range args {
				canonical, ok := phone.Normalize(raw, region)
				if !ok {
					canonical = "invalid"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", raw, canonical)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "default region (ISO 3166 alpha-2) for numbers without a country code")
	return cmd
}
