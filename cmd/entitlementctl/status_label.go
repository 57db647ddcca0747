package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/BizDesk/internal/pkg/entitlements"
)

func statusLabelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status-label [status]",
		Short: "Print the display label for a subscription status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), entitlements.FormatStatus(args[0]))
			return nil
		},
	}
}
