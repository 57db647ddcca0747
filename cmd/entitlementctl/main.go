package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/BizDesk/internal/pkg/env"
	"github.com/ManuelReschke/BizDesk/internal/pkg/logging"
)

var Version = "dev"

func main() {
	env.SetupEnvFile()
	logging.Setup()

	rootCmd := &cobra.Command{
		Use:           "entitlementctl",
		Short:         "Inspect and repair BizDesk subscription entitlements",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(statusLabelCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
