package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/BizDesk/app/repository"
	"github.com/ManuelReschke/BizDesk/internal/pkg/billing"
	"github.com/ManuelReschke/BizDesk/internal/pkg/config"
	"github.com/ManuelReschke/BizDesk/internal/pkg/database"
	"github.com/ManuelReschke/BizDesk/internal/pkg/identity"
)

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay [webhook-event-id]",
		Short: "Re-run a stored, verified webhook event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid webhook event id %q", args[0])
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			database.SetupDatabase(cfg.DatabaseDSN)
			db := database.GetDB()

			accounts := identity.NewProvisioner(repository.NewFactory(db).GetUserRepository())
			svc := billing.NewService(billing.NewRepository(db), billing.NewStripeProvider(cfg.StripeSecretKey), accounts)
			if err := svc.ReplayWebhookEvent(cmd.Context(), uint(id)); err != nil {
				return fmt.Errorf("replay webhook event %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "webhook event %d reprocessed\n", id)
			return nil
		},
	}
}
