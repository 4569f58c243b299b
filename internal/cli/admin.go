package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// adminTokenHeader matches the header the server checks on admin routes
const adminTokenHeader = "X-Admin-Token"

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator commands",
	}

	cmd.PersistentFlags().StringVar(&cfg.AdminToken, "admin-token", cfg.AdminToken, "Admin token (env: TTT_ADMIN_TOKEN)")
	cmd.AddCommand(newAdminReconcileCmd())

	return cmd
}

func newAdminReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute every player's busy session from the session store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.AdminToken == "" {
				return fmt.Errorf("--admin-token is required")
			}
			client.SetHeader(adminTokenHeader, cfg.AdminToken)

			var result ReconcileReport
			if err := client.Post("/api/v1/admin/reconcile", nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}
