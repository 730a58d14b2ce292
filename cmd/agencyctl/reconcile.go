package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/bootstrap"
)

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Abonnementen met Stripe synchroniseren",
		Long:  "Voert openstaande wijzigingen opnieuw uit en neemt afwijkingen van Stripe over, net als de cronjob.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := bootstrap.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			report, err := s.Reconciler.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		},
	}
}
