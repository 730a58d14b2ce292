// Command agencyctl is the operator CLI: schema migrations, admin accounts,
// manual reconciliation and prompt export.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/bootstrap"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Fout:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agencyctl",
		Short:         "Beheertool voor AgencyDesk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newCreateAdminCmd())
	root.AddCommand(newReconcileCmd())
	root.AddCommand(newPromptCmd())

	return root
}

// loadConfig is shared by every subcommand; the .env file is optional.
func loadConfig() (*config.Config, error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("configuratie laden: %w", err)
	}
	return cfg, nil
}
