package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/wire"
)

// MaintainCmd returns the maintain command.
func MaintainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: "Run one maintenance sweep",
		Long: `Run a single maintenance cycle: release expired claims, auto-close
stale escalations, and purge terminal records past retention. The serve
command runs the same sweep on an interval; this is for ad-hoc use.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := wire.MaintenanceService().RunSweep(context.Background())

			fmt.Printf("Claims released: %d\n", result.ClaimsReleased)
			fmt.Printf("Auto-closed: %d\n", result.AutoClosed)
			fmt.Printf("Purged: %d\n", result.Purged)
			for _, err := range result.Errors {
				fmt.Printf("Error: %v\n", err)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("sweep finished with %d errors", len(result.Errors))
			}
			return nil
		},
	}
}
