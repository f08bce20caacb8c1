package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vytor/lingoflash/internal/app"
)

func newSyncCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replay queued progress updates against the remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.Coordinator.SyncPending(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), report)
				}
				out := cmd.OutOrStdout()
				if report.Skipped {
					fmt.Fprintln(out, "remote unreachable, nothing synced")
					return nil
				}
				fmt.Fprintf(out, "synced %d, failed %d, superseded %d, purged %d\n", len(report.Synced), len(report.Failed), len(report.Superseded), report.Purged)
				for _, f := range report.Failed {
					fmt.Fprintf(out, "  %s: %s\n", f.ID, f.Err)
				}
				if len(report.Failed) > 0 {
					return fmt.Errorf("%d mutations still pending", len(report.Failed))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
