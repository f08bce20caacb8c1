package cli

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vytor/lingoflash/internal/app"
	"github.com/vytor/lingoflash/internal/models"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local cache",
	}
	cmd.AddCommand(newCacheStatusCmd(), newCacheClearCmd())
	return cmd
}

func newCacheStatusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show row counts per cached kind and remote reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				stats, err := a.Coordinator.CacheStats(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"online": a.Coordinator.Online(),
						"ttl":    a.Coordinator.TTL().String(),
						"counts": stats,
					})
				}

				kinds := make([]string, 0, len(stats))
				for k := range stats {
					kinds = append(kinds, string(k))
				}
				sort.Strings(kinds)

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "remote\t%s\n", onlineLabel(a.Coordinator.Online()))
				fmt.Fprintf(w, "ttl\t%s\n", a.Coordinator.TTL())
				for _, k := range kinds {
					fmt.Fprintf(w, "%s\t%d\n", k, stats[models.EntityKind(k)])
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [kind]",
		Short: "Clear one cached kind, or everything",
		Long: `Clear one cached kind, or everything when no kind is given.

Kinds: levels, categories, flashcards, progress, mutations, freshness, all.
Clearing mutations discards progress updates that were never synced.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := models.KindAll
			if len(args) == 1 {
				k, err := models.ParseEntityKind(args[0])
				if err != nil {
					return err
				}
				kind = k
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Coordinator.ClearCache(ctx, kind); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", kind)
				return nil
			})
		},
	}
}

func onlineLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
