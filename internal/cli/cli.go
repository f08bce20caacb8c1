// Package cli implements cachectl, the operator tool for the local cache.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vytor/lingoflash/internal/app"
	"github.com/vytor/lingoflash/internal/config"
	"github.com/vytor/lingoflash/internal/logger"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "cachectl",
		Short: "Inspect and maintain the LingoFlash offline cache",
		Long: `Inspect and maintain the LingoFlash offline cache.

Configuration is read from the environment and an optional .env file,
the same way the server reads it.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logger.WARN
			if verbose {
				level = logger.DEBUG
			}
			logger.SetDefault(logger.New(logger.WithLevel(level), logger.WithOutput(cmd.ErrOrStderr())))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newCacheCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newImportCmd())
	return root
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// withApp loads the configuration, builds the app and probes the remote once
// so that commands see the current reachability.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := logger.NewContext(cmd.Context(), logger.Default())
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Monitor.Probe(ctx)
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
