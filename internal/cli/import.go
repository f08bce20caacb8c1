package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vytor/lingoflash/internal/app"
	"github.com/vytor/lingoflash/internal/importer"
	"github.com/vytor/lingoflash/internal/models"
)

func newImportCmd() *cobra.Command {
	cfg := importer.DefaultConfig()
	var (
		levelID string
		mode    string
	)

	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Append flashcards from a spreadsheet to a level",
		Long: `Append flashcards from a spreadsheet to a level.

Rows hold source text, target text, category name and mode in columns
A to D by default. Missing categories are created. Needs the remote.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if levelID == "" {
				return errors.New("--level is required")
			}
			m, err := models.ParseMode(mode)
			if err != nil {
				return err
			}
			if m != "" {
				cfg.DefaultMode = m
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if !a.Coordinator.Online() {
					return errors.New("remote unreachable, import needs a connection")
				}
				result, err := importer.ImportFlashcards(ctx, args[0], levelID, cfg, a.Content)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "processed %d, created %d, skipped %d\n", result.Processed, result.Created, result.Skipped)
				for _, e := range result.Errors {
					fmt.Fprintf(out, "  row %d: %s\n", e.Row, e.Err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&levelID, "level", "l", "", "level id to import into")
	cmd.Flags().StringVar(&cfg.SheetName, "sheet", "", "sheet name (default: first sheet)")
	cmd.Flags().IntVar(&cfg.StartRow, "start-row", cfg.StartRow, "first data row, 1-based")
	cmd.Flags().StringVar(&mode, "mode", "", "mode for rows without one (vocabulary|sentences)")
	return cmd
}
