package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Manage the board's themes",
}

var themesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the themes on the board",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		themes, err := services.Workspace.Board.CurrentThemes(cmd.Context())
		if err != nil {
			return err
		}
		if len(themes) == 0 {
			return critique.ErrNoThemes
		}
		for _, t := range themes {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", t.Name, t.Color)
		}
		return nil
	},
}

var themesGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Ask the backend to propose themes for the current critique and save them to the board",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		ctx := cmd.Context()
		snap, err := runAnalysis(ctx, services, analysisOptions{tone: critique.ToneNormal})
		if err != nil {
			return err
		}
		themes, err := services.Themes.Generate(ctx, snap.Points)
		if err != nil {
			return err
		}
		if err := services.Workspace.Board.SaveThemes(ctx, themes); err != nil {
			return fmt.Errorf("failed to save themes: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Saved %d themes to the board:\n", len(themes))
		for _, t := range themes {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %s\n", t.Name, t.Color)
		}
		return nil
	},
}

func init() {
	themesCmd.AddCommand(themesListCmd)
	themesCmd.AddCommand(themesGenerateCmd)
	RootCmd.AddCommand(themesCmd)
}
