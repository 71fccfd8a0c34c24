package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/critique/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/critique/pkg/application"
	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

const cliSessionID = "cli"

var (
	analyzeTone       string
	analyzeSimplified bool
	analyzeGrouped    bool
	analyzePost       bool
	analyzeJSON       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Generate a critique from the board and print the chosen variant",
	RunE: func(cmd *cobra.Command, args []string) error {
		tone, err := critique.ParseTone(analyzeTone)
		if err != nil {
			return err
		}

		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		snap, err := runAnalysis(cmd.Context(), services, analysisOptions{
			tone:       tone,
			simplified: analyzeSimplified,
			grouped:    analyzeGrouped,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if analyzeJSON {
			if err := printJSON(out, snap); err != nil {
				return err
			}
		} else {
			printSnapshot(out, snap)
		}

		if analyzePost {
			coord, _ := services.Sessions.Get(cliSessionID)
			n, err := coord.PostToBoard(cmd.Context())
			if err != nil {
				return err
			}
			if !analyzeJSON {
				fmt.Fprintf(out, "\nPosted %d points to the board.\n", n)
			}
		}
		return nil
	},
}

type analysisOptions struct {
	tone       critique.Tone
	simplified bool
	grouped    bool
}

// runAnalysis drives the CLI session to the requested variant.
func runAnalysis(ctx context.Context, services *wiring.AppServices, opts analysisOptions) (application.Snapshot, error) {
	coord, err := services.Sessions.Open(cliSessionID)
	if err != nil {
		return application.Snapshot{}, err
	}
	if err := coord.NotesChanged(ctx); err != nil {
		return application.Snapshot{}, err
	}
	if opts.simplified {
		if err := coord.SetSimplified(ctx, true); err != nil {
			return application.Snapshot{}, err
		}
	}
	if opts.tone != critique.ToneNormal {
		if err := coord.SetTone(ctx, opts.tone); err != nil {
			return application.Snapshot{}, err
		}
	}
	if opts.grouped {
		if err := coord.RefreshThemes(ctx); err != nil {
			return application.Snapshot{}, err
		}
		coord.SetGrouped(true)
	}
	return coord.Snapshot(), nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTone, "tone", "", "Tone (normal, persuasive, aggressive, critical)")
	analyzeCmd.Flags().BoolVar(&analyzeSimplified, "simplified", false, "Use plain, short wording")
	analyzeCmd.Flags().BoolVar(&analyzeGrouped, "grouped", false, "Group points by the board's themes")
	analyzeCmd.Flags().BoolVar(&analyzePost, "post", false, "Post the points to the board")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the snapshot as JSON")
	RootCmd.AddCommand(analyzeCmd)
}
