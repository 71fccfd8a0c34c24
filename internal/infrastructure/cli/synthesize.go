package cli

import (
	"github.com/spf13/cobra"
)

var synthesizeJSON bool

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Merge every past critique run into one deduplicated list",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		result, err := services.Synthesis.Synthesize(cmd.Context())
		if err != nil {
			return err
		}
		if synthesizeJSON {
			return printJSON(cmd.OutOrStdout(), result)
		}
		printSynthesis(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	synthesizeCmd.Flags().BoolVar(&synthesizeJSON, "json", false, "Print the result as JSON")
	RootCmd.AddCommand(synthesizeCmd)
}
