package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	projectPath string
	logLevel    string
	logFormat   string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "critique",
	Version: Version,
	Short:   "Design critique from the decisions a team agreed on",
	Long: `Critique reads the design challenge and the agreed decisions from a board,
asks a language model for candid critique, and lets you flip between tones
and simplified wording without paying for the same generation twice.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints mapped errors with their hints.
func Execute() error {
	err := RootCmd.Execute()
	if err == nil {
		return nil
	}
	err = MapError(err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.Hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", cliErr.Hint)
	}
	return err
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.ExitCode != 0 {
		return cliErr.ExitCode
	}
	return 1
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&projectPath, "project", "C", "", "Workspace directory (defaults to the current directory)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format override (text, json)")
}
