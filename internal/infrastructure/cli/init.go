package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/critique/internal/infrastructure/config"
	"github.com/felixgeelhaar/critique/pkg/ai"
	"github.com/felixgeelhaar/critique/pkg/storage"
)

var (
	initProvider string
	initModel    string
)

var initCmd = &cobra.Command{
	Use:   "init [challenge]",
	Short: "Initialize a critique workspace with a sample board",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		repo := storage.NewFilesystemRepository(root)
		if repo.IsInitialized() {
			return NewCLIError("workspace already initialized", "Edit .critique/board.yaml or remove .critique to start over", nil)
		}

		provider := strings.ToLower(initProvider)
		supported := false
		for _, p := range ai.SupportedProviders() {
			if p == provider {
				supported = true
			}
		}
		if !supported {
			return NewCLIError(fmt.Sprintf("unsupported provider %q", initProvider),
				"Use one of: "+strings.Join(ai.SupportedProviders(), ", "), nil)
		}

		if err := repo.Initialize(); err != nil {
			return err
		}

		cfg := config.Default()
		cfg.Provider = provider
		if initModel != "" {
			cfg.Model = initModel
		}
		if err := config.Save(root, cfg); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		challenge := "Describe the design challenge here"
		if len(args) > 0 {
			challenge = args[0]
		}
		board, err := storage.NewFileBoard(repo)
		if err != nil {
			return err
		}
		if err := board.Save(&storage.BoardSnapshot{
			Challenge: challenge,
			Decisions: []string{"Replace this with the first decision the team agreed on"},
		}); err != nil {
			return fmt.Errorf("failed to write board: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Initialized critique workspace in %s\n", repo.Dir())
		fmt.Fprintln(cmd.OutOrStdout(), "Add decisions to .critique/board.yaml, then run 'critique analyze'.")
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initProvider, "provider", "ollama", "Generation backend ("+strings.Join(ai.SupportedProviders(), ", ")+")")
	initCmd.Flags().StringVar(&initModel, "model", "", "Model name for the backend")
	RootCmd.AddCommand(initCmd)
}
