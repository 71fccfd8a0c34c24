package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/critique/internal/infrastructure/watch"
	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

var (
	watchDebounce time.Duration
	watchOnce     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate and print the critique whenever the board changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		coord, err := services.Sessions.Open(cliSessionID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		var lastVersion uint64
		render := func(ctx context.Context) error {
			err := coord.NotesChanged(ctx)
			snap := coord.Snapshot()
			if err != nil && !critique.IsGenerationFailure(err) {
				return err
			}
			if snap.Version != lastVersion {
				lastVersion = snap.Version
				fmt.Fprintf(out, "\n== %s ==\n", snap.UpdatedAt.Format(time.Kitchen))
				printSnapshot(out, snap)
			}
			return nil
		}

		if err := render(ctx); err != nil {
			return err
		}
		if watchOnce {
			return nil
		}

		w, err := watch.NewBoardWatcher(watchDebounce, func(ctx context.Context, e watch.ChangeEvent) error {
			return render(ctx)
		}, services.Logger)
		if err != nil {
			return err
		}
		if err := w.Watch(services.Workspace.Repo.Dir()); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nWatching %s (Ctrl+C to stop)\n", services.Workspace.Repo.Dir())
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before regenerating")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Print the current critique and exit")
	RootCmd.AddCommand(watchCmd)
}
