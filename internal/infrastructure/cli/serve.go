package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/critique/internal/infrastructure/server"
	"github.com/felixgeelhaar/critique/internal/infrastructure/watch"
	"github.com/felixgeelhaar/critique/internal/infrastructure/wiring"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve critique sessions over HTTP with live event streams",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		addr := serveAddr
		if addr == "" {
			addr = services.Workspace.Config.Addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(addr, server.NewHandlers(server.HandlersConfig{
			Sessions:  services.Sessions,
			Synthesis: services.Synthesis,
			Themes:    services.Themes,
			Store:     services.Workspace.Board,
			Provider:  services.Provider.ID(),
			Version:   Version,
			Logger:    services.Logger,
		}), services.Logger)
		srv.OnShutdown(services.Sessions.CloseAll)

		if serveWatch {
			w, err := newSessionsWatcher(services)
			if err != nil {
				return err
			}
			go func() {
				if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					services.Logger.Error("board watcher stopped", "error", err)
				}
			}()
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Serving critique API on %s\n", addr)
		return srv.Run(ctx)
	},
}

// newSessionsWatcher notifies every open session when the board file changes.
func newSessionsWatcher(services *wiring.AppServices) (*watch.BoardWatcher, error) {
	w, err := watch.NewBoardWatcher(0, func(ctx context.Context, e watch.ChangeEvent) error {
		var errs []error
		for _, id := range services.Sessions.IDs() {
			coord, ok := services.Sessions.Get(id)
			if !ok {
				continue
			}
			if err := coord.NotesChanged(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}, services.Logger)
	if err != nil {
		return nil, err
	}
	if err := w.Watch(services.Workspace.Repo.Dir()); err != nil {
		return nil, err
	}
	return w, nil
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to the configured addr)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Regenerate open sessions when the board file changes")
	RootCmd.AddCommand(serveCmd)
}
