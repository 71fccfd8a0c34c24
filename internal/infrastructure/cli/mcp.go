package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/critique/internal/infrastructure/mcp"
)

var (
	mcpTransport string
	mcpAddr      string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for agent clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		server, err := mcp.NewServer(services)
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		if os.Getenv("CRITIQUE_SKIP_MCP_START") == "true" {
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		switch mcpTransport {
		case "stdio":
			return server.ServeStdio(ctx)
		case "http":
			fmt.Fprintf(os.Stderr, "Starting MCP server on %s\n", mcpAddr)
			return server.ServeHTTP(ctx, mcpAddr)
		default:
			return NewCLIError(fmt.Sprintf("unsupported transport %q", mcpTransport), "Use --transport stdio or --transport http", nil)
		}
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport (stdio, http)")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", ":8090", "Listen address for the http transport")
	RootCmd.AddCommand(mcpCmd)
}
