package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	gatemcp "github.com/ppiankov/hookgate/internal/mcp"
)

var mcpServer string

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpServer, "server", "", "Evaluate through a gate server at host:port instead of in-process")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long: "Runs hookgate as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes check tools so an agent can ask for a verdict before acting:\n" +
		"check_command, check_file, validate_new_file, validate_file_contains, validate_setup.",
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	proj, err := loadProject("")
	if err != nil {
		return err
	}
	defer proj.close()

	eval, release, err := proj.evaluator(mcpServer)
	if err != nil {
		return fmt.Errorf("create evaluator: %w", err)
	}
	defer release()

	srv := gatemcp.New(eval, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "hookgate MCP server running on stdio (session %s)\n", srv.SessionID())
	return srv.Run(ctx)
}
