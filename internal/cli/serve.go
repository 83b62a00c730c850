package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hookgate/internal/gate"
	"github.com/ppiankov/hookgate/internal/rules"
	"github.com/ppiankov/hookgate/internal/server"
)

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", server.DefaultPort, "gRPC listen port (loopback only)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC gate server",
	Long: "Runs hookgate as a long-lived gate server for one project.\n" +
		"Hooks configured with server: 127.0.0.1:<port> evaluate remotely and\n" +
		"share one audit writer. The rules file is hot-reloaded on change.",
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	proj, err := loadProject("")
	if err != nil {
		return err
	}
	defer proj.close()

	g, err := gate.Open(proj.cfg, proj.root, proj.log)
	if err != nil {
		return fmt.Errorf("open gate: %w", err)
	}
	defer g.Close()

	rulesPath := proj.cfg.Rules
	if rulesPath == "" {
		rulesPath = rules.DefaultPath()
	}
	srv := server.New(g, rulesPath, proj.log)

	reloader, err := server.NewReloader(srv, []string{rulesPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if reloader != nil {
		go reloader.Run(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down gate server...")
		cancel()
		srv.GracefulStop()
	}()

	fmt.Fprintf(os.Stderr, "hookgate server listening on 127.0.0.1:%d\n", servePort)
	fmt.Fprintf(os.Stderr, "Root:   %s\n", proj.root)
	fmt.Fprintf(os.Stderr, "Policy: %s\n", g.PolicyHash())
	if reloader != nil && reloader.Watching() > 0 {
		fmt.Fprintf(os.Stderr, "Rules:  %s (hot-reload enabled)\n", rulesPath)
	}
	fmt.Fprintln(os.Stderr)

	return srv.Serve(servePort)
}
