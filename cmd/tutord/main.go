// Tutord is the adaptive tutoring daemon.
//
// It loads configuration, wires the query router, embedding pipeline,
// vector index, conversation manager and tutor session service, and serves
// them over HTTP until it receives SIGINT or SIGTERM.
//
// Usage:
//
//	# Start with ~/.config/tutor/config.yaml and TUTOR_* overrides
//	TUTOR_LLM_API_KEY=sk-... tutord
//
//	# Explicit config file
//	tutord serve --config /etc/tutor/config.yaml
//
//	tutord version
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	serve := func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx, configPath)
	}

	root := &cobra.Command{
		Use:          "tutord",
		Short:        "Adaptive tutoring daemon",
		SilenceUsage: true,
		Version:      version,
		RunE:         serve,
		Args:         cobra.NoArgs,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/tutor/config.yaml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the daemon (default)",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	})
	return root
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "tutord\n")
	fmt.Fprintf(w, "Version:    %s\n", version)
	fmt.Fprintf(w, "Commit:     %s\n", gitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", buildDate)
}

// run blocks until ctx is cancelled or the server fails.
func run(ctx context.Context, configPath string) error {
	app, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Serve(ctx)
}
