// Package main implements tutorctl, a command-line client for the tutord
// HTTP API.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	server  string
	token   string
	timeout time.Duration
}

func (o *options) client() *client {
	return newClient(o.server, o.token, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "tutorctl",
		Short: "CLI for tutord server operations",
		Long: `tutorctl is a command-line interface for the tutord HTTP server.
It routes queries, manages course content and drives tutoring sessions.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("TUTORCTL_SERVER", "http://localhost:8080"), "tutord server URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("TUTORCTL_TOKEN"), "API bearer token")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 90*time.Second, "request timeout")

	root.AddCommand(
		newHealthCmd(opts),
		newClassifyCmd(opts),
		newSearchCmd(opts),
		newIngestCmd(opts),
		newCountCmd(opts),
		newSessionCmd(opts),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
