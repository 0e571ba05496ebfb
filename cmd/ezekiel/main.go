// Package main provides the CLI entry point for ezekiel, the exclusive
// object-locking service.
//
// # Basic Usage
//
// Start the server:
//
//	ezekiel serve --config ezekiel.yaml
//
// Print version information:
//
//	ezekiel version
//
// # Environment Variables
//
// Any ${VAR} reference in the config file is expanded from the process
// environment before the YAML is parsed.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "ezekiel",
		Short:        "ezekiel - cooperative exclusive object-locking service",
		Long:         "ezekiel coordinates exclusive access to named objects across WebSocket, SSE, and REST clients.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(buildServeCmd(), buildVersionCmd())
	return rootCmd
}
