// Package main provides the CLI entry point for the TaskPilot agent server.
//
// TaskPilot turns free-form chat messages into verified task mutations: the
// server reconstructs conversation context, asks an LLM provider for a
// completion with tool calling, executes the resulting task operations with
// read-back verification, and synthesizes a natural-language reply.
//
// # Basic Usage
//
// Start the server:
//
//	taskpilot serve --config taskpilot.yaml
//
// Issue an access token for a user:
//
//	taskpilot token --user alice --config taskpilot.yaml
//
// # Environment Variables
//
// Configuration values in the YAML file are environment-expanded, so secrets
// can be provided via:
//
//   - OPENAI_API_KEY: OpenAI (or OpenAI-compatible) API key
//   - ANTHROPIC_API_KEY: Anthropic API key for Claude models
//   - TASKPILOT_JWT_SECRET: HMAC secret for access tokens
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"     // Semantic version (e.g., "v1.0.0")
	commit  = "none"    // Git commit SHA
	date    = "unknown" // Build timestamp
)

func main() {
	// Default logger until serve loads the configured one.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// This is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskpilot",
		Short: "TaskPilot - conversational task management agent",
		Long: `TaskPilot runs a chat-driven task assistant over HTTP.

Each message is sent through an LLM with task tools (add, list, update,
complete, delete, analytics); every mutation is verified against storage
before the assistant claims it happened.

Supported LLM providers: OpenAI (and compatible backends), Anthropic
Supported storage: PostgreSQL, SQLite, in-memory`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildTokenCmd(),
	)

	return rootCmd
}
