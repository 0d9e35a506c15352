package main

import (
	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that starts the agent server.
// This is the primary command for running TaskPilot in production.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the TaskPilot agent server",
		Long: `Start the TaskPilot agent server.

The server will:
1. Load configuration from the specified file (or defaults)
2. Initialize task and conversation storage
3. Initialize the configured LLM provider
4. Start the HTTP API with JWT authentication
5. Start the reminder scheduler

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  taskpilot serve

  # Start with custom config
  taskpilot serve --config /etc/taskpilot/production.yaml

  # Start with debug logging
  taskpilot serve --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	return cmd
}

// buildTokenCmd creates the "token" command that mints an access token for a
// user id, for bootstrapping clients against a running server.
func buildTokenCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		email      string
		name       string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for a user",
		Example: `  # Issue a token for user "alice"
  taskpilot token --user alice --config taskpilot.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, configPath, userID, email, name)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to YAML configuration file")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id to embed in the token (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&name, "name", "", "Display name claim")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
