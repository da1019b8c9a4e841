package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/formbot/internal/cli"
)

// runCmd starts the Telegram bot.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Telegram bot",
	Long:  `Long-polls Telegram with TELEGRAM_TOKEN and serves Prometheus metrics on METRICS_ADDR.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.NewSignalContext(cmd.Context()).Run(logger, func(ctx context.Context) error {
			return cli.RunTelegram(ctx, cfg, logger)
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dialogue over HTTP",
	Long: `Exposes the dialogue as a JSON API on HTTP_ADDR:

  POST   /participants/{id}/events
  GET    /participants/{id}/session
  DELETE /participants/{id}/session
  GET    /participants/{id}/profile
  GET    /participants/{id}/stream   (server-sent events)
  GET    /metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.NewSignalContext(cmd.Context()).Run(logger, func(ctx context.Context) error {
			return cli.RunServe(ctx, cfg, logger)
		})
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Play the dialogue in the terminal",
	Long: `Reads one message per line from stdin.

  !token        press the button with that token
  @file_id      send a photo
  anything else is sent as text`,
	RunE: func(cmd *cobra.Command, args []string) error {
		participant, _ := cmd.Flags().GetString("participant")
		return cli.NewSignalContext(cmd.Context()).Run(logger, func(ctx context.Context) error {
			return cli.RunConsole(ctx, cfg, logger, cli.ConsoleOptions{
				ParticipantID: participant,
				In:            cmd.InOrStdin(),
				Out:           cmd.OutOrStdout(),
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(consoleCmd)

	consoleCmd.Flags().StringP("participant", "p", "console", "Participant id the console speaks as")
}
