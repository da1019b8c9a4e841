package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/formbot/internal/cli"
	"github.com/aretw0/formbot/internal/config"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "formbot",
	Short: "formbot collects a short participant profile through a chat dialogue",
	Long: `formbot asks for name, age, gender, photo, education and a news preference,
one message at a time, and stores the completed profile.

Settings come from the environment and an optional .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
			files = append(files, envFile)
		}
		loaded, err := config.Load(files...)
		if err != nil {
			return err
		}
		if store, _ := cmd.Flags().GetString("store"); store != "" {
			loaded.StoreURL = store
		}
		cfg = loaded
		logger = cli.NewLogger(cfg)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := cli.HandleExecutionError(rootCmd.Execute()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "Read settings from this file instead of ./.env")
	rootCmd.PersistentFlags().String("store", "", "Override STORE_URL (memory://, file://dir, redis://host:port/db)")
}
