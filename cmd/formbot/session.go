package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/formbot/internal/cli"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored sessions",
	Long:  `List, inspect, and remove in-progress dialogues in STORE_URL.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all active sessions",
	RunE: withStack(func(cmd *cobra.Command, stack *cli.Stack, args []string) error {
		return cli.ListSessions(cmd.Context(), stack, cmd.OutOrStdout())
	}),
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <participant-id>",
	Short: "Inspect the state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: withStack(func(cmd *cobra.Command, stack *cli.Stack, args []string) error {
		redact, _ := cmd.Flags().GetBool("redact")
		showGraph, _ := cmd.Flags().GetBool("graph")
		return cli.InspectSession(cmd.Context(), stack, args[0], cli.InspectOptions{Redact: redact, Graph: showGraph}, cmd.OutOrStdout())
	}),
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <participant-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: withStack(func(cmd *cobra.Command, stack *cli.Stack, args []string) error {
		var errs []error
		for _, id := range args {
			if err := cli.RemoveSession(cmd.Context(), stack, id, cmd.OutOrStdout()); err != nil {
				errs = append(errs, fmt.Errorf("remove %s: %w", id, err))
			}
		}
		return errors.Join(errs...)
	}),
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Read completed profiles",
}

var profileShowCmd = &cobra.Command{
	Use:   "show <participant-id>",
	Short: "Print the completed profile of a participant",
	Args:  cobra.ExactArgs(1),
	RunE: withStack(func(cmd *cobra.Command, stack *cli.Stack, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return cli.ShowProfile(cmd.Context(), cfg, stack, args[0], asJSON, cmd.OutOrStdout())
	}),
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd)

	sessionInspectCmd.Flags().Bool("redact", false, "Mask name and photo answers")
	sessionInspectCmd.Flags().Bool("graph", false, "Append the Mermaid diagram with the current state highlighted")
	profileShowCmd.Flags().Bool("json", false, "Print the stored record as JSON")
}

// withStack opens the configured stores for the duration of one command.
func withStack(fn func(*cobra.Command, *cli.Stack, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		stack, err := cli.OpenStack(cfg, logger)
		if err != nil {
			return err
		}
		defer stack.Close()
		return fn(cmd, stack, args)
	}
}
