package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/formbot/internal/cli"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [prompts.yaml]",
	Short: "Check a prompts override against the dialogue",
	Long: `Merges the override onto the built-in catalog and checks that every step
has a prompt and reject text, every button has a label and every required
message is present. Without an argument it checks PROMPTS_FILE, or the
built-in catalog when that is unset.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.PromptsFile
		if len(args) > 0 {
			path = args[0]
		}
		return cli.ValidatePrompts(path, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
