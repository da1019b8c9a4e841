package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/formbot"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of formbot",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "formbot version %s\n", strings.TrimSpace(formbot.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
