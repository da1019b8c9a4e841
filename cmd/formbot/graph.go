package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/formbot/internal/cli"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the dialogue as a Mermaid diagram",
	Long:  `Prints the transition table as a Mermaid stateDiagram-v2, including /fillform and /cancel edges.`,
	Run: func(cmd *cobra.Command, args []string) {
		cli.PrintGraph(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
