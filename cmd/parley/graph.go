package main

import (
	"fmt"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the script graph visualization",
	Long:  `Compiles the script and outputs a Mermaid diagram (graph TD) of its states, rules and finish manners.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bot, err := parley.Open(scriptArg(cmd, args))
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}

		cmd.Print(graph.GenerateMermaid(bot.Script().Describe(), nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
