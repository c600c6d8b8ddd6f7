package main

import (
	"fmt"

	"github.com/aretw0/parley"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the script for consistency",
	Long:  `Compiles the script and reports states that cannot answer or cannot be entered, dangling rule targets and undeclared finish manners.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bot, err := parley.Open(scriptArg(cmd, args), parley.WithStrict())
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		info := bot.Script().Describe()
		cmd.Printf("Script %q: %d states, %d manners, %d phrases\n",
			info.Name, len(info.States), len(info.Manners), info.Phrases)
		cmd.Println("Script is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
