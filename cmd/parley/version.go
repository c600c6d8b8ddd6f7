package main

import (
	"strings"

	"github.com/aretw0/parley"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of parley",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("parley version %s\n", strings.TrimSpace(parley.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
