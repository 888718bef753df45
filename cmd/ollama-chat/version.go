package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/d4l-data4life/ollama-chat/pkg/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s (branch %s, commit %s, %s)\n",
			config.Name, config.Version, config.Branch, config.Commit, config.GoVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
