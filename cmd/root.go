package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "botwire",
	Short: "Messaging provider adapter for chat-bot runtimes",
	Long:  "Botwire connects a chat-bot runtime to a messaging provider: it long-polls for updates, normalizes them into canonical events, and sends replies under the provider's rate ceiling.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
