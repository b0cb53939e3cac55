package cmd

import (
	"github.com/spf13/cobra"
	"speech-coach/config"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{}
	rootCmd.AddCommand(server(config))
	rootCmd.AddCommand(analyze(config))
	return rootCmd
}
