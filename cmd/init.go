package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/supersh-sh/supersh/core/config"
)

// initCmd materializes the configuration directory.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the supersh configuration in the config directory.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := log.New(cmd.ErrOrStderr(), "", 0)

		return config.Initialize(cfgPath, logger)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
