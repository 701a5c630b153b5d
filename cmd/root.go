package cmd

import (
	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	loader := &appLoader{}

	rootCmd := &cobra.Command{
		Use:           "dca",
		Short:         "Distributed Cloud Assistant (dca): ask your cloud questions in plain language",
		Long:          "dca answers natural-language questions about a distributed cloud (a system controller plus subclouds) by querying its Kubernetes and Wind River management APIs and keeping the conversation context.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&loader.opts.ConfigFile, "config", "", "config file (default $HOME/.config/dca/config.toml)")
	rootCmd.PersistentFlags().StringVar(&loader.opts.EnvFile, "env-file", "", "dotenv file loaded before reading the environment (default .env)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newAskCmd(loader),
		newChatCmd(loader),
		newInstancesCmd(loader),
		newServeCmd(loader),
	)

	return rootCmd
}
