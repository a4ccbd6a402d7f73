package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := newServeCommand()
	root := &cobra.Command{
		Use:           "stomp-broker",
		Short:         "STOMP 1.1 message broker",
		RunE:          serve.RunE,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "configuration file (json or yaml)")
	root.AddCommand(serve, newVersionCommand(), newUserCommand())
	return root
}
