package main

import (
	"github.com/spf13/cobra"

	"github.com/giantswarm/duolaunch/internal/config"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "duolaunch",
		Short: "Run a background service and a foreground app as one session",
		Long: "duolaunch starts the service, waits until its port accepts connections,\n" +
			"runs the foreground app until it exits, then stops both processes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", config.DefaultPath, "path to the launcher YAML file")

	run := newRunCmd(flags)
	// A bare `duolaunch` behaves like `duolaunch run`.
	root.RunE = run.RunE
	root.Flags().AddFlagSet(run.Flags())

	root.AddCommand(run)
	root.AddCommand(newCheckCmd(flags))
	root.AddCommand(newHistoryCmd(flags))

	return root
}
