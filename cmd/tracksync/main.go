package main

import (
	"os"

	"github.com/spf13/cobra"

	"tracksync/internal/utils"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tracksync",
		Short: "Offline-first companion client for the task tracking service",
		Long: `tracksync keeps a durable local cache of tasks, projects, users and
notifications, pushes local changes to the tracking service when
connectivity allows, and refreshes the cache from server state.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			utils.SetVerboseMode(flagVerbose)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newTaskCmd(),
		newSyncCmd(),
		newStatusCmd(),
		newDaemonCmd(),
		newWatchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
