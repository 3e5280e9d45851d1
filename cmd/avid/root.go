package main

import (
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "avid",
		Short:         "Automated batch workflows over medical imaging artifacts",
		Long:          "avid runs reproducible batch workflows over cohorts of imaging artifacts:\nsessions record every produced artifact with rich metadata, reruns are\nidempotent and results are selectable by content, not by filename.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "user configuration file (yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newSessionCmd(opts))
	return cmd
}
