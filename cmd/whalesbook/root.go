package main

import (
	"github.com/spf13/cobra"

	"github.com/melih/whalesbook/internal/config"
	"github.com/melih/whalesbook/internal/logging"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var verbose bool
	var logFormat string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "whalesbook",
		Short:         "Keep container deployments on the latest commit of their git refs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Setup(verbose, logFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", config.DefaultPath, "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newScheduleCommand(ctx))
	rootCmd.AddCommand(newBookCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newRegistryCommand(ctx))

	return rootCmd
}
