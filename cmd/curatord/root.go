package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"curator/internal/config"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "curatord",
		Short:         "Curator media mirror daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newStartCommand(&configFlag))
	rootCmd.AddCommand(newStatusCommand(&configFlag))
	rootCmd.AddCommand(newQueueCommand(&configFlag))
	rootCmd.AddCommand(newSyncCommand(&configFlag))
	rootCmd.AddCommand(newConfigCommand(&configFlag))

	return rootCmd
}

// loadConfig resolves and validates configuration for a subcommand.
func loadConfig(configFlag *string) (*config.Config, error) {
	flag := ""
	if configFlag != nil {
		flag = *configFlag
	}
	cfg, path, exists, err := config.Load(flag)
	if err != nil {
		return nil, err
	}
	if flag != "" && !exists {
		return nil, fmt.Errorf("config file not found at %s", path)
	}
	return cfg, nil
}
