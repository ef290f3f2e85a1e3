package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"curator/internal/config"
)

func newConfigCommand(configFlag *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage curator configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if configFlag != nil {
				target = *configFlag
			}
			if target == "" {
				path, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				target = path
			}
			if err := config.WriteSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote sample config to %s\n", target)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check that the configuration loads and validates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(configFlag); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	})

	return configCmd
}
