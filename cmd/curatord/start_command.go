package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"curator/internal/daemon"
	"curator/internal/logging"
	"curator/internal/queue"
)

func newStartCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the curator daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFlag)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue database: %w", err)
			}

			d, err := daemon.New(cfg, store, logger)
			if err != nil {
				store.Close()
				return err
			}
			defer d.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			d.Stop()
			return nil
		},
	}
}
