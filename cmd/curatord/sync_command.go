package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"curator/internal/queue"
)

func newSyncCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Make the change-detection task claimable immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFlag)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			// The enqueue is an upsert: with a daemon running this resets
			// the periodic task's gate to now, otherwise it seeds the task
			// the next daemon start will pick up.
			id, err := store.Enqueue(cmd.Context(), queue.NewTask{
				Type:            queue.TypeSyncCheck,
				RelatedEntityID: cfg.Provider.OwnerID,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sync check scheduled (task %d)\n", id)
			return nil
		},
	}
}
