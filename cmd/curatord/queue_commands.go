package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/queue"
)

func newQueueCommand(configFlag *string) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the task queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	queueCmd.AddCommand(newQueueListCommand(configFlag))
	queueCmd.AddCommand(newQueueCountCommand(configFlag))
	return queueCmd
}

func newQueueListCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending tasks in claim order",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(configFlag)
			if err != nil {
				return err
			}
			defer store.Close()

			pending, err := store.ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(pending))
			for _, task := range pending {
				rows = append(rows, []string{
					strconv.FormatInt(task.ID, 10),
					string(task.Type),
					strconv.FormatInt(task.RelatedEntityID, 10),
					strconv.Itoa(task.Priority),
					formatNotBefore(task.NotBefore),
					dependsOn(task),
					strconv.Itoa(task.TimesSeen),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "TYPE", "ENTITY", "PRI", "NOT BEFORE", "WAITS ON", "SEEN"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newQueueCountCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count tasks claimable right now",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(configFlag)
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.CountClaimable(cmd.Context(), false)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), count)
			return nil
		},
	}
}

func openStore(configFlag *string) (*queue.Store, error) {
	cfg, err := loadConfig(configFlag)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return queue.Open(cfg)
}

func formatNotBefore(notBefore time.Time) string {
	if wait := time.Until(notBefore); wait > time.Second {
		return fmt.Sprintf("in %s", wait.Round(time.Second))
	}
	return "now"
}

func dependsOn(task *queue.Task) string {
	if task.DependsOnTaskID == nil {
		return "-"
	}
	return strconv.FormatInt(*task.DependsOnTaskID, 10)
}
