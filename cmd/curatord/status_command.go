package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue depth and the latest sync pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFlag)
			if err != nil {
				return err
			}
			store, err := openStore(configFlag)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			count, err := store.CountClaimable(cmd.Context(), false)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "database: %s\n", store.Path())
			fmt.Fprintf(out, "claimable tasks: %d\n", count)

			run, err := store.LatestSyncRun(cmd.Context(), cfg.Provider.OwnerID)
			if err != nil {
				return err
			}
			if run == nil {
				fmt.Fprintln(out, "no sync pass recorded yet")
				return nil
			}

			rows := [][]string{{
				strconv.FormatInt(run.ID, 10),
				run.StartedAt.Local().Format(time.RFC3339),
				strconv.Itoa(run.NewCount),
				strconv.Itoa(run.ChangedCount),
				strconv.Itoa(run.DeletedCount),
				(time.Duration(run.DurationMS) * time.Millisecond).String(),
			}}
			fmt.Fprintln(out, renderTable(
				[]string{"RUN", "STARTED", "NEW", "CHANGED", "DELETED", "DURATION"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}
