package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent sync events (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		events, err := e.journal.Recent(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, ev := range events {
			ts := ev.OccurredAt.Format("2006-01-02 15:04:05")
			dest := ev.Destination
			if dest == "" {
				dest = "-"
			}
			fmt.Printf("%s  %-14s  %-10s  %s\n", ts, ev.Kind, dest, ev.Title)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(changesCmd)
	changesCmd.Flags().Int("limit", 50, "Number of recent events to show")
}
